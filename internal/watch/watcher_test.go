package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dotnope/dotnope/internal/policy"
)

func TestReloadDeliversNewPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dotnope.yaml")
	os.WriteFile(path, []byte("cfg: [A]\n"), 0600)

	got := make(chan *policy.Policy, 4)
	w := New(path, func(p *policy.Policy, hash string) {
		if hash == "" {
			t.Error("hash must accompany each reload")
		}
		got <- p
	})
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register, then rewrite the file.
	time.Sleep(100 * time.Millisecond)
	os.WriteFile(path, []byte("cfg: [A, B]\n"), 0600)

	select {
	case p := <-got:
		if !p.MayRead("cfg", "B") {
			t.Error("reloaded policy must carry the new grant")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestReloadKeepsOldPolicyOnParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dotnope.yaml")
	os.WriteFile(path, []byte("cfg: [A]\n"), 0600)

	reloads := make(chan struct{}, 4)
	errs := make(chan error, 4)
	w := New(path, func(*policy.Policy, string) { reloads <- struct{}{} })
	w.OnError = func(err error) { errs <- err }
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	os.WriteFile(path, []byte("cfg: \"scalar is not a grant list\"\n"), 0600)

	select {
	case <-errs:
		// Parse failure reported, handler never called.
	case <-reloads:
		t.Fatal("handler must not fire for an unparseable file")
	case <-time.After(5 * time.Second):
		t.Fatal("no error observed")
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dotnope.yaml")
	os.WriteFile(path, []byte("cfg: [A]\n"), 0600)

	reloads := make(chan struct{}, 4)
	w := New(path, func(*policy.Policy, string) { reloads <- struct{}{} })
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: [Y]\n"), 0600)

	select {
	case <-reloads:
		t.Fatal("sibling file writes must not trigger a reload")
	case <-time.After(300 * time.Millisecond):
	}
}
