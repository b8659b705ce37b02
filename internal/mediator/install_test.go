package mediator

import (
	"errors"
	"testing"

	"github.com/dotnope/dotnope/internal/audit"
	"github.com/dotnope/dotnope/internal/caller"
	"github.com/dotnope/dotnope/internal/model"
	"github.com/dotnope/dotnope/internal/policy"
)

func install(t *testing.T, cfg InstallConfig) *Handle {
	t.Helper()
	if cfg.Store == nil {
		cfg.Store = NewMapStore(nil)
	}
	h, err := Install(cfg)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	t.Cleanup(func() {
		if Installed() == h {
			h.Disable(h.Token())
		}
	})
	return h
}

func controlErr(t *testing.T, err error) *model.ControlError {
	t.Helper()
	var ce *model.ControlError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ControlError, got %v", err)
	}
	return ce
}

func TestInstallIsExclusive(t *testing.T) {
	install(t, InstallConfig{})

	_, err := Install(InstallConfig{Store: NewMapStore(nil)})
	ce := controlErr(t, err)
	if ce.Code != model.CodeAlreadyInstalled {
		t.Errorf("code: %s", ce.Code)
	}
}

func TestDisableRequiresToken(t *testing.T) {
	h := install(t, InstallConfig{})

	for _, bad := range []string{"", "nope", h.Token() + "x"} {
		err := h.Disable(bad)
		ce := controlErr(t, err)
		if ce.Code != model.CodeInvalidToken {
			t.Errorf("token %q: code %s", bad, ce.Code)
		}
		if !h.IsEnabled() {
			t.Fatal("enforcement must continue after a rejected teardown")
		}
		if Installed() != h {
			t.Fatal("mediator must remain installed after a rejected teardown")
		}
	}

	if err := h.Disable(h.Token()); err != nil {
		t.Fatalf("correct token: %v", err)
	}
	if h.IsEnabled() {
		t.Error("enforcement must stop after teardown")
	}
	if Installed() != nil {
		t.Error("teardown must clear the installation")
	}
}

func TestInstallTeardownInstallAgain(t *testing.T) {
	h := install(t, InstallConfig{})
	if err := h.Disable(h.Token()); err != nil {
		t.Fatal(err)
	}

	h2 := install(t, InstallConfig{})
	if h2 == h {
		t.Error("a new installation must issue a new handle")
	}
	if h2.Token() == h.Token() {
		t.Error("tokens must be fresh per installation")
	}
}

func TestLegacyDisableOnlyRaises(t *testing.T) {
	h := install(t, InstallConfig{})

	err := DisableUnconditionally()
	ce := controlErr(t, err)
	if ce.Code != model.CodeDeprecated {
		t.Errorf("code: %s", ce.Code)
	}
	if !h.IsEnabled() || Installed() != h {
		t.Error("legacy surface must not touch the mediator")
	}
}

func TestHandleAccessors(t *testing.T) {
	p, _ := policy.Normalize(map[string]any{
		"a": []any{"X"},
	})
	h := install(t, InstallConfig{Policy: p})

	if len(h.Token()) != 32 {
		t.Errorf("token must be 128 bits hex encoded, got %d chars", len(h.Token()))
	}
	if h.PolicyID() == "" {
		t.Error("policy id must be set")
	}
	if h.InstalledAt().IsZero() {
		t.Error("installedAt must be set")
	}
	if !h.IsWorkerAllowed() {
		t.Error("workers allowed by default")
	}
}

func TestSerializableConfigRoundTrip(t *testing.T) {
	p, _ := policy.Normalize(map[string]any{
		"a": map[string]any{"allowed": []any{"X", "Y"}},
		"b": map[string]any{"canWrite": []any{"Z"}},
	})
	h := install(t, InstallConfig{Policy: p})

	back, err := policy.Normalize(h.SerializableConfig())
	if err != nil {
		t.Fatal(err)
	}
	if policy.GeneratePolicy(back) != policy.GeneratePolicy(p) {
		t.Error("serialized config must reload to an equivalent policy")
	}
}

func TestSecurityWarnings(t *testing.T) {
	p, _ := policy.Normalize(map[string]any{
		"wild":   map[string]any{"canWrite": []any{"*"}},
		"creds":  []any{"AWS_SECRET_ACCESS_KEY"},
		"benign": []any{"NODE_ENV"},
	})
	h := install(t, InstallConfig{Policy: p})

	warnings := h.EmitSecurityWarnings()
	byPkg := map[string]int{}
	for _, w := range warnings {
		byPkg[w.Package]++
	}
	if byPkg["wild"] != 1 {
		t.Errorf("wildcard grant should warn once: %v", warnings)
	}
	if byPkg["creds"] != 1 {
		t.Errorf("credential-shaped grant should warn: %v", warnings)
	}
	if byPkg["benign"] != 0 {
		t.Errorf("benign grant should not warn: %v", warnings)
	}
}

func TestInstallWithAuditLog(t *testing.T) {
	dir := t.TempDir()
	auditPath := dir + "/access.jsonl"

	store := NewMapStore(map[string]string{"SECRET": "x"})
	r := caller.NewResolver(&stubBackend{frames: packageFrames("thief")})
	h := install(t, InstallConfig{Store: store, Resolver: r, AuditPath: auditPath, PolicyHash: "sha256:test"})

	h.Env().Get("SECRET")

	// Teardown closes the log cleanly.
	if err := h.Disable(h.Token()); err != nil {
		t.Fatal(err)
	}

	result, err := audit.Verify(auditPath)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Intact || result.Entries != 1 {
		t.Errorf("audit chain: %+v", result)
	}
}
