package integrity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dotnope/dotnope/internal/alert"
)

// ExpectedHash is set at build time via:
//
//	-ldflags "-X github.com/dotnope/dotnope/internal/integrity.ExpectedHash=<sha256hex>"
//
// When empty (dev builds), verification falls back to a checksum file.
var ExpectedHash string

// TamperLogDir is where tamper events are written. Override for testing.
var TamperLogDir = "/var/log/dotnope"

// ChecksumPaths are checked (in order) for a sha256 checksum file
// containing a single hex-encoded digest. Override for testing.
var ChecksumPaths = []string{
	"/etc/dotnope/binary.sha256",
	"$HOME/.dotnope/binary.sha256",
}

// TamperEvent records a binary integrity violation.
type TamperEvent struct {
	Timestamp    string `json:"timestamp"`
	Binary       string `json:"binary"`
	ExpectedHash string `json:"expected_hash"`
	ActualHash   string `json:"actual_hash"`
	Hostname     string `json:"hostname"`
	Type         string `json:"type"`
}

// VerifySelf checks that the running binary matches ExpectedHash.
// If ExpectedHash is empty, falls back to the checksum file. Returns
// nil if verification passes or no expected hash is available (dev
// mode). On mismatch, writes a tamper event before returning an error.
func VerifySelf() error {
	expected := ExpectedHash
	if expected == "" {
		expected = loadChecksumFile()
	}
	if expected == "" {
		return nil
	}

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("integrity: cannot resolve executable path: %w", err)
	}

	actual, err := HashFile(exePath, AlgoSHA256)
	if err != nil {
		return fmt.Errorf("integrity: cannot hash binary: %w", err)
	}
	if actual == expected {
		return nil
	}

	event := TamperEvent{
		Timestamp:    time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Binary:       exePath,
		ExpectedHash: expected,
		ActualHash:   actual,
		Type:         "binary_tamper",
	}
	event.Hostname, _ = os.Hostname()

	writeTamperEvent(event)

	return fmt.Errorf("integrity: binary checksum mismatch (expected %s, got %s)", expected, actual)
}

// HashSelf returns the SHA-256 hex digest of the running binary.
// Useful for writing the checksum file after install.
func HashSelf() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("integrity: cannot resolve executable path: %w", err)
	}
	return HashFile(exePath, AlgoSHA256)
}

// loadChecksumFile reads the expected hash from a checksum file.
// Returns empty string if no file is found or readable.
func loadChecksumFile() string {
	for _, p := range ChecksumPaths {
		path := os.ExpandEnv(p)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		sum := strings.TrimSpace(string(data))
		if len(sum) == 64 && isHex(sum) {
			return sum
		}
	}
	return ""
}

func isHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// writeTamperEvent appends a tamper event to the tamper log, prints to
// stderr for the journal, and fires webhook alerts best-effort.
func writeTamperEvent(event TamperEvent) {
	line, err := json.Marshal(event)
	if err != nil {
		return
	}

	logPath := filepath.Join(TamperLogDir, "tamper.jsonl")
	if err := os.MkdirAll(TamperLogDir, 0700); err == nil {
		if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600); err == nil {
			f.Write(append(line, '\n'))
			f.Sync()
			f.Close()
		}
	}

	fmt.Fprintf(os.Stderr, "TAMPER ALERT: %s\n", string(line))

	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	configs := alert.LoadFromFile(filepath.Join(home, ".dotnope", "dotnope.yaml"))
	for _, cfg := range configs {
		for _, e := range cfg.Events {
			if e == "binary_tamper" || e == "deny" {
				// Synchronous — the process is about to refuse startup.
				alert.Send(cfg, alert.Event{
					Timestamp: event.Timestamp,
					Type:      event.Type,
					Decision:  "deny",
					Reason:    fmt.Sprintf("binary checksum mismatch: expected %s, got %s", event.ExpectedHash, event.ActualHash),
					Hostname:  event.Hostname,
				})
				break
			}
		}
	}
}
