package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeAddon(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "libdotnope.so")
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWriteAndVerifyManifest(t *testing.T) {
	addon := writeAddon(t, []byte("native code bytes"))

	m, err := WriteManifest(addon, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if m.Addon.Algorithm != AlgoSHA256 {
		t.Errorf("default algorithm: %s", m.Addon.Algorithm)
	}
	if m.Addon.Size != int64(len("native code bytes")) {
		t.Errorf("size: %d", m.Addon.Size)
	}

	want := sha256.Sum256([]byte("native code bytes"))
	if m.Addon.Hash != hex.EncodeToString(want[:]) {
		t.Error("manifest hash must be the sha256 of the file")
	}

	result, err := VerifyFile(addon, "")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Verified() {
		t.Errorf("pristine file must verify: %+v", result)
	}
}

func TestVerifyBlake3(t *testing.T) {
	addon := writeAddon(t, []byte("blake3 attested"))

	if _, err := WriteManifest(addon, "", AlgoBLAKE3); err != nil {
		t.Fatal(err)
	}
	result, err := VerifyFile(addon, "")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Verified() {
		t.Errorf("blake3 manifest must verify: %+v", result)
	}
}

func TestVerifyRefusesModifiedFile(t *testing.T) {
	addon := writeAddon(t, []byte("original"))
	if _, err := WriteManifest(addon, "", ""); err != nil {
		t.Fatal(err)
	}

	// Same length, different bytes: the size check passes, the hash
	// check must refuse.
	os.WriteFile(addon, []byte("tampered"), 0600)

	result, err := VerifyFile(addon, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeRefused {
		t.Fatalf("expected refusal, got %s", result.Outcome)
	}
	if result.Err == nil || result.Err.Field != "hash" {
		t.Errorf("refusal must carry the hash mismatch: %+v", result.Err)
	}
}

func TestVerifyRefusesSizeMismatch(t *testing.T) {
	addon := writeAddon(t, []byte("original"))
	if _, err := WriteManifest(addon, "", ""); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(addon, []byte("grew considerably larger"), 0600)

	result, err := VerifyFile(addon, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeRefused || result.Err.Field != "size" {
		t.Errorf("expected size refusal, got %+v", result)
	}
}

func TestVerifyMissingManifestWarns(t *testing.T) {
	addon := writeAddon(t, []byte("unattested"))

	result, err := VerifyFile(addon, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeWarning {
		t.Errorf("missing manifest must warn, got %s", result.Outcome)
	}
}

func TestManifestDocumentShape(t *testing.T) {
	addon := writeAddon(t, []byte("shape"))
	if _, err := WriteManifest(addon, "", ""); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(ManifestPathFor(addon))
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"version", "generatedAt", "addon", "node"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("manifest document missing %s", key)
		}
	}
}

func TestHashFileUnsupportedAlgorithm(t *testing.T) {
	addon := writeAddon(t, []byte("x"))
	if _, err := HashFile(addon, "md5"); err == nil {
		t.Error("unsupported algorithm must error")
	}
}

func TestVerifySelfDevModePasses(t *testing.T) {
	old := ChecksumPaths
	ChecksumPaths = []string{filepath.Join(t.TempDir(), "absent.sha256")}
	defer func() { ChecksumPaths = old }()

	if err := VerifySelf(); err != nil {
		t.Errorf("dev build without expected hash must pass: %v", err)
	}
}

func TestVerifySelfChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	sumPath := filepath.Join(dir, "binary.sha256")
	os.WriteFile(sumPath, []byte("0000000000000000000000000000000000000000000000000000000000000000\n"), 0600)

	oldPaths, oldLog := ChecksumPaths, TamperLogDir
	ChecksumPaths = []string{sumPath}
	TamperLogDir = filepath.Join(dir, "log")
	defer func() { ChecksumPaths, TamperLogDir = oldPaths, oldLog }()

	if err := VerifySelf(); err == nil {
		t.Fatal("mismatched checksum must fail")
	}
	if _, err := os.Stat(filepath.Join(TamperLogDir, "tamper.jsonl")); err != nil {
		t.Error("tamper event must be written")
	}
}
