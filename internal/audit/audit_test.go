package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempLogPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "access.jsonl")
}

func TestRecordChainsHashes(t *testing.T) {
	path := tempLogPath(t)
	log, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	entries := []Entry{
		{TraceID: "t1", Access: Access{Package: "sketchy", Variable: "AWS_SECRET", Op: "read"}, Decision: "deny", Reason: "UNAUTHORIZED_READ"},
		{TraceID: "t1", Access: Access{Package: "cfg", Variable: "NODE_ENV", Op: "read"}, Decision: "allow"},
	}
	for _, e := range entries {
		if err := log.Record(e); err != nil {
			t.Fatal(err)
		}
	}
	log.Close()

	f, _ := os.Open(path)
	defer f.Close()
	scanner := bufio.NewScanner(f)

	var lines [][]byte
	for scanner.Scan() {
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		lines = append(lines, line)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var first, second Entry
	json.Unmarshal(lines[0], &first)
	json.Unmarshal(lines[1], &second)

	if first.PrevHash != GenesisHash {
		t.Errorf("first entry must chain from genesis, got %s", first.PrevHash)
	}
	if second.PrevHash != HashLine(lines[0]) {
		t.Error("second entry must chain from the first line's hash")
	}
	if first.Timestamp == "" {
		t.Error("timestamp must be stamped when empty")
	}
}

func TestOpenRecoversChainTail(t *testing.T) {
	path := tempLogPath(t)

	log, _ := Open(path)
	log.Record(Entry{TraceID: "a", Decision: "allow"})
	log.Close()

	// Reopen and append; the chain must continue, not restart.
	log, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	log.Record(Entry{TraceID: "b", Decision: "deny"})
	log.Close()

	result, err := Verify(path)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Intact || result.Entries != 2 {
		t.Errorf("reopened chain must verify: %+v", result)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	path := tempLogPath(t)

	log, _ := Open(path)
	for i := 0; i < 3; i++ {
		log.Record(Entry{TraceID: "t", Decision: "allow"})
	}
	log.Close()

	data, _ := os.ReadFile(path)
	tampered := strings.Replace(string(data), `"allow"`, `"deny"`, 1)
	os.WriteFile(path, []byte(tampered), 0600)

	result, err := Verify(path)
	if err != nil {
		t.Fatal(err)
	}
	if result.Intact {
		t.Fatal("tampered log must not verify")
	}
	if result.BrokenAt != 2 {
		t.Errorf("chain should break at line 2 (the entry after the modified line), got %d", result.BrokenAt)
	}
}

func TestVerifyEmptyLog(t *testing.T) {
	path := tempLogPath(t)
	os.WriteFile(path, nil, 0600)

	result, err := Verify(path)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Intact || result.Entries != 0 {
		t.Errorf("empty log is trivially intact: %+v", result)
	}
}
