package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// VerifyResult summarizes a chain verification pass.
type VerifyResult struct {
	Entries   int    `json:"entries"`
	Intact    bool   `json:"intact"`
	BrokenAt  int    `json:"broken_at,omitempty"`
	FirstHash string `json:"first_hash,omitempty"`
	LastHash  string `json:"last_hash,omitempty"`
}

// Verify walks the log file and checks the hash chain end to end.
// BrokenAt is the 1-based line number of the first entry whose
// prev_hash does not match the hash of the preceding line.
func Verify(path string) (*VerifyResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	defer f.Close()

	result := &VerifyResult{Intact: true}
	expected := GenesisHash

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			result.Intact = false
			result.BrokenAt = lineNo
			return result, nil
		}
		if entry.PrevHash != expected {
			result.Intact = false
			result.BrokenAt = lineNo
			return result, nil
		}

		hash := HashLine(line)
		if result.Entries == 0 {
			result.FirstHash = hash
		}
		result.LastHash = hash
		result.Entries++
		expected = hash
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan log: %w", err)
	}

	return result, nil
}
