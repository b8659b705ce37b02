// Package interposer implements the decision core of the preloaded
// shared library that intercepts C-level environment reads. The gate is
// intentionally coarse: no per-package identity exists below the
// runtime, only the union allow-set serialized into DOTNOPE_POLICY.
package interposer

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	// PolicyVar carries the serialized allow-set, set by the launcher.
	PolicyVar = "DOTNOPE_POLICY"
	// LogVar optionally names the decision log file.
	LogVar = "DOTNOPE_LOG"
	// PreloadVar is the loader's injection list.
	PreloadVar = "LD_PRELOAD"
	// Wildcard mirrors the runtime policy sentinel.
	Wildcard = "*"
)

// Gate answers per-variable allow/deny for C-level reads. The policy is
// parsed once per process on first use; subsequent calls take a
// read-only fast path.
type Gate struct {
	once     sync.Once
	allowAll bool
	allowed  map[string]struct{}

	logMu   sync.Mutex
	logFile *os.File
}

// NewGate returns an unparsed gate. Parsing happens on first Allow.
func NewGate() *Gate { return &Gate{} }

func (g *Gate) load() {
	g.allowAll, g.allowed = ParsePolicy(os.Getenv(PolicyVar))
	if path := os.Getenv(LogVar); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err == nil {
			g.logFile = f
		}
	}
}

// ParsePolicy parses the DOTNOPE_POLICY format: "*" allows everything,
// the empty string allows nothing, and otherwise a comma-separated list
// of variable names is the allow-set.
func ParsePolicy(s string) (allowAll bool, allowed map[string]struct{}) {
	allowed = make(map[string]struct{})
	if s == Wildcard {
		return true, allowed
	}
	if s == "" {
		return false, allowed
	}
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			allowed[name] = struct{}{}
		}
	}
	return false, allowed
}

// Allow decides a single C-level read and logs the decision.
func (g *Gate) Allow(name string) bool {
	g.once.Do(g.load)
	ok := g.allowAll
	if !ok {
		_, ok = g.allowed[name]
	}
	g.log(name, ok)
	return ok
}

// log appends a one-line decision record when DOTNOPE_LOG is set.
func (g *Gate) log(name string, allowed bool) {
	if g.logFile == nil {
		return
	}
	verdict := "DENY"
	if allowed {
		verdict = "ALLOW"
	}
	line := fmt.Sprintf("%s %s getenv %s\n",
		time.Now().UTC().Format(time.RFC3339), verdict, name)

	g.logMu.Lock()
	g.logFile.WriteString(line)
	g.logMu.Unlock()
}

// Close releases the decision log. Only tests need this; the library
// lives as long as the process.
func (g *Gate) Close() {
	g.logMu.Lock()
	defer g.logMu.Unlock()
	if g.logFile != nil {
		g.logFile.Close()
		g.logFile = nil
	}
}
