// Package caller attributes an environment access to the module
// responsible for it. Attribution walks a stack snapshot outward from
// the interception site, skips the mediator's own frames and
// runtime-internal frames, and maps the first remaining frame's file
// path to a package name.
package caller

import "strings"

// Frame is one stack frame as seen by a capture backend.
type Frame struct {
	File        string
	Function    string
	Eval        bool
	Constructor bool
}

// evalFilePatterns are the VM-synthetic file paths that mark frames
// originating from dynamically generated code. The set is fixed; hosts
// that synthesize other shapes must set Frame.Eval directly.
var evalFilePatterns = []func(string) bool{
	func(f string) bool { return strings.HasPrefix(f, "eval at") },
	func(f string) bool { return f == "[eval]" },
	func(f string) bool { return f == "<anonymous>" },
	func(f string) bool { return strings.HasPrefix(f, "evalmachine.") },
}

// isEvalFrame applies the eval heuristic to a single frame.
func isEvalFrame(f Frame) bool {
	if f.Eval {
		return true
	}
	fn := f.Function
	if fn != "" {
		lower := strings.ToLower(fn)
		if strings.Contains(lower, "eval") || strings.Contains(fn, "Function") || strings.Contains(lower, "anonymous") {
			return true
		}
	}
	for _, match := range evalFilePatterns {
		if match(f.File) {
			return true
		}
	}
	// An unnamed file with a named, non-anonymous function is code that
	// was compiled from a buffer rather than loaded from disk.
	if f.File == "" && fn != "" && !strings.Contains(strings.ToLower(fn), "anonymous") {
		return true
	}
	return false
}
