package policy

import (
	"sort"
	"strings"
)

// GeneratePolicy serializes the policy for the native interposer.
//
// The native plane is coarse: it carries no per-package identity, only
// the union allow-set. Output is "*" if any package holds a wildcard in
// any set, the empty string if no package may read anything, and
// otherwise a comma-separated sorted list of variable names. Sorting
// makes the output independent of package entry order.
func GeneratePolicy(p *Policy) string {
	if p == nil {
		return ""
	}
	union := make(map[string]bool)
	for name, pp := range p.packages {
		if p.HasWildcard(name) {
			return Wildcard
		}
		for v := range pp.Allowed {
			union[v] = true
		}
		for v := range pp.CanWrite {
			union[v] = true
		}
		for v := range pp.CanDelete {
			union[v] = true
		}
	}
	if len(union) == 0 {
		return ""
	}
	vars := make([]string, 0, len(union))
	for v := range union {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return strings.Join(vars, ",")
}
