package dotnope

import "github.com/dotnope/dotnope/internal/mediator"

// Env is the mediated environment wrapper: read, write, membership,
// deletion, enumeration, and descriptor query, each identified and
// policy-checked. Denied operations return an error whose code
// AsAccessError exposes; enumeration denial is silent key omission.
type Env struct {
	env *mediator.Env
}

// Get reads a variable; missing variables read as "".
func (e *Env) Get(key string) (string, error) { return e.env.Get(key) }

// Lookup is the descriptor query: value plus presence.
func (e *Env) Lookup(key string) (string, bool, error) { return e.env.Lookup(key) }

// Has is the membership test.
func (e *Env) Has(key string) (bool, error) { return e.env.Has(key) }

// Set writes a variable. A denial raises before the store is touched.
func (e *Env) Set(key, value string) error { return e.env.Set(key, value) }

// Unset deletes a variable. A denial raises before the store is touched.
func (e *Env) Unset(key string) error { return e.env.Unset(key) }

// Keys enumerates the caller's visible variable names.
func (e *Env) Keys() ([]string, error) { return e.env.Keys() }

// AccessStats is a snapshot of the mediated access counters.
type AccessStats struct {
	Reads           int64            `json:"reads"`
	Writes          int64            `json:"writes"`
	Deletes         int64            `json:"deletes"`
	Enumerations    int64            `json:"enumerations"`
	Denied          int64            `json:"denied"`
	DeniedByPackage map[string]int64 `json:"denied_by_package,omitempty"`
}

// SecurityWarning flags a policy grant that deserves review.
type SecurityWarning struct {
	Package  string `json:"package"`
	Variable string `json:"variable"`
	Detail   string `json:"detail"`
}

// Status reports the identification posture of the installation.
type Status struct {
	Backend           string `json:"backend"`
	TamperingDetected bool   `json:"tampering_detected"`
	ResolvedPaths     int    `json:"resolved_paths"`
	NativeAvailable   bool   `json:"native_available"`
}
