// Package dotnope provides in-process environment-variable mediation
// for Go hosts. Installing the firewall replaces the published
// environment handle with a wrapper that attributes every access to a
// package, evaluates the configured per-package policy, and raises
// structured denials.
//
// Usage:
//
//	h, err := dotnope.EnableStrictEnv(dotnope.WithConfigPath("package.json"))
//	if err != nil { ... }
//	env := h.Env()
//	value, err := env.Get("NODE_ENV")   // mediated read
//	...
//	h.Disable(h.Token())                // token-gated teardown
//
// The SDK links directly against internal packages for zero-subprocess
// overhead. External users import github.com/dotnope/dotnope/sdk/go/dotnope.
package dotnope
