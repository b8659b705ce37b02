package dotnope

import "github.com/dotnope/dotnope/internal/mediator"

// Option configures EnableStrictEnv.
type Option func(*config)

type config struct {
	configPath string
	serialized map[string]any
	auditPath  string
	store      mediator.Store
	fallback   bool
	worker     bool
}

// WithConfigPath sets the configuration source: a package descriptor
// (package.json) or a dotnope.yaml.
func WithConfigPath(path string) Option {
	return func(c *config) { c.configPath = path }
}

// WithSerializedConfig installs from a payload previously exported via
// Handle.SerializableConfig. Worker contexts use this to mirror the
// main installation.
func WithSerializedConfig(raw map[string]any) Option {
	return func(c *config) { c.serialized = raw }
}

// WithAuditLog enables the hash-chained access decision log at path.
func WithAuditLog(path string) Option {
	return func(c *config) { c.auditPath = path }
}

// WithStore overrides the underlying environment store. Worker contexts
// with an isolated environment view pass their own store here.
func WithStore(s mediator.Store) Option {
	return func(c *config) { c.store = s }
}

// WithFallbackIdentification forces the advisory text-parsing stack
// backend instead of the trusted VM-level walk. Intended for tests and
// for hosts whose runtime forbids the trusted walk.
func WithFallbackIdentification() Option {
	return func(c *config) { c.fallback = true }
}

// WithWorkerContext marks this installation as belonging to a secondary
// execution context rather than the main runtime.
func WithWorkerContext() Option {
	return func(c *config) { c.worker = true }
}
