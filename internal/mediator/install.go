package mediator

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dotnope/dotnope/internal/alert"
	"github.com/dotnope/dotnope/internal/audit"
	"github.com/dotnope/dotnope/internal/caller"
	"github.com/dotnope/dotnope/internal/model"
	"github.com/dotnope/dotnope/internal/policy"
)

// current is the process-wide installation. At most one mediator is
// installed per process; there is no reset side door besides a token
// teardown.
var current atomic.Pointer[Handle]

// InstallConfig describes one installation.
type InstallConfig struct {
	// Store defaults to the real process environment.
	Store Store
	// Policy defaults to the maximally restrictive empty policy.
	Policy *policy.Policy
	// Resolver defaults to the trusted backend.
	Resolver *caller.Resolver
	// PolicyHash attests which configuration bytes produced Policy.
	PolicyHash string
	// AuditPath, when set, opens a hash-chained decision log there.
	AuditPath string
	// Alerts, when non-empty, dispatches webhook events on denials.
	Alerts []alert.Config
}

// Install builds and installs the process mediator, returning its
// control handle. A second install while one is active fails with
// ERR_DOTNOPE_ALREADY_INSTALLED. Installation is not thread-safe with
// itself; it belongs in single-threaded startup.
func Install(cfg InstallConfig) (*Handle, error) {
	if current.Load() != nil {
		return nil, model.ErrAlreadyInstalled()
	}

	store := cfg.Store
	if store == nil {
		store = NewProcessStore()
	}

	env := NewEnv(store, cfg.Policy, cfg.Resolver)

	if cfg.AuditPath != "" {
		log, err := audit.Open(cfg.AuditPath)
		if err != nil {
			return nil, err
		}
		env.SetAudit(log, uuid.NewString(), cfg.PolicyHash)
	}
	env.SetAlerts(alert.NewDispatcher(cfg.Alerts))

	h := newHandle(env)
	if !current.CompareAndSwap(nil, h) {
		return nil, model.ErrAlreadyInstalled()
	}
	return h, nil
}

// Installed returns the active handle, or nil.
func Installed() *Handle { return current.Load() }

// uninstall detaches the handle after a successful token check. The
// original store remains the process environment; no further decisions
// are invoked through this Env.
func uninstall(h *Handle) {
	h.env.setEnabled(false)
	if h.env.auditLog != nil {
		_ = h.env.auditLog.Close()
		h.env.auditLog = nil
	}
	current.CompareAndSwap(h, nil)
}

// DisableUnconditionally is the legacy teardown surface. It was removed
// for security and now only raises; the mediator is never touched.
func DisableUnconditionally() error {
	return model.ErrDeprecatedDisable()
}
