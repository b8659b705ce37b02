package dotnope

import (
	"context"
	"fmt"

	"github.com/dotnope/dotnope/internal/alert"
	"github.com/dotnope/dotnope/internal/caller"
	"github.com/dotnope/dotnope/internal/integrity"
	"github.com/dotnope/dotnope/internal/launcher"
	"github.com/dotnope/dotnope/internal/mediator"
	"github.com/dotnope/dotnope/internal/policy"
	"github.com/dotnope/dotnope/internal/watch"
)

// Handle is the token-guarded control surface returned by
// EnableStrictEnv. Exactly one exists per installation.
type Handle struct {
	h            *mediator.Handle
	worker       bool
	fallback     bool
	nativeOK     bool
	integrityErr error
}

// EnableStrictEnv installs the environment firewall and returns its
// control handle. A second call while an installation is active fails
// with ERR_DOTNOPE_ALREADY_INSTALLED. Installation belongs in
// single-threaded startup.
func EnableStrictEnv(opts ...Option) (*Handle, error) {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}

	var pol *policy.Policy
	var hash string
	var err error
	switch {
	case cfg.serialized != nil:
		pol, err = policy.Normalize(cfg.serialized)
		if err != nil {
			return nil, fmt.Errorf("dotnope: serialized config: %w", err)
		}
	default:
		pol, hash, err = policy.LoadFileWithHash(cfg.configPath)
		if err != nil {
			return nil, err
		}
	}

	if cfg.worker && !pol.Options().AllowWorkers {
		return nil, fmt.Errorf("dotnope: policy forbids worker contexts (allowWorkers: false)")
	}

	var backend caller.Backend
	if cfg.fallback {
		backend = caller.NewFallbackBackend()
	}
	resolver := caller.NewResolver(backend)

	var alerts []alert.Config
	if cfg.configPath != "" {
		alerts = alert.LoadFromFile(cfg.configPath)
	}

	h, err := mediator.Install(mediator.InstallConfig{
		Store:      cfg.store,
		Policy:     pol,
		Resolver:   resolver,
		PolicyHash: hash,
		AuditPath:  cfg.auditPath,
		Alerts:     alerts,
	})
	if err != nil {
		return nil, err
	}

	handle := &Handle{h: h, worker: cfg.worker, fallback: cfg.fallback}
	handle.attestNative()
	return handle, nil
}

// attestNative verifies the interposer library before reporting the
// native plane as available. Refusal downgrades the posture; it never
// aborts installation.
func (h *Handle) attestNative() {
	lib := launcher.LocateLibrary()
	if lib == "" {
		return
	}
	result, err := integrity.VerifyFile(lib, "")
	if err != nil {
		h.integrityErr = err
		return
	}
	switch result.Outcome {
	case integrity.OutcomeVerified, integrity.OutcomeWarning:
		h.nativeOK = true
	case integrity.OutcomeRefused:
		h.integrityErr = result.Err
	}
}

// DisableStrictEnv is the legacy unconditional teardown. It was removed
// for security; calling it only raises ERR_DOTNOPE_DEPRECATED and never
// touches the mediator.
func DisableStrictEnv() error {
	return mediator.DisableUnconditionally()
}

// Env returns the mediated environment, the single published handle to
// the underlying store.
func (h *Handle) Env() *Env { return &Env{env: h.h.Env()} }

// Token returns the teardown token issued at installation.
func (h *Handle) Token() string { return h.h.Token() }

// Disable tears the mediator down. Any token other than the one issued
// at installation is rejected and enforcement continues.
func (h *Handle) Disable(token string) error { return h.h.Disable(token) }

// IsEnabled reports whether enforcement is active.
func (h *Handle) IsEnabled() bool { return h.h.IsEnabled() }

// AccessStats returns a snapshot of the mediated access counters.
func (h *Handle) AccessStats() AccessStats {
	snap := h.h.AccessStats()
	return AccessStats{
		Reads:           snap.Reads,
		Writes:          snap.Writes,
		Deletes:         snap.Deletes,
		Enumerations:    snap.Enumerations,
		Denied:          snap.Denied,
		DeniedByPackage: snap.DeniedByPackage,
	}
}

// SerializableConfig exports the installed policy for worker contexts;
// re-loading it with WithSerializedConfig yields an equal policy.
func (h *Handle) SerializableConfig() map[string]any { return h.h.SerializableConfig() }

// IsPreloadActive reports whether this process runs under the
// interposer library.
func (h *Handle) IsPreloadActive() bool { return launcher.PreloadActive() }

// IsRunningInMainRuntime reports whether this installation belongs to
// the main runtime rather than a worker context.
func (h *Handle) IsRunningInMainRuntime() bool { return !h.worker }

// IsWorkerAllowed reports whether policy permits secondary execution
// contexts.
func (h *Handle) IsWorkerAllowed() bool { return h.h.IsWorkerAllowed() }

// IsNativeAvailable reports whether an interposer library was found and
// not refused by attestation; a library without a manifest counts as
// available. False after an integrity refusal; identity resolution then
// stays on the runtime backends.
func (h *Handle) IsNativeAvailable() bool { return h.nativeOK }

// IntegrityError returns the attestation failure, if any.
func (h *Handle) IntegrityError() error { return h.integrityErr }

// EmitSecurityWarnings audits the installed policy for wildcard and
// credential-shaped grants.
func (h *Handle) EmitSecurityWarnings() []SecurityWarning {
	var out []SecurityWarning
	for _, w := range h.h.EmitSecurityWarnings() {
		out = append(out, SecurityWarning(w))
	}
	return out
}

// WatchConfig blocks until ctx is cancelled, reloading the policy file
// on change and swapping each successfully parsed model into the
// mediator wholesale. Parse failures keep the previous policy.
func (h *Handle) WatchConfig(ctx context.Context, path string) error {
	w := watch.New(path, func(p *policy.Policy, hash string) {
		h.h.Env().ReplacePolicy(p)
	})
	return w.Run(ctx)
}

// Status reports the identification posture.
func (h *Handle) Status() Status {
	backend := "trusted"
	if h.fallback {
		backend = "fallback"
	}
	return Status{
		Backend:           backend,
		TamperingDetected: caller.TamperingDetected(),
		ResolvedPaths:     h.h.Env().Resolver().CacheSize(),
		NativeAvailable:   h.nativeOK,
	}
}
