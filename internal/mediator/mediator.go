// Package mediator wraps the process environment with the access
// firewall: every operation identifies its caller, consults the policy,
// and either forwards to the underlying store or raises a structured
// denial. Mediated operations are synchronous and never suspend between
// identity capture and decision.
package mediator

import (
	"sync/atomic"

	"github.com/dotnope/dotnope/internal/alert"
	"github.com/dotnope/dotnope/internal/audit"
	"github.com/dotnope/dotnope/internal/caller"
	"github.com/dotnope/dotnope/internal/model"
	"github.com/dotnope/dotnope/internal/policy"
)

// mediatorFrames is the number of mediator frames between a public Env
// operation and the capture call inside identify.
const mediatorFrames = 2

// Env is the mediating wrapper. It implements the full access
// vocabulary: read, write, membership, deletion, enumeration, and
// descriptor query.
type Env struct {
	store    Store
	resolver *caller.Resolver
	pol      atomic.Pointer[policy.Policy]
	enabled  atomic.Bool
	stats    Stats

	traceID  string
	polHash  string
	auditLog *audit.Log
	alerts   *alert.Dispatcher
}

// NewEnv builds a mediator over the given store and policy. A nil
// resolver selects the trusted backend.
func NewEnv(store Store, pol *policy.Policy, resolver *caller.Resolver) *Env {
	if resolver == nil {
		resolver = caller.NewResolver(nil)
	}
	if pol == nil {
		pol = policy.Empty()
	}
	e := &Env{store: store, resolver: resolver}
	e.pol.Store(pol)
	e.enabled.Store(true)
	return e
}

// Policy returns the current policy model.
func (e *Env) Policy() *policy.Policy { return e.pol.Load() }

// ReplacePolicy swaps the policy model wholesale. The old model is
// never mutated; in-flight decisions finish against whichever model
// they loaded.
func (e *Env) ReplacePolicy(p *policy.Policy) {
	if p != nil {
		e.pol.Store(p)
	}
}

// Resolver exposes the caller identifier for status and async-origin
// bookkeeping.
func (e *Env) Resolver() *caller.Resolver { return e.resolver }

// Stats returns the access counters.
func (e *Env) Stats() *Stats { return &e.stats }

// SetAudit attaches a decision audit log. traceID groups this
// installation's entries; polHash attests which policy decided them.
func (e *Env) SetAudit(log *audit.Log, traceID, polHash string) {
	e.auditLog = log
	e.traceID = traceID
	e.polHash = polHash
}

// SetAlerts attaches a webhook dispatcher for deny events.
func (e *Env) SetAlerts(d *alert.Dispatcher) { e.alerts = d }

// identify captures the caller identity for one mediated operation.
func (e *Env) identify() model.Identity {
	return e.resolver.Identify(mediatorFrames)
}

// decide runs the decision function and handles the deny side effects:
// stats, audit, alerts. Returns nil on allow.
func (e *Env) decide(id model.Identity, op model.Operation, variable string) *model.AccessError {
	v := policy.Decide(id, op, variable, e.pol.Load())
	e.record(id, op, variable, v)
	if v.Decision == model.Allow {
		return nil
	}
	e.stats.recordDenial(id.String())
	if e.alerts != nil {
		e.alerts.Dispatch(alert.Event{
			Type:      "deny",
			Package:   id.String(),
			Variable:  variable,
			Operation: string(op),
			Decision:  string(model.Deny),
			Reason:    string(v.Reason),
		})
	}
	return model.ErrorFromVerdict(v)
}

func (e *Env) record(id model.Identity, op model.Operation, variable string, v model.Verdict) {
	if e.auditLog == nil {
		return
	}
	// Best-effort: an unwritable audit log must not block the access.
	_ = e.auditLog.Record(audit.Entry{
		TraceID:    e.traceID,
		Access:     audit.Access{Package: id.String(), Variable: variable, Op: string(op)},
		Decision:   string(v.Decision),
		Reason:     string(v.Reason),
		PolicyHash: e.polHash,
	})
}

// Get reads a variable. Missing variables return "" like the
// underlying store; denied reads raise.
func (e *Env) Get(key string) (string, error) {
	value, _, err := e.Lookup(key)
	return value, err
}

// Lookup is the descriptor query: value plus presence.
func (e *Env) Lookup(key string) (string, bool, error) {
	if !e.enabled.Load() {
		v, ok := e.store.Get(key)
		return v, ok, nil
	}
	e.stats.Reads.Add(1)
	id := e.identify()
	if err := e.decide(id, model.OpRead, key); err != nil {
		return "", false, err
	}
	v, ok := e.store.Get(key)
	return v, ok, nil
}

// Has is the membership test; it maps to read.
func (e *Env) Has(key string) (bool, error) {
	_, ok, err := e.Lookup(key)
	return ok, err
}

// Set writes a variable. A denial raises before the store is touched.
func (e *Env) Set(key, value string) error {
	if !e.enabled.Load() {
		e.store.Set(key, value)
		return nil
	}
	e.stats.Writes.Add(1)
	id := e.identify()
	if err := e.decide(id, model.OpWrite, key); err != nil {
		return err
	}
	e.store.Set(key, value)
	return nil
}

// Unset deletes a variable. A denial raises before the store is touched.
func (e *Env) Unset(key string) error {
	if !e.enabled.Load() {
		e.store.Unset(key)
		return nil
	}
	e.stats.Deletes.Add(1)
	id := e.identify()
	if err := e.decide(id, model.OpDelete, key); err != nil {
		return err
	}
	e.store.Unset(key)
	return nil
}

// Keys enumerates the visible variable names. For package callers the
// result is silently filtered to the union of their grants; denial by
// key omission, never by error. Unknown callers still fail closed.
func (e *Env) Keys() ([]string, error) {
	if !e.enabled.Load() {
		return e.store.Keys(), nil
	}
	e.stats.Enumerations.Add(1)
	id := e.identify()
	if err := e.decide(id, model.OpEnumerate, ""); err != nil {
		return nil, err
	}
	all := e.store.Keys()
	if id.Kind == model.KindPackage && e.pol.Load().Options().ProtectEnumeration {
		return e.pol.Load().VisibleKeys(id.Package, all), nil
	}
	return all, nil
}

// setEnabled toggles enforcement. Used by teardown; a disabled Env
// forwards everything untouched.
func (e *Env) setEnabled(on bool) { e.enabled.Store(on) }

// IsEnabled reports whether enforcement is active.
func (e *Env) IsEnabled() bool { return e.enabled.Load() }
