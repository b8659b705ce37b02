package mediator

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dotnope/dotnope/internal/model"
	"github.com/dotnope/dotnope/internal/policy"
	"github.com/dotnope/dotnope/internal/redact"
)

// Handle is the token-guarded control surface returned at installation.
// Exactly one is issued per installation; only it may tear down the
// mediator.
type Handle struct {
	env         *Env
	token       string
	policyID    string
	installedAt time.Time
}

// newToken returns a fresh 128-bit random token, hex encoded.
func newToken() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms; if it does,
		// refuse to issue a guessable token.
		panic(fmt.Sprintf("mediator: token generation failed: %v", err))
	}
	return hex.EncodeToString(b[:])
}

func newHandle(env *Env) *Handle {
	return &Handle{
		env:         env,
		token:       newToken(),
		policyID:    uuid.NewString(),
		installedAt: time.Now(),
	}
}

// Env returns the mediated environment, the single published handle to
// the underlying store.
func (h *Handle) Env() *Env { return h.env }

// Token returns the teardown token. The host application decides how
// far it travels.
func (h *Handle) Token() string { return h.token }

// PolicyID returns the opaque id of the installed policy instance.
func (h *Handle) PolicyID() string { return h.policyID }

// InstalledAt returns when the installation happened. The value carries
// Go's monotonic clock reading.
func (h *Handle) InstalledAt() time.Time { return h.installedAt }

// IsEnabled reports whether enforcement is active on this installation.
func (h *Handle) IsEnabled() bool { return h.env.IsEnabled() }

// AccessStats returns a snapshot of the access counters.
func (h *Handle) AccessStats() Snapshot { return h.env.Stats().Snapshot() }

// SerializableConfig exports the installed policy in the raw
// configuration shape. Worker contexts re-run the configuration loader
// on this payload to install their own mediator.
func (h *Handle) SerializableConfig() map[string]any {
	return policy.Serializable(h.env.Policy())
}

// IsWorkerAllowed reports whether policy permits secondary execution
// contexts with their own environment view.
func (h *Handle) IsWorkerAllowed() bool {
	return h.env.Policy().Options().AllowWorkers
}

// Disable tears down the mediator. The token presented must be the one
// issued at installation; anything else (empty, mismatched) is rejected
// and enforcement continues.
func (h *Handle) Disable(token string) error {
	if token == "" || token != h.token {
		return model.ErrInvalidToken()
	}
	uninstall(h)
	return nil
}

// SecurityWarning is one finding from EmitSecurityWarnings.
type SecurityWarning struct {
	Package  string `json:"package"`
	Variable string `json:"variable"`
	Detail   string `json:"detail"`
}

// EmitSecurityWarnings audits the installed policy for grants that
// deserve a second look: wildcards, and read access to variables whose
// names look like credentials.
func (h *Handle) EmitSecurityWarnings() []SecurityWarning {
	var warnings []SecurityWarning
	p := h.env.Policy()
	for _, name := range p.PackageNames() {
		if p.HasWildcard(name) {
			warnings = append(warnings, SecurityWarning{
				Package:  name,
				Variable: policy.Wildcard,
				Detail:   "wildcard grant exposes every variable, present and future",
			})
			continue
		}
		pp := p.Lookup(name)
		seen := map[string]bool{}
		for _, set := range []map[string]bool{pp.Allowed, pp.CanWrite, pp.CanDelete} {
			for v := range set {
				if seen[v] || !redact.IsSensitiveName(v) {
					continue
				}
				seen[v] = true
				warnings = append(warnings, SecurityWarning{
					Package:  name,
					Variable: v,
					Detail:   "grants access to a credential-shaped variable",
				})
			}
		}
	}
	return warnings
}
