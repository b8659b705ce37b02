package policy

import "sort"

// Wildcard is the reserved sentinel meaning "any variable".
const Wildcard = "*"

// PackagePolicy holds the three permission sets for one package.
// canWrite and canDelete also grant read; allowed grants only read.
type PackagePolicy struct {
	Allowed   map[string]bool
	CanWrite  map[string]bool
	CanDelete map[string]bool
}

// emptyPackagePolicy is returned for packages with no entry.
var emptyPackagePolicy = PackagePolicy{}

// Options are the global enforcement options from __options__.
type Options struct {
	FailClosed              bool `yaml:"failClosed" json:"failClosed"`
	ProtectWrites           bool `yaml:"protectWrites" json:"protectWrites"`
	ProtectDeletes          bool `yaml:"protectDeletes" json:"protectDeletes"`
	ProtectEnumeration      bool `yaml:"protectEnumeration" json:"protectEnumeration"`
	AllowEval               bool `yaml:"allowEval" json:"allowEval"`
	TreatMainAsUnrestricted bool `yaml:"treatMainAsUnrestricted" json:"treatMainAsUnrestricted"`
	AllowWorkers            bool `yaml:"allowWorkers" json:"allowWorkers"`
}

// DefaultOptions returns the fail-closed defaults.
func DefaultOptions() Options {
	return Options{
		FailClosed:              true,
		ProtectWrites:           true,
		ProtectDeletes:          true,
		ProtectEnumeration:      true,
		AllowEval:               false,
		TreatMainAsUnrestricted: true,
		AllowWorkers:            true,
	}
}

// Policy is the normalized, immutable policy model. It is replaced
// wholesale on reconfiguration and never mutated while installed.
type Policy struct {
	packages map[string]PackagePolicy
	options  Options
}

// New builds a Policy from normalized package sets and options.
func New(packages map[string]PackagePolicy, options Options) *Policy {
	if packages == nil {
		packages = map[string]PackagePolicy{}
	}
	return &Policy{packages: packages, options: options}
}

// Empty returns the maximally restrictive policy: no packages, defaults.
func Empty() *Policy {
	return New(nil, DefaultOptions())
}

// Options returns the global options.
func (p *Policy) Options() Options { return p.options }

// Lookup returns the package policy for name. Missing packages yield an
// empty policy, which denies everything.
func (p *Policy) Lookup(name string) PackagePolicy {
	if pp, ok := p.packages[name]; ok {
		return pp
	}
	return emptyPackagePolicy
}

// PackageNames returns the configured package names, sorted.
func (p *Policy) PackageNames() []string {
	names := make([]string, 0, len(p.packages))
	for n := range p.packages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func member(set map[string]bool, variable string) bool {
	if set[Wildcard] {
		return true
	}
	return set[variable]
}

// MayRead reports whether the package may read the variable.
// Write or delete permission implies read.
func (p *Policy) MayRead(name, variable string) bool {
	pp := p.Lookup(name)
	return member(pp.Allowed, variable) || member(pp.CanWrite, variable) || member(pp.CanDelete, variable)
}

// MayWrite reports whether the package may write the variable.
func (p *Policy) MayWrite(name, variable string) bool {
	return member(p.Lookup(name).CanWrite, variable)
}

// MayDelete reports whether the package may delete the variable.
func (p *Policy) MayDelete(name, variable string) bool {
	return member(p.Lookup(name).CanDelete, variable)
}

// HasWildcard reports whether any of the package's three sets contains "*".
func (p *Policy) HasWildcard(name string) bool {
	pp := p.Lookup(name)
	return pp.Allowed[Wildcard] || pp.CanWrite[Wildcard] || pp.CanDelete[Wildcard]
}

// VisibleKeys filters allKeys down to the union of the package's three
// sets. A wildcard in any set yields allKeys unchanged. The result
// preserves the order of allKeys.
func (p *Policy) VisibleKeys(name string, allKeys []string) []string {
	if p.HasWildcard(name) {
		out := make([]string, len(allKeys))
		copy(out, allKeys)
		return out
	}
	pp := p.Lookup(name)
	out := make([]string, 0, len(allKeys))
	for _, k := range allKeys {
		if pp.Allowed[k] || pp.CanWrite[k] || pp.CanDelete[k] {
			out = append(out, k)
		}
	}
	return out
}
