package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// OptionsKey is the reserved configuration key holding global options.
// It is never treated as a package name.
const OptionsKey = "__options__"

// WhitelistKey is the key under which the configuration lives in a
// package descriptor (package.json) or a standalone dotnope.yaml.
const WhitelistKey = "environmentWhitelist"

// Normalize converts a raw environmentWhitelist map into a Policy.
//
// Each package entry is either an array of variable names (read-only
// grants) or a record with optional allowed/canWrite/canDelete arrays.
// Unknown keys under a record are ignored. The __options__ entry is
// reserved; missing options take fail-closed defaults.
func Normalize(raw map[string]any) (*Policy, error) {
	opts := DefaultOptions()
	packages := make(map[string]PackagePolicy, len(raw))

	for name, entry := range raw {
		if name == OptionsKey {
			o, err := parseOptions(entry)
			if err != nil {
				return nil, err
			}
			opts = o
			continue
		}
		if name == "" {
			return nil, fmt.Errorf("policy: empty package name")
		}

		pp, err := parsePackageEntry(name, entry)
		if err != nil {
			return nil, err
		}
		packages[name] = pp
	}

	return New(packages, opts), nil
}

func parsePackageEntry(name string, entry any) (PackagePolicy, error) {
	switch v := entry.(type) {
	case []any:
		allowed, err := toVarSet(name, "allowed", v)
		if err != nil {
			return PackagePolicy{}, err
		}
		return PackagePolicy{Allowed: allowed}, nil

	case map[string]any:
		pp := PackagePolicy{}
		for key, field := range v {
			list, ok := field.([]any)
			if !ok {
				// Unknown or malformed keys are ignored.
				continue
			}
			set, err := toVarSet(name, key, list)
			if err != nil {
				return PackagePolicy{}, err
			}
			switch key {
			case "allowed":
				pp.Allowed = set
			case "canWrite":
				pp.CanWrite = set
			case "canDelete":
				pp.CanDelete = set
			}
		}
		return pp, nil

	default:
		return PackagePolicy{}, fmt.Errorf("policy: package %q: entry must be an array or a record", name)
	}
}

func toVarSet(pkg, field string, list []any) (map[string]bool, error) {
	set := make(map[string]bool, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("policy: package %q: %s entries must be strings", pkg, field)
		}
		if s == "" {
			return nil, fmt.Errorf("policy: package %q: empty variable name in %s", pkg, field)
		}
		set[s] = true
	}
	return set, nil
}

func parseOptions(entry any) (Options, error) {
	opts := DefaultOptions()
	m, ok := entry.(map[string]any)
	if !ok {
		if entry == nil {
			return opts, nil
		}
		return opts, fmt.Errorf("policy: %s must be a record", OptionsKey)
	}
	setBool := func(key string, dst *bool) {
		if v, ok := m[key].(bool); ok {
			*dst = v
		}
	}
	setBool("failClosed", &opts.FailClosed)
	setBool("protectWrites", &opts.ProtectWrites)
	setBool("protectDeletes", &opts.ProtectDeletes)
	setBool("protectEnumeration", &opts.ProtectEnumeration)
	setBool("allowEval", &opts.AllowEval)
	setBool("treatMainAsUnrestricted", &opts.TreatMainAsUnrestricted)
	setBool("allowWorkers", &opts.AllowWorkers)
	return opts, nil
}

// LoadFile reads configuration from a package descriptor (.json) or a
// YAML policy file. Missing file returns the maximally restrictive
// default policy. A descriptor without an environmentWhitelist key is
// treated the same way.
func LoadFile(path string) (*Policy, error) {
	p, _, err := LoadFileWithHash(path)
	return p, err
}

// LoadFileWithHash loads configuration and returns the SHA-256 hash of
// the raw bytes on disk as "sha256:<hex>". When no file exists the hash
// is the digest of empty input.
func LoadFileWithHash(path string) (*Policy, string, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			h := sha256.Sum256(nil)
			return Empty(), "sha256:" + hex.EncodeToString(h[:]), nil
		}
		return nil, "", fmt.Errorf("policy: read config: %w", err)
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	raw, err := decodeWhitelist(path, data)
	if err != nil {
		return nil, "", err
	}

	p, err := Normalize(raw)
	if err != nil {
		return nil, "", err
	}
	return p, hash, nil
}

// DefaultConfigPath is ~/.dotnope/dotnope.yaml, mirroring where the rest
// of the tooling keeps its state.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "dotnope.yaml"
	}
	return filepath.Join(home, ".dotnope", "dotnope.yaml")
}

// decodeWhitelist extracts the environmentWhitelist map from either a
// JSON package descriptor or a YAML policy file. A YAML document may
// carry the whitelist at the top level or nested under the key.
func decodeWhitelist(path string, data []byte) (map[string]any, error) {
	if strings.HasSuffix(path, ".json") {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("policy: parse %s: %w", path, err)
		}
		rawWL, ok := doc[WhitelistKey]
		if !ok {
			return map[string]any{}, nil
		}
		var wl map[string]any
		if err := json.Unmarshal(rawWL, &wl); err != nil {
			return nil, fmt.Errorf("policy: parse %s %s: %w", path, WhitelistKey, err)
		}
		return wl, nil
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("policy: parse %s: %w", path, err)
	}
	if doc == nil {
		return map[string]any{}, nil
	}
	if nested, ok := doc[WhitelistKey].(map[string]any); ok {
		return nested, nil
	}
	// Top-level form: strip sections that belong to other subsystems.
	delete(doc, "alerts")
	return doc, nil
}

// Serializable exports the policy as the raw configuration shape, with
// sorted variable lists. Re-running Normalize on the result yields an
// equal Policy; worker contexts initialize from this payload.
func Serializable(p *Policy) map[string]any {
	out := make(map[string]any, len(p.packages)+1)
	opts := p.options
	out[OptionsKey] = map[string]any{
		"failClosed":              opts.FailClosed,
		"protectWrites":           opts.ProtectWrites,
		"protectDeletes":          opts.ProtectDeletes,
		"protectEnumeration":      opts.ProtectEnumeration,
		"allowEval":               opts.AllowEval,
		"treatMainAsUnrestricted": opts.TreatMainAsUnrestricted,
		"allowWorkers":            opts.AllowWorkers,
	}
	for _, name := range p.PackageNames() {
		pp := p.packages[name]
		entry := map[string]any{}
		if len(pp.Allowed) > 0 {
			entry["allowed"] = sortedVars(pp.Allowed)
		}
		if len(pp.CanWrite) > 0 {
			entry["canWrite"] = sortedVars(pp.CanWrite)
		}
		if len(pp.CanDelete) > 0 {
			entry["canDelete"] = sortedVars(pp.CanDelete)
		}
		out[name] = entry
	}
	return out
}

func sortedVars(set map[string]bool) []any {
	vars := make([]string, 0, len(set))
	for v := range set {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	out := make([]any, len(vars))
	for i, v := range vars {
		out[i] = v
	}
	return out
}
