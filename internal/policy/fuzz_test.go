package policy

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func FuzzDecodeWhitelistYAML(f *testing.F) {
	f.Add([]byte(StarterYAML()))
	f.Add([]byte("cfg: [NODE_ENV]\n"))
	f.Add([]byte("environmentWhitelist:\n  p:\n    canWrite: ['*']\n"))
	f.Add([]byte{})
	f.Add([]byte(`{{{not yaml at all`))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Must not panic on any input.
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return
		}
		if doc == nil {
			return
		}
		if p, err := Normalize(doc); err == nil {
			GeneratePolicy(p)
			Serializable(p)
		}
	})
}
