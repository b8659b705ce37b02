// Package scenario runs policy assertions from YAML files through the
// real decision pipeline. Used by `dotnope check` to gate policy
// changes in CI.
package scenario

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dotnope/dotnope/internal/model"
	"github.com/dotnope/dotnope/internal/policy"
)

// identityFor maps a scenario caller string to an Identity:
// "main", "unknown", or any other value as a package name.
func identityFor(c Access) model.Identity {
	var id model.Identity
	switch c.Caller {
	case "main":
		id = model.Main()
	case "unknown", "":
		id = model.Unknown()
	default:
		id = model.Package(c.Caller)
	}
	id.Eval = c.Eval
	return id
}

// Run evaluates all cases in a scenario against the given policy.
// Cases are independent; the decision function is pure.
func Run(s *Scenario, p *policy.Policy) *RunResult {
	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Cases),
	}

	for i, c := range s.Cases {
		id := identityFor(c.Access)
		op := model.Operation(c.Access.Operation)
		verdict := policy.Decide(id, op, c.Access.Variable, p)

		actual := string(verdict.Decision)
		expected := strings.ToLower(c.Expect)

		cr := CaseResult{
			Index:    i + 1,
			Caller:   c.Access.Caller,
			Variable: c.Access.Variable,
			Expected: expected,
			Actual:   actual,
			Reason:   string(verdict.Reason),
		}

		passed := actual == expected
		// An expected reason narrows the assertion.
		if passed && c.Reason != "" && !strings.EqualFold(c.Reason, string(verdict.Reason)) {
			passed = false
		}

		if passed {
			cr.Passed = true
			result.Passed++
		} else {
			result.Failed++
		}
		result.Cases = append(result.Cases, cr)
	}

	return result
}

// LoadAndRun loads a scenario YAML file and the policy, and runs.
func LoadAndRun(path, configPath string) (*RunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	p, err := policy.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	result := Run(&s, p)
	result.File = path
	return result, nil
}
