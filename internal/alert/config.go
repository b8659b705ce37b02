// Package alert fans out denied-access and tamper events to webhooks.
package alert

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is one webhook destination.
type Config struct {
	URL     string            `yaml:"url"`
	Events  []string          `yaml:"events"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Event is the payload posted to a webhook.
type Event struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Package   string `json:"package,omitempty"`
	Variable  string `json:"variable,omitempty"`
	Operation string `json:"operation,omitempty"`
	Decision  string `json:"decision"`
	Reason    string `json:"reason,omitempty"`
	Hostname  string `json:"hostname,omitempty"`
}

// fileAlerts parses just the alerts section of a dotnope.yaml.
type fileAlerts struct {
	Alerts []Config `yaml:"alerts"`
}

// LoadFromFile reads webhook configurations from the alerts section of
// a policy file. Missing file or section yields nil.
func LoadFromFile(path string) []Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var fa fileAlerts
	if err := yaml.Unmarshal(data, &fa); err != nil {
		return nil
	}
	return fa.Alerts
}
