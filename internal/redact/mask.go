// Package redact classifies sensitive variable names, which backs the
// security warnings, and masks environment values.
package redact

import "strings"

// sensitivePatterns match variable names that conventionally hold
// credentials. Matching is case-insensitive on the upper-cased name.
var sensitivePatterns = []string{
	"SECRET", "TOKEN", "PASSWORD", "PASSWD", "APIKEY", "API_KEY",
	"PRIVATE_KEY", "ACCESS_KEY", "CREDENTIAL", "AUTH",
}

var sensitivePrefixes = []string{
	"AWS_", "GCP_", "AZURE_", "GITHUB_", "NPM_", "STRIPE_",
}

// IsSensitiveName reports whether a variable name looks like it holds
// a credential.
func IsSensitiveName(name string) bool {
	upper := strings.ToUpper(name)
	for _, p := range sensitivePrefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	for _, p := range sensitivePatterns {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return false
}

// MaskValue hides the middle of a value, keeping just enough of the
// tail to correlate against a known credential. Short values mask
// entirely.
func MaskValue(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

// MaskEnviron masks the values of "KEY=VALUE" pairs whose keys look
// sensitive, leaving other pairs intact.
func MaskEnviron(pairs []string) []string {
	out := make([]string, len(pairs))
	for i, kv := range pairs {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			out[i] = kv
			continue
		}
		key, value := kv[:eq], kv[eq+1:]
		if IsSensitiveName(key) {
			out[i] = key + "=" + MaskValue(value)
		} else {
			out[i] = kv
		}
	}
	return out
}
