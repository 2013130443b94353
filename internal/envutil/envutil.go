// Package envutil implements the ordered, last-writer-wins environment
// merge the ExecutionContext uses: later entries override earlier
// ones by key, a bare KEY with no "=" removes that key, and genuinely
// new keys are appended in override order.
package envutil

import "strings"

// ReplaceOrAppendEnvValues merges overrides onto defaults in place and
// returns the result: a KEY=VALUE override replaces the existing entry
// for KEY wherever it sits in defaults, or is appended if KEY is new; a
// bare KEY (no "=") removes that key from defaults if present, and is a
// no-op otherwise.
func ReplaceOrAppendEnvValues(defaults, overrides []string) []string {
	cache := make(map[string]int, len(defaults))
	for i, e := range defaults {
		k, _, _ := strings.Cut(e, "=")
		cache[k] = i
	}

	for _, value := range overrides {
		k, _, hasValue := strings.Cut(value, "=")
		i, exists := cache[k]
		switch {
		case exists && hasValue:
			defaults[i] = value
		case exists && !hasValue:
			defaults = append(defaults[:i], defaults[i+1:]...)
			for key, idx := range cache {
				if idx > i {
					cache[key] = idx - 1
				}
			}
			delete(cache, k)
		case !exists && hasValue:
			cache[k] = len(defaults)
			defaults = append(defaults, value)
		default:
			// bare KEY not present in defaults: nothing to remove.
		}
	}
	return defaults
}
