package gevent

import "strings"

// MatchPattern reports whether eventType matches pattern, a small DSL (not
// a regex engine) used by read filters and the two-phase gap scanner: each
// dot-separated segment of pattern is either a literal or the wildcard
// "*", and pattern must have the same number of segments as eventType.
// "executive.*.activated" and "*.intent.emitted" are valid patterns;
// "executive.task.*" matches any verb under executive.task.
func MatchPattern(pattern, eventType string) bool {
	if pattern == eventType {
		return true
	}
	patternParts := strings.Split(pattern, ".")
	typeParts := strings.Split(eventType, ".")
	if len(patternParts) != len(typeParts) {
		return false
	}
	for i, p := range patternParts {
		if p == "*" {
			continue
		}
		if p != typeParts[i] {
			return false
		}
	}
	return true
}
