package gevent

import "fmt"

// ConstitutionalViolation is raised when a declarative invariant on event
// construction is broken: malformed event type, non-UUID id, malformed
// schema version, or a non-serializable payload value. It is unrecoverable
// at the point it is raised — the caller has a programming error, not a
// transient condition.
type ConstitutionalViolation struct {
	Field   string
	Value   string
	Message string
}

func (e *ConstitutionalViolation) Error() string {
	return fmt.Sprintf("constitutional violation: %s (field=%s, value=%q)", e.Message, e.Field, e.Value)
}

func violation(field, value, message string) *ConstitutionalViolation {
	return &ConstitutionalViolation{Field: field, Value: value, Message: message}
}
