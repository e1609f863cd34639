package domain

import (
	"fmt"
	"strings"
)

// ResolutionFailure reports a raw hospital name that could not be mapped to
// exactly one canonical identity. Candidates is non-empty when the name
// matched more than one alias entry; resolution never guesses between them.
type ResolutionFailure struct {
	RawName    string
	Candidates []string
}

func (e *ResolutionFailure) Error() string {
	if len(e.Candidates) > 1 {
		return fmt.Sprintf("resolve hospital %q: ambiguous match (%s)", e.RawName, strings.Join(e.Candidates, ", "))
	}
	return fmt.Sprintf("resolve hospital %q: no matching identity", e.RawName)
}

// ParseError reports wait-time text matching none of the known shapes. The
// original text travels with the error; it is never coerced to a default.
type ParseError struct {
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse wait time %q: unrecognized format", e.Text)
}

// SchemaDriftError reports a value outside the closed schema, such as an
// unknown region on a hospital identity or a malformed reference table row.
type SchemaDriftError struct {
	Field string
	Value string
}

func (e *SchemaDriftError) Error() string {
	return fmt.Sprintf("schema drift: %s=%q not in known schema", e.Field, e.Value)
}

// InsufficientDataError reports a batch-level aggregation that could not be
// computed, such as a mean imputation over a batch with no available waits.
// Reported once per batch invocation, never silently defaulted.
type InsufficientDataError struct {
	Op     string
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: %s", e.Op, e.Reason)
}
