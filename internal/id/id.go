package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ShortLen is how many leading characters of an ID are shown in tables.
const ShortLen = 8

// New returns a fresh random expense ID.
func New() string {
	return uuid.NewString()
}

// Short returns the display prefix of an ID.
// "3f2a9c1e-...-..." -> "3f2a9c1e"
func Short(id string) string {
	if len(id) <= ShortLen {
		return id
	}
	return id[:ShortLen]
}

// Match resolves ref against ids. An exact match wins; otherwise ref must be
// a prefix of exactly one ID. Matching is case-insensitive.
func Match(ref string, ids []string) (string, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return "", fmt.Errorf("empty id")
	}

	var matches []string
	for _, candidate := range ids {
		lc := strings.ToLower(candidate)
		if lc == ref {
			return candidate, nil
		}
		if strings.HasPrefix(lc, ref) {
			matches = append(matches, candidate)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Ref: ref}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{Ref: ref, Matches: matches}
	}
}

// NotFoundError is returned by Match when no ID starts with the reference.
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no expense matches %q", e.Ref)
}

// AmbiguousError is returned by Match when several IDs share the prefix.
type AmbiguousError struct {
	Ref     string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	short := make([]string, len(e.Matches))
	for i, m := range e.Matches {
		short[i] = Short(m)
	}
	return fmt.Sprintf("%q matches %d expenses: %s", e.Ref, len(e.Matches), strings.Join(short, ", "))
}
