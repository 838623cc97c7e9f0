// Package cachekey turns hierarchical key specifications into the ordered,
// separator-free segments a cache backend stores values under.
//
// A key is either a single scalar ("users.v2") or a sequence of scalars
// ([]any{"users.v2", 42}). Both normalize to the same segments, so
// Scalar("users.v2.42") and Sequence("users", "v2", 42) address one entry.
package cachekey

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// DefaultSeparator joins segments when the caller does not configure one.
const DefaultSeparator = "."

var (
	// ErrEmptyKey is returned when a key specification has no segments left after normalization.
	ErrEmptyKey = errors.New("cachekey: empty key")
	// ErrEmptySeparator is returned when normalization is asked to split on "".
	ErrEmptySeparator = errors.New("cachekey: empty separator")
	// ErrInvalidScalar is returned when a key part has no string form.
	ErrInvalidScalar = errors.New("cachekey: invalid scalar")
)

type kind uint8

const (
	kindScalar kind = iota + 1
	kindSequence
)

// Spec is a key specification: either a single scalar or an ordered sequence of scalars.
// The zero Spec is an empty sequence.
type Spec struct {
	kind  kind
	parts []any
}

// Scalar builds a key from a single value, converted to its string form.
func Scalar(v any) Spec {
	return Spec{kind: kindScalar, parts: []any{v}}
}

// Sequence builds a key from an ordered list of values.
func Sequence(parts ...any) Spec {
	return Spec{kind: kindSequence, parts: append([]any(nil), parts...)}
}

// Strings is Sequence for callers that already hold string parts.
func Strings(parts ...string) Spec {
	seq := make([]any, len(parts))
	for i, p := range parts {
		seq[i] = p
	}
	return Spec{kind: kindSequence, parts: seq}
}

// IsScalar reports whether s was built with Scalar.
func (s Spec) IsScalar() bool {
	return s.kind == kindScalar
}

// String renders the raw parts for logs. It does not normalize.
func (s Spec) String() string {
	if s.kind == kindScalar {
		return fmt.Sprint(s.parts[0])
	}
	return fmt.Sprint(s.parts)
}

func (s Spec) candidates() ([]string, error) {
	out := make([]string, 0, len(s.parts))
	for _, p := range s.parts {
		str, err := cast.ToStringE(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %T", ErrInvalidScalar, p)
		}
		out = append(out, str)
	}
	return out, nil
}

// Normalize returns the key segments of spec.
//
// Every candidate part is split on sep, empty pieces are dropped and separator
// characters are trimmed from both ends of each piece. The result is never empty.
func Normalize(spec Spec, sep string) ([]string, error) {
	if sep == "" {
		return nil, ErrEmptySeparator
	}

	candidates, err := spec.candidates()
	if err != nil {
		return nil, err
	}

	segments := make([]string, 0, len(candidates))
	for _, c := range candidates {
		for _, piece := range strings.Split(c, sep) {
			if piece == "" {
				continue
			}
			// Trim uses cutset semantics, so multi-character separators also lose stray halves.
			piece = strings.Trim(piece, sep)
			if piece == "" {
				continue
			}
			segments = append(segments, piece)
		}
	}

	if len(segments) == 0 {
		return nil, ErrEmptyKey
	}

	return segments, nil
}

// Join normalizes spec and joins its segments with sep.
func Join(spec Spec, sep string) (string, error) {
	segments, err := Normalize(spec, sep)
	if err != nil {
		return "", err
	}
	return strings.Join(segments, sep), nil
}
