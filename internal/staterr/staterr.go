// Package staterr defines the error taxonomy shared by the statistical
// packages. It has no transport dependencies so the core can be used without
// the HTTP layer.
package staterr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a statistical failure.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindMissingGroup        Kind = "missing_group"
	KindInvalidState        Kind = "invalid_state"
	KindDegenerateStatistic Kind = "degenerate_statistic"
)

// Sentinels for errors.Is matching against a Kind.
var (
	ErrInvalidInput        = errors.New(string(KindInvalidInput))
	ErrMissingGroup        = errors.New(string(KindMissingGroup))
	ErrInvalidState        = errors.New(string(KindInvalidState))
	ErrDegenerateStatistic = errors.New(string(KindDegenerateStatistic))
)

// Error is a classified failure carrying the offending inputs verbatim.
type Error struct {
	Kind   Kind
	Op     string
	Msg    string
	Fields map[string]any
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Fields[k])
		}
		b.WriteString(")")
	}
	return b.String()
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return target == sentinel(e.Kind)
}

func sentinel(k Kind) error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindMissingGroup:
		return ErrMissingGroup
	case KindInvalidState:
		return ErrInvalidState
	case KindDegenerateStatistic:
		return ErrDegenerateStatistic
	}
	return nil
}

func newError(kind Kind, op, msg string, kv []any) *Error {
	e := &Error{Kind: kind, Op: op, Msg: msg}
	if len(kv) > 0 {
		e.Fields = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			key, ok := kv[i].(string)
			if !ok {
				key = fmt.Sprint(kv[i])
			}
			e.Fields[key] = kv[i+1]
		}
	}
	return e
}

// InvalidInput reports arguments that violate a precondition. kv is a list
// of alternating field names and values, as with slog.
func InvalidInput(op, msg string, kv ...any) *Error {
	return newError(KindInvalidInput, op, msg, kv)
}

// MissingGroup reports a comparison that needs a group that was never observed.
func MissingGroup(op string, groups ...string) *Error {
	return newError(KindMissingGroup, op, "required group not observed", []any{"missing", groups})
}

// InvalidState reports an operation called before the object is ready for it.
func InvalidState(op, msg string, kv ...any) *Error {
	return newError(KindInvalidState, op, msg, kv)
}

// Degenerate reports a statistic that is undefined for the given table.
func Degenerate(op, msg string, kv ...any) *Error {
	return newError(KindDegenerateStatistic, op, msg, kv)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}
