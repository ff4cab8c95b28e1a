// Package cverrors defines the error taxonomy of the CVXlab engine and a
// collector used to aggregate validation failures instead of surfacing only
// the first one found.
package cverrors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies which layer of the engine raised an error, without
// committing to concrete Go types per error site.
type Kind string

const (
	// KindSettings marks a static model definition error: unknown set,
	// missing inter-problem coordinate, illegal filter, unknown constant
	// tag, a copy_from cycle. Always surfaced eagerly at initialization.
	KindSettings Kind = "settings"
	// KindMissingData marks NULLs in exogenous values at solve time, a
	// missing related_table, or an absent required store row.
	KindMissingData Kind = "missing_data"
	// KindOperational marks an API called out of lifecycle order.
	KindOperational Kind = "operational"
	// KindIntegrity marks a store operation that violated schema or a
	// foreign-key constraint.
	KindIntegrity Kind = "integrity"
)

// Error is a typed engine error carrying a Kind for programmatic dispatch
// via errors.As, plus a human message and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any target *Error of the same Kind, so
// errors.Is(err, &cverrors.Error{Kind: cverrors.KindSettings}) checks by
// kind; callers typically prefer errors.As with a *cverrors.Error target,
// then inspecting Kind directly.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Kind == te.Kind
	}
	return false
}

func newErr(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Settings(format string, args ...any) *Error {
	return newErr(KindSettings, format, args...)
}

func MissingData(format string, args ...any) *Error {
	return newErr(KindMissingData, format, args...)
}

func Operational(format string, args ...any) *Error {
	return newErr(KindOperational, format, args...)
}

func Integrity(format string, args ...any) *Error {
	return newErr(KindIntegrity, format, args...)
}

func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Aggregate collects zero or more errors and reports them as a single
// error, so validation never stops at the first failure. A zero-value
// Aggregate is usable; call Add repeatedly, then Err() once at the end.
type Aggregate struct {
	errs []error
}

// Add appends err to the aggregate if it is non-nil. It is safe to call
// with a nil error (no-op), which keeps call sites free of `if err != nil`
// guards around every Add.
func (a *Aggregate) Add(err error) {
	if err != nil {
		a.errs = append(a.errs, err)
	}
}

// Addf appends a new error of the given kind built from format/args.
func (a *Aggregate) Addf(kind Kind, format string, args ...any) {
	a.errs = append(a.errs, newErr(kind, format, args...))
}

// Len reports how many errors have been collected so far.
func (a *Aggregate) Len() int { return len(a.errs) }

// Err returns nil if nothing was collected, the sole error if exactly one
// was collected, or a combined multi-line error otherwise.
func (a *Aggregate) Err() error {
	switch len(a.errs) {
	case 0:
		return nil
	case 1:
		return a.errs[0]
	default:
		var sb strings.Builder
		fmt.Fprintf(&sb, "%d validation errors:", len(a.errs))
		for _, e := range a.errs {
			sb.WriteString("\n  - ")
			sb.WriteString(e.Error())
		}
		return &Error{Kind: KindSettings, Message: sb.String()}
	}
}
