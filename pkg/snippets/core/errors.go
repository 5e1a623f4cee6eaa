package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine matches exactly one of these
// through errors.Is.
var (
	// ErrNotFound: a referenced snippet, connector, pipeline or parameter does
	// not exist. Usually a stale reference held by the caller.
	ErrNotFound = errors.New("not found")

	// ErrStructural: the mutation would break a structural rule of the graph
	// (cycle, self connection, duplicate pipeline, snippet still connected).
	ErrStructural = errors.New("structural violation")

	// ErrInvariant: an index and its owning collection disagree. This points at
	// an earlier bug, not at caller input, and must not be retried.
	ErrInvariant = errors.New("internal invariant violated")

	// ErrUnsupported: the requested behaviour exists only as a placeholder.
	ErrUnsupported = errors.New("not supported")
)

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     ID
	Detail string
}

func (e *NotFoundError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s not found: %s", e.Entity, e.ID, e.Detail)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// StructuralError reports a rejected mutation.
type StructuralError struct {
	Op     string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Reason)
}

func (e *StructuralError) Is(target error) bool {
	return target == ErrStructural
}

// InvariantError reports corrupted bookkeeping.
type InvariantError struct {
	Op     string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: internal invariant violated: %s", e.Op, e.Detail)
}

func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}

// UnsupportedError reports a feature that is declared but not implemented.
type UnsupportedError struct {
	Feature string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s is not supported", e.Feature)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// NotFound is a shorthand constructor.
func NotFound(entity string, id ID) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// Invariant is a shorthand constructor.
func Invariant(op, format string, args ...interface{}) error {
	return &InvariantError{Op: op, Detail: fmt.Sprintf(format, args...)}
}
