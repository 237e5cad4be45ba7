// Package rewriteerr defines the error taxonomy translation errors are
// classified into. The Directive Orchestrator returns the first such
// fault to its caller, which fails the whole compilation unit.
package rewriteerr

import "fmt"

// ParseError signals that the syntax tree is inconsistent with the
// Class Map built for it. Fatal for the current unit.
type ParseError struct {
	Location string
	Cause    error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error at %s: %v", e.Location, e.Cause)
	}
	return fmt.Sprintf("parse error at %s", e.Location)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// NewParseError wraps cause as a ParseError located at loc.
func NewParseError(loc string, cause error) *ParseError {
	return &ParseError{Location: loc, Cause: cause}
}

// NotResolvable is raised internally by symbol resolution and is always
// recovered locally by the Translation Visitor: it means "leave the
// token alone", not a fault.
type NotResolvable struct {
	Name string
}

func (e *NotResolvable) Error() string {
	return fmt.Sprintf("name not resolvable: %s", e.Name)
}

// InternalInconsistency signals an overlapping edit, a class-stack
// underflow, or another invariant the grammar asserts cannot occur.
// Fatal for the unit and logged at error level.
type InternalInconsistency struct {
	Reason string
	Cause  error
}

func (e *InternalInconsistency) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal inconsistency: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("internal inconsistency: %s", e.Reason)
}

func (e *InternalInconsistency) Unwrap() error { return e.Cause }

// NewInternalInconsistency builds an InternalInconsistency for reason,
// optionally wrapping cause.
func NewInternalInconsistency(reason string, cause error) *InternalInconsistency {
	return &InternalInconsistency{Reason: reason, Cause: cause}
}

// UnsupportedConstruct signals a well-formed but out-of-scope
// host-language construct inside a region: a grammar production the
// Translation Visitor has no case for.
type UnsupportedConstruct struct {
	NodeType string
	Location string
}

func (e *UnsupportedConstruct) Error() string {
	return fmt.Sprintf("unsupported construct %q at %s", e.NodeType, e.Location)
}
