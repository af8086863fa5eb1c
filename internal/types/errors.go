package types

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

// ParseCode classifies terminal parse failures.
type ParseCode string

const (
	ParseEmpty       ParseCode = "EMPTY"
	ParseUnknownKind ParseCode = "UNKNOWN_KIND"
	ParseNoTerms     ParseCode = "NO_TERMS"
)

// ParseError is returned to the caller verbatim; it never reaches the
// coordinator.
type ParseError struct {
	Code ParseCode
	Raw  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error %s: %q", e.Code, e.Raw)
}

// OpErrorKind classifies per-operation failures.
type OpErrorKind string

const (
	OpErrTimeout           OpErrorKind = "TIMEOUT"
	OpErrConnection        OpErrorKind = "CONNECTION"
	OpErrUnavailable       OpErrorKind = "UNAVAILABLE"
	OpErrPermission        OpErrorKind = "PERMISSION"
	OpErrResourceExhausted OpErrorKind = "RESOURCE_EXHAUSTED"
	OpErrSyntax            OpErrorKind = "SYNTAX"
	OpErrOther             OpErrorKind = "OTHER"
)

// OpError wraps a single operation's failure. Per-op errors never abort
// sibling operations; they accumulate in response metadata.
type OpError struct {
	Store   StoreKind
	Op      OperationKind
	Kind    OpErrorKind
	Message string
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s/%s %s: %s", e.Store, e.Op, e.Kind, e.Message)
}

// ClassifyOpError wraps an adapter error into an OpError, inferring the
// kind from sentinel errors and message text.
func ClassifyOpError(store StoreKind, op OperationKind, err error) *OpError {
	if err == nil {
		return nil
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return oe
	}
	kind := OpErrOther
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		kind = OpErrTimeout
	case strings.Contains(msg, "connection") || strings.Contains(msg, "refused") || strings.Contains(msg, "dial"):
		kind = OpErrConnection
	case strings.Contains(msg, "unavailable") || strings.Contains(msg, "no such table") || strings.Contains(msg, "closed"):
		kind = OpErrUnavailable
	case strings.Contains(msg, "permission") || strings.Contains(msg, "denied") || strings.Contains(msg, "readonly"):
		kind = OpErrPermission
	case strings.Contains(msg, "exhausted") || strings.Contains(msg, "too many") || strings.Contains(msg, "out of memory"):
		kind = OpErrResourceExhausted
	case strings.Contains(msg, "syntax") || strings.Contains(msg, "malformed") || strings.Contains(msg, "invalid"):
		kind = OpErrSyntax
	}
	return &OpError{Store: store, Op: op, Kind: kind, Message: err.Error()}
}

// PlanCode classifies planning failures.
type PlanCode string

const (
	PlanNoStores PlanCode = "NO_STORES"
)

// PlanError marks a degenerate plan; the coordinator short-circuits.
type PlanError struct {
	Code    PlanCode
	Message string
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("plan error %s: %s", e.Code, e.Message)
}

// CoordinationOutcome summarizes how a plan execution went.
type CoordinationOutcome string

const (
	CoordinationPartial CoordinationOutcome = "PARTIAL"
	CoordinationTotal   CoordinationOutcome = "TOTAL"
)

// CoordinationError summarizes a plan execution in which at least one
// operation failed. PARTIAL means some results were still produced.
type CoordinationError struct {
	Outcome CoordinationOutcome
	Errors  []*OpError
}

func (e *CoordinationError) Error() string {
	return fmt.Sprintf("coordination %s: %d operation error(s)", e.Outcome, len(e.Errors))
}
