package state

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes runtime errors.
type ErrorCode string

const (
	// ErrCodeSelector indicates an unrooted or malformed path, or a
	// forbidden alternate spelling of a global-zone path.
	ErrCodeSelector ErrorCode = "SELECTOR_ERROR"

	// ErrCodeType indicates a wrong operand kind, including any direct
	// comparison of unresolved rank symbols.
	ErrCodeType ErrorCode = "TYPE_ERROR"

	// ErrCodeLookup indicates a missing zone, player, or card, or owner()
	// applied to a zone that is not per_player.
	ErrCodeLookup ErrorCode = "LOOKUP_ERROR"

	// ErrCodeArithmetic indicates division or modulo by zero.
	ErrCodeArithmetic ErrorCode = "ARITHMETIC_ERROR"

	// ErrCodeAmbiguousDeck indicates rank_value without a resolvable deck
	// context.
	ErrCodeAmbiguousDeck ErrorCode = "AMBIGUOUS_DECK"

	// ErrCodeAction indicates an action precondition failure.
	ErrCodeAction ErrorCode = "ACTION_ERROR"

	// ErrCodeBinding indicates an unknown store_as or ref: name.
	ErrCodeBinding ErrorCode = "BINDING_ERROR"

	// ErrCodeValidation indicates a construction that requires list: used
	// with an implicit bare sequence, or a malformed node reaching the
	// evaluator.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// ErrCodeInvariant indicates a violated state-model invariant.
	// Fatal: the session must stop.
	ErrCodeInvariant ErrorCode = "INVARIANT_VIOLATION"

	// ErrCodeInput indicates a cancelled or invalid pending-input
	// resolution.
	ErrCodeInput ErrorCode = "INPUT_ERROR"
)

// RuntimeError is an error detected during selector resolution, expression
// evaluation, or action execution.
//
// RuntimeError includes structured fields so the dispatcher can report
// failures with rule id, action index, and reason.
type RuntimeError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// RuleID identifies the rule whose effect was executing, if any.
	RuleID string

	// ActionIndex identifies the failing action within its effect list.
	// -1 when the error did not arise inside an effect.
	ActionIndex int

	// Selector is the selector text being resolved, if any.
	Selector string
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	switch {
	case e.RuleID != "" && e.ActionIndex >= 0:
		return fmt.Sprintf("%s: %s (rule=%s, action=%d)", e.Code, e.Message, e.RuleID, e.ActionIndex)
	case e.Selector != "":
		return fmt.Sprintf("%s: %s (selector=%q)", e.Code, e.Message, e.Selector)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Errorf builds a RuntimeError with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...), ActionIndex: -1}
}

// CodeOf returns the error's code, or "" for non-runtime errors.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsFatal reports whether err must stop the whole session rather than
// aborting the current cycle.
func IsFatal(err error) bool {
	return IsCode(err, ErrCodeInvariant)
}
