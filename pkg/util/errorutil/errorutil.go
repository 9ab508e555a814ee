package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced to API callers.
const (
	CodeValidation             = "VALIDATION_FAILED"
	CodeConversationNotFound   = "CONVERSATION_NOT_FOUND"
	CodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	CodeTicketNotFound         = "TICKET_NOT_FOUND"
	CodeStorage                = "STORAGE_ERROR"
	CodeConversationBusy       = "CONVERSATION_BUSY"
	CodeTicketBusy             = "TICKET_BUSY"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeInternal               = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewConversationNotFound(id string) error {
	return NewDomainError(CodeConversationNotFound, "Conversation not found", http.StatusNotFound,
		map[string]any{"conversation_id": id})
}

// NewInvalidStateTransition reports an event issued outside its required source state.
func NewInvalidStateTransition(event, current string) error {
	return NewDomainError(CodeInvalidStateTransition,
		fmt.Sprintf("cannot %s while conversation is in %s", event, current),
		http.StatusConflict,
		map[string]any{"event": event, "current_step": current})
}

func NewTicketNotFound(key string) error {
	return NewDomainError(CodeTicketNotFound, "Ticket not found", http.StatusNotFound,
		map[string]any{"ticket": key})
}

// NewStorageError wraps a persistence failure. The cause is logged, never rendered.
func NewStorageError(op string, err error) error {
	return &DomainError{
		Code:       CodeStorage,
		Message:    fmt.Sprintf("storage unavailable: %s", op),
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewConversationBusy(id string) error {
	return NewDomainError(CodeConversationBusy, "conversation is being updated, retry the step",
		http.StatusConflict, map[string]any{"conversation_id": id})
}

func NewTicketBusy(id string) error {
	return NewDomainError(CodeTicketBusy, "ticket is being updated, retry shortly",
		http.StatusConflict, map[string]any{"ticket_id": id})
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Is reports whether err carries a DomainError with the given code.
func Is(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
