package audit

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode categorizes audit errors.
type ErrorCode string

const (
	// ErrCodeValidation indicates a task-creation form is missing fields.
	ErrCodeValidation ErrorCode = "VALIDATION_FAILED"

	// ErrCodeNotFound indicates a task, checklist item or scan id does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeCameraAccess indicates the camera could not be started.
	ErrCodeCameraAccess ErrorCode = "CAMERA_ACCESS"

	// ErrCodeChecklistIncomplete indicates required checklist items are open.
	ErrCodeChecklistIncomplete ErrorCode = "CHECKLIST_INCOMPLETE"

	// ErrCodeInvalidTransition indicates an operation not allowed in the
	// task's current state.
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
)

// Error is the structured error returned by audit operations.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// TaskID identifies the affected task, if any.
	TaskID string

	// Fields maps form field names to messages (validation only).
	Fields map[string]string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if len(e.Fields) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.FieldNames(), ", "))
		b.WriteString(")")
	}
	if e.TaskID != "" {
		fmt.Fprintf(&b, " (task=%s)", e.TaskID)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FieldNames returns the offending field names in sorted order.
func (e *Error) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewValidationError creates an Error for missing or invalid form fields.
func NewValidationError(fields map[string]string) *Error {
	return &Error{
		Code:    ErrCodeValidation,
		Message: "task form is invalid",
		Fields:  fields,
	}
}

// NewTaskNotFound creates an Error for an unknown task id.
func NewTaskNotFound(taskID string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: "task not found",
		TaskID:  taskID,
	}
}

// NewItemNotFound creates an Error for an unknown checklist item or scan id.
func NewItemNotFound(taskID, kind, id string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %q not found", kind, id),
		TaskID:  taskID,
	}
}

// NewCameraAccessError wraps a camera start failure.
func NewCameraAccessError(err error) *Error {
	return &Error{
		Code:    ErrCodeCameraAccess,
		Message: "failed to start camera; ensure camera permissions are granted",
		Err:     err,
	}
}

// NewChecklistIncompleteError lists the open required items.
func NewChecklistIncompleteError(taskID string, open []string) *Error {
	return &Error{
		Code:    ErrCodeChecklistIncomplete,
		Message: fmt.Sprintf("%d required checklist item(s) open: %s", len(open), strings.Join(open, ", ")),
		TaskID:  taskID,
	}
}

// NewInvalidTransition creates an Error for an operation the target's
// current state does not allow.
func NewInvalidTransition(taskID, message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidTransition,
		Message: message,
		TaskID:  taskID,
	}
}

func hasCode(err error, code ErrorCode) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsCameraAccess reports whether err is a camera access error.
func IsCameraAccess(err error) bool { return hasCode(err, ErrCodeCameraAccess) }

// IsChecklistIncomplete reports whether err is a checklist gate error.
func IsChecklistIncomplete(err error) bool { return hasCode(err, ErrCodeChecklistIncomplete) }

// IsInvalidTransition reports whether err is a state transition error.
func IsInvalidTransition(err error) bool { return hasCode(err, ErrCodeInvalidTransition) }
