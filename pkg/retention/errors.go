package retention

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by storage when a record does not exist. During a
// cascade it means the candidate already converged.
var ErrNotFound = errors.New("record not found")

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("memory", "sqlite", "postgres")
	Operation string // Operation that failed ("find_accounts", "delete", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// DispositionViolationError is returned when a destructive disposition targets
// a protected record (an ADMIN, the sentinel, or a record with no resolvable
// disposition). It is fatal for that candidate only.
type DispositionViolationError struct {
	Kind   SubjectKind
	ID     string
	Reason string
}

// Error implements the error interface.
func (e *DispositionViolationError) Error() string {
	return fmt.Sprintf("disposition violation [%s=%s]: %s", e.Kind, e.ID, e.Reason)
}

// NewDispositionViolation creates a new DispositionViolationError.
func NewDispositionViolation(kind SubjectKind, id, reason string) *DispositionViolationError {
	return &DispositionViolationError{
		Kind:   kind,
		ID:     id,
		Reason: reason,
	}
}

// TransactionError represents a failed cascade. The transaction was rolled back
// and no partial effect remains.
type TransactionError struct {
	Kind  SubjectKind
	ID    string
	Step  string
	Cause error
}

// Error implements the error interface.
func (e *TransactionError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("transaction failed [%s=%s, step=%s]: %v", e.Kind, e.ID, e.Step, e.Cause)
	}
	return fmt.Sprintf("transaction failed [%s=%s]: %v", e.Kind, e.ID, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *TransactionError) Unwrap() error {
	return e.Cause
}

// NewTransactionError creates a new TransactionError.
func NewTransactionError(kind SubjectKind, id, step string, cause error) *TransactionError {
	return &TransactionError{
		Kind:  kind,
		ID:    id,
		Step:  step,
		Cause: cause,
	}
}

// NotificationError represents a failed notification delivery. It is only
// ever logged; the retention job never retries it.
type NotificationError struct {
	Type      string
	Recipient string
	Cause     error
}

// Error implements the error interface.
func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification error [type=%s, recipient=%s]: %v", e.Type, e.Recipient, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *NotificationError) Unwrap() error {
	return e.Cause
}

// NewNotificationError creates a new NotificationError.
func NewNotificationError(notificationType, recipient string, cause error) *NotificationError {
	return &NotificationError{
		Type:      notificationType,
		Recipient: recipient,
		Cause:     cause,
	}
}

// IsNotFound reports whether err means the record is already gone.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDispositionViolation reports whether err is a DispositionViolationError.
func IsDispositionViolation(err error) bool {
	var v *DispositionViolationError
	return errors.As(err, &v)
}
