package brokerapp

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidation                 = errors.New("validation failed")
	ErrDuplicateSubmission        = errors.New("an application with this email has already been submitted")
	ErrNotFound                   = errors.New("application not found")
	ErrUnauthenticated            = errors.New("not authenticated")
	ErrForbidden                  = errors.New("admin role required")
	ErrAlreadyPrivileged          = errors.New("user is already an admin or broker; application rejected")
	ErrAlreadyResolved            = errors.New("application is no longer pending")
	ErrConcurrentApprovalConflict = errors.New("concurrent approval conflict; application left pending")
	ErrTimeout                    = errors.New("storage timeout")
	ErrStorageFailure             = errors.New("storage failure")
)

// FieldError carries per-field validation failures and matches ErrValidation.
type FieldError struct {
	Fields map[string]string
}

func (e *FieldError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return ErrValidation.Error() + ": " + strings.Join(names, ", ")
}

func (e *FieldError) Unwrap() error { return ErrValidation }

// StateChanged reports errors raised after the workflow already committed a
// change; the caller must not assume nothing happened.
func StateChanged(err error) bool {
	return errors.Is(err, ErrAlreadyPrivileged)
}

// Retryable reports errors after which the same call may be repeated safely.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrConcurrentApprovalConflict)
}
