// Package exception provides the error type and sentinel errors shared by
// every switchprep step. There is no retry or skip policy: any error that
// reaches the step boundary fails the job.
package exception

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
)

// errorRegistry maps names used in configuration and logs to sentinel errors.
var errorRegistry = make(map[string]error)

var registryMutex sync.RWMutex

// RegisterErrorType registers a sentinel error under a name.
// It panics if the name is empty or the prototype is nil.
func RegisterErrorType(name string, prototype error) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if name == "" {
		panic("Error type name cannot be empty")
	}
	if prototype == nil {
		panic(fmt.Sprintf("Cannot register nil prototype for name: %s", name))
	}
	errorRegistry[name] = prototype
}

// IsErrorTypeRegistered reports whether name is in the registry.
func IsErrorTypeRegistered(name string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, ok := errorRegistry[name]
	return ok
}

// ErrMissingInput means a required input file or table was not found.
var ErrMissingInput = errors.New("missing input")

// ErrSchemaMismatch means a table lacks an expected column or has malformed cells.
var ErrSchemaMismatch = errors.New("schema mismatch")

// ErrInvariantViolation means derived data broke a structural rule,
// e.g. per-period weights no longer add up or a retrofit has no base project.
var ErrInvariantViolation = errors.New("invariant violation")

func init() {
	RegisterErrorType("MissingInput", ErrMissingInput)
	RegisterErrorType("SchemaMismatch", ErrSchemaMismatch)
	RegisterErrorType("InvariantViolation", ErrInvariantViolation)
	RegisterErrorType("os.ErrNotExist", os.ErrNotExist)
	RegisterErrorType("context.Canceled", context.Canceled)
	RegisterErrorType("context.DeadlineExceeded", context.DeadlineExceeded)
}

// BatchError is the error type raised by steps and framework components.
type BatchError struct {
	// Module is the component that raised the error (e.g. "horizon", "jsl_loader").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped cause.
	OriginalErr error
	// StackTrace is captured at construction time for debugging.
	StackTrace string
}

// NewBatchError creates a new BatchError wrapping originalErr.
func NewBatchError(module, message string, originalErr error) *BatchError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		StackTrace:  string(buf[:n]),
	}
}

// NewBatchErrorf creates a new BatchError using a format string.
// If the last argument is an error it becomes the wrapped cause instead of
// a format operand.
//
// Examples:
//
//	NewBatchErrorf("horizon", "table %s has no column %s", "fuel_cost", "period", ErrSchemaMismatch)
//	NewBatchErrorf("jsl_loader", "duplicate step id '%s'", id)
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	args := a
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	return NewBatchError(module, fmt.Sprintf(format, args...), originalErr)
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Is / errors.As.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsBatchError reports whether err, or anything it wraps, is a BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// IsErrorOfType reports whether err matches the sentinel registered under errorTypeName.
func IsErrorOfType(err error, errorTypeName string) bool {
	if err == nil {
		return false
	}
	registryMutex.RLock()
	target, ok := errorRegistry[errorTypeName]
	registryMutex.RUnlock()
	return ok && errors.Is(err, target)
}

// ExtractErrorMessage returns the Message of a BatchError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}

// MissingInput wraps ErrMissingInput with the offending path.
func MissingInput(module, path string, cause error) *BatchError {
	if cause == nil {
		cause = ErrMissingInput
	} else {
		cause = fmt.Errorf("%w: %w", ErrMissingInput, cause)
	}
	return NewBatchError(module, fmt.Sprintf("required input '%s' not found", path), cause)
}

// SchemaMismatch wraps ErrSchemaMismatch with a formatted description.
func SchemaMismatch(module, format string, a ...interface{}) *BatchError {
	return NewBatchError(module, fmt.Sprintf(format, a...), ErrSchemaMismatch)
}

// InvariantViolation wraps ErrInvariantViolation, keeping cause (often a multierror) in the chain.
func InvariantViolation(module, message string, cause error) *BatchError {
	if cause == nil {
		cause = ErrInvariantViolation
	} else {
		cause = fmt.Errorf("%w: %w", ErrInvariantViolation, cause)
	}
	return NewBatchError(module, message, cause)
}
