// Package errors provides the structured error code system for doclens.
//
// Error Code Format: AABBCC (6 digits)
//
//	AA (00-99): Module code - identifies the source module
//	BB (00-99): Category code - identifies the error category
//	CC (00-99): Sequence number - specific error within the category
//
// Module Codes (AA):
//
//	00: Common/Base errors
//	10: Knowledge-base core (chunking, indexing, retrieval)
//	90: Third-party providers (embedding, generation)
//
// Category Codes (BB):
//
//	01: Request/Validation errors (400)
//	04: Resource not found errors (404)
//	07: Internal errors (500)
//	10: Upstream/Network errors (502/503)
//	12: Configuration errors (500)
//
// Usage:
//
//	// Using predefined errors
//	return errors.ErrInvalidConfiguration.WithMessage("chunk overlap must be smaller than chunk size")
//
//	// Wrapping underlying errors
//	return errors.ErrEmbeddingUnavailable.WithCause(err)
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// Errno represents a structured error with a code and message.
type Errno struct {
	// Code is the unique error code.
	Code int `json:"code"`

	// HTTP is the HTTP status code to return.
	HTTP int `json:"-"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// cause is the underlying error.
	cause error
}

// Error implements the error interface.
func (e *Errno) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("errno %d: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("errno %d: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Errno) Unwrap() error {
	return e.cause
}

// Is reports whether target carries the same error code. This makes
// errors.Is work across WithCause/WithMessage copies.
func (e *Errno) Is(target error) bool {
	var t *Errno
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithCause returns a copy of the Errno carrying the given cause.
func (e *Errno) WithCause(cause error) *Errno {
	return &Errno{
		Code:    e.Code,
		HTTP:    e.HTTP,
		Message: e.Message,
		cause:   cause,
	}
}

// WithMessage returns a copy of the Errno with a custom message.
func (e *Errno) WithMessage(format string, args ...any) *Errno {
	return &Errno{
		Code:    e.Code,
		HTTP:    e.HTTP,
		Message: fmt.Sprintf(format, args...),
		cause:   e.cause,
	}
}

// Module codes.
const (
	ModuleCommon   = 0
	ModuleCore     = 10
	ModuleProvider = 90
)

// Category codes.
const (
	CategoryRequest  = 1
	CategoryNotFound = 4
	CategoryInternal = 7
	CategoryUpstream = 10
	CategoryConfig   = 12
)

// MakeCode builds an error code from module, category and sequence parts.
func MakeCode(module, category, seq int) int {
	return module*10000 + category*100 + seq
}

// registry keeps registered codes unique.
var (
	registryMu sync.Mutex
	registry   = make(map[int]*Errno)
)

// Register registers an Errno and returns it. Panics on duplicate codes so
// collisions surface at init time.
func Register(e *Errno) *Errno {
	registryMu.Lock()
	defer registryMu.Unlock()
	if prev, ok := registry[e.Code]; ok {
		panic(fmt.Sprintf("duplicate error code %d: %q vs %q", e.Code, prev.Message, e.Message))
	}
	registry[e.Code] = e
	return e
}

// FromError extracts an *Errno from err, falling back to ErrInternal for
// unclassified errors.
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	var e *Errno
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.WithCause(err)
}

// HTTPStatus returns the HTTP status for err.
func HTTPStatus(err error) int {
	if e := FromError(err); e != nil {
		return e.HTTP
	}
	return http.StatusOK
}
