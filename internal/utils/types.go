package util

import (
	"errors"
	"fmt"
)

// PageSize is the size of a virtual page, a physical frame and a swap sector.
const PageSize = 128

// SectorSize equals PageSize: one swap sector holds exactly one page.
const SectorSize = PageSize

// MAX_MAP_SIZE caps the swap mapping (1GB).
const MAX_MAP_SIZE = 1 << 30

// ErrorType classifies how the fault-dispatch boundary should react.
type ErrorType int

const (
	ErrKindExhausted ErrorType = iota // swap or physical memory used up
	ErrKindInvariant                  // bookkeeping contradicts itself
	ErrKindIO                         // backing store failure
	ErrKindInvalid                    // caller passed a bad argument
)

func (k ErrorType) String() string {
	switch k {
	case ErrKindExhausted:
		return "exhausted"
	case ErrKindInvariant:
		return "invariant"
	case ErrKindIO:
		return "io"
	case ErrKindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// VMError represents a virtual-memory specific error
type VMError struct {
	Type    ErrorType
	Op      string
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *VMError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("vm error [%s] %s: %s (caused by: %v)", e.Type, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("vm error [%s] %s: %s", e.Type, e.Op, e.Message)
}

func (e *VMError) Unwrap() error {
	return e.Cause
}

// NewVMError creates a new vm error
func NewVMError(errType ErrorType, op, message string, cause error) *VMError {
	return &VMError{
		Type:    errType,
		Op:      op,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// With attaches a context value and returns the same error.
func (e *VMError) With(key string, value interface{}) *VMError {
	e.Context[key] = value
	return e
}

// KindOf returns the kind of the first VMError in err's chain.
func KindOf(err error) (ErrorType, bool) {
	var vmErr *VMError
	if errors.As(err, &vmErr) {
		return vmErr.Type, true
	}
	return 0, false
}

// IsFatal reports whether err must terminate the faulting execution context.
// Every VMError is fatal except bad arguments.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	kind, ok := KindOf(err)
	if !ok {
		return true
	}
	return kind != ErrKindInvalid
}
