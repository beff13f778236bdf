package runtime

import (
	"errors"
	"fmt"
)

var (
	ErrTypeMismatch          = errors.New("type mismatch")
	ErrInvalidObject         = errors.New("invalid object")
	ErrStaleObject           = errors.New("object belongs to a reset frame")
	ErrUndefinedLocal        = errors.New("undefined local")
	ErrDefinitionNotFound    = errors.New("definition not found")
	ErrDefinitionNotFunction = errors.New("definition is not a function")
	ErrInvalidNativeResult   = errors.New("native function returned invalid object")
	ErrCorrupted             = errors.New("loaded binary is corrupted")
	ErrFieldNotFound         = errors.New("record field not found")
	ErrReentrantApply        = errors.New("runtime is already executing")
	ErrNotExported           = errors.New("definition is not exported")
	ErrArityTooLarge         = errors.New("native function arity is too large")
	ErrNotSerializable       = errors.New("object is not serializable")
)

// ExecutionError points to the instruction where execution failed
type ExecutionError struct {
	Func     string
	Op       int
	FilePath string
	Line     uint32
	Column   uint32
	Stack    string
	Err      error
}

func (e *ExecutionError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.FilePath, e.Line, e.Column, e.Func, e.Err)
	}
	return fmt.Sprintf("%s+%d: %v", e.Func, e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func corrupted(format string, args ...any) error {
	return fmt.Errorf("%w (%s)", ErrCorrupted, fmt.Sprintf(format, args...))
}
