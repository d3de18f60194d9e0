package textcodec

import "fmt"

// Error names understood by the sandbox when rethrowing.
const (
	TypeError  = "TypeError"
	RangeError = "RangeError"
)

// OpError is a named, messaged failure from the dispatch surface.
type OpError struct {
	Name    string
	Message string
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

func typeErrorf(format string, args ...any) *OpError {
	return &OpError{Name: TypeError, Message: fmt.Sprintf(format, args...)}
}

func rangeErrorf(format string, args ...any) *OpError {
	return &OpError{Name: RangeError, Message: fmt.Sprintf(format, args...)}
}
