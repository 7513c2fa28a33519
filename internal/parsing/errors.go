package parsing

import "fmt"

// DecodeError is returned when model output cannot be turned into a resume record.
// Raw holds the original, unstripped model output for diagnostics.
type DecodeError struct {
	Raw     string
	Message string
	Cause   error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decode error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("decode error: %s", e.Message)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}
