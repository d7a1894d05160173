package webhook

import "fmt"

// VerificationError reports why a delivery was rejected. Reason is safe to
// return to the sender.
type VerificationError struct {
	Reason string
}

func (e *VerificationError) Error() string {
	return e.Reason
}

func verificationErrorf(format string, args ...any) *VerificationError {
	return &VerificationError{Reason: fmt.Sprintf(format, args...)}
}
