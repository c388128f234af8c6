package engine

import (
	"errors"
	"fmt"
)

// Maximum number of messages in a single batch request.
const MaxBatchSize = 100

var (
	ErrBatchTooLarge  = fmt.Errorf("batch exceeds %d messages", MaxBatchSize)
	ErrInvalidMessage = errors.New("message is not valid UTF-8")
)

// Failure while evaluating a single message. Never returned for configuration store problems, which fall back to defaults.
type EvaluationError struct {
	CommunityID string
	UserID      string
	Err         error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluating message (community=%s user=%s): %v", e.CommunityID, e.UserID, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Caller-side validation for batch requests.
func ValidateBatch(reqs []Request) error {
	if len(reqs) > MaxBatchSize {
		return fmt.Errorf("%w: got %d", ErrBatchTooLarge, len(reqs))
	}
	return nil
}
