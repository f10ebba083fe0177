package ritual

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnauthorized    = errors.New("ritual: unauthorized")
	ErrAlreadyActive   = errors.New("ritual: advancement already active")
	ErrRateLimited     = errors.New("ritual: rate limited")
	ErrDayMismatch     = errors.New("ritual: day mismatch")
	ErrAlreadyComplete = errors.New("ritual: quest already complete")
	ErrStorageFailure  = errors.New("ritual: storage failure")
	ErrNotifyTimeout   = errors.New("ritual: notify timeout")
	ErrUnknownQuest    = errors.New("ritual: unknown quest")
	ErrInvalidDay      = errors.New("ritual: invalid day")
)

// RateLimitedError carries how long the caller should wait before retrying.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s (retry after %s)", ErrRateLimited.Error(), e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }

// DayMismatchError carries the authoritative day so stale clients can resynchronize.
type DayMismatchError struct {
	Submitted     int
	Authoritative int
}

func (e *DayMismatchError) Error() string {
	return fmt.Sprintf("%s (submitted=%d authoritative=%d)", ErrDayMismatch.Error(), e.Submitted, e.Authoritative)
}

func (e *DayMismatchError) Is(target error) bool { return target == ErrDayMismatch }

// StorageFailureError wraps a failed transactional write. Nothing was committed.
type StorageFailureError struct {
	Op    string
	Cause error
}

func (e *StorageFailureError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", ErrStorageFailure.Error(), e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", ErrStorageFailure.Error(), e.Op, e.Cause)
}

func (e *StorageFailureError) Is(target error) bool { return target == ErrStorageFailure }

func (e *StorageFailureError) Unwrap() error { return e.Cause }

// Authoritative extracts the server day from a DayMismatch error.
func Authoritative(err error) (int, bool) {
	var dm *DayMismatchError
	if errors.As(err, &dm) {
		return dm.Authoritative, true
	}
	return 0, false
}

// RetryAfter extracts the wait time from a RateLimited error.
func RetryAfter(err error) (time.Duration, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}
