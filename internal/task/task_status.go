// Package task defines the task records the lifecycle reads and creates.
package task

// Status represents the current state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
	StatusTimedOut   Status = "timed_out"
	StatusStale      Status = "stale"
)

// ValidStatuses returns all valid status values.
func ValidStatuses() []Status {
	return []Status{
		StatusPending, StatusInProgress, StatusCompleted, StatusFailed,
		StatusCanceled, StatusTimedOut, StatusStale,
	}
}

// IsValidStatus returns true if the status is a valid status value.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed,
		StatusCanceled, StatusTimedOut, StatusStale:
		return true
	default:
		return false
	}
}

// IsOpen reports whether work on the task is still expected.
func IsOpen(s Status) bool {
	return s == StatusPending || s == StatusInProgress
}
