package purge

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrChatNotFound is returned when no chat matches an identifier.
	ErrChatNotFound = errors.New("chat not found")
	// ErrPermissionDenied means the chat requires admin rights to delete.
	ErrPermissionDenied = errors.New("admin rights required")
	// ErrDeleteForbidden means the service refused to delete the message.
	ErrDeleteForbidden = errors.New("message deletion forbidden")
)

// RateLimitError is a flood-control signal carrying a mandatory wait.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: wait %s", e.Wait)
}

// RateLimitWait reports the wait carried by a RateLimitError anywhere in
// err's chain.
func RateLimitWait(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.Wait, true
	}
	return 0, false
}

// FailureKind tags why an attempt failed.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureChatNotFound
	FailureNotFound
	FailureNotOwner
	FailureNotAcknowledged
	FailureRateLimited
	FailurePermissionDenied
	FailureForbidden
	FailureTransport
)

var failureNames = map[FailureKind]string{
	FailureNone:             "",
	FailureChatNotFound:     "chat_not_found",
	FailureNotFound:         "not_found",
	FailureNotOwner:         "not_owner",
	FailureNotAcknowledged:  "not_acknowledged",
	FailureRateLimited:      "rate_limited",
	FailurePermissionDenied: "permission_denied",
	FailureForbidden:        "forbidden",
	FailureTransport:        "transport",
}

// String returns a stable label used in journals and metrics.
func (k FailureKind) String() string {
	if name, ok := failureNames[k]; ok {
		return name
	}
	return fmt.Sprintf("failure(%d)", int(k))
}

// Detail strings recorded in the error ledger.
const (
	DetailDryRun          = "DRY RUN: would delete"
	DetailChatNotFound    = "chat not found"
	DetailNotFound        = "message not found"
	DetailNotOwner        = "not from you"
	DetailNotAcknowledged = "deletion failed"
	DetailPermission      = "admin rights required"
	DetailForbidden       = "message deletion forbidden"
)

// classify maps a transport error onto a failure kind.
func classify(err error) (FailureKind, time.Duration) {
	if wait, ok := RateLimitWait(err); ok {
		return FailureRateLimited, wait
	}
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return FailurePermissionDenied, 0
	case errors.Is(err, ErrDeleteForbidden):
		return FailureForbidden, 0
	case errors.Is(err, ErrChatNotFound):
		return FailureChatNotFound, 0
	default:
		return FailureTransport, 0
	}
}

// describe builds the human detail string for a failure.
func describe(kind FailureKind, wait time.Duration, err error) string {
	switch kind {
	case FailureChatNotFound:
		return DetailChatNotFound
	case FailureNotFound:
		return DetailNotFound
	case FailureNotOwner:
		return DetailNotOwner
	case FailureNotAcknowledged:
		return DetailNotAcknowledged
	case FailureRateLimited:
		return fmt.Sprintf("rate limited, waited %ds", int64(wait.Round(time.Second)/time.Second))
	case FailurePermissionDenied:
		return DetailPermission
	case FailureForbidden:
		return DetailForbidden
	default:
		if err == nil {
			return "unexpected error"
		}
		return "unexpected error: " + err.Error()
	}
}
