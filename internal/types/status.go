package types

// Status is the server-side lifecycle state of a candidate.
type Status string

// Status constants.
const (
	StatusPendingReview Status = "pending_review"
	StatusSending       Status = "sending"
	StatusSent          Status = "sent"
	StatusFailed        Status = "failed"
	StatusDismissed     Status = "dismissed"
	StatusRejected      Status = "rejected"
	StatusReplied       Status = "replied"
	StatusOOO           Status = "ooo"
	StatusBounced       Status = "bounced"
)

// ValidStatuses is the set of allowed status values.
var ValidStatuses = []Status{
	StatusPendingReview, StatusSending, StatusSent, StatusFailed,
	StatusDismissed, StatusRejected, StatusReplied, StatusOOO, StatusBounced,
}

// IsValid checks if a status string is known.
func (s Status) IsValid() bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a candidate in this status is no longer
// actionable from the review queue (sent, in flight, or externally resolved).
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSent, StatusSending, StatusFailed, StatusReplied, StatusOOO, StatusBounced:
		return true
	}
	return false
}

// IsActionable reports whether a candidate in this status still awaits a
// review decision. Server-side dismissals and rejections count as resolved.
func (s Status) IsActionable() bool {
	return !s.IsTerminal() && s != StatusDismissed && s != StatusRejected
}

// transitions lists the client-observed edges of the lifecycle.
var transitions = map[Status][]Status{
	StatusPendingReview: {StatusSending, StatusDismissed, StatusRejected},
	StatusSending:       {StatusSent, StatusFailed, StatusPendingReview},
	StatusSent:          {StatusReplied, StatusOOO, StatusBounced},
	StatusReplied:       {StatusOOO, StatusBounced},
	StatusOOO:           {StatusReplied, StatusBounced},
	StatusFailed:        {StatusSending},
}

// CanTransition reports whether moving from s to next is an edge the
// dashboard expects to observe. Reverting an optimistic "sending" back to
// pending_review is allowed.
func (s Status) CanTransition(next Status) bool {
	for _, v := range transitions[s] {
		if v == next {
			return true
		}
	}
	return false
}
