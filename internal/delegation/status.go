// Package delegation holds the status labels tracked on a task delegated
// to a linked teammate.
package delegation

// Status is the delegatee-reported progress label on a delegated task.
type Status string

const (
	StatusAssigned    Status = "assigned"
	StatusInProgress  Status = "in_progress"
	StatusWaiting     Status = "waiting"
	StatusNeedsReview Status = "needs_review"
	StatusDone        Status = "done"
)

// All lists the statuses in their advisory pipeline order. The order is
// not enforced: a delegatee may set any status at any time.
var All = []Status{StatusAssigned, StatusInProgress, StatusWaiting, StatusNeedsReview, StatusDone}

// Valid reports whether s names a known status.
func Valid(s string) bool {
	switch Status(s) {
	case StatusAssigned, StatusInProgress, StatusWaiting, StatusNeedsReview, StatusDone:
		return true
	}
	return false
}

// Terminal reports whether s ends the delegation pipeline for review
// purposes.
func Terminal(s Status) bool {
	return s == StatusDone
}
