package model

import "fmt"

// Status is the conversion state of a single queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConverting Status = "converting"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// RunStatus is the state of the session's export run as a whole.
type RunStatus string

const (
	RunIdle       RunStatus = "idle"
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunError      RunStatus = "error"
)

var allowedTransitions = map[Status]map[Status]struct{}{
	StatusPending: {
		StatusConverting: {},
	},
	StatusConverting: {
		StatusCompleted: {},
		StatusError:     {},
	},
}

// CanTransition reports whether an item may move from one status to another.
// Statuses never move backward.
func CanTransition(from, to Status) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// Transition moves the item to the given status or reports why it cannot.
func (i *QueueItem) Transition(to Status) error {
	if !CanTransition(i.Status, to) {
		return fmt.Errorf("illegal status transition %q -> %q", i.Status, to)
	}
	i.Status = to
	return nil
}
