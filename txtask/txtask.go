// Package txtask tracks the lifecycle of a contract write from the signature
// prompt until its receipt arrives.
package txtask

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// State of a write.
type State int

const (
	Idle State = iota
	Submitting
	Confirming
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Confirming:
		return "confirming"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Kind names the contract call a task performs.
type Kind string

const (
	Register Kind = "registerUser"
	Donate   Kind = "donate"
)

// Task is one write. Tasks are values; every transition returns a new Task.
// Transitions addressed to a different ID are ignored so results from an
// abandoned write cannot overwrite the current one.
type Task struct {
	ID    uuid.UUID
	Kind  Kind
	State State
	Hash  common.Hash
	Err   error

	cancel context.CancelFunc
}

// Start creates a task in the Submitting state and the context its calls must
// run under.
func Start(parent context.Context, kind Kind) (Task, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return Task{ID: uuid.New(), Kind: kind, State: Submitting, cancel: cancel}, ctx
}

// Busy reports whether the task is still in flight.
func (t Task) Busy() bool { return t.State == Submitting || t.State == Confirming }

// Is reports whether id belongs to this task.
func (t Task) Is(id uuid.UUID) bool { return t.ID != uuid.Nil && t.ID == id }

// Submitted records the broadcast transaction hash.
func (t Task) Submitted(id uuid.UUID, hash common.Hash) Task {
	if !t.Is(id) || t.State != Submitting {
		return t
	}
	t.State = Confirming
	t.Hash = hash
	return t
}

// Finish ends the task with err, or successfully when err is nil.
func (t Task) Finish(id uuid.UUID, err error) Task {
	if !t.Is(id) || !t.Busy() {
		return t
	}
	if t.cancel != nil {
		t.cancel()
	}
	if err != nil {
		t.State = Failed
		t.Err = err
	} else {
		t.State = Done
	}
	return t
}

// Cancel stops waiting for the task. A broadcast transaction may still be
// mined.
func (t Task) Cancel() Task {
	if !t.Busy() {
		return t
	}
	if t.cancel != nil {
		t.cancel()
	}
	t.State = Failed
	t.Err = context.Canceled
	return t
}
