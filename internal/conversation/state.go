package conversation

import "github.com/m3rciful/homeworkbot/internal/homework"

// State is one step of the homework dialog. The set is closed: only the
// types in this file implement it.
type State interface {
	// Name identifies the state in logs.
	Name() string
	isState()
}

// Idle means no dialog is in progress. It is never stored.
type Idle struct{}

// WaitingForDate expects the date of a new entry.
type WaitingForDate struct{}

// WaitingForHomework collects items for Date until the user stops.
type WaitingForHomework struct {
	Date  homework.Date
	Items []string
}

// WaitingForDeleteDate expects the date whose entry should be removed.
type WaitingForDeleteDate struct{}

func (Idle) Name() string                 { return "idle" }
func (WaitingForDate) Name() string       { return "waiting_for_date" }
func (WaitingForHomework) Name() string   { return "waiting_for_homework" }
func (WaitingForDeleteDate) Name() string { return "waiting_for_delete_date" }

func (Idle) isState()                 {}
func (WaitingForDate) isState()       {}
func (WaitingForHomework) isState()   {}
func (WaitingForDeleteDate) isState() {}
