package engine

import (
	"errors"
	"fmt"

	"github.com/catalogsync/catalogsync/internal/catalog"
	"github.com/catalogsync/catalogsync/internal/keyfacts"
	"github.com/catalogsync/catalogsync/internal/schema"
	"github.com/catalogsync/catalogsync/internal/urn"
)

// Phase names a step of the per-dataset pipeline.
type Phase string

const (
	PhaseList    Phase = "list"
	PhaseFacts   Phase = "facts"
	PhaseParse   Phase = "parse"
	PhaseFetch   Phase = "fetch"
	PhaseDecode  Phase = "decode"
	PhaseProfile Phase = "profile"
	PhaseEmit    Phase = "emit"
	PhaseArchive Phase = "archive"
)

// Action is what a run does after an error.
type Action int

const (
	// Fatal aborts the run.
	Fatal Action = iota
	// Skip drops the current dataset and moves on.
	Skip
	// Continue records the failure and moves on.
	Continue
)

func (a Action) String() string {
	switch a {
	case Skip:
		return "skip"
	case Continue:
		return "continue"
	default:
		return "fatal"
	}
}

type rule struct {
	phase   Phase
	matches func(error) bool
	action  Action
}

// policy is consulted in order; the first rule whose phase and error type
// match wins. Anything unmatched is fatal. Fetch failures abort while emit
// failures do not.
var policy = []rule{
	{PhaseList, is[*catalog.QueryError], Fatal},
	{PhaseFacts, is[*keyfacts.DatabaseConnectionError], Fatal},
	{PhaseParse, is[*urn.ParseError], Skip},
	{PhaseFetch, is[*catalog.QueryError], Fatal},
	{PhaseDecode, is[*schema.UnknownTypeError], Fatal},
	{PhaseEmit, is[*catalog.QueryError], Continue},
	{PhaseArchive, func(error) bool { return true }, Continue},
}

func is[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// decide returns the action for err raised in phase.
func decide(phase Phase, err error) Action {
	for _, r := range policy {
		if r.phase == phase && r.matches(err) {
			return r.action
		}
	}
	return Fatal
}

// RunError is returned when a run aborts.
type RunError struct {
	Phase Phase
	URN   string
	Err   error
}

func (e *RunError) Error() string {
	if e.URN != "" {
		return fmt.Sprintf("%s %s: %v", e.Phase, e.URN, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
