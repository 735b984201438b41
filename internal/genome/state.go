// Package genome implements the Stylus genome: a base buffer decoded into
// genes, the state machine gating every outward-facing operation, and the
// apply/undo logic for each kind of reversible edit recorded by
// internal/mutation.
package genome

import "github.com/biologic/stylus/internal/stylerr"

// State is one of the genome's fifteen fixed states.
type State int

const (
	Alive State = iota
	Compiled
	Compiling
	Dead
	Invalid
	Loading
	Mutating
	Recording
	Rollback
	Restoring
	Scored
	Scoring
	Spawning
	Validated
	Validating
	stateCount
)

func (s State) String() string {
	switch s {
	case Alive:
		return "Alive"
	case Compiled:
		return "Compiled"
	case Compiling:
		return "Compiling"
	case Dead:
		return "Dead"
	case Invalid:
		return "Invalid"
	case Loading:
		return "Loading"
	case Mutating:
		return "Mutating"
	case Recording:
		return "Recording"
	case Rollback:
		return "Rollback"
	case Restoring:
		return "Restoring"
	case Scored:
		return "Scored"
	case Scoring:
		return "Scoring"
	case Spawning:
		return "Spawning"
	case Validated:
		return "Validated"
	case Validating:
		return "Validating"
	default:
		return "Unknown"
	}
}

// legalTransitions is the genome's fixed transition matrix, transcribed
// verbatim (row/column order and truth values) from the original engine's
// Genome::enterState.
var legalTransitions = [stateCount][stateCount]bool{
	Alive:      {Alive: true, Dead: true, Loading: true, Rollback: true, Restoring: true, Spawning: true},
	Compiled:   {Compiled: true, Dead: true, Invalid: true, Validating: true},
	Compiling:  {Compiled: true, Compiling: true, Dead: true, Invalid: true},
	Dead:       {Dead: true, Loading: true, Rollback: true},
	Invalid:    {Compiling: true, Dead: true, Invalid: true, Loading: true, Mutating: true, Rollback: true, Spawning: true, Validating: true},
	Loading:    {Dead: true, Invalid: true, Loading: true},
	Mutating:   {Dead: true, Invalid: true, Mutating: true},
	Recording:  {Alive: true, Dead: true, Recording: true},
	Rollback:   {Dead: true, Invalid: true, Rollback: true},
	Restoring:  {Dead: true, Invalid: true, Restoring: true},
	Scored:     {Dead: true, Recording: true, Scored: true},
	Scoring:    {Dead: true, Invalid: true, Scored: true, Scoring: true},
	Spawning:   {Dead: true, Invalid: true, Spawning: true},
	Validated:  {Dead: true, Scoring: true, Validated: true},
	Validating: {Dead: true, Invalid: true, Validated: true, Validating: true},
}

// exitSuccess/exitFailure give the state exitState transitions to on a
// transition function's success or failure, transcribed from
// Genome::exitState's aryEXITTRANSITIONS.
var exitSuccess = [stateCount]State{
	Alive: Alive, Compiled: Compiled, Compiling: Compiled, Dead: Dead, Invalid: Invalid,
	Loading: Invalid, Mutating: Invalid, Recording: Alive, Rollback: Invalid, Restoring: Invalid,
	Scored: Scored, Scoring: Scored, Spawning: Invalid, Validated: Validated, Validating: Validated,
}

var exitFailure = [stateCount]State{
	Alive: Invalid, Compiled: Invalid, Compiling: Invalid, Dead: Dead, Invalid: Invalid,
	Loading: Dead, Mutating: Invalid, Recording: Invalid, Rollback: Dead, Restoring: Dead,
	Scored: Invalid, Scoring: Invalid, Spawning: Dead, Validated: Invalid, Validating: Invalid,
}

// EnterState attempts to transition to gs, returning an error if the
// transition is illegal. A no-op transition (gs == current state) is
// always legal.
func (gn *Genome) EnterState(gs State) error {
	if !legalTransitions[gn.state][gs] {
		return stylerr.New(stylerr.InvalidState, "illegal state transition from %s to %s", gn.state, gs)
	}
	gn.state = gs
	return nil
}

// ExitState runs fn, then transitions to the success or failure state for
// the state ExitState was called in, mirroring Genome::exitState.
func (gn *Genome) ExitState(fn func() error) error {
	from := gn.state
	err := fn()
	next := exitSuccess[from]
	if err != nil {
		next = exitFailure[from]
	}
	gn.state = next
	return err
}

// State returns the genome's current state.
func (gn *Genome) State() State { return gn.state }

// IsState reports whether the genome is currently in state gs.
func (gn *Genome) IsState(gs State) bool { return gn.state == gs }
