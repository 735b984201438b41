// Package planexec drives a Plan's steps against a Genome: selecting
// mutations, applying them, validating and scoring the result, evaluating
// trial acceptance and termination conditions, and rolling back on
// failure. It is the "Plan" and "Executor" subsystems of the simulation
// core.
package planexec

import (
	"github.com/biologic/stylus/internal/geom"
	"github.com/biologic/stylus/internal/unit"
)

// TerminationType names the STGT_* category of a recorded termination,
// transcribed from plan.cpp's usage.
type TerminationType string

const (
	TerminationNone       TerminationType = "None"
	TerminationCallback   TerminationType = "Callback"
	TerminationScore      TerminationType = "Score"
	TerminationFitness    TerminationType = "Fitness"
	TerminationDuration   TerminationType = "Duration"
	TerminationMutation   TerminationType = "Mutation"
	TerminationValidation TerminationType = "Validation"
)

// TerminationReason names the STGR_* sub-reason, transcribed from the same
// usage sites.
type TerminationReason string

const (
	ReasonNone        TerminationReason = "None"
	ReasonTerminated  TerminationReason = "Terminated"
	ReasonTrials      TerminationReason = "Trials"
	ReasonAttempts    TerminationReason = "Attempts"
	ReasonMinimum     TerminationReason = "Minimum"
	ReasonMaximum     TerminationReason = "Maximum"
	ReasonChange      TerminationReason = "Change"
	ReasonCopy        TerminationReason = "Copy"
	ReasonDelete      TerminationReason = "Delete"
	ReasonInsert      TerminationReason = "Insert"
	ReasonStrokes     TerminationReason = "Strokes"
	ReasonMeasurement TerminationReason = "Measurement"
)

// Termination is one recorded plan-ending (or attempt-failing) event.
type Termination struct {
	Type        TerminationType
	Reason      TerminationReason
	Description string
}

// ConditionMode selects how a trial acceptance condition judges the
// current value against its prior best.
type ConditionMode int

const (
	ConditionNone ConditionMode = iota
	ConditionMaintain
	ConditionIncrease
	ConditionDecrease
)

// Condition is one trial acceptance condition (on score, cost, or
// fitness).
type Condition struct {
	Mode      ConditionMode
	Threshold unit.Unit // used only by Maintain (±threshold); Increase/Decrease compare against the retained best
}

// Evaluate reports whether value is accepted against best under c, and the
// (possibly updated) best to retain afterward.
func (c Condition) Evaluate(value, best unit.Unit) (accept bool, newBest unit.Unit) {
	switch c.Mode {
	case ConditionNone:
		return true, best
	case ConditionMaintain:
		if !best.IsDefined() {
			return true, value
		}
		return value.Within(best, c.Threshold), best
	case ConditionIncrease:
		if !best.IsDefined() {
			return true, value
		}
		if value.Greater(best) {
			return true, value
		}
		return false, best
	case ConditionDecrease:
		if !best.IsDefined() {
			return true, value
		}
		if value.Less(best) {
			return true, value
		}
		return false, best
	default:
		return false, best
	}
}

// TrialConditions groups the three performance axes a trial is judged on;
// exactly one must be non-None when multiple mutations per attempt are
// permitted (spec.md §4.7).
type TrialConditions struct {
	Score   Condition
	Cost    Condition
	Fitness Condition
}

// DurationTermination bounds a plan by trial and/or attempt count,
// mirroring DurationTerminationCondition::evaluate.
type DurationTermination struct {
	HasTrialLimit   bool
	TrialLimit      int
	HasAttemptLimit bool
	AttemptLimit    int
}

// Evaluate reports whether the plan should continue (true) given trials
// and attempts executed so far, and if not, why.
func (d DurationTermination) Evaluate(trials, attempts int) (ok bool, term Termination) {
	if d.HasTrialLimit && trials >= d.TrialLimit {
		return false, Termination{TerminationDuration, ReasonTrials, "maximum plan trial duration met"}
	}
	if d.HasAttemptLimit && attempts >= d.AttemptLimit {
		return false, Termination{TerminationDuration, ReasonAttempts, "maximum plan attempt duration met"}
	}
	return true, Termination{}
}

// RollbackTermination bounds the number of rollbacks permitted in a single
// trial.
type RollbackTermination struct {
	Limit int // <0 means unbounded ("infinite" in the XML)
}

func (r RollbackTermination) Evaluate(rollbacksThisTrial int) bool {
	return r.Limit < 0 || rollbacksThisTrial < r.Limit
}

// FitnessTermination bounds the plan's absolute fitness.
type FitnessTermination struct {
	Minimum unit.Unit
	Maximum unit.Unit
}

func (f FitnessTermination) Evaluate(fitness unit.Unit) (ok bool, term Termination) {
	if f.Minimum.IsDefined() && !fitness.Greater(f.Minimum) {
		return false, Termination{TerminationFitness, ReasonMinimum, "fitness fell below requested minimum"}
	}
	if f.Maximum.IsDefined() && !fitness.Less(f.Maximum) {
		return false, Termination{TerminationFitness, ReasonMaximum, "fitness rose above requested maximum"}
	}
	return true, Termination{}
}

// MutationKind names a StepMutation's edit kind.
type MutationKind int

const (
	MutateChange MutationKind = iota
	MutateCopy
	MutateDelete
	MutateInsert
	MutateTranspose
)

// IndexRangeKind selects how a Step's (or StepMutation's) range is
// specified.
type IndexRangeKind int

const (
	RangeExplicit IndexRangeKind = iota
	RangePercentOfGene
	RangeWholeGene
	RangeHanStroke
)

// IndexRange names the base range a mutation may draw from.
type IndexRange struct {
	Kind        IndexRangeKind
	Explicit    geom.Range
	PercentLow  float64
	PercentHigh float64
	HanStrokeID int
}

// StepMutation is one weighted mutation choice within a Step.
type StepMutation struct {
	Kind                 MutationKind
	Likelihood           float64
	SourceIndex          *int
	TargetIndex          *int
	CountBases           *int
	Bases                *string
	TransversionLikelihood float64 // default 2/3 per spec.md §4.7
	IndexRange           *IndexRange
}

// Step is one entry in a Plan's step list.
type Step struct {
	Trials      int
	DIndex      int
	Range       IndexRange
	Conditions  *TrialConditions // nil means inherit the plan's global conditions
	Mutations   []StepMutation
}

// Options carries the plan-level behavioral flags spec.md §6 lists
// alongside the step list: whether mutations accumulate across steps,
// whether gene count is preserved, frame/whole-codon alignment, and
// whether a silent single-base change is rejected outright.
type Options struct {
	AccumulateMutations bool
	PreserveGenes       bool
	EnsureInFrame       bool
	EnsureWholeCodons   bool
	RejectSilent        bool
}

// MutationConditionMode selects random or exhaustive mutation enumeration
// (spec.md §4.7).
type MutationConditionMode int

const (
	MutationRandom MutationConditionMode = iota
	MutationExhaustive
)

// Plan is the full step list plus global options and termination
// conditions.
type Plan struct {
	Steps              []Step
	GlobalConditions   TrialConditions
	MutationMode       MutationConditionMode
	Duration           DurationTermination
	RollbackLimit      RollbackTermination
	Fitness            FitnessTermination
	StatusRate         int
	FixedCost          unit.Unit
	CostPerBase        unit.Unit
	CostPerUnit        unit.Unit
}

// Cost computes fixed + per_base·length + per_unit·units for one gene.
func (p Plan) Cost(geneLength, geneUnits float64) unit.Unit {
	return p.FixedCost.
		Add(p.CostPerBase.Mul(unit.Of(geneLength))).
		Add(p.CostPerUnit.Mul(unit.Of(geneUnits)))
}

// Fitness computes score/cost.
func Fitness(score, cost unit.Unit) unit.Unit {
	return score.Div(cost)
}
