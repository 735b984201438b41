package planexec

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/biologic/stylus/internal/geom"
	"github.com/biologic/stylus/internal/unit"
)

func TestConditionNoneAlwaysAccepts(t *testing.T) {
	c := Condition{Mode: ConditionNone}
	ok, best := c.Evaluate(unit.Of(5), unit.Of(3))
	assert.True(t, ok)
	assert.Equal(t, unit.Of(3), best)
}

func TestConditionFirstValueAlwaysAccepted(t *testing.T) {
	for _, mode := range []ConditionMode{ConditionMaintain, ConditionIncrease, ConditionDecrease} {
		c := Condition{Mode: mode, Threshold: unit.Of(0.1)}
		ok, best := c.Evaluate(unit.Of(5), unit.Undefined)
		assert.True(t, ok, "mode %v", mode)
		assert.Equal(t, unit.Of(5), best, "mode %v", mode)
	}
}

func TestConditionMaintain(t *testing.T) {
	c := Condition{Mode: ConditionMaintain, Threshold: unit.Of(0.5)}
	ok, best := c.Evaluate(unit.Of(5.4), unit.Of(5))
	assert.True(t, ok)
	assert.Equal(t, unit.Of(5), best)

	ok, _ = c.Evaluate(unit.Of(6), unit.Of(5))
	assert.False(t, ok)
}

func TestConditionIncrease(t *testing.T) {
	c := Condition{Mode: ConditionIncrease}
	ok, best := c.Evaluate(unit.Of(6), unit.Of(5))
	assert.True(t, ok)
	assert.Equal(t, unit.Of(6), best)

	ok, best = c.Evaluate(unit.Of(4), unit.Of(5))
	assert.False(t, ok)
	assert.Equal(t, unit.Of(5), best)
}

func TestConditionDecrease(t *testing.T) {
	c := Condition{Mode: ConditionDecrease}
	ok, best := c.Evaluate(unit.Of(4), unit.Of(5))
	assert.True(t, ok)
	assert.Equal(t, unit.Of(4), best)

	ok, _ = c.Evaluate(unit.Of(6), unit.Of(5))
	assert.False(t, ok)
}

func TestDurationTerminationEvaluate(t *testing.T) {
	d := DurationTermination{HasTrialLimit: true, TrialLimit: 10}
	ok, _ := d.Evaluate(5, 0)
	assert.True(t, ok)
	ok, term := d.Evaluate(10, 0)
	assert.False(t, ok)
	assert.Equal(t, TerminationDuration, term.Type)
	assert.Equal(t, ReasonTrials, term.Reason)

	d = DurationTermination{HasAttemptLimit: true, AttemptLimit: 20}
	ok, term = d.Evaluate(0, 20)
	assert.False(t, ok)
	assert.Equal(t, ReasonAttempts, term.Reason)
}

func TestRollbackTerminationUnbounded(t *testing.T) {
	r := RollbackTermination{Limit: -1}
	assert.True(t, r.Evaluate(1000))
}

func TestRollbackTerminationBounded(t *testing.T) {
	r := RollbackTermination{Limit: 3}
	assert.True(t, r.Evaluate(0))
	assert.True(t, r.Evaluate(2))
	assert.False(t, r.Evaluate(3))
}

func TestFitnessTerminationBounds(t *testing.T) {
	f := FitnessTermination{Minimum: unit.Of(0.5), Maximum: unit.Of(0.9)}
	ok, _ := f.Evaluate(unit.Of(0.7))
	assert.True(t, ok)

	ok, term := f.Evaluate(unit.Of(0.4))
	assert.False(t, ok)
	assert.Equal(t, ReasonMinimum, term.Reason)

	ok, term = f.Evaluate(unit.Of(0.95))
	assert.False(t, ok)
	assert.Equal(t, ReasonMaximum, term.Reason)
}

func TestPlanCost(t *testing.T) {
	p := Plan{FixedCost: unit.Of(1), CostPerBase: unit.Of(0.1), CostPerUnit: unit.Of(0.2)}
	cost := p.Cost(10, 5)
	assert.InDelta(t, 1+0.1*10+0.2*5, cost.Value(), 1e-9)
}

func TestFitness(t *testing.T) {
	f := Fitness(unit.Of(10), unit.Of(2))
	assert.InDelta(t, 5, f.Value(), 1e-9)
}

func TestShiftRangeExplicit(t *testing.T) {
	r := IndexRange{Kind: RangeExplicit, Explicit: geom.Range{Start: 3, End: 9}}
	shifted := shiftRange(r, 2)
	assert.Equal(t, 5, shifted.Explicit.Start)
	assert.Equal(t, 11, shifted.Explicit.End)
}

func TestShiftRangeNonExplicitUnaffected(t *testing.T) {
	r := IndexRange{Kind: RangeWholeGene}
	shifted := shiftRange(r, 5)
	assert.Equal(t, RangeWholeGene, shifted.Kind)
}
