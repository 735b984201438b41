package xmlio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biologic/stylus/internal/planexec"
)

const testPlanXML = `<?xml version="1.0"?>
<plan>
  <options accumulateMutations="true" preserveGenes="true" ensureInFrame="true" ensureWholeCodons="true" rejectSilent="false"/>
  <trialConditions>
    <score mode="increase" threshold="0"/>
    <cost mode="maintain" threshold="0.1"/>
    <fitness mode="none" threshold="0"/>
  </trialConditions>
  <terminationConditions trials="100" attempts="1000" rollbacks="10" minimumFitness="0.5" maximumFitness="0.99"/>
  <statusRate>10</statusRate>
  <fixedCost>1</fixedCost>
  <costPerBase>0.01</costPerBase>
  <costPerUnit>0.02</costPerUnit>
  <mutationMode>exhaustive</mutationMode>
  <steps>
    <step trials="5" deltaIndex="1">
      <geneRange/>
      <mutations>
        <change likelihood="0.5" targetIndex="tandem" transversionLikelihood="0.5"/>
        <delete likelihood="0.5" countBases="3"/>
      </mutations>
    </step>
  </steps>
</plan>`

func TestReadPlanBasic(t *testing.T) {
	p, opts, err := ReadPlan(strings.NewReader(testPlanXML))
	require.NoError(t, err)

	assert.True(t, opts.AccumulateMutations)
	assert.True(t, opts.PreserveGenes)
	assert.False(t, opts.RejectSilent)

	assert.Equal(t, planexec.MutationExhaustive, p.MutationMode)
	assert.Equal(t, planexec.ConditionIncrease, p.GlobalConditions.Score.Mode)
	assert.Equal(t, planexec.ConditionMaintain, p.GlobalConditions.Cost.Mode)

	require.True(t, p.Duration.HasTrialLimit)
	assert.Equal(t, 100, p.Duration.TrialLimit)
	require.True(t, p.Duration.HasAttemptLimit)
	assert.Equal(t, 1000, p.Duration.AttemptLimit)
	assert.Equal(t, 10, p.RollbackLimit.Limit)

	require.Len(t, p.Steps, 1)
	step := p.Steps[0]
	assert.Equal(t, 5, step.Trials)
	assert.Equal(t, planexec.RangeWholeGene, step.Range.Kind)
	require.Len(t, step.Mutations, 2)
	assert.InDelta(t, 1.0, step.Mutations[0].Likelihood+step.Mutations[1].Likelihood, 0.001)
	assert.Equal(t, planexec.MutateChange, step.Mutations[0].Kind)
	require.NotNil(t, step.Mutations[0].TargetIndex)
	assert.Equal(t, planexec.MutateDelete, step.Mutations[1].Kind)
}

func TestReadPlanInfiniteTrials(t *testing.T) {
	doc := strings.Replace(testPlanXML, `trials="100" `, `trials="infinite" `, 1)
	p, _, err := ReadPlan(strings.NewReader(doc))
	require.NoError(t, err)
	assert.False(t, p.Duration.HasTrialLimit)
}

func TestReadPlanRejectsBadLikelihoodSum(t *testing.T) {
	doc := strings.Replace(testPlanXML, `likelihood="0.5" countBases="3"`, `likelihood="0.1" countBases="3"`, 1)
	_, _, err := ReadPlan(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestReadPlanRejectsEmptyMutations(t *testing.T) {
	doc := strings.Replace(testPlanXML, `<mutations>
        <change likelihood="0.5" targetIndex="tandem" transversionLikelihood="0.5"/>
        <delete likelihood="0.5" countBases="3"/>
      </mutations>`, `<mutations></mutations>`, 1)
	_, _, err := ReadPlan(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestReadPlanExplicitIndexRange(t *testing.T) {
	doc := strings.Replace(testPlanXML, `<geneRange/>`, `<indexRange first="1" last="9"/>`, 1)
	p, _, err := ReadPlan(strings.NewReader(doc))
	require.NoError(t, err)
	rng := p.Steps[0].Range
	assert.Equal(t, planexec.RangeExplicit, rng.Kind)
	assert.Equal(t, 0, rng.Explicit.Start)
	assert.Equal(t, 8, rng.Explicit.End)
}

func TestReadPlanDefaultTransversionLikelihood(t *testing.T) {
	doc := strings.Replace(testPlanXML, ` transversionLikelihood="0.5"`, "", 1)
	p, _, err := ReadPlan(strings.NewReader(doc))
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, p.Steps[0].Mutations[0].TransversionLikelihood, 1e-9)
}
