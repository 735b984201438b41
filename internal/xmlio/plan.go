package xmlio

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/biologic/stylus/internal/geom"
	"github.com/biologic/stylus/internal/planexec"
	"github.com/biologic/stylus/internal/stylerr"
	"github.com/biologic/stylus/internal/unit"
)

type xmlOptions struct {
	AccumulateMutations bool `xml:"accumulateMutations,attr"`
	PreserveGenes       bool `xml:"preserveGenes,attr"`
	EnsureInFrame       bool `xml:"ensureInFrame,attr"`
	EnsureWholeCodons   bool `xml:"ensureWholeCodons,attr"`
	RejectSilent        bool `xml:"rejectSilent,attr"`
}

type xmlCondition struct {
	Mode      string  `xml:"mode,attr"`
	Threshold float64 `xml:"threshold,attr"`
}

type xmlTrialConditions struct {
	Score   xmlCondition `xml:"score"`
	Cost    xmlCondition `xml:"cost"`
	Fitness xmlCondition `xml:"fitness"`
}

type xmlTerminationConditions struct {
	Trials          string  `xml:"trials,attr"`
	Attempts        string  `xml:"attempts,attr"`
	Rollbacks       string  `xml:"rollbacks,attr"`
	MinimumFitness  float64 `xml:"minimumFitness,attr"`
	MaximumFitness  float64 `xml:"maximumFitness,attr"`
}

type xmlIndexRange struct {
	First      string `xml:"first,attr"`
	Last       string `xml:"last,attr"`
	PercentLow  float64 `xml:"percentLow,attr"`
	PercentHigh float64 `xml:"percentHigh,attr"`
	HanStroke   int     `xml:"hanStroke,attr"`
	Kind        string  `xml:"kind,attr"`
}

type xmlMutation struct {
	XMLName                xml.Name
	Likelihood              float64 `xml:"likelihood,attr"`
	SourceIndex             *int    `xml:"sourceIndex,attr"`
	TargetIndex             string  `xml:"targetIndex,attr"`
	CountBases              *int    `xml:"countBases,attr"`
	Bases                   *string `xml:"bases,attr"`
	TransversionLikelihood  float64 `xml:"transversionLikelihood,attr"`
	IndexRange              *xmlIndexRange `xml:"indexRange"`
}

type xmlMutationList struct {
	Change    []xmlMutation `xml:"change"`
	Copy      []xmlMutation `xml:"copy"`
	Delete    []xmlMutation `xml:"delete"`
	Insert    []xmlMutation `xml:"insert"`
	Transpose []xmlMutation `xml:"transpose"`
}

type xmlStep struct {
	Trials         string              `xml:"trials,attr"`
	DeltaIndex     int                 `xml:"deltaIndex,attr"`
	IndexRange     *xmlIndexRange      `xml:"indexRange"`
	GeneRange      *xmlIndexRange      `xml:"geneRange"`
	HanStrokeRange *xmlIndexRange      `xml:"hanStrokeRange"`
	Conditions     *xmlTrialConditions `xml:"trialConditions"`
	Mutations      xmlMutationList     `xml:"mutations"`
}

// mutations flattens a step's typed mutation lists into one slice, tagging
// each with its element name (consumed by parseStepMutation via
// xm.XMLName.Local) since unmarshaling into named fields loses that tag.
func (m xmlMutationList) mutations() []xmlMutation {
	tag := func(list []xmlMutation, name string) []xmlMutation {
		out := make([]xmlMutation, len(list))
		for i, x := range list {
			x.XMLName.Local = name
			out[i] = x
		}
		return out
	}
	var all []xmlMutation
	all = append(all, tag(m.Change, "change")...)
	all = append(all, tag(m.Copy, "copy")...)
	all = append(all, tag(m.Delete, "delete")...)
	all = append(all, tag(m.Insert, "insert")...)
	all = append(all, tag(m.Transpose, "transpose")...)
	return all
}

type xmlPlan struct {
	XMLName              xml.Name                  `xml:"plan"`
	Options              xmlOptions                `xml:"options"`
	TrialConditions      *xmlTrialConditions        `xml:"trialConditions"`
	TerminationConditions *xmlTerminationConditions `xml:"terminationConditions"`
	StatusRate           int                       `xml:"statusRate,attr"`
	FixedCost            float64                   `xml:"fixedCost,attr"`
	CostPerBase          float64                   `xml:"costPerBase,attr"`
	CostPerUnit          float64                   `xml:"costPerUnit,attr"`
	MutationMode         string                    `xml:"mutationMode,attr"`
	Steps                []xmlStep                 `xml:"steps>step"`
}

func parseCondition(c xmlCondition) planexec.Condition {
	mode := planexec.ConditionNone
	switch strings.ToLower(c.Mode) {
	case "maintain":
		mode = planexec.ConditionMaintain
	case "increase":
		mode = planexec.ConditionIncrease
	case "decrease":
		mode = planexec.ConditionDecrease
	}
	return planexec.Condition{Mode: mode, Threshold: unit.Of(c.Threshold)}
}

func parseTrialConditions(tc *xmlTrialConditions) planexec.TrialConditions {
	if tc == nil {
		return planexec.TrialConditions{}
	}
	return planexec.TrialConditions{
		Score:   parseCondition(tc.Score),
		Cost:    parseCondition(tc.Cost),
		Fitness: parseCondition(tc.Fitness),
	}
}

// parseCount parses a step/termination "trials"/"attempts" attribute,
// which is either a decimal integer or the literal "infinite".
func parseCount(text string) (has bool, n int, err error) {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, "infinite") {
		return false, 0, nil
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return false, 0, err
	}
	return true, v, nil
}

func parseIndexRange(xr *xmlIndexRange, kind string) (planexec.IndexRange, error) {
	if xr == nil {
		return planexec.IndexRange{}, stylerr.XML("indexRange", "step is missing a range element")
	}
	switch kind {
	case "geneRange":
		return planexec.IndexRange{Kind: planexec.RangeWholeGene}, nil
	case "hanStrokeRange":
		return planexec.IndexRange{Kind: planexec.RangeHanStroke, HanStrokeID: xr.HanStroke}, nil
	default:
		if xr.PercentLow != 0 || xr.PercentHigh != 0 {
			return planexec.IndexRange{Kind: planexec.RangePercentOfGene, PercentLow: xr.PercentLow, PercentHigh: xr.PercentHigh}, nil
		}
		first, err := strconv.Atoi(xr.First)
		if err != nil {
			return planexec.IndexRange{}, stylerr.XML("indexRange", "first %q: %s", xr.First, err)
		}
		last, err := strconv.Atoi(xr.Last)
		if err != nil {
			return planexec.IndexRange{}, stylerr.XML("indexRange", "last %q: %s", xr.Last, err)
		}
		return planexec.IndexRange{Kind: planexec.RangeExplicit, Explicit: geom.Range{Start: first - 1, End: last - 1}}, nil
	}
}

func mutationKindOf(name string) (planexec.MutationKind, bool) {
	switch name {
	case "change":
		return planexec.MutateChange, true
	case "copy":
		return planexec.MutateCopy, true
	case "delete":
		return planexec.MutateDelete, true
	case "insert":
		return planexec.MutateInsert, true
	case "transpose":
		return planexec.MutateTranspose, true
	default:
		return 0, false
	}
}

func parseStepMutation(xm xmlMutation) (planexec.StepMutation, error) {
	kind, ok := mutationKindOf(xm.XMLName.Local)
	if !ok {
		return planexec.StepMutation{}, stylerr.XML("mutation", "unrecognized mutation element %q", xm.XMLName.Local)
	}
	sm := planexec.StepMutation{
		Kind:                   kind,
		Likelihood:             xm.Likelihood,
		SourceIndex:            xm.SourceIndex,
		CountBases:             xm.CountBases,
		Bases:                  xm.Bases,
		TransversionLikelihood: xm.TransversionLikelihood,
	}
	if sm.TransversionLikelihood == 0 {
		sm.TransversionLikelihood = 2.0 / 3.0
	}
	if xm.TargetIndex != "" && !strings.EqualFold(xm.TargetIndex, "tandem") {
		v, err := strconv.Atoi(xm.TargetIndex)
		if err != nil {
			return planexec.StepMutation{}, stylerr.XML("targetIndex", "%q: %s", xm.TargetIndex, err)
		}
		sm.TargetIndex = &v
	}
	if xm.IndexRange != nil {
		ir, err := parseIndexRange(xm.IndexRange, "")
		if err != nil {
			return planexec.StepMutation{}, err
		}
		sm.IndexRange = &ir
	}
	return sm, nil
}

// ReadPlan parses a plan document from r into a planexec.Plan plus the
// plan-level option flags spec.md §6 groups alongside it.
func ReadPlan(r io.Reader) (*planexec.Plan, planexec.Options, error) {
	var doc xmlPlan
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, planexec.Options{}, stylerr.XML("plan", "malformed plan document: %s", err)
	}

	p := &planexec.Plan{
		GlobalConditions: parseTrialConditions(doc.TrialConditions),
		StatusRate:       doc.StatusRate,
		FixedCost:        unit.Of(doc.FixedCost),
		CostPerBase:      unit.Of(doc.CostPerBase),
		CostPerUnit:      unit.Of(doc.CostPerUnit),
	}
	if strings.EqualFold(doc.MutationMode, "exhaustive") {
		p.MutationMode = planexec.MutationExhaustive
	}

	if doc.TerminationConditions != nil {
		tc := doc.TerminationConditions
		hasTrials, trials, err := parseCount(tc.Trials)
		if err != nil {
			return nil, planexec.Options{}, stylerr.XML("trials", "%s", err)
		}
		hasAttempts, attempts, err := parseCount(tc.Attempts)
		if err != nil {
			return nil, planexec.Options{}, stylerr.XML("attempts", "%s", err)
		}
		p.Duration = planexec.DurationTermination{
			HasTrialLimit: hasTrials, TrialLimit: trials,
			HasAttemptLimit: hasAttempts, AttemptLimit: attempts,
		}
		hasRollbacks, rollbacks, err := parseCount(tc.Rollbacks)
		if err != nil {
			return nil, planexec.Options{}, stylerr.XML("rollbacks", "%s", err)
		}
		limit := -1
		if hasRollbacks {
			limit = rollbacks
		}
		p.RollbackLimit = planexec.RollbackTermination{Limit: limit}
		if tc.MinimumFitness != 0 {
			p.Fitness.Minimum = unit.Of(tc.MinimumFitness)
		}
		if tc.MaximumFitness != 0 {
			p.Fitness.Maximum = unit.Of(tc.MaximumFitness)
		}
	} else {
		p.RollbackLimit = planexec.RollbackTermination{Limit: -1}
	}

	for si, xs := range doc.Steps {
		has, trials, err := parseCount(xs.Trials)
		if err != nil {
			return nil, planexec.Options{}, stylerr.XML("trials", "step %d: %s", si, err)
		}
		if !has {
			trials = -1 // infinite, bounded only by the plan's other termination conditions
		}

		var rng planexec.IndexRange
		switch {
		case xs.GeneRange != nil:
			rng, err = parseIndexRange(xs.GeneRange, "geneRange")
		case xs.HanStrokeRange != nil:
			rng, err = parseIndexRange(xs.HanStrokeRange, "hanStrokeRange")
		default:
			rng, err = parseIndexRange(xs.IndexRange, "indexRange")
		}
		if err != nil {
			return nil, planexec.Options{}, err
		}

		step := planexec.Step{Trials: trials, DIndex: xs.DeltaIndex, Range: rng}
		if xs.Conditions != nil {
			tc := parseTrialConditions(xs.Conditions)
			step.Conditions = &tc
		}
		mutations := xs.Mutations.mutations()
		if len(mutations) == 0 {
			return nil, planexec.Options{}, stylerr.XML("mutations", "step %d has no mutations", si)
		}
		sum := 0.0
		for _, xm := range mutations {
			sm, err := parseStepMutation(xm)
			if err != nil {
				return nil, planexec.Options{}, err
			}
			sum += sm.Likelihood
			step.Mutations = append(step.Mutations, sm)
		}
		if sum < 0.999 || sum > 1.001 {
			return nil, planexec.Options{}, stylerr.XML("mutations", "step %d mutation likelihoods sum to %.4f, not 1.0", si, sum)
		}
		p.Steps = append(p.Steps, step)
	}

	opts := planexec.Options{
		AccumulateMutations: doc.Options.AccumulateMutations,
		PreserveGenes:       doc.Options.PreserveGenes,
		EnsureInFrame:       doc.Options.EnsureInFrame,
		EnsureWholeCodons:   doc.Options.EnsureWholeCodons,
		RejectSilent:        doc.Options.RejectSilent,
	}
	return p, opts, nil
}
