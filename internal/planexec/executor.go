package planexec

import (
	"github.com/grailbio/base/log"

	"github.com/biologic/stylus/internal/acid"
	"github.com/biologic/stylus/internal/gene"
	"github.com/biologic/stylus/internal/genome"
	"github.com/biologic/stylus/internal/mutation"
	"github.com/biologic/stylus/internal/prng"
	"github.com/biologic/stylus/internal/scoring"
	"github.com/biologic/stylus/internal/stylerr"
	"github.com/biologic/stylus/internal/unit"
)

// StatusCallback is invoked after each accepted trial whose number is a
// multiple of the plan's status rate. Returning true terminates the plan
// with termination type Callback and reason Terminated (spec.md §4.7).
type StatusCallback func(trialsCompleted int, stats genome.Statistics) (stop bool)

// Executor drives a Plan against a Genome: selecting mutations, applying
// and validating them, scoring the result, and accepting or rolling back
// each attempt, per spec.md §4.7-4.8.
type Executor struct {
	Genome  *genome.Genome
	Table   *acid.Table
	Globals scoring.Globals
	RNG     prng.PRNG
	Options Options
}

// performancePrecision matches the source engine's getPerformancePrecision:
// ties in exhaustive mode within this distance are broken at random rather
// than by strict ordering.
const performancePrecision = 1e-9

// Execute runs plan's steps in order against e.Genome, starting from the
// genome's current state. A positive trialCount caps the trials run by this
// call; 0 leaves the run to the plan's own termination conditions.
// firstTrial is not used: the callback receives the genome's cumulative
// trial count. It returns the Termination that ended the run.
func (e *Executor) Execute(plan *Plan, firstTrial, trialCount int, callback StatusCallback) (Termination, error) {
	if ok, term := plan.Duration.Evaluate(e.Genome.Stats.Trials, e.Genome.Stats.Attempts); !ok {
		return term, nil
	}

	trialsThisRun := 0
	for si := range plan.Steps {
		step := &plan.Steps[si]
		conditions := plan.GlobalConditions
		if step.Conditions != nil {
			conditions = *step.Conditions
		}

		stepTrials := step.Trials
		indexRange := step.Range

		for stepTrials != 0 {
			if trialCount > 0 && trialsThisRun >= trialCount {
				return Termination{TerminationDuration, ReasonTrials, "requested trial count satisfied"}, nil
			}
			if ok, term := plan.Duration.Evaluate(e.Genome.Stats.Trials, e.Genome.Stats.Attempts); !ok {
				return term, nil
			}

			term, err := e.runTrial(plan, step, indexRange, conditions)
			if err != nil {
				return Termination{}, err
			}
			log.Debug.Printf("planexec: trial %d done (attempts=%d rollbacks=%d)",
				e.Genome.Stats.Trials, e.Genome.Stats.Attempts, e.Genome.Stats.Rollbacks)
			trialsThisRun++
			indexRange = shiftRange(indexRange, step.DIndex)

			if term.Type != TerminationNone {
				return term, nil
			}
			if stepTrials > 0 {
				stepTrials--
			}

			if plan.StatusRate > 0 && e.Genome.Stats.Trials%plan.StatusRate == 0 && callback != nil {
				if callback(e.Genome.Stats.Trials, e.Genome.Stats) {
					return Termination{TerminationCallback, ReasonTerminated, "status callback requested termination"}, nil
				}
			}
		}
	}
	return Termination{}, nil
}

// shiftRange applies a step's per-trial delta to an explicit index range;
// the other range kinds are recomputed fresh from the gene each trial and
// are unaffected by dIndex.
func shiftRange(r IndexRange, delta int) IndexRange {
	if r.Kind == RangeExplicit && delta != 0 {
		r.Explicit = r.Explicit.Shift(delta)
	}
	return r
}

// runTrial executes one trial: repeated attempts (each a full
// apply-validate-score-accept-or-rollback cycle) until one is accepted or
// the rollback cap is reached.
func (e *Executor) runTrial(plan *Plan, step *Step, rng IndexRange, conditions TrialConditions) (Termination, error) {
	rollbacksThisTrial := 0
	for {
		preAttempt := append([]byte(nil), e.Genome.Bases...)

		accepted, err := e.runAttempt(plan, step, rng, conditions)
		if err != nil {
			return Termination{}, err
		}
		e.Genome.Stats.Attempts++

		if accepted {
			e.Genome.Stacks.Accepted.Append(&e.Genome.Stacks.AttemptRejected)
			e.Genome.Stats.Trials++
			return Termination{}, nil
		}

		if err := e.Genome.Rollback(&e.Genome.Stacks.AttemptRejected, preAttempt); err != nil {
			return Termination{}, stylerr.Wrap(stylerr.InvalidState, err, "trial rollback")
		}
		e.Genome.Stats.Rollbacks++
		rollbacksThisTrial++
		log.Debug.Printf("planexec: attempt rejected, rolled back (rollbacksThisTrial=%d)", rollbacksThisTrial)
		if !plan.RollbackLimit.Evaluate(rollbacksThisTrial) {
			return Termination{TerminationDuration, ReasonAttempts, "rollback cap reached for this trial"}, nil
		}
	}
}

// runAttempt applies one attempt's mutation(s), recompiles/validates/scores
// the targeted gene(s), and judges the result against conditions. It
// reports whether the attempt should be accepted; on false, the caller
// rolls back e.Genome.Stacks.AttemptRejected.
func (e *Executor) runAttempt(plan *Plan, step *Step, rng IndexRange, conditions TrialConditions) (bool, error) {
	geneIdx, indexRange, err := e.resolveRange(step, rng)
	if err != nil {
		return false, nil // an unresolvable range is a validation-style rejection, not a hard error
	}
	g := e.Genome.Genes[geneIdx]

	switch plan.MutationMode {
	case MutationExhaustive:
		return e.runExhaustiveAttempt(plan, geneIdx, g, indexRange, conditions)
	default:
		return e.runRandomAttempt(plan, step, geneIdx, g, indexRange, conditions)
	}
}

// runRandomAttempt draws one mutation from the step's weighted list,
// samples its unspecified parameters, applies it, and recompiles/scores.
func (e *Executor) runRandomAttempt(plan *Plan, step *Step, geneIdx int, g *gene.Gene, rng IndexRange, conditions TrialConditions) (bool, error) {
	sm := e.chooseMutation(step.Mutations)
	rec, err := e.buildRecord(sm, geneIdx, g, rng)
	if err != nil {
		return false, nil
	}
	if err := e.Genome.Apply(rec, &e.Genome.Stacks.AttemptRejected); err != nil {
		return false, nil
	}
	return e.recompileAndJudge(plan, g, conditions)
}

// runExhaustiveAttempt enumerates every (position, base) pair in rng,
// scoring each as a separate consideration, then re-applies the
// best-scoring choice as the trial's accepted mutation.
func (e *Executor) runExhaustiveAttempt(plan *Plan, geneIdx int, g *gene.Gene, rng IndexRange, conditions TrialConditions) (bool, error) {
	codonStart, codonEnd := e.codonBounds(g, rng)
	if codonStart > codonEnd {
		return false, nil
	}

	bestScore := unit.Undefined
	var bestRec *mutation.Record
	for pos := codonStart; pos <= codonEnd; pos++ {
		for _, base := range []byte{'T', 'C', 'A', 'G'} {
			preAttempt := append([]byte(nil), e.Genome.Bases...)
			rec := mutation.Record{
				Kind: mutation.Change, Gene: geneIdx, Target: pos,
				BasesBefore: string(e.Genome.Bases[pos : pos+1]),
				BasesAfter:  string(base),
				Silent:      e.Genome.Bases[pos] == base,
			}
			if rec.Silent {
				continue
			}
			if err := e.Genome.Apply(rec, &e.Genome.Stacks.ConsiderationRejected); err != nil {
				continue
			}
			accepted, err := e.recompileAndJudge(plan, g, conditions)
			score := g.Score
			_ = e.Genome.Rollback(&e.Genome.Stacks.ConsiderationRejected, preAttempt)
			if err != nil || !accepted {
				continue
			}
			if bestRec == nil || score.Greater(bestScore) ||
				(score.Within(bestScore, unit.Of(performancePrecision)) && e.RNG.Uniform01() < 0.5) {
				bestScore = score
				r := rec
				bestRec = &r
			}
		}
	}

	if bestRec == nil {
		return false, nil
	}
	if err := e.Genome.Apply(*bestRec, &e.Genome.Stacks.AttemptRejected); err != nil {
		return false, nil
	}
	return e.recompileAndJudge(plan, g, conditions)
}

// recompileAndJudge brings g's compile/validate/score pipeline up to date
// and evaluates the trial acceptance conditions against the new score,
// cost, and fitness.
func (e *Executor) recompileAndJudge(plan *Plan, g *gene.Gene, conditions TrialConditions) (bool, error) {
	if err := g.EnsureCompiled(e.Genome.Bases, e.Table); err != nil {
		return false, nil
	}
	if _, err := g.EnsureStrokes(); err != nil {
		return false, nil
	}
	if err := g.EnsureOverlaps(); err != nil {
		return false, nil
	}
	if err := g.EnsureDimensions(); err != nil {
		return false, nil
	}
	for gi := range g.Groups {
		grp := &g.Groups[gi]
		for _, si := range grp.StrokeIndices {
			st := &g.Strokes[si]
			hs, ok := g.Han.StrokeByID(st.HanStrokeID)
			if !ok {
				continue
			}
			scoring.ScoreStroke(g.Points[st.Range.Start-1:st.Range.End+1], hs, st)
		}
		scoring.ScoreGroup(e.Globals, grp, g.Strokes, countOverlapsIn(g.IllegalOverlaps, grp.StrokeIndices), countOverlapsIn(g.MissingOverlaps, grp.StrokeIndices))
	}
	scoring.ScoreGene(e.Globals, g, g.Marks)

	cost := plan.Cost(float64(g.Range.Len()), g.Units())
	fitness := Fitness(g.Score, cost)

	bestScore, bestCost, bestFitness := unit.Undefined, unit.Undefined, unit.Undefined
	if e.Genome.Stats.HasBest {
		bestScore = unit.Of(e.Genome.Stats.BestScore)
		bestCost = unit.Of(e.Genome.Stats.BestCost)
		bestFitness = unit.Of(e.Genome.Stats.BestFitness)
	}

	okScore, newBestScore := conditions.Score.Evaluate(g.Score, bestScore)
	okCost, newBestCost := conditions.Cost.Evaluate(cost, bestCost)
	okFitness, newBestFitness := conditions.Fitness.Evaluate(fitness, bestFitness)
	if !okScore || !okCost || !okFitness {
		return false, nil
	}
	if newBestScore.IsDefined() && newBestCost.IsDefined() && newBestFitness.IsDefined() {
		e.Genome.Stats.HasBest = true
		e.Genome.Stats.BestScore = newBestScore.Value()
		e.Genome.Stats.BestCost = newBestCost.Value()
		e.Genome.Stats.BestFitness = newBestFitness.Value()
	}
	g.Cost = cost
	return true, nil
}

func countOverlapsIn(pairs []gene.StrokePair, indices []int) int {
	in := map[int]bool{}
	for _, i := range indices {
		in[i] = true
	}
	n := 0
	for _, p := range pairs {
		if in[p.A] || in[p.B] {
			n++
		}
	}
	return n
}

// chooseMutation draws one StepMutation per its likelihood weight.
func (e *Executor) chooseMutation(mutations []StepMutation) StepMutation {
	r := e.RNG.Uniform01()
	acc := 0.0
	for _, sm := range mutations {
		acc += sm.Likelihood
		if r <= acc {
			return sm
		}
	}
	return mutations[len(mutations)-1]
}

// resolveRange picks the gene a step's range applies to (the first gene
// for whole-gene/percent/explicit ranges; the gene owning the named Han
// stroke for a stroke range) and the concrete codon-index range to draw
// from.
func (e *Executor) resolveRange(step *Step, rng IndexRange) (int, IndexRange, error) {
	if len(e.Genome.Genes) == 0 {
		return 0, IndexRange{}, stylerr.New(stylerr.BadArguments, "no genes to mutate")
	}
	switch rng.Kind {
	case RangeHanStroke:
		for gi, g := range e.Genome.Genes {
			if _, ok := g.HanToStroke[rng.HanStrokeID]; ok {
				return gi, rng, nil
			}
		}
		return 0, IndexRange{}, stylerr.New(stylerr.BadArguments, "no gene owns Han stroke %d", rng.HanStrokeID)
	default:
		return 0, rng, nil
	}
}

// codonBounds converts an IndexRange into an inclusive [start,end] global
// base-position range within gene g. Whole-gene and Han-stroke ranges yield
// codon-start positions; percent and explicit ranges are returned unaligned.
func (e *Executor) codonBounds(g *gene.Gene, rng IndexRange) (int, int) {
	switch rng.Kind {
	case RangeWholeGene:
		return g.Range.Start + gene.Codon, g.Range.End - gene.Codon
	case RangePercentOfGene:
		n := g.Range.Len()
		lo := g.Range.Start + int(rng.PercentLow*float64(n))
		hi := g.Range.Start + int(rng.PercentHigh*float64(n))
		return lo, hi
	case RangeHanStroke:
		if si, ok := g.HanToStroke[rng.HanStrokeID]; ok {
			st := g.Strokes[si]
			return g.CodonStart(st.Range.Start), g.CodonStart(st.Range.End)
		}
		return 1, 0
	default:
		return rng.Explicit.Start, rng.Explicit.End
	}
}

// buildRecord samples any unspecified parameters of sm and constructs the
// mutation.Record describing the edit, without applying it.
func (e *Executor) buildRecord(sm StepMutation, geneIdx int, g *gene.Gene, rng IndexRange) (mutation.Record, error) {
	lo, hi := e.codonBounds(g, rng)
	if hi < lo {
		return mutation.Record{}, stylerr.New(stylerr.BadArguments, "empty index range")
	}
	target := lo
	if sm.TargetIndex != nil {
		target = *sm.TargetIndex
	} else if hi > lo {
		target = lo + int(e.RNG.UniformInt(0, int64(hi-lo)))
	}

	switch sm.Kind {
	case MutateChange:
		return e.buildChange(sm, geneIdx, g, target)
	case MutateInsert:
		n := e.codonCount(sm) * gene.Codon
		bases := e.sampleBases(sm, n)
		return mutation.Record{Kind: mutation.Insert, Gene: geneIdx, Target: target, Bases: bases}, nil
	case MutateDelete:
		n := e.codonCount(sm) * gene.Codon
		if target+n-1 > len(e.Genome.Bases)-1 {
			return mutation.Record{}, stylerr.New(stylerr.BadArguments, "delete range exceeds genome")
		}
		removed := string(e.Genome.Bases[target : target+n])
		return mutation.Record{Kind: mutation.Delete, Gene: geneIdx, Target: target, BasesRemoved: removed}, nil
	case MutateCopy:
		n := e.codonCount(sm) * gene.Codon
		source := lo
		if sm.SourceIndex != nil {
			source = *sm.SourceIndex
		}
		if source+n-1 > len(e.Genome.Bases)-1 {
			return mutation.Record{}, stylerr.New(stylerr.BadArguments, "copy source exceeds genome")
		}
		bases := string(e.Genome.Bases[source : source+n])
		return mutation.Record{Kind: mutation.Copy, Gene: geneIdx, GeneDst: geneIdx, Source: source, Target: target, Bases: bases}, nil
	case MutateTranspose:
		n := e.codonCount(sm) * gene.Codon
		source := lo
		if sm.SourceIndex != nil {
			source = *sm.SourceIndex
		}
		if source+n-1 > len(e.Genome.Bases)-1 {
			return mutation.Record{}, stylerr.New(stylerr.BadArguments, "transpose source exceeds genome")
		}
		bases := string(e.Genome.Bases[source : source+n])
		return mutation.Record{Kind: mutation.Transpose, Gene: geneIdx, GeneDst: geneIdx, Source: source, Target: target, Bases: bases}, nil
	default:
		return mutation.Record{}, stylerr.New(stylerr.BadArguments, "unknown mutation kind")
	}
}

func (e *Executor) codonCount(sm StepMutation) int {
	if sm.CountBases != nil {
		return *sm.CountBases
	}
	return 1
}

func (e *Executor) sampleBases(sm StepMutation, n int) string {
	if sm.Bases != nil {
		return *sm.Bases
	}
	alphabet := []byte{'T', 'C', 'A', 'G'}
	out := make([]byte, n)
	for i := range out {
		out[i] = alphabet[e.RNG.UniformInt(0, 3)]
	}
	return string(out)
}

// buildChange samples a 1-base or 1-codon substitution. A 1-base change
// draws a transversion (purine<->pyrimidine) with probability
// TransversionLikelihood, a transition (same class, different base)
// otherwise.
func (e *Executor) buildChange(sm StepMutation, geneIdx int, g *gene.Gene, target int) (mutation.Record, error) {
	if sm.Bases != nil {
		n := len(*sm.Bases)
		if target+n-1 > len(e.Genome.Bases)-1 {
			return mutation.Record{}, stylerr.New(stylerr.BadArguments, "change exceeds genome")
		}
		before := string(e.Genome.Bases[target : target+n])
		return mutation.Record{Kind: mutation.Change, Gene: geneIdx, Target: target, BasesBefore: before, BasesAfter: *sm.Bases, Silent: before == *sm.Bases}, nil
	}

	before := e.Genome.Bases[target]
	after := e.substituteBase(before, sm.TransversionLikelihood)
	return mutation.Record{
		Kind: mutation.Change, Gene: geneIdx, Target: target,
		BasesBefore: string(before), BasesAfter: string(after),
		Silent: before == after,
	}, nil
}

func (e *Executor) substituteBase(before byte, transversionLikelihood float64) byte {
	purine := acid.IsPurine(before)
	wantTransversion := e.RNG.Uniform01() < transversionLikelihood
	var candidates []byte
	switch {
	case purine && wantTransversion:
		candidates = []byte{'T', 'C'}
	case purine && !wantTransversion:
		candidates = []byte{'G'}
		if before == 'G' {
			candidates = []byte{'A'}
		}
	case !purine && wantTransversion:
		candidates = []byte{'A', 'G'}
	default:
		candidates = []byte{'C'}
		if before == 'C' {
			candidates = []byte{'T'}
		}
	}
	if len(candidates) == 1 {
		return candidates[0]
	}
	return candidates[e.RNG.UniformInt(0, int64(len(candidates)-1))]
}
