package genome

import (
	"github.com/biologic/stylus/internal/gene"
	"github.com/biologic/stylus/internal/geom"
	"github.com/biologic/stylus/internal/hanref"
	"github.com/biologic/stylus/internal/mutation"
	"github.com/biologic/stylus/internal/stylerr"
)

// Statistics accumulates the running counters a genome tracks across its
// lifetime: trials/attempts executed, rollbacks issued, and the
// best-observed score/cost/fitness (used by "increase"/"decrease" trial
// conditions to auto-update their threshold).
type Statistics struct {
	Trials      int
	Attempts    int
	Rollbacks   int
	HasBest     bool
	BestScore   float64
	BestCost    float64
	BestFitness float64
}

// Termination records why a genome died or why its last plan stopped,
// mirroring the genome XML's optional termination element.
type Termination struct {
	Code        string
	ReasonCode  string
	Description string
}

// Genome is the mutable base buffer, its parsed genes, the current state,
// the three modification stacks, and accumulated statistics.
type Genome struct {
	Author        string
	Bases         []byte
	Genes         []*gene.Gene
	Stacks        mutation.Stacks
	Stats         Statistics
	Termination   Termination

	state State
}

// New returns a genome over bases with no genes parsed yet, in the Dead
// state (mirroring the original engine's Genome constructor).
func New(author string, bases []byte) *Genome {
	return &Genome{Author: author, Bases: append([]byte(nil), bases...), state: Dead}
}

// AddGene parses and attaches a gene spanning baseRange against han,
// invalidating it fully so the next compile pass materializes it.
func (gn *Genome) AddGene(baseRange geom.Range, origin geom.Point, han *hanref.HanRef) *gene.Gene {
	g := gene.New(baseRange, origin, han)
	gn.Genes = append(gn.Genes, g)
	return g
}

// geneIndex returns the index of gn.Genes[i] == target, or -1.
func (gn *Genome) geneIndex(target *gene.Gene) int {
	for i, g := range gn.Genes {
		if g == target {
			return i
		}
	}
	return -1
}

// Apply performs the edit described by rec against the base buffer and the
// targeted gene(s), pushing rec onto dst. It is the single entry point
// every plan mutation and its rollback counterpart routes through.
func (gn *Genome) Apply(rec mutation.Record, dst *mutation.Stack) error {
	if err := gn.applyRecord(&rec); err != nil {
		return err
	}
	dst.Push(rec)
	return nil
}

func (gn *Genome) applyRecord(rec *mutation.Record) error {
	if rec.Gene < 0 || rec.Gene >= len(gn.Genes) {
		return stylerr.New(stylerr.BadArguments, "modification references unknown gene %d", rec.Gene)
	}
	g := gn.Genes[rec.Gene]

	switch rec.Kind {
	case mutation.Change:
		copy(gn.Bases[rec.Target:], []byte(rec.BasesAfter))
		changed := geom.Range{Start: rec.Target, End: rec.Target + len(rec.BasesAfter) - 1}
		g.MarkInvalid(changed, rec.Silent)

	case mutation.Copy:
		n := len(rec.Bases)
		gn.insertBases(rec.Target, []byte(rec.Bases))
		atCodon := (rec.Target - g.Range.Start) / gene.Codon
		g.Resize(atCodon, n/gene.Codon)
		before := g.ShiftStrokeRanges(atCodon, n/gene.Codon)
		rec.StrokeRangesBefore = toSnapshots(before)
		g.MarkInvalid(geom.Range{Start: rec.Target, End: rec.Target + n - 1}, false)

	case mutation.Insert:
		n := len(rec.Bases)
		gn.insertBases(rec.Target, []byte(rec.Bases))
		atCodon := (rec.Target - g.Range.Start) / gene.Codon
		g.Resize(atCodon, n/gene.Codon)
		before := g.ShiftStrokeRanges(atCodon, n/gene.Codon)
		rec.StrokeRangesBefore = toSnapshots(before)
		g.MarkInvalid(geom.Range{Start: rec.Target, End: rec.Target + n - 1}, false)

	case mutation.Delete:
		n := len(rec.BasesRemoved)
		gn.deleteBases(rec.Target, n)
		atCodon := (rec.Target - g.Range.Start) / gene.Codon
		g.Resize(atCodon, -(n / gene.Codon))
		before := g.ShiftStrokeRanges(atCodon, -(n / gene.Codon))
		rec.StrokeRangesBefore = toSnapshots(before)
		g.MarkInvalid(geom.Range{Start: rec.Target, End: rec.Target}, false)

	case mutation.Transpose:
		n := len(rec.Bases)
		gn.deleteBases(rec.Source, n)
		target := rec.Target
		if rec.GeneDst == rec.Gene && rec.Source < target {
			target -= n
		}
		gn.insertBases(target, []byte(rec.Bases))

		srcAtCodon := (rec.Source - g.Range.Start) / gene.Codon
		g.Resize(srcAtCodon, -(n / gene.Codon))
		srcBefore := g.ShiftStrokeRanges(srcAtCodon, -(n / gene.Codon))
		rec.StrokeRangesBefore = toSnapshots(srcBefore)

		dst := gn.Genes[rec.GeneDst]
		dstAtCodon := (target - dst.Range.Start) / gene.Codon
		dst.Resize(dstAtCodon, n/gene.Codon)
		dstBefore := dst.ShiftStrokeRanges(dstAtCodon, n/gene.Codon)
		rec.StrokeRangesBeforeDst = toSnapshots(dstBefore)

	case mutation.StrokeRanges:
		// A bare StrokeRanges record is only ever produced internally by
		// an indel above; applying one directly is a no-op restore point.

	default:
		return stylerr.New(stylerr.BadArguments, "unknown modification kind %v", rec.Kind)
	}
	return nil
}

// Undo reverses rec against the base buffer and targeted gene(s), the
// precise inverse of applyRecord.
func (gn *Genome) Undo(rec mutation.Record) error {
	if rec.Gene < 0 || rec.Gene >= len(gn.Genes) {
		return stylerr.New(stylerr.BadArguments, "modification references unknown gene %d", rec.Gene)
	}
	g := gn.Genes[rec.Gene]

	switch rec.Kind {
	case mutation.Change:
		copy(gn.Bases[rec.Target:], []byte(rec.BasesBefore))
		changed := geom.Range{Start: rec.Target, End: rec.Target + len(rec.BasesBefore) - 1}
		g.MarkInvalid(changed, rec.Silent)

	case mutation.Copy, mutation.Insert:
		n := len(rec.Bases)
		atCodon := (rec.Target - g.Range.Start) / gene.Codon
		gn.deleteBases(rec.Target, n)
		g.Resize(atCodon, -(n / gene.Codon))
		restoreStrokeRanges(g, rec.StrokeRangesBefore)
		g.MarkInvalid(geom.Range{Start: rec.Target, End: rec.Target}, false)

	case mutation.Delete:
		n := len(rec.BasesRemoved)
		atCodon := (rec.Target - g.Range.Start) / gene.Codon
		gn.insertBases(rec.Target, []byte(rec.BasesRemoved))
		g.Resize(atCodon, n/gene.Codon)
		restoreStrokeRanges(g, rec.StrokeRangesBefore)
		g.MarkInvalid(geom.Range{Start: rec.Target, End: rec.Target + n - 1}, false)

	case mutation.Transpose:
		n := len(rec.Bases)
		target := rec.Target
		if rec.GeneDst == rec.Gene && rec.Source < target {
			target -= n
		}
		dst := gn.Genes[rec.GeneDst]
		dstAtCodon := (target - dst.Range.Start) / gene.Codon
		gn.deleteBases(target, n)
		dst.Resize(dstAtCodon, -(n / gene.Codon))
		restoreStrokeRanges(dst, rec.StrokeRangesBeforeDst)

		gn.insertBases(rec.Source, []byte(rec.Bases))
		srcAtCodon := (rec.Source - g.Range.Start) / gene.Codon
		g.Resize(srcAtCodon, n/gene.Codon)
		restoreStrokeRanges(g, rec.StrokeRangesBefore)

	case mutation.StrokeRanges:
		restoreStrokeRanges(g, rec.StrokeRangesBefore)
	}
	return nil
}

func toSnapshots(before []geom.Range) []mutation.StrokeRangeSnapshot {
	out := make([]mutation.StrokeRangeSnapshot, len(before))
	for i, r := range before {
		out[i] = mutation.StrokeRangeSnapshot{StrokeIndex: i, Range: r}
	}
	return out
}

func restoreStrokeRanges(g *gene.Gene, snaps []mutation.StrokeRangeSnapshot) {
	for _, s := range snaps {
		if s.StrokeIndex >= 0 && s.StrokeIndex < len(g.Strokes) {
			g.Strokes[s.StrokeIndex].Range = s.Range
		}
	}
	if len(snaps) > 0 {
		g.Invalid |= gene.FlagStrokes
	}
}

func (gn *Genome) insertBases(at int, bases []byte) {
	grown := make([]byte, len(gn.Bases)+len(bases))
	copy(grown, gn.Bases[:at])
	copy(grown[at+len(bases):], gn.Bases[at:])
	copy(grown[at:], bases)
	gn.Bases = grown
}

func (gn *Genome) deleteBases(at, n int) {
	gn.Bases = append(gn.Bases[:at], gn.Bases[at+n:]...)
}

// Rollback undoes every entry of src in reverse (LIFO) order, clearing the
// stack. It mirrors Genome's rollback machinery (§4.8): a monotone reverse
// traversal followed by a byte-equality check against the supplied
// pre-attempt snapshot, when provided.
func (gn *Genome) Rollback(src *mutation.Stack, preAttempt []byte) error {
	for {
		rec, ok := src.Pop()
		if !ok {
			break
		}
		if err := gn.Undo(rec); err != nil {
			return stylerr.Wrap(stylerr.InvalidState, err, "rollback failed")
		}
	}
	if preAttempt != nil && string(gn.Bases) != string(preAttempt) {
		return stylerr.New(stylerr.InvalidState, "post-rollback bases diverge from pre-attempt snapshot")
	}
	return nil
}
