package gene

import (
	"github.com/biologic/stylus/internal/acid"
	"github.com/biologic/stylus/internal/geom"
	"github.com/biologic/stylus/internal/stylerr"
)

// MarkInvalid records that bases in the given global range changed, and
// updates the gene's invalidation bitset per the dependency rules of §4.2.
//
// A silent single-base change inside the gene, when acids are still valid,
// leaves acids/points valid and invalidates only the score. Any other
// change (including every insertion/deletion) invalidates the full
// compilation pipeline from the affected codon onward, plus strokes,
// dimensions, overlaps, and score.
func (g *Gene) MarkInvalid(changedRange geom.Range, silent bool) {
	affectedCodon := (changedRange.Start - g.Range.Start) / Codon
	if affectedCodon < 0 {
		affectedCodon = 0
	}

	if silent && !g.Invalid.Any(FlagAcids) {
		g.Invalid |= FlagScore
		return
	}

	g.Invalid |= FlagCompiled | FlagStrokes | FlagDimensions | FlagOverlaps | FlagScore
	if g.dirtyFrom < 0 || affectedCodon < g.dirtyFrom {
		g.dirtyFrom = affectedCodon
	}
}

// Resize grows or shrinks the gene's per-codon arrays by codonDelta codons
// starting at codon index atCodon, for an insertion (codonDelta>0) or
// deletion (codonDelta<0). Stroke ranges touching or following atCodon are
// shifted or stretched by ShiftStrokeRanges, called separately by the
// genome once it has decided which strokes are affected.
func (g *Gene) Resize(atCodon, codonDelta int) {
	if codonDelta == 0 {
		return
	}
	// The per-codon arrays are spliced only when they are materialized past
	// the edit point; otherwise they are dropped and the next EnsureCompiled
	// rebuilds them from the bases.
	need := atCodon
	if codonDelta < 0 {
		need -= codonDelta
	}
	if len(g.Acids) < need || len(g.Points) < need || len(g.CoherentCount) < need {
		g.Acids, g.Points, g.CoherentCount = nil, nil, nil
	} else if codonDelta > 0 {
		grownAcids := make([]acid.Type, len(g.Acids)+codonDelta)
		copy(grownAcids, g.Acids[:atCodon])
		copy(grownAcids[atCodon+codonDelta:], g.Acids[atCodon:])
		g.Acids = grownAcids

		grownPoints := make([]geom.Point, len(g.Points)+codonDelta)
		copy(grownPoints, g.Points[:atCodon])
		copy(grownPoints[atCodon+codonDelta:], g.Points[atCodon:])
		g.Points = grownPoints

		grownCoh := make([]int, len(g.CoherentCount)+codonDelta)
		copy(grownCoh, g.CoherentCount[:atCodon])
		copy(grownCoh[atCodon+codonDelta:], g.CoherentCount[atCodon:])
		g.CoherentCount = grownCoh
	} else {
		n := -codonDelta
		g.Acids = append(g.Acids[:atCodon], g.Acids[atCodon+n:]...)
		g.Points = append(g.Points[:atCodon], g.Points[atCodon+n:]...)
		g.CoherentCount = append(g.CoherentCount[:atCodon], g.CoherentCount[atCodon+n:]...)
	}
	g.Range.End += codonDelta * Codon
	if g.dirtyFrom < 0 || atCodon < g.dirtyFrom {
		g.dirtyFrom = atCodon
	}
}

// ShiftStrokeRanges adjusts stroke ranges for an indel of codonDelta codons
// applied at codon index atCodon: ranges wholly after the edit shift by
// codonDelta; a range containing atCodon stretches or shrinks instead of
// shifting (its End moves by codonDelta, possibly producing a temporarily
// invalid range that stroke validation will reject). It returns a snapshot
// of every stroke range before the change, for recording as a
// StrokeRanges modification.
func (g *Gene) ShiftStrokeRanges(atCodon, codonDelta int) []geom.Range {
	before := make([]geom.Range, len(g.Strokes))
	for i, s := range g.Strokes {
		before[i] = s.Range
	}
	for i := range g.Strokes {
		r := g.Strokes[i].Range
		switch {
		case r.Start > atCodon || (r.Start == atCodon && codonDelta > 0):
			g.Strokes[i].Range = r.Shift(codonDelta)
		case r.Contains(atCodon) || (codonDelta < 0 && r.Overlaps(geom.Range{Start: atCodon, End: atCodon - codonDelta - 1})):
			g.Strokes[i].Range = geom.Range{Start: r.Start, End: r.End + codonDelta}
		}
	}
	return before
}

// EnsureCompiled brings acids, points, coherence, and segments up to date
// from the first dirty codon onward, using table to decode codons into
// acids. bases is the full genome base buffer; global positions are used
// to index into it.
func (g *Gene) EnsureCompiled(bases []byte, table *acid.Table) error {
	if !g.Invalid.Any(FlagCompiled) {
		return nil
	}
	if err := g.ensureAcids(bases, table); err != nil {
		return err
	}
	g.ensurePoints()
	g.ensureCoherence()
	g.ensureSegments()
	g.dirtyFrom = -1
	g.Invalid &^= FlagCompiled
	return nil
}

func (g *Gene) ensureAcids(bases []byte, table *acid.Table) error {
	n := g.CodonCount()
	if n < 3 {
		return stylerr.Validation(stylerr.ReasonSegments, "gene shorter than one trivector (%d codons)", n)
	}
	if len(g.Acids) != n {
		g.Acids = make([]acid.Type, n)
		g.dirtyFrom = 0
	}

	from := g.dirtyFrom
	if from < 0 {
		from = 0
	}
	for i := from; i < n; i++ {
		pos := g.CodonStart(i)
		if pos+Codon > len(bases) {
			return stylerr.Validation(stylerr.ReasonSegments, "gene codon %d runs past end of bases buffer", i)
		}
		t, err := table.AcidFor(bases[pos], bases[pos+1], bases[pos+2])
		if err != nil {
			return stylerr.Wrap(stylerr.XMLError, err, "gene codon %d", i)
		}
		g.Acids[i] = t
	}

	if codon := bases[g.CodonStart(0) : g.CodonStart(0)+Codon]; string(codon) != acid.StartCodon {
		return stylerr.Validation(stylerr.ReasonSegments, "gene does not begin with a start codon (%s)", codon)
	}
	last := bases[g.CodonStart(n-1) : g.CodonStart(n-1)+Codon]
	if !isStopCodon(string(last)) {
		return stylerr.Validation(stylerr.ReasonSegments, "gene does not end with a stop codon (%s)", last)
	}
	return nil
}

func isStopCodon(codon string) bool {
	for _, s := range acid.StopCodons {
		if s == codon {
			return true
		}
	}
	return false
}

// ensurePoints recomputes points[i] = points[i-1] + vector(acids[i]) by
// prefix accumulation, starting at the first dirty codon (or the gene
// origin if nothing was compiled yet). The start and stop acids contribute
// a zero-length vector regardless of their table-mapped direction.
func (g *Gene) ensurePoints() {
	n := len(g.Acids)
	if len(g.Points) != n {
		g.Points = make([]geom.Point, n)
	}
	from := g.dirtyFrom
	if from < 0 {
		from = 0
	}
	if from == 0 {
		g.Points[0] = g.Origin
		from = 1
	}
	for i := from; i < n; i++ {
		dx, dy := g.Acids[i].Vector()
		if i == n-1 {
			dx, dy = 0, 0
		}
		g.Points[i] = g.Points[i-1].Add(geom.Point{X: dx, Y: dy})
	}
}

// ensureCoherence recomputes coherent_count[i] as the number of trivectors
// containing i that are coherent: each of a trivector's two consecutive
// directional transitions differs by at most one 45-degree step.
func (g *Gene) ensureCoherence() {
	n := len(g.Acids)
	if len(g.CoherentCount) != n {
		g.CoherentCount = make([]int, n)
	}
	for i := 0; i < n; i++ {
		count := 0
		for _, w := range [3][3]int{{i - 2, i - 1, i}, {i - 1, i, i + 1}, {i, i + 1, i + 2}} {
			if w[0] < 0 || w[2] >= n {
				continue
			}
			if g.trivectorCoherent(w[0], w[1], w[2]) {
				count++
			}
		}
		g.CoherentCount[i] = count
	}
}

func (g *Gene) trivectorCoherent(i0, i1, i2 int) bool {
	a0, a1, a2 := g.Acids[i0], g.Acids[i1], g.Acids[i2]
	if a0.IsStop() || a1.IsStop() || a2.IsStop() {
		return false
	}
	return acid.TurnSteps(a0.Direction(), a1.Direction()) <= 1 &&
		acid.TurnSteps(a1.Direction(), a2.Direction()) <= 1
}

// ensureSegments walks the gene's interior (between the start and stop
// acids) and produces alternating coherent/incoherent segments.
func (g *Gene) ensureSegments() {
	g.Segments = nil
	n := len(g.Acids)
	if n < 3 {
		return
	}
	start, end := 1, n-2 // interior codon indices, excluding start(0) and stop(n-1)
	if start > end {
		return
	}
	cur := Segment{Range: geom.Range{Start: start, End: start}, Coherent: g.CoherentCount[start] > 0, Length: 1}
	for i := start + 1; i <= end; i++ {
		coherent := g.CoherentCount[i] > 0
		if coherent == cur.Coherent {
			cur.Range.End = i
			cur.Length++
			continue
		}
		g.Segments = append(g.Segments, cur)
		cur = Segment{Range: geom.Range{Start: i, End: i}, Coherent: coherent, Length: 1}
	}
	g.Segments = append(g.Segments, cur)
}
