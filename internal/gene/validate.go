package gene

import (
	"math"
	"sort"

	"github.com/biologic/stylus/internal/geom"
	"github.com/biologic/stylus/internal/hanref"
	"github.com/biologic/stylus/internal/overlap"
	"github.com/biologic/stylus/internal/stylerr"
	"github.com/biologic/stylus/internal/unit"
)

// dropoutThreshold is the maximum length, in codons, of an incoherent
// segment that a stroke absorbs as a dropout rather than treating as a
// termination.
const dropoutThreshold = 1

// EnsureStrokes re-assigns the gene's segments to its strokes, walking
// coherent and incoherent segments in codon order and growing or shrinking
// each stroke's range to match. It returns the stroke ranges immediately
// before reassignment if any changed (for the caller to record as a
// mutation.Record{Kind: StrokeRanges}), or nil if nothing moved.
func (g *Gene) EnsureStrokes() ([]geom.Range, error) {
	if !g.Invalid.Any(FlagStrokes) {
		return nil, nil
	}

	before := make([]geom.Range, len(g.Strokes))
	for i, s := range g.Strokes {
		before[i] = s.Range
	}

	order := make([]int, len(g.Strokes))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return g.Strokes[order[a]].Range.Start < g.Strokes[order[b]].Range.Start })

	var marks []Segment
	claimed := make([]bool, len(g.Segments))

	for _, si := range order {
		st := &g.Strokes[si]
		anchor := st.Range

		matched := -1
		newStart, newEnd := 0, 0
		segCount, dropouts := 0, 0
		aborted := false
		var reason string

		for segIdx, seg := range g.Segments {
			if claimed[segIdx] {
				continue
			}
			overlapsAnchor := seg.Range.Overlaps(geom.Range{Start: anchor.Start - dropoutThreshold - 1, End: anchor.End + dropoutThreshold + 1})
			if !overlapsAnchor {
				if matched < 0 && seg.Range.Start > anchor.End {
					break
				}
				continue
			}
			if seg.Coherent {
				if matched < 0 {
					newStart, newEnd = seg.Range.Start, seg.Range.End
					matched = segIdx
				} else {
					newEnd = seg.Range.End
				}
				segCount++
				claimed[segIdx] = true
			} else if matched >= 0 && seg.Length <= dropoutThreshold {
				newEnd = seg.Range.End
				dropouts++
				claimed[segIdx] = true
			} else if matched < 0 {
				aborted = true
				reason = "stroke lost to incoherent segment"
				break
			} else {
				break
			}
		}

		if aborted || matched < 0 {
			if reason == "" {
				reason = "stroke received no coherent segment"
			}
			st.TerminationReason = reason
			return nil, stylerr.Validation(stylerr.ReasonStrokes, "%s (stroke assigned to Han stroke %d)", reason, st.HanStrokeID)
		}

		st.Range = geom.Range{Start: newStart, End: newEnd}
		st.Segments = segCount
		st.Dropouts = dropouts
		st.TerminationReason = ""

		if st.Range.Len() < Codon {
			return nil, stylerr.Validation(stylerr.ReasonStrokes, "stroke range %v shorter than one trivector", st.Range)
		}
	}

	for i, seg := range g.Segments {
		if seg.Coherent && !claimed[i] {
			marks = append(marks, seg)
		}
	}
	g.Marks = len(marks)

	if err := g.checkStrokeInvariants(); err != nil {
		return nil, err
	}

	g.Invalid &^= FlagStrokes
	g.Invalid |= FlagDimensions | FlagOverlaps | FlagScore

	changed := false
	for i, r := range before {
		if r != g.Strokes[i].Range {
			changed = true
			break
		}
	}
	if !changed {
		return nil, nil
	}
	return before, nil
}

// checkStrokeInvariants enforces the data-model invariants of §3: stroke
// ranges lie within [range.start+CODON, range.end-CODON] in acid-index
// terms, are at least one trivector long, and are pairwise disjoint in
// sorted order.
func (g *Gene) checkStrokeInvariants() error {
	n := g.CodonCount()
	lo, hi := 1, n-2
	sorted := make([]Stroke, len(g.Strokes))
	copy(sorted, g.Strokes)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Range.Start < sorted[b].Range.Start })
	for i, s := range sorted {
		if s.Range.Start < lo || s.Range.End > hi {
			return stylerr.Validation(stylerr.ReasonStrokes, "stroke range %v escapes gene body [%d,%d]", s.Range, lo, hi)
		}
		if s.Range.Len() < Codon {
			return stylerr.Validation(stylerr.ReasonStrokes, "stroke range %v shorter than one trivector", s.Range)
		}
		if i > 0 && s.Range.Start <= sorted[i-1].Range.End {
			return stylerr.Validation(stylerr.ReasonStrokes, "stroke ranges %v and %v overlap", sorted[i-1].Range, s.Range)
		}
	}
	return nil
}

// EnsureOverlaps runs the sweep-line overlap detector over the gene's
// strokes and classifies the results against the Han reference's required
// and allowed overlap list.
func (g *Gene) EnsureOverlaps() error {
	if !g.Invalid.Any(FlagOverlaps) {
		return nil
	}
	boxes := make([]geom.Rectangle, len(g.Strokes))
	lines := make([][]geom.Line, len(g.Strokes))
	nextLineID := 0
	for i, s := range g.Strokes {
		pts := g.Points[s.Range.Start-1 : s.Range.End+1]
		r, _ := geom.NewRectangle(pts)
		boxes[i] = r
		for j := 0; j+1 < len(pts); j++ {
			lines[i] = append(lines[i], geom.Line{Start: pts[j], End: pts[j+1], Owner: i, ID: nextLineID})
			nextLineID++
		}
	}

	result := overlap.Detect(boxes, lines)
	g.Overlaps = nil
	for _, hit := range result {
		a, b := hit.StrokeA, hit.StrokeB
		if a > b {
			a, b = b, a
		}
		g.Overlaps = append(g.Overlaps, OverlapPoint{StrokeA: a, StrokeB: b, Point: hit.Point})
	}

	g.MissingOverlaps = nil
	g.IllegalOverlaps = nil
	if g.Han != nil {
		seen := map[StrokePair]bool{}
		for _, o := range g.Overlaps {
			seen[StrokePair{o.StrokeA, o.StrokeB}] = true
		}
		for i := 0; i < len(g.Strokes); i++ {
			for j := i + 1; j < len(g.Strokes); j++ {
				hi, hj := g.Strokes[i].HanStrokeID, g.Strokes[j].HanStrokeID
				required := g.Han.Required(hi, hj)
				allowed := g.Han.Allowed(hi, hj)
				has := seen[StrokePair{i, j}]
				if required && !has {
					g.MissingOverlaps = append(g.MissingOverlaps, StrokePair{i, j})
				}
				if has && !allowed {
					g.IllegalOverlaps = append(g.IllegalOverlaps, StrokePair{i, j})
				}
			}
		}
	}

	g.Invalid &^= FlagOverlaps
	g.Invalid |= FlagScore
	return nil
}

// EnsureDimensions computes bounding boxes, scale factors, and translation
// offsets bottom-up: strokes, then groups, then the gene, with a promotion
// pass for any dimension that lacked profile.
func (g *Gene) EnsureDimensions() error {
	if !g.Invalid.Any(FlagDimensions) {
		return nil
	}
	if g.Han == nil {
		return stylerr.Validation(stylerr.ReasonMeasurement, "gene has no associated Han reference")
	}

	for gi := range g.Groups {
		grp := &g.Groups[gi]
		var bounds geom.Rectangle
		for i, si := range grp.StrokeIndices {
			g.calcStrokeBounds(si)
			if i == 0 {
				bounds = g.Strokes[si].Bounds
			} else {
				bounds = bounds.Union(g.Strokes[si].Bounds)
			}
		}
		grp.Bounds = bounds
	}
	var geneBounds geom.Rectangle
	for i := range g.Groups {
		if i == 0 {
			geneBounds = g.Groups[i].Bounds
		} else {
			geneBounds = geneBounds.Union(g.Groups[i].Bounds)
		}
	}
	g.Bounds = geneBounds

	var nx, ny, sx, sy float64
	for gi := range g.Groups {
		grp := &g.Groups[gi]
		g.calcGroupScale(gi)
		if grp.Sx.IsDefined() {
			hw := g.hanGroupBounds(grp.HanGroupID).Width()
			sx += hw * grp.Sx.Value()
			nx += hw
		}
		if grp.Sy.IsDefined() {
			hh := g.hanGroupBounds(grp.HanGroupID).Height()
			sy += hh * grp.Sy.Value()
			ny += hh
		}
	}

	if nx <= 0 && ny <= 0 {
		return stylerr.Validation(stylerr.ReasonMeasurement, "both dimensions lack profile")
	}

	if nx > 0 {
		g.Sx = unit.Of(sx / nx)
	} else {
		g.Sx = unit.Undefined
	}
	if ny > 0 {
		g.Sy = unit.Of(sy / ny)
	} else {
		g.Sy = unit.Undefined
	}

	// Reproduced verbatim from the original engine: if one axis lacks
	// profile at the gene level, the gene takes the OTHER axis's scale
	// rather than leaving it undefined. This can introduce translation
	// bias when the borrowed axis's scale doesn't actually fit the
	// missing axis; the original leaves this uncorrected and so do we
	// (Open Question (a)).
	if !g.Sx.IsDefined() {
		g.Sx = g.Sy
	} else if !g.Sy.IsDefined() {
		g.Sy = g.Sx
	}
	g.Sxy = unit.Of(math.Sqrt(g.Sx.Value()*g.Sx.Value() + g.Sy.Value()*g.Sy.Value()))

	for gi := range g.Groups {
		grp := &g.Groups[gi]
		if !grp.Sx.IsDefined() {
			grp.Sx = g.Sx
			grp.ScaleInherited = true
		}
		if !grp.Sy.IsDefined() {
			grp.Sy = g.Sy
			grp.ScaleInherited = true
		}
		grp.Sxy = unit.Of(math.Sqrt(grp.Sx.Value()*grp.Sx.Value() + grp.Sy.Value()*grp.Sy.Value()))
		for _, si := range grp.StrokeIndices {
			st := &g.Strokes[si]
			if !st.Sx.IsDefined() {
				st.Sx = grp.Sx
				st.ScaleInheritedX = true
			}
			if !st.Sy.IsDefined() {
				st.Sy = grp.Sy
				st.ScaleInheritedY = true
			}
			st.Sxy = unit.Of(math.Sqrt(st.Sx.Value()*st.Sx.Value() + st.Sy.Value()*st.Sy.Value()))
		}
	}

	g.calcOffsets()

	g.Invalid &^= FlagDimensions
	g.Invalid |= FlagScore
	return nil
}

func (g *Gene) hanGroupBounds(hanGroupID int) geom.Rectangle {
	grp, _ := g.Han.GroupByID(hanGroupID)
	return grp.Bounds
}

func (g *Gene) calcStrokeBounds(si int) {
	st := &g.Strokes[si]
	pts := g.Points[st.Range.Start-1 : st.Range.End+1]
	r, _ := geom.NewRectangle(pts)
	st.Bounds = r
	arc := 0.0
	for i := 0; i+1 < len(pts); i++ {
		arc += math.Hypot(pts[i+1].X-pts[i].X, pts[i+1].Y-pts[i].Y)
	}
	st.ArcLength = arc

	hanID := st.HanStrokeID
	hs, _ := g.Han.StrokeByID(hanID)
	if hs.Bounds.Width() > 0 && r.Width() > 0 {
		st.Sx = unit.Of(hs.Bounds.Width() / r.Width())
	} else {
		st.Sx = unit.Undefined
	}
	if hs.Bounds.Height() > 0 && r.Height() > 0 {
		st.Sy = unit.Of(hs.Bounds.Height() / r.Height())
	} else {
		st.Sy = unit.Undefined
	}
	if st.Sx.IsDefined() && st.Sy.IsDefined() {
		st.Sxy = unit.Of(math.Sqrt(st.Sx.Value()*st.Sx.Value() + st.Sy.Value()*st.Sy.Value()))
	} else {
		st.Sxy = unit.Undefined
	}
}

// calcGroupScale derives grp.Sx/Sy from its constituent strokes' scale
// factors, weighted by each stroke's han-reference dimension.
func (g *Gene) calcGroupScale(gi int) {
	grp := &g.Groups[gi]
	var nx, ny, sx, sy float64
	for _, si := range grp.StrokeIndices {
		st := &g.Strokes[si]
		hs, _ := g.Han.StrokeByID(st.HanStrokeID)
		if hs.Bounds.Width() > 0 && st.Bounds.Width() > 0 && st.Sx.IsDefined() {
			sx += hs.Bounds.Width() * st.Sx.Value()
			nx += hs.Bounds.Width()
		}
		if hs.Bounds.Height() > 0 && st.Bounds.Height() > 0 && st.Sy.IsDefined() {
			sy += hs.Bounds.Height() * st.Sy.Value()
			ny += hs.Bounds.Height()
		}
	}
	if nx > 0 {
		grp.Sx = unit.Of(sx / nx)
	} else {
		grp.Sx = unit.Undefined
	}
	if ny > 0 {
		grp.Sy = unit.Of(sy / ny)
	} else {
		grp.Sy = unit.Undefined
	}
}

// calcOffsets computes dx/dy (own-scale) and dxParent/dyParent
// (parent-scale) translations bottom-up, after every scale factor has been
// finalized (including promotion).
func (g *Gene) calcOffsets() {
	var dxSum, dySum, hanLenSum float64
	for gi := range g.Groups {
		grp := &g.Groups[gi]
		hgrp, _ := g.Han.GroupByID(grp.HanGroupID)

		var wdx, wdy, wlen float64
		for _, si := range grp.StrokeIndices {
			st := &g.Strokes[si]
			hs, _ := g.Han.StrokeByID(st.HanStrokeID)
			hc := hs.Bounds.Center()
			sc := st.Bounds.Center()

			st.Dx = unit.Of(hc.X - sc.X*st.Sx.Value())
			st.Dy = unit.Of(hc.Y - sc.Y*st.Sy.Value())
			st.DxParent = unit.Of(hc.X - sc.X*grp.Sx.Value())
			st.DyParent = unit.Of(hc.Y - sc.Y*grp.Sy.Value())

			wdx += hs.ArcLength * sc.X
			wdy += hs.ArcLength * sc.Y
			wlen += hs.ArcLength
		}
		if wlen == 0 {
			wlen = 1
		}
		wdx /= wlen
		wdy /= wlen

		hanCenter := weightedHanGroupCenter(g.Han, hgrp)
		grp.Dx = unit.Of(hanCenter.X - wdx*grp.Sx.Value())
		grp.Dy = unit.Of(hanCenter.Y - wdy*grp.Sy.Value())
		grp.DxParent = unit.Of(hanCenter.X - wdx*g.Sx.Value())
		grp.DyParent = unit.Of(hanCenter.Y - wdy*g.Sy.Value())

		dxSum += wlen * grp.DxParent.Value()
		dySum += wlen * grp.DyParent.Value()
		hanLenSum += wlen
	}
	if hanLenSum == 0 {
		hanLenSum = 1
	}
	g.Dx = unit.Of(dxSum / hanLenSum)
	g.Dy = unit.Of(dySum / hanLenSum)
}

// weightedHanGroupCenter returns the arc-length-weighted center of a Han
// group's strokes.
func weightedHanGroupCenter(h *hanref.HanRef, hgrp hanref.Group) geom.Point {
	var wx, wy, wlen float64
	for _, sid := range hgrp.StrokeIDs {
		s, ok := h.StrokeByID(sid)
		if !ok {
			continue
		}
		c := s.Bounds.Center()
		wx += s.ArcLength * c.X
		wy += s.ArcLength * c.Y
		wlen += s.ArcLength
	}
	if wlen == 0 {
		return hgrp.Bounds.Center()
	}
	return geom.Point{X: wx / wlen, Y: wy / wlen}
}
