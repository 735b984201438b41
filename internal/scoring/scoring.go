// Package scoring computes the per-stroke deviation and extra-length
// measures against a Han reference arc, and aggregates them with the
// overlap and scale measures already attached to a gene's strokes and
// groups into weighted group and gene scores.
//
// The retrieved original source's calcScore implementations were not part
// of the archived file set (score.cpp is referenced by gene.hpp but not
// present); the aggregation formula below is this package's own, built
// from the vocabulary the surviving source does carry — "exponent" as the
// per-component contribution to a [0,1] score, and "weight" as the
// exponent applied to a normalized goodness value. See DESIGN.md for the
// resolution.
package scoring

import (
	"math"

	"github.com/biologic/stylus/internal/gene"
	"github.com/biologic/stylus/internal/geom"
	"github.com/biologic/stylus/internal/hanref"
	"github.com/biologic/stylus/internal/unit"
)

// GroupScoreMode selects how a gene aggregates its groups' scores,
// mirroring the source engine's GSM_AVERAGE/GSM_MINIMUM.
type GroupScoreMode int

const (
	// GroupScoreAverage takes the arithmetic mean of group scores.
	GroupScoreAverage GroupScoreMode = iota
	// GroupScoreMinimum takes the worst (minimum) group score. This is
	// the original engine's default.
	GroupScoreMinimum
)

// GeneWeights/GeneSetpoints index the five gene-level score components:
// scale, placement, illegal overlaps, missing overlaps, marks.
type GeneComponents struct {
	Scale           unit.Unit
	Placement       unit.Unit
	IllegalOverlaps unit.Unit
	MissingOverlaps unit.Unit
	Marks           unit.Unit
}

// GroupComponents mirror gene.ScoreExponents's seven weighted group score
// components: scale, placement, illegal overlaps, missing overlaps,
// deviation, extra length, dropouts.
type GroupComponents struct {
	Scale           unit.Unit
	Placement       unit.Unit
	IllegalOverlaps unit.Unit
	MissingOverlaps unit.Unit
	Deviation       unit.Unit
	ExtraLength     unit.Unit
	Dropouts        unit.Unit
}

// Globals holds the weights and setpoints loaded from a globals document,
// plus the group aggregation mode.
type Globals struct {
	GeneWeights     GeneComponents
	GeneSetpoints   GeneComponents
	GroupWeights    GroupComponents
	GroupSetpoints  GroupComponents
	GroupScoreMode  GroupScoreMode
}

// Default returns the engine's built-in defaults: every weight 1, every
// setpoint 0 (perfect match at zero deviation), minimum group aggregation.
func Default() Globals {
	one := unit.Of(1)
	zero := unit.Of(0)
	return Globals{
		GeneWeights:    GeneComponents{one, one, one, one, one},
		GeneSetpoints:  GeneComponents{zero, zero, zero, zero, zero},
		GroupWeights:   GroupComponents{one, one, one, one, one, one, one},
		GroupSetpoints: GroupComponents{zero, zero, zero, zero, zero, zero, zero},
		GroupScoreMode: GroupScoreMinimum,
	}
}

// goodness maps a non-negative deviation from its setpoint to a [0,1]
// value where 0 deviation scores 1 and deviation growing without bound
// approaches 0, then raises it to the configured weight (a weight of 0
// always contributes a perfect 1, regardless of deviation).
func goodness(value, setpoint, weight unit.Unit) unit.Unit {
	if !value.IsDefined() || !setpoint.IsDefined() || !weight.IsDefined() {
		return unit.Undefined
	}
	d := math.Abs(value.Value() - setpoint.Value())
	g := 1 / (1 + d)
	return unit.Of(math.Pow(g, weight.Value()))
}

// ScoreStroke measures stroke against the Han stroke it was assigned to,
// sampling its compiled point trace and comparing it to the reference's
// forward (or reverse, whichever yields the smaller deviation) arc-length
// sequence. It writes Deviation and ExtraLength back onto the stroke.
func ScoreStroke(points []geom.Point, hanStroke hanref.Stroke, st *gene.Stroke) {
	traceLen := arcLength(points)
	fwdDev := deviationAgainst(points, hanStroke.Forward)
	revDev := deviationAgainst(points, hanStroke.Reverse)
	dev := fwdDev
	if hanStroke.Reverse != nil && revDev < fwdDev {
		dev = revDev
	}
	st.Deviation = unit.Of(dev)

	extra := traceLen - hanStroke.ArcLength
	if extra < 0 {
		extra = 0
	}
	st.ExtraLength = unit.Of(extra)
}

func arcLength(pts []geom.Point) float64 {
	total := 0.0
	for i := 0; i+1 < len(pts); i++ {
		total += math.Hypot(pts[i+1].X-pts[i].X, pts[i+1].Y-pts[i].Y)
	}
	return total
}

// deviationAgainst samples trace at each reference point's fractional arc
// position and accumulates the Euclidean distance, normalized by the
// number of samples so that stroke length does not itself bias deviation.
func deviationAgainst(trace []geom.Point, ref []hanref.PointDistance) float64 {
	if len(ref) == 0 || len(trace) < 2 {
		return 0
	}
	total := arcLength(trace)
	if total <= 0 {
		return 0
	}
	sum := 0.0
	for _, rp := range ref {
		frac := rp.Distance / ref[len(ref)-1].Distance
		p := pointAtFraction(trace, total, frac)
		sum += math.Hypot(p.X-rp.Point.X, p.Y-rp.Point.Y)
	}
	return sum / float64(len(ref))
}

func pointAtFraction(trace []geom.Point, total, frac float64) geom.Point {
	target := frac * total
	acc := 0.0
	for i := 0; i+1 < len(trace); i++ {
		seg := math.Hypot(trace[i+1].X-trace[i].X, trace[i+1].Y-trace[i].Y)
		if acc+seg >= target || i == len(trace)-2 {
			t := 0.0
			if seg > 0 {
				t = (target - acc) / seg
			}
			if t < 0 {
				t = 0
			}
			if t > 1 {
				t = 1
			}
			return geom.Point{
				X: trace[i].X + t*(trace[i+1].X-trace[i].X),
				Y: trace[i].Y + t*(trace[i+1].Y-trace[i].Y),
			}
		}
		acc += seg
	}
	return trace[len(trace)-1]
}

// ScoreGroup computes a group's seven weighted exponents and aggregate
// score from its strokes' scale, deviation, extra-length, and dropout
// measures plus the overlap lists already attached to the gene.
func ScoreGroup(g Globals, grp *gene.Group, strokes []gene.Stroke, illegalOverlaps, missingOverlaps int) {
	var devSum, extraSum unit.Unit
	devSum, extraSum = unit.Of(0), unit.Of(0)
	dropouts := 0
	n := len(grp.StrokeIndices)
	for _, si := range grp.StrokeIndices {
		st := strokes[si]
		devSum = devSum.Add(st.Deviation)
		extraSum = extraSum.Add(st.ExtraLength)
		dropouts += st.Dropouts
	}
	if n > 0 {
		devSum = unit.Of(devSum.Value() / float64(n))
		extraSum = unit.Of(extraSum.Value() / float64(n))
	}

	e := gene.ScoreExponents{
		Scale:           goodness(grp.Sxy, unit.Of(1), g.GroupWeights.Scale),
		Placement:       goodness(grp.Dx.Abs().Add(grp.Dy.Abs()), unit.Of(0), g.GroupWeights.Placement),
		IllegalOverlaps: goodness(unit.Of(float64(illegalOverlaps)), g.GroupSetpoints.IllegalOverlaps, g.GroupWeights.IllegalOverlaps),
		MissingOverlaps: goodness(unit.Of(float64(missingOverlaps)), g.GroupSetpoints.MissingOverlaps, g.GroupWeights.MissingOverlaps),
		Deviation:       goodness(devSum, g.GroupSetpoints.Deviation, g.GroupWeights.Deviation),
		ExtraLength:     goodness(extraSum, g.GroupSetpoints.ExtraLength, g.GroupWeights.ExtraLength),
		Dropouts:        goodness(unit.Of(float64(dropouts)), g.GroupSetpoints.Dropouts, g.GroupWeights.Dropouts),
	}
	grp.Exponents = e
	grp.Score = product(e.Scale, e.Placement, e.IllegalOverlaps, e.MissingOverlaps, e.Deviation, e.ExtraLength, e.Dropouts)
}

func product(us ...unit.Unit) unit.Unit {
	out := unit.Of(1)
	for _, u := range us {
		if !u.IsDefined() {
			continue
		}
		out = out.Mul(u)
	}
	return out
}

// ScoreGene aggregates group scores per mode, multiplies in the gene-level
// scale/placement/overlap/marks exponents, and writes gene.Score.
func ScoreGene(g Globals, gn *gene.Gene, marks int) {
	var groupScore unit.Unit
	switch g.GroupScoreMode {
	case GroupScoreAverage:
		sum := unit.Of(0)
		for _, grp := range gn.Groups {
			sum = sum.Add(grp.Score)
		}
		if len(gn.Groups) > 0 {
			groupScore = unit.Of(sum.Value() / float64(len(gn.Groups)))
		} else {
			groupScore = unit.Of(1)
		}
	default: // GroupScoreMinimum
		groupScore = unit.Of(1)
		for i, grp := range gn.Groups {
			if i == 0 || grp.Score.Less(groupScore) {
				groupScore = grp.Score
			}
		}
	}

	illegal, missing := len(gn.IllegalOverlaps), len(gn.MissingOverlaps)
	scale := goodness(gn.Sxy, unit.Of(1), g.GeneWeights.Scale)
	placement := goodness(gn.Dx.Abs().Add(gn.Dy.Abs()), unit.Of(0), g.GeneWeights.Placement)
	illegalExp := goodness(unit.Of(float64(illegal)), g.GeneSetpoints.IllegalOverlaps, g.GeneWeights.IllegalOverlaps)
	missingExp := goodness(unit.Of(float64(missing)), g.GeneSetpoints.MissingOverlaps, g.GeneWeights.MissingOverlaps)
	marksExp := goodness(unit.Of(float64(marks)), g.GeneSetpoints.Marks, g.GeneWeights.Marks)

	gn.Score = product(groupScore, scale, placement, illegalExp, missingExp, marksExp)
}
