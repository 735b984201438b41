// Package hanref loads and represents an immutable Han (Chinese character)
// reference: the ideal glyph a gene's compiled trace is scored against. A
// HanRef is loaded once and shared by borrow across every gene scored
// against it; nothing in this package mutates a HanRef after Load returns.
package hanref

import "github.com/biologic/stylus/internal/geom"

// PointDistance is one sample along a Han stroke's arc: a point together
// with its arc-length distance from the stroke's forward (or reverse)
// origin.
type PointDistance struct {
	Point    geom.Point
	Distance float64
}

// Stroke is one reference stroke: a forward-sampled and a reverse-sampled
// sequence of arc-length points, used respectively depending on which
// direction a gene's assigned acid range is best read.
type Stroke struct {
	ID      int
	Forward []PointDistance
	Reverse []PointDistance

	// Bounds is the tight bounding box of Forward (equivalently Reverse).
	Bounds geom.Rectangle

	// ArcLength is the total forward arc length (Forward[len-1].Distance).
	ArcLength float64
}

// Line returns the stroke's start/end points (its chord).
func (s Stroke) Line() (geom.Point, geom.Point) {
	if len(s.Forward) == 0 {
		return geom.Point{}, geom.Point{}
	}
	return s.Forward[0].Point, s.Forward[len(s.Forward)-1].Point
}

// Group is a named collection of strokes scored together.
type Group struct {
	ID        int
	Name      string
	StrokeIDs []int
	Bounds    geom.Rectangle
}

// OverlapRule records whether two Han strokes are required, or merely
// allowed, to intersect.
type OverlapRule struct {
	First, Second int
	Required      bool
}

// HanRef is a fully loaded, immutable Han reference.
type HanRef struct {
	Unicode             string
	Length              float64
	Bounds              geom.Rectangle
	MinimumStrokeLength float64
	Groups              []Group
	Strokes             []Stroke
	Overlaps            []OverlapRule
}

// StrokeByID returns the stroke with the given id, or false if absent.
func (h *HanRef) StrokeByID(id int) (Stroke, bool) {
	for _, s := range h.Strokes {
		if s.ID == id {
			return s, true
		}
	}
	return Stroke{}, false
}

// GroupByID returns the group with the given id, or false if absent.
func (h *HanRef) GroupByID(id int) (Group, bool) {
	for _, g := range h.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

// Required reports whether an overlap between strokes a and b (a<b per the
// gene's overlap representation) is required by this Han reference.
func (h *HanRef) Required(a, b int) bool {
	if a > b {
		a, b = b, a
	}
	for _, o := range h.Overlaps {
		lo, hi := o.First, o.Second
		if lo > hi {
			lo, hi = hi, lo
		}
		if lo == a && hi == b {
			return o.Required
		}
	}
	return false
}

// Allowed reports whether an overlap between strokes a and b is permitted
// (required or merely listed) by this Han reference.
func (h *HanRef) Allowed(a, b int) bool {
	if a > b {
		a, b = b, a
	}
	for _, o := range h.Overlaps {
		lo, hi := o.First, o.Second
		if lo > hi {
			lo, hi = hi, lo
		}
		if lo == a && hi == b {
			return true
		}
	}
	return false
}

// computeBounds derives the tight bounding rectangle of a point-distance
// sequence.
func computeBounds(pts []PointDistance) geom.Rectangle {
	raw := make([]geom.Point, len(pts))
	for i, p := range pts {
		raw[i] = p.Point
	}
	r, _ := geom.NewRectangle(raw)
	return r
}
