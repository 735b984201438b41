// Package geom provides the 2D primitives shared by gene compilation, Han
// reference geometry, and overlap detection: points, rectangles, integer
// ranges, and line segments with segment/segment intersection.
package geom

import "math"

// Point is a location in the pen-trace plane.
type Point struct {
	X, Y float64
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point { return Point{p.X + d.X, p.Y + d.Y} }

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p's coordinates multiplied by s.
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }

// Rectangle is an axis-aligned box with y increasing upward (top has the
// greater Y, matching the Han coordinate convention).
type Rectangle struct {
	TopLeft     Point
	BottomRight Point
}

// NewRectangle returns the tight bounding rectangle of pts. The second
// return is false if pts is empty.
func NewRectangle(pts []Point) (Rectangle, bool) {
	if len(pts) == 0 {
		return Rectangle{}, false
	}
	minX, maxX := pts[0].X, pts[0].X
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return Rectangle{TopLeft: Point{minX, maxY}, BottomRight: Point{maxX, minY}}, true
}

// Width returns the rectangle's horizontal extent.
func (r Rectangle) Width() float64 { return r.BottomRight.X - r.TopLeft.X }

// Height returns the rectangle's vertical extent.
func (r Rectangle) Height() float64 { return r.TopLeft.Y - r.BottomRight.Y }

// Center returns the rectangle's geometric center.
func (r Rectangle) Center() Point {
	return Point{
		X: (r.TopLeft.X + r.BottomRight.X) / 2,
		Y: (r.TopLeft.Y + r.BottomRight.Y) / 2,
	}
}

// Union returns the smallest rectangle containing both r and s.
func (r Rectangle) Union(s Rectangle) Rectangle {
	return Rectangle{
		TopLeft:     Point{math.Min(r.TopLeft.X, s.TopLeft.X), math.Max(r.TopLeft.Y, s.TopLeft.Y)},
		BottomRight: Point{math.Max(r.BottomRight.X, s.BottomRight.X), math.Min(r.BottomRight.Y, s.BottomRight.Y)},
	}
}

// Expand returns r grown by margin on every side. Used to build the
// pre-filter boxes for overlap detection (expanded by the longest possible
// acid vector).
func (r Rectangle) Expand(margin float64) Rectangle {
	return Rectangle{
		TopLeft:     Point{r.TopLeft.X - margin, r.TopLeft.Y + margin},
		BottomRight: Point{r.BottomRight.X + margin, r.BottomRight.Y - margin},
	}
}

// Intersects reports whether r and s overlap (inclusive of touching edges).
func (r Rectangle) Intersects(s Rectangle) bool {
	if r.BottomRight.X < s.TopLeft.X || s.BottomRight.X < r.TopLeft.X {
		return false
	}
	if r.TopLeft.Y < s.BottomRight.Y || s.TopLeft.Y < r.BottomRight.Y {
		return false
	}
	return true
}

// Contains reports whether p lies within r (inclusive).
func (r Rectangle) Contains(p Point) bool {
	return p.X >= r.TopLeft.X && p.X <= r.BottomRight.X &&
		p.Y <= r.TopLeft.Y && p.Y >= r.BottomRight.Y
}

// Range is an inclusive integer interval [Start, End], used for base and
// codon-index ranges.
type Range struct {
	Start, End int
}

// Len returns the number of integers in the inclusive range.
func (r Range) Len() int { return r.End - r.Start + 1 }

// Contains reports whether v lies within [Start, End].
func (r Range) Contains(v int) bool { return v >= r.Start && v <= r.End }

// Overlaps reports whether r and s share at least one integer.
func (r Range) Overlaps(s Range) bool {
	return r.Start <= s.End && s.Start <= r.End
}

// Shift returns r translated by delta.
func (r Range) Shift(delta int) Range {
	return Range{r.Start + delta, r.End + delta}
}

// Line is a directed segment between two points, tagged with the id of its
// owning stroke and a stable, monotonically increasing line id used to break
// ties in the sweep's event ordering.
type Line struct {
	Start, End Point
	Owner      int
	ID         int
}

// Canonical reports whether the line runs left-to-right (Start.X <= End.X).
func (l Line) Canonical() bool { return l.Start.X <= l.End.X }

// MinX and MaxX return the line's horizontal extent regardless of
// orientation.
func (l Line) MinX() float64 {
	if l.Canonical() {
		return l.Start.X
	}
	return l.End.X
}

func (l Line) MaxX() float64 {
	if l.Canonical() {
		return l.End.X
	}
	return l.Start.X
}

// yAt returns the line's y coordinate at the given x, assuming x lies within
// [MinX,MaxX]. Vertical lines return Start.Y.
func (l Line) yAt(x float64) float64 {
	dx := l.End.X - l.Start.X
	if dx == 0 {
		return l.Start.Y
	}
	t := (x - l.Start.X) / dx
	return l.Start.Y + t*(l.End.Y-l.Start.Y)
}

// IntersectsAt computes the segment/segment intersection between l and
// other. It returns the intersection point and true only when both segments
// are crossed strictly in their interior, so a shared endpoint between two
// adjacent segments of the same stroke is never reported as an
// intersection. The sweep does not filter such pairs before calling it.
func (l Line) IntersectsAt(other Line) (Point, bool) {
	p, r := l.Start, l.End.Sub(l.Start)
	q, s := other.Start, other.End.Sub(other.Start)

	rxs := cross(r, s)
	qp := q.Sub(p)
	qpxr := cross(qp, r)

	const eps = 1e-12
	if math.Abs(rxs) < eps {
		return Point{}, false // parallel (or collinear, never an overlap case here)
	}

	t := cross(qp, s) / rxs
	u := qpxr / rxs
	if t <= eps || t >= 1-eps || u <= eps || u >= 1-eps {
		return Point{}, false
	}
	return p.Add(r.Scale(t)), true
}

func cross(a, b Point) float64 { return a.X*b.Y - a.Y*b.X }
