// Package overlap finds intersection points between line segments that
// belong to different strokes of the same gene, using a left-to-right
// plane sweep. It is the concrete realization of the "Overlaps" stage
// described by the compilation pipeline's invalidation flags.
package overlap

import (
	"container/heap"
	"sort"

	"github.com/biologic/stylus/internal/acid"
	"github.com/biologic/stylus/internal/geom"
)

// Hit is one intersection between two lines belonging to different
// strokes, reduced to the owning strokes and the point of intersection.
type Hit struct {
	StrokeA, StrokeB int // StrokeA < StrokeB
	Point            geom.Point
}

// Detect pre-filters boxes by pairwise expanded intersection, lifts the
// qualifying lines, and runs the sweep described in the package doc. boxes
// and lines are indexed by stroke: lines[i] are the chord segments of
// stroke i, boxes[i] its tight bounding box.
func Detect(boxes []geom.Rectangle, lines [][]geom.Line) []Hit {
	margin := acid.MaxVectorMagnitude
	expanded := make([]geom.Rectangle, len(boxes))
	for i, b := range boxes {
		expanded[i] = b.Expand(margin)
	}

	participates := make([]bool, len(boxes))
	var hitBoxes []geom.Rectangle
	for i := range boxes {
		for j := range boxes {
			if i == j {
				continue
			}
			if expanded[i].Intersects(expanded[j]) {
				participates[i] = true
				break
			}
		}
	}
	for i, ok := range participates {
		if ok {
			hitBoxes = append(hitBoxes, expanded[i])
		}
	}

	var active []geom.Line
	for si, ok := range participates {
		if !ok {
			continue
		}
		for _, ln := range lines[si] {
			if liesInAny(ln.Start, hitBoxes) || liesInAny(ln.End, hitBoxes) {
				active = append(active, ln)
			}
		}
	}

	return sweep(active)
}

func liesInAny(p geom.Point, boxes []geom.Rectangle) bool {
	for _, b := range boxes {
		if b.Contains(p) {
			return true
		}
	}
	return false
}

type eventKind int

const (
	kindEnter eventKind = iota
	kindSwap
	kindExit
)

type event struct {
	x     float64
	kind  eventKind
	y     float64 // sort key only; descending
	lineA geom.Line
	lineB geom.Line // populated for Swap
}

type eventQueue []event

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.x != b.x {
		return a.x < b.x
	}
	if a.kind != b.kind {
		return a.kind < b.kind
	}
	if a.y != b.y {
		return a.y > b.y
	}
	return a.lineA.ID < b.lineA.ID
}
func (q eventQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x interface{}) { *q = append(*q, x.(event)) }
func (q *eventQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

// sweep runs the event-driven plane sweep over a flat set of candidate
// lines (already pre-filtered) and returns every stroke-differing
// intersection found.
func sweep(lines []geom.Line) []Hit {
	if len(lines) == 0 {
		return nil
	}

	canon := make([]geom.Line, len(lines))
	for i, l := range lines {
		if l.Canonical() {
			canon[i] = l
		} else {
			canon[i] = geom.Line{Start: l.End, End: l.Start, Owner: l.Owner, ID: l.ID}
		}
	}

	pq := &eventQueue{}
	heap.Init(pq)
	for _, l := range canon {
		heap.Push(pq, event{x: l.Start.X, kind: kindEnter, y: l.Start.Y, lineA: l})
		heap.Push(pq, event{x: l.End.X, kind: kindExit, y: l.End.Y, lineA: l})
	}

	active := newActiveSet()
	seen := map[[2]int]bool{}
	var hits []Hit

	recordIfNew := func(a, b geom.Line, p geom.Point) {
		if a.Owner == b.Owner {
			return
		}
		sa, sb := a.Owner, b.Owner
		if sa > sb {
			sa, sb = sb, sa
		}
		key := [2]int{sa, sb}
		if seen[key] {
			return
		}
		seen[key] = true
		hits = append(hits, Hit{StrokeA: sa, StrokeB: sb, Point: p})
	}

	testPair := func(a, b *geom.Line, atX float64) {
		if a == nil || b == nil {
			return
		}
		if p, ok := a.IntersectsAt(*b); ok {
			recordIfNew(*a, *b, p)
			heap.Push(pq, event{x: p.X, kind: kindSwap, y: p.Y, lineA: *a, lineB: *b})
			_ = atX
		}
	}

	for pq.Len() > 0 {
		e := heap.Pop(pq).(event)
		switch e.kind {
		case kindEnter:
			pos := active.insert(e.lineA, e.x)
			above, below := active.neighbors(pos)
			testPair(&e.lineA, above, e.x)
			testPair(&e.lineA, below, e.x)
		case kindExit:
			pos := active.indexOf(e.lineA.ID)
			if pos < 0 {
				continue
			}
			above, below := active.neighborsExcluding(pos)
			active.remove(pos)
			testPair(above, below, e.x)
		case kindSwap:
			active.swapAdjacent(e.lineA.ID, e.lineB.ID, e.x)
			pa := active.indexOf(e.lineA.ID)
			pb := active.indexOf(e.lineB.ID)
			if pa < 0 || pb < 0 {
				continue
			}
			lo, hi := pa, pb
			if lo > hi {
				lo, hi = hi, lo
			}
			if lo > 0 {
				testPair(active.at(lo), active.at(lo-1), e.x)
			}
			if hi+1 < active.len() {
				testPair(active.at(hi), active.at(hi+1), e.x)
			}
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].StrokeA != hits[j].StrokeA {
			return hits[i].StrokeA < hits[j].StrokeA
		}
		return hits[i].StrokeB < hits[j].StrokeB
	})
	return hits
}

// activeSet is a sorted-slice order-maintenance structure, adequate for
// the small per-gene line counts the sweep deals with (a balanced tree
// buys nothing at this scale).
type activeSet struct {
	lines []geom.Line
}

func newActiveSet() *activeSet { return &activeSet{} }

func (a *activeSet) len() int { return len(a.lines) }

func (a *activeSet) indexOf(id int) int {
	for i, l := range a.lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (a *activeSet) at(i int) *geom.Line {
	if i < 0 || i >= len(a.lines) {
		return nil
	}
	l := a.lines[i]
	return &l
}

// insert places l into the active set ordered by its y value at x, and
// returns its resulting index.
func (a *activeSet) insert(l geom.Line, x float64) int {
	y := yAt(l, x)
	pos := sort.Search(len(a.lines), func(i int) bool { return yAt(a.lines[i], x) < y })
	a.lines = append(a.lines, geom.Line{})
	copy(a.lines[pos+1:], a.lines[pos:])
	a.lines[pos] = l
	return pos
}

func (a *activeSet) remove(pos int) {
	a.lines = append(a.lines[:pos], a.lines[pos+1:]...)
}

func (a *activeSet) neighbors(pos int) (above, below *geom.Line) {
	if pos > 0 {
		above = a.at(pos - 1)
	}
	if pos+1 < len(a.lines) {
		below = a.at(pos + 1)
	}
	return
}

// neighborsExcluding returns the elements immediately above and below pos,
// to be tested against each other once pos itself is removed.
func (a *activeSet) neighborsExcluding(pos int) (above, below *geom.Line) {
	if pos > 0 {
		above = a.at(pos - 1)
	}
	if pos+1 < len(a.lines) {
		below = a.at(pos + 1)
	}
	return
}

// swapAdjacent exchanges the positions of the two named lines, which must
// currently be adjacent in the active set.
func (a *activeSet) swapAdjacent(idA, idB int, x float64) {
	pa, pb := a.indexOf(idA), a.indexOf(idB)
	if pa < 0 || pb < 0 {
		return
	}
	a.lines[pa], a.lines[pb] = a.lines[pb], a.lines[pa]
}

func yAt(l geom.Line, x float64) float64 {
	dx := l.End.X - l.Start.X
	if dx == 0 {
		return l.Start.Y
	}
	t := (x - l.Start.X) / dx
	return l.Start.Y + t*(l.End.Y-l.Start.Y)
}
