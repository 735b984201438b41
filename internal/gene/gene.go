// Package gene compiles a base range into a pen trace (acids, points,
// coherence, segments), assigns that trace's segments to Han strokes, and
// measures the resulting bounding boxes, scales, and translations. It is
// the core of the compilation pipeline and stroke-assignment/scoring
// geometry described by the simulation engine.
package gene

import (
	"github.com/biologic/stylus/internal/acid"
	"github.com/biologic/stylus/internal/geom"
	"github.com/biologic/stylus/internal/hanref"
	"github.com/biologic/stylus/internal/unit"
)

// Codon is the number of bases per codon.
const Codon = 3

// InvalidFlags is a bitset of the gene's dependency-invalidation state,
// mirroring the source engine's GI_* flags. A zero value means every
// derived quantity is up to date.
type InvalidFlags uint16

const (
	FlagAcids InvalidFlags = 1 << iota
	FlagPoints
	FlagCoherence
	FlagSegments
	FlagStrokes
	FlagDimensions
	FlagOverlaps
	FlagScore

	// FlagCompiled is the set of flags that participate in the
	// compilation pipeline (bases -> acids -> points -> coherence ->
	// segments); any one of them set forces the others downstream of it
	// to be recomputed too, per the transitive rules in §4.2.
	FlagCompiled = FlagAcids | FlagPoints | FlagCoherence | FlagSegments
)

// Has reports whether f includes every bit of mask.
func (f InvalidFlags) Has(mask InvalidFlags) bool { return f&mask == mask }

// Any reports whether f includes any bit of mask.
func (f InvalidFlags) Any(mask InvalidFlags) bool { return f&mask != 0 }

// Segment is a maximal run of codon positions sharing the same coherence
// sign along a gene's interior.
type Segment struct {
	Range    geom.Range // codon-index range, inclusive
	Coherent bool
	Length   int
}

// Stroke is a gene's local instance of one Han reference stroke: the acid
// range currently assigned to it, plus derived geometry and scores.
type Stroke struct {
	HanStrokeID int
	Range       geom.Range // codon-index range, inclusive
	Segments    int
	Dropouts    int

	Bounds    geom.Rectangle
	ArcLength float64

	ScaleInheritedX bool
	ScaleInheritedY bool

	Sx, Sy, Sxy        unit.Unit
	Dx, Dy             unit.Unit
	DxParent, DyParent unit.Unit

	Deviation   unit.Unit
	ExtraLength unit.Unit
	Score       unit.Unit

	// TerminationReason explains why stroke assignment stopped early
	// ("stroke lost to incoherent segment"), empty on success.
	TerminationReason string
}

// ScoreExponents names the seven weighted components of a group's score.
type ScoreExponents struct {
	Scale           unit.Unit
	Placement       unit.Unit
	IllegalOverlaps unit.Unit
	MissingOverlaps unit.Unit
	Deviation       unit.Unit
	ExtraLength     unit.Unit
	Dropouts        unit.Unit
}

// Group is a gene's local instance of a Han reference group: a subset of
// the gene's strokes scored together.
type Group struct {
	HanGroupID    int
	StrokeIndices []int

	Bounds geom.Rectangle

	ScaleInherited bool

	Sx, Sy, Sxy        unit.Unit
	Dx, Dy             unit.Unit
	DxParent, DyParent unit.Unit

	Exponents ScoreExponents
	Score     unit.Unit
}

// OverlapPoint is one intersection between two strokes of different
// identity, a < b.
type OverlapPoint struct {
	StrokeA, StrokeB int
	Point            geom.Point
}

// StrokePair identifies an unordered pair of strokes (by gene-local stroke
// index), used for missing/illegal overlap lists.
type StrokePair struct {
	A, B int
}

// Gene is one compiled, validated, and scored gene.
type Gene struct {
	Range  geom.Range // base range, inclusive, global positions
	Origin geom.Point

	Acids         []acid.Type
	Points        []geom.Point
	CoherentCount []int
	Segments      []Segment

	Strokes []Stroke
	Groups  []Group

	StrokeToHan   map[int]int
	HanToStroke   map[int]int
	StrokeToGroup map[int]int

	Overlaps        []OverlapPoint
	MissingOverlaps []StrokePair
	IllegalOverlaps []StrokePair

	// Marks counts coherent segments left unclaimed by any stroke after
	// the most recent EnsureStrokes pass (the source engine's "marks":
	// pen strokes with no corresponding Han stroke).
	Marks int

	Bounds geom.Rectangle
	Sx, Sy, Sxy unit.Unit
	Dx, Dy      unit.Unit

	Score unit.Unit
	Cost  unit.Unit

	Invalid InvalidFlags

	// dirtyFrom is the lowest codon index whose acids/points/coherence
	// may be stale, or -1 if nothing is dirty. Recompilation starts here.
	dirtyFrom int

	Han *hanref.HanRef
}

// New returns an empty gene spanning the given base range, fully invalid
// (as if freshly parsed and never compiled).
func New(baseRange geom.Range, origin geom.Point, han *hanref.HanRef) *Gene {
	return &Gene{
		Range:         baseRange,
		Origin:        origin,
		StrokeToHan:   map[int]int{},
		HanToStroke:   map[int]int{},
		StrokeToGroup: map[int]int{},
		Invalid:       FlagCompiled | FlagStrokes | FlagDimensions | FlagOverlaps | FlagScore,
		dirtyFrom:     0,
		Han:           han,
	}
}

// CodonCount returns the number of whole codons in the gene's base range.
func (g *Gene) CodonCount() int { return g.Range.Len() / Codon }

// CodonStart returns the absolute base position of the first base of codon
// index i.
func (g *Gene) CodonStart(i int) int { return g.Range.Start + i*Codon }

// Units returns the gene's total acid vector length, excluding the
// zero-length start and stop acids.
func (g *Gene) Units() float64 {
	total := 0.0
	for i, a := range g.Acids {
		if i == 0 || i == len(g.Acids)-1 {
			continue
		}
		total += a.Magnitude()
	}
	return total
}
