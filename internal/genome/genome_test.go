package genome

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biologic/stylus/internal/gene"
	"github.com/biologic/stylus/internal/geom"
	"github.com/biologic/stylus/internal/mutation"
)

func newTestGenome(bases string) *Genome {
	gn := New("author", []byte(bases))
	gn.Genes = []*gene.Gene{gene.New(geom.Range{Start: 0, End: len(bases) - 1}, geom.Point{}, nil)}
	return gn
}

func TestApplyAndUndoChange(t *testing.T) {
	gn := newTestGenome("TCAGTCAG")
	rec := mutation.Record{Kind: mutation.Change, Gene: 0, Target: 2, BasesBefore: "A", BasesAfter: "G"}

	require.NoError(t, gn.Apply(rec, &gn.Stacks.Accepted))
	assert.Equal(t, "TCGGTCAG", string(gn.Bases))
	assert.Equal(t, 1, gn.Stacks.Accepted.Len())

	require.NoError(t, gn.Undo(rec))
	assert.Equal(t, "TCAGTCAG", string(gn.Bases))
}

func TestApplyUnknownGeneRejected(t *testing.T) {
	gn := newTestGenome("TCAG")
	rec := mutation.Record{Kind: mutation.Change, Gene: 5, Target: 0, BasesAfter: "A"}
	err := gn.Apply(rec, &gn.Stacks.Accepted)
	assert.Error(t, err)
	assert.Equal(t, 0, gn.Stacks.Accepted.Len(), "a rejected apply never reaches the stack")
}

func TestApplyUnknownKindRejected(t *testing.T) {
	gn := newTestGenome("TCAG")
	rec := mutation.Record{Kind: mutation.Kind(99), Gene: 0}
	err := gn.Apply(rec, &gn.Stacks.Accepted)
	assert.Error(t, err)
}

func TestInsertGrowsGeneAndUndoRestores(t *testing.T) {
	gn := newTestGenome("TCAGTCAGTCAGTCAGTCAGTCAGTCAG")
	g := gn.Genes[0]
	before := g.Range

	insertRec := mutation.Record{Kind: mutation.Insert, Gene: 0, Target: 3, Bases: "AAA"}
	require.NoError(t, gn.Apply(insertRec, &gn.Stacks.Accepted))
	assert.Equal(t, "TCAAAAGTCAGTCAGTCAGTCAGTCAGTCAG", string(gn.Bases))
	assert.Equal(t, before.End+3, g.Range.End, "whole-codon insert grows the gene by one codon")

	require.NoError(t, gn.Undo(insertRec))
	assert.Equal(t, "TCAGTCAGTCAGTCAGTCAGTCAGTCAG", string(gn.Bases))
	assert.Equal(t, before, g.Range)
}

func TestInsertShiftsStrokeRangesAndUndoRestoresThem(t *testing.T) {
	gn := newTestGenome("TCAGTCAGTCAGTCAGTCAGTCAGTCAG")
	g := gn.Genes[0]
	g.Strokes = []gene.Stroke{
		{Range: geom.Range{Start: 0, End: 1}},
		{Range: geom.Range{Start: 3, End: 5}},
	}

	insertRec := mutation.Record{Kind: mutation.Insert, Gene: 0, Target: 6, Bases: "AAA"}
	require.NoError(t, gn.Apply(insertRec, &gn.Stacks.Accepted))
	assert.Equal(t, geom.Range{Start: 0, End: 1}, g.Strokes[0].Range, "stroke entirely before the insert is unaffected")
	assert.Equal(t, geom.Range{Start: 4, End: 6}, g.Strokes[1].Range, "stroke after the insert shifts by one codon")

	pushed, ok := gn.Stacks.Accepted.Pop()
	require.True(t, ok)
	require.NotEmpty(t, pushed.StrokeRangesBefore, "the pushed record must carry the pre-insert stroke ranges")

	require.NoError(t, gn.Undo(pushed))
	assert.Equal(t, "TCAGTCAGTCAGTCAGTCAGTCAGTCAG", string(gn.Bases))
	assert.Equal(t, geom.Range{Start: 0, End: 1}, g.Strokes[0].Range)
	assert.Equal(t, geom.Range{Start: 3, End: 5}, g.Strokes[1].Range, "undo must restore the stroke range an indel shifted")
}

func TestTransposeShiftsStrokeRangesInBothGenesAndUndoRestoresThem(t *testing.T) {
	gn := newTestGenome("TCAGTCAGTCAGTCAGTCAGTCAGTCAGTCAGTCAG")
	src := gene.New(geom.Range{Start: 0, End: 17}, geom.Point{}, nil)
	dst := gene.New(geom.Range{Start: 18, End: 35}, geom.Point{}, nil)
	src.Strokes = []gene.Stroke{{Range: geom.Range{Start: 0, End: 1}}, {Range: geom.Range{Start: 3, End: 5}}}
	dst.Strokes = []gene.Stroke{{Range: geom.Range{Start: 0, End: 1}}, {Range: geom.Range{Start: 3, End: 5}}}
	gn.Genes = []*gene.Gene{src, dst}

	rec := mutation.Record{Kind: mutation.Transpose, Gene: 0, GeneDst: 1, Source: 6, Target: 24, Bases: "AGT"}
	require.NoError(t, gn.Apply(rec, &gn.Stacks.Accepted))
	assert.Equal(t, geom.Range{Start: 2, End: 4}, src.Strokes[1].Range, "source stroke after the removed codon shifts back by one")
	assert.Equal(t, geom.Range{Start: 4, End: 6}, dst.Strokes[1].Range, "destination stroke after the insertion point shifts forward by one")

	pushed, ok := gn.Stacks.Accepted.Pop()
	require.True(t, ok)
	require.NotEmpty(t, pushed.StrokeRangesBefore, "the source gene's pre-transpose stroke ranges must be captured")
	require.NotEmpty(t, pushed.StrokeRangesBeforeDst, "the destination gene's pre-transpose stroke ranges must be captured")

	require.NoError(t, gn.Undo(pushed))
	assert.Equal(t, "TCAGTCAGTCAGTCAGTCAGTCAGTCAGTCAGTCAG", string(gn.Bases))
	assert.Equal(t, geom.Range{Start: 3, End: 5}, src.Strokes[1].Range, "undo must restore the source gene's stroke range")
	assert.Equal(t, geom.Range{Start: 3, End: 5}, dst.Strokes[1].Range, "undo must restore the destination gene's stroke range")
}

func TestRollbackReversesInLIFOOrderAndChecksSnapshot(t *testing.T) {
	gn := newTestGenome("TCAGTCAG")
	preAttempt := append([]byte(nil), gn.Bases...)

	rec1 := mutation.Record{Kind: mutation.Change, Gene: 0, Target: 0, BasesBefore: "T", BasesAfter: "G"}
	rec2 := mutation.Record{Kind: mutation.Change, Gene: 0, Target: 1, BasesBefore: "C", BasesAfter: "A"}
	require.NoError(t, gn.Apply(rec1, &gn.Stacks.AttemptRejected))
	require.NoError(t, gn.Apply(rec2, &gn.Stacks.AttemptRejected))
	assert.Equal(t, "GAAGTCAG", string(gn.Bases))

	require.NoError(t, gn.Rollback(&gn.Stacks.AttemptRejected, preAttempt))
	assert.Equal(t, "TCAGTCAG", string(gn.Bases))
	assert.Equal(t, 0, gn.Stacks.AttemptRejected.Len())
}

func TestRollbackDetectsSnapshotMismatch(t *testing.T) {
	gn := newTestGenome("TCAGTCAG")
	rec := mutation.Record{Kind: mutation.Change, Gene: 0, Target: 0, BasesBefore: "T", BasesAfter: "G"}
	require.NoError(t, gn.Apply(rec, &gn.Stacks.AttemptRejected))

	wrongSnapshot := []byte("AAAAAAAA")
	err := gn.Rollback(&gn.Stacks.AttemptRejected, wrongSnapshot)
	assert.Error(t, err)
}
