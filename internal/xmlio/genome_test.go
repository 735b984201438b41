package xmlio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biologic/stylus/internal/hanref"
)

func testResolver(t *testing.T) HanResolver {
	return func(unicode string) (*hanref.HanRef, error) {
		require.Equal(t, "4E00", unicode)
		return &hanref.HanRef{
			Unicode: unicode,
			Groups: []hanref.Group{
				{ID: 1, Name: "main", StrokeIDs: []int{1}},
			},
			Strokes: []hanref.Stroke{{ID: 1}},
		}, nil
	}
}

const testGenomeXML = `<?xml version="1.0"?>
<genome uuid="11111111-1111-1111-1111-111111111111" author="student" creationTool="stylus" creationDate="2026-01-01">
  <seed processorId="p1">42 7</seed>
  <bases>TCAGTCAGTCAGTCAGTCAG</bases>
  <genes>
    <gene baseFirst="1" baseLast="9" units="3">
      <origin x="0" y="0"/>
      <hanReferences>
        <hanReference unicode="4E00">
          <stroke baseFirst="1" baseLast="9" correspondsTo="1"/>
        </hanReference>
      </hanReferences>
    </gene>
  </genes>
</genome>`

func TestReadGenomeBasic(t *testing.T) {
	gn, seed, table, err := ReadGenome(strings.NewReader(testGenomeXML), testResolver(t))
	require.NoError(t, err)
	require.NotNil(t, table)
	assert.Equal(t, "42 7", seed)
	assert.Equal(t, "student", gn.Author)
	assert.Equal(t, "TCAGTCAGTCAGTCAGTCAG", string(gn.Bases))
	require.Len(t, gn.Genes, 1)

	g := gn.Genes[0]
	assert.Equal(t, 0, g.Range.Start)
	assert.Equal(t, 8, g.Range.End)
	require.Len(t, g.Strokes, 1)
	assert.Equal(t, 1, g.Strokes[0].HanStrokeID)
	require.Len(t, g.Groups, 1)
	assert.Equal(t, []int{0}, g.Groups[0].StrokeIndices)
}

func TestReadGenomeRejectsMissingUUID(t *testing.T) {
	doc := strings.Replace(testGenomeXML, `uuid="11111111-1111-1111-1111-111111111111" `, "", 1)
	_, _, _, err := ReadGenome(strings.NewReader(doc), testResolver(t))
	assert.Error(t, err)
}

func TestReadGenomeRejectsBadBases(t *testing.T) {
	doc := strings.Replace(testGenomeXML, "TCAGTCAGTCAGTCAGTCAG", "TCAGXCAGTCAGTCAGTCAG", 1)
	_, _, _, err := ReadGenome(strings.NewReader(doc), testResolver(t))
	assert.Error(t, err)
}

func TestReadGenomeRejectsMissingHanReferences(t *testing.T) {
	doc := `<?xml version="1.0"?>
<genome uuid="11111111-1111-1111-1111-111111111111" author="student">
  <bases>TCAG</bases>
  <genes>
    <gene baseFirst="1" baseLast="3" units="1">
      <origin x="0" y="0"/>
    </gene>
  </genes>
</genome>`
	_, _, _, err := ReadGenome(strings.NewReader(doc), testResolver(t))
	assert.Error(t, err)
}

func TestWriteGenomeRoundTrip(t *testing.T) {
	gn, _, _, err := ReadGenome(strings.NewReader(testGenomeXML), testResolver(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	err = WriteGenome(&buf, gn, "11111111-1111-1111-1111-111111111111", "stylus", "2026-01-01", "42 7")
	require.NoError(t, err)

	gn2, seed2, _, err := ReadGenome(&buf, testResolver(t))
	require.NoError(t, err)
	assert.Equal(t, "42 7", seed2)
	assert.Equal(t, gn.Bases, gn2.Bases)
	require.Len(t, gn2.Genes, 1)
	assert.Equal(t, gn.Genes[0].Range, gn2.Genes[0].Range)
}

func TestVectorToAcidRoundTripsString(t *testing.T) {
	at, err := vectorToAcid("STP")
	require.NoError(t, err)
	assert.Equal(t, "STP", at.String())

	_, err = vectorToAcid("NotARealAcid")
	assert.Error(t, err)
}

func TestCodonEntryIndex(t *testing.T) {
	_, err := codonEntryIndex("TC")
	assert.Error(t, err)

	idx, err := codonEntryIndex("TCA")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, idx, 0)
}
