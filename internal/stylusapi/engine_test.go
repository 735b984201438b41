package stylusapi

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biologic/stylus/internal/genome"
	"github.com/biologic/stylus/internal/hanref"
)

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

func testResolver(*testing.T) func(string) (*hanref.HanRef, error) {
	return func(unicode string) (*hanref.HanRef, error) {
		return &hanref.HanRef{
			Unicode: unicode,
			Groups:  []hanref.Group{{ID: 1, Name: "main", StrokeIDs: []int{1}}},
			Strokes: []hanref.Stroke{{ID: 1}},
		}, nil
	}
}

func TestEngineRejectsOperationsBeforeInitialize(t *testing.T) {
	e := New()
	_, err := e.GetSeed()
	assert.Error(t, err)
	assert.Equal(t, err, e.LastError())
}

func TestEngineInitializeAndTerminate(t *testing.T) {
	e := New()
	require.NoError(t, e.Initialize())
	seed, err := e.GetSeed()
	require.NoError(t, err)
	assert.Equal(t, "1 0", seed)

	e.Terminate()
	_, err = e.GetSeed()
	assert.Error(t, err, "a terminated engine behaves as uninitialized")
}

func TestSetGenomeRequiresScopeFirst(t *testing.T) {
	e := New()
	require.NoError(t, e.Initialize())
	err := e.SetGenome(strings.NewReader(testGenomeXML))
	assert.Error(t, err)
}

func TestSetGenomeLoadsAndTransitionsAlive(t *testing.T) {
	e := New()
	require.NoError(t, e.Initialize())
	require.NoError(t, e.SetScope(testResolver(t)))
	require.NoError(t, e.SetGenome(strings.NewReader(testGenomeXML)))

	state, err := e.GetGenomeState()
	require.NoError(t, err)
	assert.Equal(t, genome.Alive, state)

	bases, err := e.GetGenomeBases()
	require.NoError(t, err)
	assert.Equal(t, "TCAGTCAGTCAGTCAGTCAG", string(bases))

	seed, err := e.GetSeed()
	require.NoError(t, err)
	assert.Equal(t, "42 7", seed, "a seed carried in the genome document reseeds the engine's PRNG")

	stats, err := e.GetStatistics()
	require.NoError(t, err)
	assert.Equal(t, genome.Statistics{}, stats)
}

func TestGetGenomeRoundTrip(t *testing.T) {
	e := New()
	require.NoError(t, e.Initialize())
	require.NoError(t, e.SetScope(testResolver(t)))
	require.NoError(t, e.SetGenome(strings.NewReader(testGenomeXML)))

	var buf bytes.Buffer
	require.NoError(t, e.GetGenome(&buf, "11111111-1111-1111-1111-111111111111", "stylus", "2026-01-01"))

	e2 := New()
	require.NoError(t, e2.Initialize())
	require.NoError(t, e2.SetScope(testResolver(t)))
	require.NoError(t, e2.SetGenome(&buf))
	bases, err := e2.GetGenomeBases()
	require.NoError(t, err)
	assert.Equal(t, "TCAGTCAGTCAGTCAGTCAG", string(bases))
}

func TestOperationsRequireGenomeLoaded(t *testing.T) {
	e := New()
	require.NoError(t, e.Initialize())

	_, err := e.GetGenomeBases()
	assert.Error(t, err)
	_, err = e.GetGenomeState()
	assert.Error(t, err)
	_, err = e.GetGenomeTermination()
	assert.Error(t, err)
	_, err = e.GetStatistics()
	assert.Error(t, err)
	err = e.GetGenome(&bytes.Buffer{}, "u", "t", "d")
	assert.Error(t, err)
}

func TestLastErrorRecordsMostRecentFailure(t *testing.T) {
	e := New()
	require.NoError(t, e.Initialize())
	_, err1 := e.GetGenomeBases()
	require.Error(t, err1)
	assert.Equal(t, err1, e.LastError())

	err2 := e.SetGenome(strings.NewReader(testGenomeXML))
	require.Error(t, err2)
	assert.Equal(t, err2, e.LastError())
	assert.NotEqual(t, err1, err2)
}

func TestLoadHanReferenceResolverErrorsOnUnknownUnicode(t *testing.T) {
	resolver := LoadHanReference(map[string]io.Reader{})
	_, err := resolver("4E00")
	assert.Error(t, err)
}

func TestLoadHanReferenceResolverLoadsRegisteredDocument(t *testing.T) {
	doc := `<?xml version="1.0"?>
<hanDefinition unicode="4E00">
  <length>1.0</length>
  <bounds>
    <topLeft x="0" y="1"/>
    <bottomRight x="1" y="0"/>
  </bounds>
  <minimumStrokeLength>0.1</minimumStrokeLength>
  <strokes>
    <stroke id="1">
      <forward>
        <pointDistance x="0" y="0" distance="0"/>
        <pointDistance x="1" y="1" distance="1"/>
      </forward>
    </stroke>
  </strokes>
  <groups>
    <group id="1" name="main">
      <strokeRef>1</strokeRef>
    </group>
  </groups>
</hanDefinition>`
	resolver := LoadHanReference(map[string]io.Reader{"4E00": strings.NewReader(doc)})
	h, err := resolver("4E00")
	require.NoError(t, err)
	assert.Equal(t, "4E00", h.Unicode)
	require.Len(t, h.Strokes, 1)
}
