package xmlio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biologic/stylus/internal/scoring"
)

func TestReadGlobalsDefaults(t *testing.T) {
	g, err := ReadGlobals(strings.NewReader(`<globals/>`))
	require.NoError(t, err)
	assert.Equal(t, scoring.Default(), g)
}

func TestReadGlobalsOverlay(t *testing.T) {
	doc := `<globals groupScoreMode="average">
  <gene>
    <scale weight="2" setpoint="0.1"/>
  </gene>
  <group>
    <deviation weight="0.5"/>
  </group>
</globals>`
	g, err := ReadGlobals(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, scoring.GroupScoreAverage, g.GroupScoreMode)
	assert.InDelta(t, 2, g.GeneWeights.Scale.Value(), 1e-9)
	assert.InDelta(t, 0.1, g.GeneSetpoints.Scale.Value(), 1e-9)
	assert.InDelta(t, 0.5, g.GroupWeights.Deviation.Value(), 1e-9)

	def := scoring.Default()
	assert.Equal(t, def.GeneWeights.Placement, g.GeneWeights.Placement, "unmentioned components keep the default")
}

func TestReadGlobalsMinimumMode(t *testing.T) {
	g, err := ReadGlobals(strings.NewReader(`<globals groupScoreMode="minimum"/>`))
	require.NoError(t, err)
	assert.Equal(t, scoring.GroupScoreMinimum, g.GroupScoreMode)
}

func TestReadGlobalsRejectsMalformed(t *testing.T) {
	_, err := ReadGlobals(strings.NewReader(`<globals`))
	assert.Error(t, err)
}
