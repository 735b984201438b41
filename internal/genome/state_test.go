package genome

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnterStateLegalAndIllegal(t *testing.T) {
	gn := New("author", []byte("TCAG"))
	assert.Equal(t, Dead, gn.State())

	require.NoError(t, gn.EnterState(Loading))
	assert.True(t, gn.IsState(Loading))

	require.NoError(t, gn.EnterState(Invalid))
	assert.Equal(t, Invalid, gn.State())

	err := gn.EnterState(Alive)
	assert.Error(t, err)
	assert.Equal(t, Invalid, gn.State(), "a rejected transition leaves the state unchanged")
}

func TestEnterStateNoOpAlwaysLegal(t *testing.T) {
	gn := New("author", []byte("TCAG"))
	require.NoError(t, gn.EnterState(Dead))
	assert.Equal(t, Dead, gn.State())
}

func TestExitStateSuccessAndFailure(t *testing.T) {
	gn := New("author", []byte("TCAG"))
	require.NoError(t, gn.EnterState(Loading))

	err := gn.ExitState(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, exitSuccess[Loading], gn.State())

	gn2 := New("author", []byte("TCAG"))
	require.NoError(t, gn2.EnterState(Loading))
	boom := assert.AnError
	err = gn2.ExitState(func() error { return boom })
	assert.Equal(t, boom, err)
	assert.Equal(t, exitFailure[Loading], gn2.State())
}

func TestStateStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "Mutating", Mutating.String())
	assert.Equal(t, "Unknown", State(stateCount+1).String())
}
