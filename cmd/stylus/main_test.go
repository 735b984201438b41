package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHanDoc = `<?xml version="1.0"?>
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

func TestDirResolverLoadsAndCaches(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "4E00.xml"), []byte(testHanDoc), 0o644))

	resolve := dirResolver(dir)
	h, err := resolve("4E00")
	require.NoError(t, err)
	assert.Equal(t, "4E00", h.Unicode)

	h2, err := resolve("4E00")
	require.NoError(t, err)
	assert.Same(t, h, h2, "a second resolve of the same character must hit the cache, not reopen the file")
}

func TestDirResolverErrorsOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	resolve := dirResolver(dir)
	_, err := resolve("0000")
	assert.Error(t, err)
}
