package stdlib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesDiscoversClasses(t *testing.T) {
	files := Files()
	require.NotEmpty(t, files)

	var all []string
	for _, f := range files {
		all = append(all, f.Classes...)
	}
	assert.Contains(t, all, "Pair")
	assert.Contains(t, all, "Optional")
	assert.Contains(t, all, "StringBuilder")
	assert.Contains(t, all, "Stack")
}

func TestFilterSuppressesShadowedFileEntirely(t *testing.T) {
	out := Filter(map[string]bool{"Pair": true})
	assert.NotContains(t, out, "class Pair")
	assert.Contains(t, out, "class Optional")
	assert.Contains(t, out, "class StringBuilder")
}

func TestFilterWithNoShadowsKeepsEverything(t *testing.T) {
	out := Filter(map[string]bool{})
	assert.Contains(t, out, "class Pair")
	assert.Contains(t, out, "class Optional")
	assert.Contains(t, out, "class Stack")
}
