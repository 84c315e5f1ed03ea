package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProjectConfigMissingFileReturnsZeroValue(t *testing.T) {
	cfg, err := loadProjectConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, projectConfig{}, cfg)
}

func TestLoadProjectConfigParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".btrcrc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: out.c\ndebug: true\nno_runtime: false\n"), 0o644))

	cfg, err := loadProjectConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "out.c", cfg.Output)
	assert.True(t, cfg.Debug)
	assert.False(t, cfg.NoRuntime)
}

func TestApplyDefaultsSkipsExplicitlyChangedFlags(t *testing.T) {
	cfg := projectConfig{Output: "fromconfig.c", Debug: true}
	flags := &buildFlags{output: "fromflag.c"}

	cfg.applyDefaults(flags, func(name string) bool { return name == "output" })

	assert.Equal(t, "fromflag.c", flags.output, "explicitly-set flag must not be overridden")
	assert.True(t, flags.debug, "unset flag should take the config default")
}
