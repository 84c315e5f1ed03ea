package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// projectConfig holds build defaults loaded from a `.btrcrc.yaml` file
// in the working directory, applied before command-line flags so a
// flag the user actually typed always wins. There's no BTRC analog to
// the teacher's own module manifest, so this is the one place a
// config file is worth having: per-project defaults for the output
// path, debug builds and `--no-runtime`, the three things worth not
// retyping on every invocation.
type projectConfig struct {
	Output    string `yaml:"output"`
	Debug     bool   `yaml:"debug"`
	NoRuntime bool   `yaml:"no_runtime"`
}

const defaultConfigFile = ".btrcrc.yaml"

// loadProjectConfig reads path if it exists, returning a zero-value
// config (no defaults) when it doesn't — a missing config file is not
// an error.
func loadProjectConfig(path string) (projectConfig, error) {
	var cfg projectConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyDefaults fills in any flag the user didn't explicitly set from
// cfg, using changed to distinguish "left at zero value" from
// "explicitly set to the zero value" (e.g. `--debug=false`).
func (cfg projectConfig) applyDefaults(flags *buildFlags, changed func(name string) bool) {
	if !changed("output") && cfg.Output != "" {
		flags.output = cfg.Output
	}
	if !changed("debug") && cfg.Debug {
		flags.debug = true
	}
	if !changed("no-runtime") && cfg.NoRuntime {
		flags.noRuntime = true
	}
}
