package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/pdf-runtime/errors"
	"github.com/wippyai/pdf-runtime/native"
	"github.com/wippyai/pdf-runtime/source"
)

// engineSim selects the built-in reference engine.
const engineSim = "sim"

// Config is the run configuration. A YAML file provides defaults; flags
// given on the command line override it.
type Config struct {
	Input            string        `yaml:"input"`
	Password         string        `yaml:"password"`
	Engine           string        `yaml:"engine"`
	CacheDir         string        `yaml:"cache_dir"`
	Report           string        `yaml:"report"`
	Thumbnail        string        `yaml:"thumbnail"`
	Flags            []string      `yaml:"flags"`
	ChunkSize        int64         `yaml:"chunk_size"`
	Timeout          time.Duration `yaml:"timeout"`
	Scale            float64       `yaml:"scale"`
	Page             int           `yaml:"page"`
	PauseEvery       int           `yaml:"pause_every"`
	ThumbnailWidth   int           `yaml:"thumbnail_width"`
	MemoryLimitPages uint32        `yaml:"memory_limit_pages"`
	TextPreview      int           `yaml:"text_preview"`
}

func defaultConfig() Config {
	return Config{
		Engine:         engineSim,
		Report:         "-",
		ChunkSize:      source.DefaultChunkSize,
		Timeout:        30 * time.Second,
		Scale:          1,
		PauseEvery:     1,
		ThumbnailWidth: 160,
		TextPreview:    80,
	}
}

// loadConfig reads a YAML config over the defaults. Unknown keys are errors.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "read config")
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse config "+path)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.Input == "":
		return errors.InvalidInput(errors.PhaseConfig, "input is required")
	case c.Engine == "":
		return errors.InvalidInput(errors.PhaseConfig, "engine is required")
	case c.Page < 0:
		return errors.InvalidInput(errors.PhaseConfig, "page must not be negative")
	case c.Scale <= 0:
		return errors.InvalidInput(errors.PhaseConfig, "scale must be positive")
	case c.ChunkSize <= 0:
		return errors.InvalidInput(errors.PhaseConfig, "chunk_size must be positive")
	case c.PauseEvery < 0:
		return errors.InvalidInput(errors.PhaseConfig, "pause_every must not be negative")
	}
	if _, err := parseFlags(c.Flags); err != nil {
		return err
	}
	return nil
}

func (c Config) remote() bool {
	return strings.HasPrefix(c.Input, "http://") || strings.HasPrefix(c.Input, "https://")
}

var flagNames = map[string]native.RenderFlags{
	"annot":     native.FlagAnnot,
	"lcd":       native.FlagLCDText,
	"no-native": native.FlagNoNativeText,
	"grayscale": native.FlagGrayscale,
	"rgba":      native.FlagReverseByteOrder,
	"printing":  native.FlagPrinting,
}

func parseFlags(names []string) (native.RenderFlags, error) {
	var flags native.RenderFlags
	for _, name := range names {
		f, ok := flagNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown render flag %q", name))
		}
		flags |= f
	}
	return flags, nil
}
