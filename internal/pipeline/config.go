// internal/pipeline/config.go
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/creativeyann17/go-dedup/pkg/analyze"
)

var (
	// ErrImageRequired is returned when the config names no source image
	ErrImageRequired = errors.New("source image reference is required")

	// ErrTagsRequired is returned when the config lists no snapshot tags
	ErrTagsRequired = errors.New("at least one snapshot tag is required")

	// ErrRootRequired is returned when the config names no working root
	ErrRootRequired = errors.New("root directory is required")
)

// ToolPaths overrides the binaries invoked for the external rebuild stages.
type ToolPaths struct {
	Skopeo  string `yaml:"skopeo"`
	Umoci   string `yaml:"umoci"`
	Builder string `yaml:"builder"`
}

// Config describes one benchmark run.
type Config struct {
	// Image is the source image reference without a tag,
	// e.g. docker.io/library/ubuntu
	Image string `yaml:"image"`

	// Tags are the snapshot labels to fetch, rebuild and analyze
	Tags []string `yaml:"tags"`

	// RootDir is the working directory; plain and chunked image trees plus
	// unpack scratch space all live beneath it
	RootDir string `yaml:"root_dir"`

	// ManifestName is the tag the builder registers each rebuilt image
	// under. Default: "rootfs"
	ManifestName string `yaml:"manifest_name"`

	// Chunking bounds the content-defined chunk sizes used by the builder
	Chunking ChunkBounds `yaml:"chunking"`

	// Tools overrides the external binaries (default: found on PATH)
	Tools ToolPaths `yaml:"tools"`

	// KeepScratch leaves the unpacked root filesystems on disk after the run
	KeepScratch bool `yaml:"keep_scratch"`
}

// LoadConfig reads and validates a yaml benchmark description.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the config and fills in defaults.
func (c *Config) Validate() error {
	if c.Image == "" {
		return ErrImageRequired
	}
	if len(c.Tags) == 0 {
		return ErrTagsRequired
	}
	if c.RootDir == "" {
		return ErrRootRequired
	}
	if c.ManifestName == "" {
		c.ManifestName = analyze.DefaultManifestName
	}
	if c.Tools.Skopeo == "" {
		c.Tools.Skopeo = "skopeo"
	}
	if c.Tools.Umoci == "" {
		c.Tools.Umoci = "umoci"
	}
	if c.Tools.Builder == "" {
		c.Tools.Builder = "puzzlefs"
	}
	if c.Chunking == (ChunkBounds{}) {
		c.Chunking = DefaultChunkBounds
	}
	return c.Chunking.Validate()
}

// AnalyzeOptions derives the analysis options for the configured snapshots.
func (c *Config) AnalyzeOptions() *analyze.Options {
	return &analyze.Options{
		RootDir:      c.RootDir,
		Tags:         c.Tags,
		ManifestName: c.ManifestName,
	}
}

// PlainImageDir is where the fetch stage materializes one snapshot.
func (c *Config) PlainImageDir(tag string) string {
	return filepath.Join(c.RootDir, string(analyze.LayoutPlain), tag)
}

// ChunkedImageDir is where the rebuild stage materializes one snapshot.
func (c *Config) ChunkedImageDir(tag string) string {
	return filepath.Join(c.RootDir, string(analyze.LayoutChunked), tag)
}

// ScratchDir is the unpack bundle directory for one snapshot. The unpacker
// places the root filesystem at <ScratchDir>/rootfs.
func (c *Config) ScratchDir(tag string) string {
	return filepath.Join(c.RootDir, "scratch", tag)
}
