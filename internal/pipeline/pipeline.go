// internal/pipeline/pipeline.go

// Package pipeline sequences the external rebuild stages for every configured
// snapshot and then hands the populated directories to the analyze package.
// The stages (fetching an image, unpacking it, repacking it into a
// content-defined-chunked store) are external programs behind the Fetcher,
// Unpacker and Rebuilder interfaces, so the whole pipeline runs against fakes
// in tests.
package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/containerd/errdefs"
	"github.com/containerd/log"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/creativeyann17/go-dedup/pkg/analyze"
)

// ChunkBounds are the content-defined-chunking size parameters handed to the
// external builder, in bytes.
type ChunkBounds struct {
	Min uint32 `yaml:"min"`
	Avg uint32 `yaml:"avg"`
	Max uint32 `yaml:"max"`
}

// DefaultChunkBounds match the builder's own defaults.
var DefaultChunkBounds = ChunkBounds{
	Min: 16 * 1024,
	Avg: 64 * 1024,
	Max: 256 * 1024,
}

// Validate enforces the builder's parameter constraint: min < avg < max and
// max - min > avg, otherwise the chunker cannot hit its average.
func (b ChunkBounds) Validate() error {
	if b.Min < b.Avg && b.Avg < b.Max && b.Max-b.Min > b.Avg {
		return nil
	}
	return fmt.Errorf("invalid chunking bounds min=%d avg=%d max=%d: %w",
		b.Min, b.Avg, b.Max, errdefs.ErrInvalidArgument)
}

// Fetcher downloads one snapshot of the source image into the plain layout.
type Fetcher interface {
	Fetch(ctx context.Context, tag string) error
}

// Unpacker materializes a fetched snapshot's root filesystem under the
// snapshot's scratch directory.
type Unpacker interface {
	Unpack(ctx context.Context, tag string) error
}

// Rebuilder repacks an unpacked root filesystem into the chunked layout.
type Rebuilder interface {
	Rebuild(ctx context.Context, tag string, bounds ChunkBounds) error
}

// Runner drives the full benchmark: fetch, unpack and rebuild every
// configured snapshot in order, clean up scratch space, then analyze.
type Runner struct {
	cfg     *Config
	fetch   Fetcher
	unpack  Unpacker
	rebuild Rebuilder
	quiet   bool
}

// NewRunner wires a runner to the external tools named in cfg.
func NewRunner(cfg *Config) *Runner {
	return &Runner{
		cfg:     cfg,
		fetch:   &skopeoFetcher{bin: cfg.Tools.Skopeo, cfg: cfg},
		unpack:  &umociUnpacker{bin: cfg.Tools.Umoci, cfg: cfg},
		rebuild: &chunkedBuilder{bin: cfg.Tools.Builder, cfg: cfg},
	}
}

// NewRunnerWith wires a runner to injected collaborators.
func NewRunnerWith(cfg *Config, fetch Fetcher, unpack Unpacker, rebuild Rebuilder) *Runner {
	return &Runner{cfg: cfg, fetch: fetch, unpack: unpack, rebuild: rebuild}
}

// SetQuiet disables progress bars.
func (r *Runner) SetQuiet(quiet bool) {
	r.quiet = quiet
}

// Run executes every stage to completion before the next begins; snapshots
// are processed one at a time with no overlap. Scratch directories are
// removed on both the success and the failure path unless the config keeps
// them. Any stage failure aborts before statistics are computed.
func (r *Runner) Run(ctx context.Context) (*analyze.Result, error) {
	if !r.cfg.KeepScratch {
		defer r.cleanup(ctx)
	}

	stages := []struct {
		name string
		run  func(ctx context.Context, tag string) error
	}{
		{"fetch", r.fetch.Fetch},
		{"unpack", r.unpack.Unpack},
		{"rebuild", func(ctx context.Context, tag string) error {
			return r.rebuild.Rebuild(ctx, tag, r.cfg.Chunking)
		}},
	}

	var progress *mpb.Progress
	if !r.quiet {
		progress = mpb.New(mpb.WithWidth(60))
	}

	for _, stage := range stages {
		bar := r.stageBar(progress, stage.name)
		for _, tag := range r.cfg.Tags {
			log.G(ctx).WithFields(log.Fields{
				"stage": stage.name,
				"tag":   tag,
			}).Debug("pipeline stage")
			if err := stage.run(ctx, tag); err != nil {
				if bar != nil {
					bar.Abort(false)
					progress.Wait()
				}
				return nil, fmt.Errorf("%s %s: %w", stage.name, tag, err)
			}
			if bar != nil {
				bar.Increment()
			}
		}
	}
	if progress != nil {
		progress.Wait()
	}

	var scanProgress analyze.ProgressFunc = func(layout analyze.Layout, tag string) {
		log.G(ctx).WithFields(log.Fields{
			"layout": layout,
			"tag":    tag,
		}).Debug("scanning blob directory")
	}
	return analyze.Report(r.cfg.AnalyzeOptions(), scanProgress)
}

func (r *Runner) stageBar(progress *mpb.Progress, name string) *mpb.Bar {
	if progress == nil {
		return nil
	}
	return progress.AddBar(int64(len(r.cfg.Tags)),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: 10, C: decor.DindentRight}),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(decor.Percentage(decor.WC{W: 5})),
	)
}

// cleanup removes the unpack scratch directories. Failures are logged, not
// returned: the analysis result must not depend on scratch removal.
func (r *Runner) cleanup(ctx context.Context) {
	for _, tag := range r.cfg.Tags {
		dir := r.cfg.ScratchDir(tag)
		if err := os.RemoveAll(dir); err != nil {
			log.G(ctx).WithError(err).WithField("dir", dir).Warn("scratch cleanup failed")
		}
	}
}
