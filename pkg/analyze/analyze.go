// pkg/analyze/analyze.go

// Package analyze measures how much storage a unified content-addressed blob
// store would save across a set of container-image snapshots, comparing the
// original per-layer OCI layout against a content-defined-chunked rebuild of
// the same snapshots.
package analyze

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/containerd/errdefs"

	"github.com/creativeyann17/go-dedup/internal/blobdir"
	"github.com/creativeyann17/go-dedup/internal/format"
	"github.com/creativeyann17/go-dedup/internal/occurrence"
)

// ProgressFunc is invoked before each snapshot directory scan.
type ProgressFunc func(layout Layout, tag string)

// Analysis holds the occurrence tables and per-snapshot scans for one run.
// Build one with New, populate it with Scan, then query LayoutStats and
// MetadataSize, or use Report, which runs all three in order.
type Analysis struct {
	opts   *Options
	tables map[Layout]*occurrence.Table

	// chunkedSizes maps tag -> digest -> size for the chunked layout, kept
	// so metadata references resolve against the snapshot they came from.
	chunkedSizes map[string]map[string]int64
}

// New validates opts and returns an empty analysis.
func New(opts *Options) (*Analysis, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Analysis{
		opts:         opts,
		tables:       make(map[Layout]*occurrence.Table),
		chunkedSizes: make(map[string]map[string]int64),
	}, nil
}

// Scan walks every snapshot's blob directory under both layouts and builds
// the per-layout occurrence tables. Any unreadable directory aborts the whole
// run: a single missing snapshot would make every total misleading, so no
// partial statistics survive a failure.
func (a *Analysis) Scan(progress ProgressFunc) error {
	for _, layout := range Layouts() {
		table := occurrence.NewTable()
		for _, tag := range a.opts.Tags {
			if progress != nil {
				progress(layout, tag)
			}
			if err := format.CheckImageDir(a.opts.ImageDir(layout, tag)); err != nil {
				return fmt.Errorf("snapshot %s (%s layout): %w", tag, layout, err)
			}
			entries, err := blobdir.Scan(a.opts.BlobDir(layout, tag))
			if err != nil {
				return fmt.Errorf("snapshot %s (%s layout): %w", tag, layout, err)
			}
			if err := table.AddSnapshot(entries); err != nil {
				return fmt.Errorf("snapshot %s (%s layout): %w", tag, layout, err)
			}
			if layout == LayoutChunked {
				sizes := make(map[string]int64, len(entries))
				for _, e := range entries {
					sizes[e.Digest] = e.Size
				}
				a.chunkedSizes[tag] = sizes
			}
		}
		a.tables[layout] = table
	}
	return nil
}

// LayoutStats returns the dedup totals for one layout.
func (a *Analysis) LayoutStats(l Layout) (occurrence.Stats, error) {
	table, ok := a.tables[l]
	if !ok {
		return occurrence.Stats{}, fmt.Errorf("%s layout: %w", l, ErrNotScanned)
	}
	return table.Stats(), nil
}

// MetadataSize computes the combined size of the metadata blobs referenced by
// one snapshot's rebuilt filesystem image: resolve the configured manifest
// name in the snapshot's chunked index, decode the manifest's reference
// records, and sum the referenced blob sizes from that snapshot's scan.
func (a *Analysis) MetadataSize(tag string) (int64, error) {
	sizes, ok := a.chunkedSizes[tag]
	if !ok {
		return 0, fmt.Errorf("snapshot %s: %w", tag, ErrNotScanned)
	}

	indexData, err := os.ReadFile(a.opts.IndexPath(LayoutChunked, tag))
	if err != nil {
		return 0, fmt.Errorf("snapshot %s: read image index: %w", tag, err)
	}
	idx, err := format.ParseIndex(indexData)
	if err != nil {
		return 0, fmt.Errorf("snapshot %s: %w", tag, err)
	}
	manifestDigest, err := idx.ResolveName(a.opts.ManifestName)
	if err != nil {
		return 0, fmt.Errorf("snapshot %s: %w", tag, err)
	}

	manifest, err := os.ReadFile(filepath.Join(a.opts.BlobDir(LayoutChunked, tag), manifestDigest))
	if err != nil {
		return 0, fmt.Errorf("snapshot %s: read manifest blob: %w", tag, err)
	}
	digests, err := format.MetadataDigests(manifest)
	if err != nil {
		return 0, fmt.Errorf("snapshot %s: %w", tag, err)
	}

	var total int64
	for _, d := range digests {
		size, ok := sizes[d]
		if !ok {
			return 0, fmt.Errorf("snapshot %s: metadata blob %s missing from blob directory: %w",
				tag, d, errdefs.ErrNotFound)
		}
		total += size
	}
	return total, nil
}

// Report performs a complete analysis run: scan all snapshot directories,
// compute dedup statistics per layout, compute metadata size per snapshot.
func Report(opts *Options, progress ProgressFunc) (*Result, error) {
	a, err := New(opts)
	if err != nil {
		return nil, err
	}
	if err := a.Scan(progress); err != nil {
		return nil, err
	}

	result := &Result{}
	for _, l := range Layouts() {
		stats, err := a.LayoutStats(l)
		if err != nil {
			return nil, err
		}
		result.Layouts = append(result.Layouts, LayoutStats{Layout: l, Stats: stats})
	}
	for _, tag := range opts.Tags {
		size, err := a.MetadataSize(tag)
		if err != nil {
			return nil, err
		}
		result.Metadata = append(result.Metadata, SnapshotMetadata{Tag: tag, Bytes: size})
	}
	return result, nil
}
