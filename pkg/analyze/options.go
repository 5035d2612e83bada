// pkg/analyze/options.go
package analyze

import "path/filepath"

// Layout identifies one of the two blob store arrangements being compared.
type Layout string

const (
	// LayoutPlain is the original per-layer OCI blob layout as fetched.
	LayoutPlain Layout = "plain"

	// LayoutChunked is the content-defined-chunked layout produced by the
	// external rebuild tool.
	LayoutChunked Layout = "chunked"
)

// Layouts returns both layouts in report order.
func Layouts() []Layout {
	return []Layout{LayoutPlain, LayoutChunked}
}

// DefaultManifestName is the ref.name annotation the external builder tags
// the rebuilt filesystem image with unless configured otherwise.
const DefaultManifestName = "rootfs"

// Options configures an analysis run
type Options struct {
	// RootDir contains one subdirectory per layout, each holding one image
	// directory per snapshot tag:
	//   <RootDir>/<layout>/<tag>/index.json
	//   <RootDir>/<layout>/<tag>/blobs/sha256/<digest>
	RootDir string

	// Tags are the snapshot labels to analyze
	Tags []string

	// ManifestName is the logical name under which each snapshot's rebuilt
	// filesystem image is registered in its chunked index
	// Default: "rootfs"
	ManifestName string
}

// Validate checks options and sets defaults
func (o *Options) Validate() error {
	if o.RootDir == "" {
		return ErrRootRequired
	}
	if len(o.Tags) == 0 {
		return ErrTagsRequired
	}
	if o.ManifestName == "" {
		o.ManifestName = DefaultManifestName
	}
	return nil
}

// ImageDir returns the image directory for one snapshot under one layout.
func (o *Options) ImageDir(l Layout, tag string) string {
	return filepath.Join(o.RootDir, string(l), tag)
}

// IndexPath returns the image index location for one snapshot.
func (o *Options) IndexPath(l Layout, tag string) string {
	return filepath.Join(o.ImageDir(l, tag), "index.json")
}

// BlobDir returns the content-addressed blob directory for one snapshot.
func (o *Options) BlobDir(l Layout, tag string) string {
	return filepath.Join(o.ImageDir(l, tag), "blobs", "sha256")
}
