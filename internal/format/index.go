// internal/format/index.go
package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Descriptor is one manifest entry of a chunked image index. The index is
// written by the external builder and its field spelling (media_type, not
// mediaType) is part of that wire contract, so we keep our own struct instead
// of reusing the OCI image-spec descriptor.
type Descriptor struct {
	Digest      string            `json:"digest"`
	Size        uint64            `json:"size"`
	MediaType   string            `json:"media_type"`
	Annotations map[string]string `json:"annotations"`
}

// Name returns the ref.name annotation under which the descriptor was tagged,
// or "" when it is untagged.
func (d *Descriptor) Name() string {
	return d.Annotations[ocispec.AnnotationRefName]
}

// Index lists the tagged manifests of one image directory.
type Index struct {
	Manifests []Descriptor `json:"manifests"`
}

// ParseIndex decodes an image index document.
func ParseIndex(data []byte) (*Index, error) {
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode image index: %v: %w", err, errdefs.ErrInvalidArgument)
	}
	return &idx, nil
}

// ResolveName returns the hex digest of the first manifest whose ref.name
// annotation equals name. The digest must carry the canonical sha256
// algorithm prefix; any other prefix means the index was produced by an
// incompatible builder and resolving it would misattribute blobs.
func (idx *Index) ResolveName(name string) (string, error) {
	for i := range idx.Manifests {
		m := &idx.Manifests[i]
		if m.Name() != name {
			continue
		}
		alg, hex, ok := strings.Cut(m.Digest, ":")
		if !ok || alg != digest.Canonical.String() {
			return "", fmt.Errorf("manifest %q has digest %q, want %s:<hex>: %w",
				name, m.Digest, digest.Canonical, errdefs.ErrInvalidArgument)
		}
		return hex, nil
	}
	return "", fmt.Errorf("no manifest named %q in image index: %w", name, errdefs.ErrNotFound)
}
