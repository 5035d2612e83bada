// internal/format/layout.go
package format

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/containerd/errdefs"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// chunkedLayoutVersion is what the external chunked-image builder writes in
// its oci-layout file while its format is still in flux.
const chunkedLayoutVersion = "puzzlefs-dev"

// CheckImageDir verifies that dir is an image directory we know how to read:
// it must carry an oci-layout file with either the standard OCI version or
// the chunked builder's version. Catches pointing the analyzer at the wrong
// directory before a scan turns garbage file sizes into statistics.
func CheckImageDir(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, ocispec.ImageLayoutFile))
	if err != nil {
		return fmt.Errorf("read image layout file: %w", err)
	}
	var layout ocispec.ImageLayout
	if err := json.Unmarshal(data, &layout); err != nil {
		return fmt.Errorf("decode image layout file in %s: %v: %w", dir, err, errdefs.ErrInvalidArgument)
	}
	switch layout.Version {
	case ocispec.ImageLayoutVersion, chunkedLayoutVersion:
		return nil
	}
	return fmt.Errorf("unsupported image layout version %q in %s: %w",
		layout.Version, dir, errdefs.ErrInvalidArgument)
}
