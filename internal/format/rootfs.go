// internal/format/rootfs.go
package format

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/containerd/errdefs"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// A reference record embeds a blob reference as a fixed-layout byte string:
// an 8-byte chunk offset, a 1-byte kind tag, then the raw digest bytes. The
// offset and kind describe how the reference is consumed by readers of the
// filesystem image and are irrelevant to size accounting; only the digest
// survives decoding. The 8+1 prefix is the builder's versioned wire contract,
// so the strip happens in exactly one place.
const refRecordPrefixLen = 9

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// rootfsDoc is the CBOR shape of a filesystem-image manifest. Fields other
// than the metadata list are ignored so newer builder output stays decodable.
type rootfsDoc struct {
	Metadatas [][]byte `cbor:"metadatas"`
}

// DecodeRefRecord extracts the digest from one reference record, returned as
// lowercase hex.
func DecodeRefRecord(raw []byte) (string, error) {
	if len(raw) < refRecordPrefixLen {
		return "", fmt.Errorf("reference record is %d bytes, want at least %d: %w",
			len(raw), refRecordPrefixLen, errdefs.ErrInvalidArgument)
	}
	return hex.EncodeToString(raw[refRecordPrefixLen:]), nil
}

// MetadataDigests decodes a filesystem-image manifest blob and returns the
// digests of the metadata blobs it references, in document order. Blobs
// written by a builder configured for zstd compression are decompressed
// transparently.
func MetadataDigests(data []byte) ([]string, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		dec, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open zstd manifest blob: %v: %w", err, errdefs.ErrInvalidArgument)
		}
		defer dec.Close()
		data, err = io.ReadAll(dec)
		if err != nil {
			return nil, fmt.Errorf("decompress manifest blob: %v: %w", err, errdefs.ErrInvalidArgument)
		}
	}

	var doc rootfsDoc
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode filesystem-image manifest: %v: %w", err, errdefs.ErrInvalidArgument)
	}

	digests := make([]string, 0, len(doc.Metadatas))
	for i, rec := range doc.Metadatas {
		d, err := DecodeRefRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("metadata entry %d: %w", i, err)
		}
		digests = append(digests, d)
	}
	return digests, nil
}
