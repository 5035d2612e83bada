// internal/pipeline/pipeline_test.go
package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/jotfs/fastcdc-go"

	"github.com/creativeyann17/go-dedup/internal/format"
	"github.com/creativeyann17/go-dedup/pkg/analyze"
)

// testBounds are small enough to split the synthetic root filesystems into
// many chunks.
var testBounds = ChunkBounds{Min: 64, Avg: 256, Max: 1024}

func testConfig(t *testing.T) *Config {
	cfg := &Config{
		Image:    "docker.io/library/testimage",
		Tags:     []string{"v1", "v2"},
		RootDir:  t.TempDir(),
		Chunking: testBounds,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

// snapshotPayload is the simulated root filesystem content for one tag: a
// shared base followed by a per-tag tail, so consecutive snapshots share most
// of their chunks the way image updates do.
func snapshotPayload(tag string) []byte {
	var buf bytes.Buffer
	seed := uint64(0x9e3779b97f4a7c15)
	for buf.Len() < 16*1024 {
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		fmt.Fprintf(&buf, "%016x", seed)
	}
	buf.WriteString("tail-of-" + tag)
	buf.Write(bytes.Repeat([]byte(tag), 200))
	return buf.Bytes()
}

func writeTestFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

func storeBlob(t *testing.T, blobDir string, content []byte) string {
	t.Helper()
	sum := sha256.Sum256(content)
	digest := hex.EncodeToString(sum[:])
	writeTestFile(t, filepath.Join(blobDir, digest), content)
	return digest
}

// fakeFetcher materializes a plain OCI image directory with one layer blob
// per snapshot.
type fakeFetcher struct {
	t   *testing.T
	cfg *Config
}

func (f *fakeFetcher) Fetch(ctx context.Context, tag string) error {
	dir := f.cfg.PlainImageDir(tag)
	writeTestFile(f.t, filepath.Join(dir, "oci-layout"), []byte(`{"imageLayoutVersion":"1.0.0"}`))
	storeBlob(f.t, filepath.Join(dir, "blobs", "sha256"), snapshotPayload(tag))
	return nil
}

// fakeUnpacker materializes the root filesystem the way the real unpacker
// does, beneath <scratch>/rootfs.
type fakeUnpacker struct {
	t   *testing.T
	cfg *Config
}

func (u *fakeUnpacker) Unpack(ctx context.Context, tag string) error {
	rootfs := filepath.Join(u.cfg.ScratchDir(tag), "rootfs")
	writeTestFile(u.t, filepath.Join(rootfs, "payload.bin"), snapshotPayload(tag))
	return nil
}

// fakeRebuilder repacks the unpacked root filesystem into a chunked image
// directory with real content-defined chunking, mirroring the external
// builder's output layout: chunk blobs, one metadata blob, a CBOR manifest
// referencing it, and a tagged index.
type fakeRebuilder struct {
	t   *testing.T
	cfg *Config
}

func (r *fakeRebuilder) Rebuild(ctx context.Context, tag string, bounds ChunkBounds) error {
	payload, err := os.ReadFile(filepath.Join(r.cfg.ScratchDir(tag), "rootfs", "payload.bin"))
	if err != nil {
		return err
	}

	dir := r.cfg.ChunkedImageDir(tag)
	blobDir := filepath.Join(dir, "blobs", "sha256")
	writeTestFile(r.t, filepath.Join(dir, "oci-layout"), []byte(`{"imageLayoutVersion":"puzzlefs-dev"}`))

	chunker, err := fastcdc.NewChunker(bytes.NewReader(payload), fastcdc.Options{
		MinSize:     int(bounds.Min),
		AverageSize: int(bounds.Avg),
		MaxSize:     int(bounds.Max),
	})
	if err != nil {
		return err
	}
	for {
		chunk, err := chunker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		data := make([]byte, len(chunk.Data))
		copy(data, chunk.Data)
		storeBlob(r.t, blobDir, data)
	}

	metadataDigest := storeBlob(r.t, blobDir, []byte("inode-table-of-"+tag))
	raw, err := hex.DecodeString(metadataDigest)
	if err != nil {
		return err
	}
	manifest, err := cbor.Marshal(struct {
		Metadatas [][]byte `cbor:"metadatas"`
	}{Metadatas: [][]byte{append(make([]byte, 9), raw...)}})
	if err != nil {
		return err
	}
	manifestDigest := storeBlob(r.t, blobDir, manifest)

	idx := format.Index{Manifests: []format.Descriptor{{
		Digest:      "sha256:" + manifestDigest,
		Size:        uint64(len(manifest)),
		MediaType:   "application/vnd.puzzlefs.image.rootfs.v1",
		Annotations: map[string]string{"org.opencontainers.image.ref.name": r.cfg.ManifestName},
	}}}
	indexData, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	writeTestFile(r.t, filepath.Join(dir, "index.json"), indexData)
	return nil
}

func testRunner(t *testing.T, cfg *Config) *Runner {
	r := NewRunnerWith(cfg,
		&fakeFetcher{t: t, cfg: cfg},
		&fakeUnpacker{t: t, cfg: cfg},
		&fakeRebuilder{t: t, cfg: cfg})
	r.SetQuiet(true)
	return r
}

func TestRunnerRun(t *testing.T) {
	cfg := testConfig(t)
	result, err := testRunner(t, cfg).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	for _, layout := range analyze.Layouts() {
		stats, ok := result.LayoutStats(layout)
		if !ok {
			t.Fatalf("Missing %s layout stats", layout)
		}
		if stats.Snapshots != len(cfg.Tags) {
			t.Errorf("%s layout: expected %d snapshots, got %d", layout, len(cfg.Tags), stats.Snapshots)
		}
		if stats.MashedBytes != stats.RawBytes-stats.SavedBytes {
			t.Errorf("%s layout: mashed %d != raw %d - saved %d",
				layout, stats.MashedBytes, stats.RawBytes, stats.SavedBytes)
		}
	}

	// The plain layer blobs differ per tag, so nothing dedups; the chunked
	// snapshots share the chunks of their common payload base.
	plain, _ := result.LayoutStats(analyze.LayoutPlain)
	if plain.SavedBytes != 0 {
		t.Errorf("Plain layout: expected no savings, got %d", plain.SavedBytes)
	}
	chunked, _ := result.LayoutStats(analyze.LayoutChunked)
	if chunked.SavedBytes == 0 {
		t.Error("Chunked layout: expected cross-snapshot savings")
	}

	for _, m := range result.Metadata {
		if m.Bytes == 0 {
			t.Errorf("Snapshot %s: expected non-zero metadata size", m.Tag)
		}
	}
}

func TestRunnerCleansScratch(t *testing.T) {
	cfg := testConfig(t)
	if _, err := testRunner(t, cfg).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, tag := range cfg.Tags {
		if _, err := os.Stat(cfg.ScratchDir(tag)); !os.IsNotExist(err) {
			t.Errorf("Scratch dir for %s should be removed, stat: %v", tag, err)
		}
	}
}

func TestRunnerKeepScratch(t *testing.T) {
	cfg := testConfig(t)
	cfg.KeepScratch = true
	if _, err := testRunner(t, cfg).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, tag := range cfg.Tags {
		if _, err := os.Stat(filepath.Join(cfg.ScratchDir(tag), "rootfs")); err != nil {
			t.Errorf("Scratch dir for %s should survive: %v", tag, err)
		}
	}
}

type failingFetcher struct{}

func (failingFetcher) Fetch(ctx context.Context, tag string) error {
	return errors.New("registry unreachable")
}

func TestRunnerStageFailure(t *testing.T) {
	cfg := testConfig(t)
	r := NewRunnerWith(cfg, failingFetcher{}, &fakeUnpacker{t: t, cfg: cfg}, &fakeRebuilder{t: t, cfg: cfg})
	r.SetQuiet(true)

	result, err := r.Run(context.Background())
	if err == nil {
		t.Fatal("Expected error from failing fetch stage")
	}
	if result != nil {
		t.Error("No partial result may survive a failed stage")
	}
}
