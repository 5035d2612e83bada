// internal/pipeline/tools.go
package pipeline

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/containerd/log"
)

// skopeoFetcher copies docker://<image>:<tag> into the plain OCI image
// directory for that tag.
type skopeoFetcher struct {
	bin string
	cfg *Config
}

func (f *skopeoFetcher) Fetch(ctx context.Context, tag string) error {
	src := fmt.Sprintf("docker://%s:%s", f.cfg.Image, tag)
	dest := fmt.Sprintf("oci:%s:%s", f.cfg.PlainImageDir(tag), tag)
	return runTool(ctx, f.bin, "copy", src, dest)
}

// umociUnpacker unpacks a fetched snapshot into a runtime bundle under the
// scratch directory; the root filesystem lands in <scratch>/rootfs.
type umociUnpacker struct {
	bin string
	cfg *Config
}

func (u *umociUnpacker) Unpack(ctx context.Context, tag string) error {
	image := fmt.Sprintf("%s:%s", u.cfg.PlainImageDir(tag), tag)
	return runTool(ctx, u.bin, "unpack", "--rootless", "--image", image, u.cfg.ScratchDir(tag))
}

// chunkedBuilder repacks an unpacked root filesystem into the chunked layout
// with the configured chunk-size bounds.
type chunkedBuilder struct {
	bin string
	cfg *Config
}

func (b *chunkedBuilder) Rebuild(ctx context.Context, tag string, bounds ChunkBounds) error {
	rootfs := filepath.Join(b.cfg.ScratchDir(tag), "rootfs")
	return runTool(ctx, b.bin, "build", rootfs, b.cfg.ChunkedImageDir(tag), b.cfg.ManifestName,
		"--min", strconv.FormatUint(uint64(bounds.Min), 10),
		"--avg", strconv.FormatUint(uint64(bounds.Avg), 10),
		"--max", strconv.FormatUint(uint64(bounds.Max), 10))
}

// runTool executes one external tool to completion. Output is captured and
// folded into the error so a failed stage names the command that broke.
func runTool(ctx context.Context, bin string, args ...string) error {
	log.G(ctx).WithFields(log.Fields{
		"bin":  bin,
		"args": strings.Join(args, " "),
	}).Debug("running external tool")

	cmd := exec.CommandContext(ctx, bin, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w\noutput: %s", bin, strings.Join(args, " "), err, output)
	}
	return nil
}
