// pkg/analyze/result.go
package analyze

import (
	"fmt"
	"strings"

	"github.com/creativeyann17/go-dedup/internal/occurrence"
)

// LayoutStats are the dedup totals for one storage layout.
type LayoutStats struct {
	Layout Layout
	occurrence.Stats
}

// SnapshotMetadata is the combined size of the metadata blobs referenced by
// one snapshot's rebuilt filesystem image.
type SnapshotMetadata struct {
	Tag   string
	Bytes int64
}

// Result contains the full dedup report for one analysis run
type Result struct {
	// Layouts holds per-layout totals, plain first
	Layouts []LayoutStats

	// Metadata holds per-snapshot metadata sizes in configured tag order
	Metadata []SnapshotMetadata
}

// LayoutStats returns the totals for one layout.
func (r *Result) LayoutStats(l Layout) (LayoutStats, bool) {
	for _, ls := range r.Layouts {
		if ls.Layout == l {
			return ls, true
		}
	}
	return LayoutStats{}, false
}

// Summary returns a human-readable report. Sizes are tracked in whole bytes
// internally and rendered here in binary megabytes.
func (r *Result) Summary() string {
	var sb strings.Builder

	for _, ls := range r.Layouts {
		fmt.Fprintf(&sb, "%s layout:\n", ls.Layout)
		fmt.Fprintf(&sb, "  Snapshots:      %d\n", ls.Snapshots)
		fmt.Fprintf(&sb, "  Total size:     %s\n", FormatMiB(ls.RawBytes))
		fmt.Fprintf(&sb, "  Average size:   %s\n", FormatMiB(ls.AvgSnapshotBytes))
		fmt.Fprintf(&sb, "  Deduplicated:   %s\n", FormatMiB(ls.MashedBytes))
		fmt.Fprintf(&sb, "  Saved:          %s\n", FormatMiB(ls.SavedBytes))
		sb.WriteString("\n")
	}

	sb.WriteString("Metadata size per snapshot:\n")
	for _, m := range r.Metadata {
		fmt.Fprintf(&sb, "  %s: %s\n", m.Tag, FormatMiB(m.Bytes))
	}

	return sb.String()
}

// FormatMiB renders a byte count in binary megabytes.
func FormatMiB(bytes int64) string {
	return fmt.Sprintf("%.2f MiB", float64(bytes)/(1024*1024))
}
