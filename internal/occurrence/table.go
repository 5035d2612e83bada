// internal/occurrence/table.go
package occurrence

import (
	"fmt"

	"github.com/containerd/errdefs"

	"github.com/creativeyann17/go-dedup/internal/blobdir"
)

// Table accumulates blob observations for one storage layout across every
// analyzed snapshot. It is keyed by digest only: a blob present in several
// snapshots counts repeatedly against the same entry. That crossing of
// snapshot boundaries is the point: the saved-bytes figure measures what a
// single content-addressed store shared by all snapshots would reclaim.
type Table struct {
	blobs     map[string]*blobInfo
	snapshots int
	rawBytes  int64
}

type blobInfo struct {
	size  int64
	count int
}

// Stats are the per-layout dedup totals derived from a Table.
type Stats struct {
	Snapshots int

	// RawBytes is the plain sum of every snapshot's blob directory, with no
	// deduplication applied.
	RawBytes int64

	// SavedBytes is what a shared content-addressed store reclaims: for each
	// digest seen in more than one snapshot, all but one copy.
	SavedBytes int64

	// MashedBytes is the size of all snapshots mashed into one store,
	// always RawBytes - SavedBytes.
	MashedBytes int64

	// AvgSnapshotBytes is RawBytes averaged over the snapshots.
	AvgSnapshotBytes int64
}

// NewTable returns an empty occurrence table.
func NewTable() *Table {
	return &Table{blobs: make(map[string]*blobInfo)}
}

// AddSnapshot folds one snapshot's blob scan into the table. Each digest's
// occurrence count grows by at most one per snapshot since directory entries
// are unique within a scan. A digest reappearing with a different size means
// the store is not content-addressed after all and the run must not continue.
func (t *Table) AddSnapshot(entries []blobdir.Entry) error {
	for _, e := range entries {
		b, ok := t.blobs[e.Digest]
		if !ok {
			t.blobs[e.Digest] = &blobInfo{size: e.Size, count: 1}
		} else {
			if b.size != e.Size {
				return fmt.Errorf("blob %s observed with sizes %d and %d: %w",
					e.Digest, b.size, e.Size, errdefs.ErrConflict)
			}
			b.count++
		}
		t.rawBytes += e.Size
	}
	t.snapshots++
	return nil
}

// Snapshots returns how many snapshots have been folded in.
func (t *Table) Snapshots() int {
	return t.snapshots
}

// Stats computes the dedup totals over everything observed so far.
func (t *Table) Stats() Stats {
	s := Stats{
		Snapshots: t.snapshots,
		RawBytes:  t.rawBytes,
	}
	for _, b := range t.blobs {
		if b.count > 1 {
			s.SavedBytes += int64(b.count-1) * b.size
		}
	}
	s.MashedBytes = s.RawBytes - s.SavedBytes
	if t.snapshots > 0 {
		s.AvgSnapshotBytes = t.rawBytes / int64(t.snapshots)
	}
	return s
}
