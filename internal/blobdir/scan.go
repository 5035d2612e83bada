// internal/blobdir/scan.go
package blobdir

import (
	"fmt"
	"os"

	"github.com/containerd/errdefs"
)

// Entry is one content-addressed blob observed in a store directory.
type Entry struct {
	Digest string
	Size   int64
}

// Scan enumerates a flat blob directory, treating each entry name as a
// content digest and the file length as the blob size. A missing or
// unreadable directory is an error: the caller needs complete data for every
// snapshot, so there is no partial result to return.
func Scan(dir string) ([]Entry, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan blob directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		if de.IsDir() {
			return nil, fmt.Errorf("blob directory %s contains subdirectory %q: %w",
				dir, de.Name(), errdefs.ErrInvalidArgument)
		}
		info, err := de.Info()
		if err != nil {
			return nil, fmt.Errorf("stat blob %s in %s: %w", de.Name(), dir, err)
		}
		entries = append(entries, Entry{Digest: de.Name(), Size: info.Size()})
	}
	return entries, nil
}
