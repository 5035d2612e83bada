// pkg/analyze/errors.go
package analyze

import "errors"

var (
	// ErrRootRequired is returned when no root directory is specified
	ErrRootRequired = errors.New("root directory is required")

	// ErrTagsRequired is returned when no snapshot tags are configured
	ErrTagsRequired = errors.New("at least one snapshot tag is required")

	// ErrNotScanned is returned when statistics are requested before Scan
	ErrNotScanned = errors.New("blob directories have not been scanned")
)
