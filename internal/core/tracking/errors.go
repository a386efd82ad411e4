package tracking

import "errors"

var (
	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = errors.New("tracking record not found")
	// ErrDuplicateSource is returned when a record already tracks the same source.
	ErrDuplicateSource = errors.New("tracking record already exists for source")
	// ErrStorageCorrupt is returned when the backing file exists but is not valid tracking data.
	ErrStorageCorrupt = errors.New("tracking storage is corrupt")
	// ErrInvalidDraft is returned when a draft's type and source disagree.
	ErrInvalidDraft = errors.New("invalid tracking record draft")
)
