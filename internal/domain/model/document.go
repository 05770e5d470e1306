package model

import "time"

// Document describes one archival PDF served from the documents directory.
// PageCount is best-effort and zero when the file could not be parsed.
type Document struct {
	Name       string
	SizeBytes  int64
	PageCount  int
	ModifiedAt time.Time
}
