package model

import "time"

// DriverEvent is one entry in the dispatch business log: which driver was
// recorded, and when. The relay only appends and lists these; it never
// interprets them.
type DriverEvent struct {
	ID         int64
	Driver     string
	RecordedAt time.Time
}
