// Package model holds the domain types shared by the relay's services and adapters.
package model

import "time"

// Message is a single chat message fetched from the upstream Teams chat.
// Messages are immutable once fetched; the rewriter returns transformed
// copies rather than mutating bodies in place.
type Message struct {
	ID              string
	Sender          string
	Body            string
	BodyContentType string
	CreatedAt       time.Time
}

// CreatedOn reports whether the message was created on the calendar day
// containing t, evaluated in t's location.
func (m Message) CreatedOn(t time.Time) bool {
	y1, m1, d1 := m.CreatedAt.In(t.Location()).Date()
	y2, m2, d2 := t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
