package model

// Snapshot is the authoritative ordered view of the chat, newest message
// first. Snapshots are replaced wholesale on update; readers never see a
// partially built one.
type Snapshot []Message

// Leading returns the newest message in the snapshot, or nil when empty.
func (s Snapshot) Leading() *Message {
	if len(s) == 0 {
		return nil
	}
	return &s[0]
}

// LeadingID returns the newest message's upstream ID, or "" when empty.
func (s Snapshot) LeadingID() string {
	if lead := s.Leading(); lead != nil {
		return lead.ID
	}
	return ""
}
