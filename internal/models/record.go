package models

import "time"

// HistoryEntry is one status update of a record. Entries are immutable once
// appended; insertion order is chronological order.
type HistoryEntry struct {
	Text     string    `json:"text"`
	Location string    `json:"location,omitempty"`
	TS       time.Time `json:"ts"`
}

type Record struct {
	Code      string         `json:"code"`
	CreatedAt time.Time      `json:"created_at"`
	Updates   []HistoryEntry `json:"updates"`
}

// Clone returns a copy whose Updates slice is detached from the original, so
// callers can hold the result while the ledger keeps appending.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Updates = make([]HistoryEntry, len(r.Updates))
	copy(cp.Updates, r.Updates)
	return &cp
}

// ShareToken grants read-only access to exactly one tracking code. Tokens are
// never invalidated or reused.
type ShareToken struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is the whole ledger state: records keyed by tracking code, share
// tokens keyed by token string. Loaded fully at startup, persisted fully on
// each mutation.
type Snapshot struct {
	Records map[string]*Record
	Tokens  map[string]*ShareToken
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		Records: map[string]*Record{},
		Tokens:  map[string]*ShareToken{},
	}
}
