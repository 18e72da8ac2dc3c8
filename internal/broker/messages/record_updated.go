package messages

import "time"

// RecordUpdated is published after every successful mutation of a record:
// once on creation and once per appended status update.
type RecordUpdated struct {
	Code       string    `json:"code"`
	Text       string    `json:"text"`
	Location   string    `json:"location,omitempty"`
	TS         time.Time `json:"ts"`
	HistoryLen int       `json:"history_len"`
}
