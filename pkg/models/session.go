package models

import "time"

// SessionInfo is the persisted metadata for a conversation session.
//
// Invariants maintained by the session store:
//   - MessageCount equals the number of persisted messages.
//   - Updated >= Created.
//   - Mode names a registered mode.
type SessionInfo struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	Created      time.Time `json:"created"`
	Updated      time.Time `json:"updated"`
	MessageCount int       `json:"message_count"`
	Mode         string    `json:"mode"`
}
