package domain

import "time"

// OfflineSnapshot is the last-known-good read model the UI falls back to
// while disconnected. It is a single merged document; the last writer wins.
type OfflineSnapshot struct {
	Games       []Game    `json:"games"`
	Venues      []Venue   `json:"venues"`
	User        *User     `json:"user"`
	LastUpdated time.Time `json:"last_updated"`
}

// EmptySnapshot returns the default snapshot used when nothing has been
// persisted yet.
func EmptySnapshot() OfflineSnapshot {
	return OfflineSnapshot{
		Games:  []Game{},
		Venues: []Venue{},
	}
}

// SnapshotPatch is a partial snapshot update. Nil fields leave the current
// value untouched; non-nil fields replace it wholesale (shallow merge, no
// per-field reconciliation).
type SnapshotPatch struct {
	Games  []Game  `json:"games,omitempty"`
	Venues []Venue `json:"venues,omitempty"`
	User   *User   `json:"user,omitempty"`
}
