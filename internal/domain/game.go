package domain

import "time"

// GameStatus is the lifecycle state of a pool game.
type GameStatus string

const (
	GameStatusPending    GameStatus = "pending"
	GameStatusInProgress GameStatus = "in_progress"
	GameStatusCompleted  GameStatus = "completed"
	GameStatusCancelled  GameStatus = "cancelled"
)

// Game is a pool game as the device knows it. Remote ids are assigned
// server-side; the local id is authoritative until the game first syncs.
type Game struct {
	ID        string     `json:"id"`
	VenueID   string     `json:"venue_id"`
	Status    GameStatus `json:"status"`
	PlayerIDs []string   `json:"player_ids"`
	WinnerID  string     `json:"winner_id,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   time.Time  `json:"ended_at,omitempty"`
}

// Venue is a pool hall.
type Venue struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Tables  int     `json:"tables"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// User is the account signed in on this device.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Rating    int    `json:"rating"`
}

// Profile is the user-editable part of an account.
type Profile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Location    string `json:"location,omitempty"`
}
