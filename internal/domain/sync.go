package domain

import (
	"context"
	"encoding/json"
	"time"
)

// SyncOperation is the kind of mutation a queue item carries.
type SyncOperation string

const (
	SyncOpCreate SyncOperation = "CREATE"
	SyncOpUpdate SyncOperation = "UPDATE"
	SyncOpDelete SyncOperation = "DELETE"
)

// SyncEntity is the remote entity a queue item targets.
type SyncEntity string

const (
	SyncEntityGame    SyncEntity = "GAME"
	SyncEntityVenue   SyncEntity = "VENUE"
	SyncEntityUser    SyncEntity = "USER"
	SyncEntityProfile SyncEntity = "PROFILE"
)

// Keys under which the core persists its state in the KV store.
const (
	KVKeySyncQueue   = "syncQueue"
	KVKeySyncStatus  = "syncStatus"
	KVKeyOfflineData = "offlineData"
)

// SyncQueueItem is a pending mutation waiting to reach the remote service.
// Owned exclusively by the sync service: created on enqueue, retry count
// bumped on a failed send, removed on success or at the retry ceiling.
type SyncQueueItem struct {
	ID         string          `json:"id"`
	Operation  SyncOperation   `json:"operation"`
	Entity     SyncEntity      `json:"entity"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	RetryCount int             `json:"retry_count"`
}

// SyncState is the combined online/flush/error state the UI renders sync
// health from. PendingCount always equals the queue length after every
// observable transition.
type SyncState struct {
	IsOnline           bool      `json:"is_online"`
	LastSuccessfulSync time.Time `json:"last_successful_sync"`
	PendingCount       int       `json:"pending_count"`
	FlushInProgress    bool      `json:"flush_in_progress"`
	LastError          string    `json:"last_error,omitempty"`
}

// Mutation is a typed queue payload. Each implementation pins exactly one
// valid entity/operation pair, so an invalid combination cannot be enqueued.
type Mutation interface {
	Entity() SyncEntity
	Operation() SyncOperation
}

// CreateGame records a locally created game.
type CreateGame struct {
	Game Game `json:"game"`
}

func (CreateGame) Entity() SyncEntity       { return SyncEntityGame }
func (CreateGame) Operation() SyncOperation { return SyncOpCreate }

// UpdateGameStatus records a status change for an existing game.
type UpdateGameStatus struct {
	GameID string     `json:"game_id"`
	Status GameStatus `json:"status"`
}

func (UpdateGameStatus) Entity() SyncEntity       { return SyncEntityGame }
func (UpdateGameStatus) Operation() SyncOperation { return SyncOpUpdate }

// DeleteGame records a local game deletion. The remote API does not expose
// game deletion yet, so this is accepted and acknowledged without a send.
type DeleteGame struct {
	GameID string `json:"game_id"`
}

func (DeleteGame) Entity() SyncEntity       { return SyncEntityGame }
func (DeleteGame) Operation() SyncOperation { return SyncOpDelete }

// UpdateVenue records a venue edit. Venue sync is not wired to the remote
// API yet; items are accepted and acknowledged without a send.
type UpdateVenue struct {
	Venue Venue `json:"venue"`
}

func (UpdateVenue) Entity() SyncEntity       { return SyncEntityVenue }
func (UpdateVenue) Operation() SyncOperation { return SyncOpUpdate }

// UpdateUser records an account edit. User sync is not wired to the remote
// API yet; items are accepted and acknowledged without a send.
type UpdateUser struct {
	User User `json:"user"`
}

func (UpdateUser) Entity() SyncEntity       { return SyncEntityUser }
func (UpdateUser) Operation() SyncOperation { return SyncOpUpdate }

// UpdateProfile records a profile edit.
type UpdateProfile struct {
	Profile Profile `json:"profile"`
}

func (UpdateProfile) Entity() SyncEntity       { return SyncEntityProfile }
func (UpdateProfile) Operation() SyncOperation { return SyncOpUpdate }

// KVStore is the persistence adapter. Values are whole JSON documents and
// are always replaced in full, never patched, to avoid partial-write
// corruption. Get returns nil with no error when the key is absent.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// RemoteClient is the typed surface of the remote DojoPool API the sync
// service drives. Every transport or validation failure comes back as an
// error and is treated identically by the queue.
type RemoteClient interface {
	CreateGame(ctx context.Context, game Game) error
	UpdateGameStatus(ctx context.Context, gameID string, status GameStatus) error
	UpdateProfile(ctx context.Context, profile Profile) error
}
