package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned by Load when no snapshot exists for a key.
var ErrNotFound = errors.New("snapshot: not found")

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("snapshot: store is closed")

// Snapshot is a captured document and its state.
type Snapshot struct {
	// URL is the page the document was loaded from.
	URL string `msgpack:"url"`

	// TakenAt is when the snapshot was captured.
	TakenAt time.Time `msgpack:"taken_at"`

	// HTML is the rendered document.
	HTML string `msgpack:"html"`

	// State is the client state as a JSON object.
	State []byte `msgpack:"state"`
}

// Encode serializes s with msgpack.
func Encode(s *Snapshot) ([]byte, error) {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return data, nil
}

// Decode parses data produced by Encode.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	return &s, nil
}

// Store persists snapshots by key.
type Store interface {
	// Save stores s under key, replacing any previous snapshot.
	Save(ctx context.Context, key string, s *Snapshot) error

	// Load returns the snapshot under key or ErrNotFound.
	Load(ctx context.Context, key string) (*Snapshot, error)

	// Delete removes the snapshot under key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the store.
	Close() error
}
