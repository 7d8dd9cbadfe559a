package biz

import (
	"context"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepo stores opaque, already encoded session records by session id.
// Every write is a single keyed upsert, so concurrent requests for different
// sessions never touch each other's records.
type SessionRepo interface {
	// Load returns the record stored under id, or ErrSessionNotFound when it
	// is missing or expired.
	Load(ctx context.Context, id string) ([]byte, error)
	// Save replaces the record stored under id; it expires after ttl.
	Save(ctx context.Context, id string, data []byte, ttl time.Duration) error
	// Delete removes the record stored under id. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error
	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
	// Close releases the repository.
	Close() error
}
