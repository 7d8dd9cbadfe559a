package data

import (
	"context"
	"sync"
	"time"

	"github.com/kerdahl/authentication-samples/internal/biz"
)

type memoryRecord struct {
	data      []byte
	expiresAt time.Time
}

// memorySessionRepo keeps session records in process memory. Records are lost
// on restart.
type memorySessionRepo struct {
	sessions sync.Map // map[sessionID]memoryRecord
	stop     chan struct{}
	once     sync.Once
}

// NewMemorySessionRepo creates an in-memory session repo that purges expired
// records every cleanupInterval.
func NewMemorySessionRepo(cleanupInterval time.Duration) biz.SessionRepo {
	r := &memorySessionRepo{stop: make(chan struct{})}
	if cleanupInterval <= 0 {
		cleanupInterval = 15 * time.Minute
	}
	// Start background cleanup goroutine
	go r.cleanupExpiredSessions(cleanupInterval)
	return r
}

func (r *memorySessionRepo) Load(_ context.Context, id string) ([]byte, error) {
	val, ok := r.sessions.Load(id)
	if !ok {
		return nil, biz.ErrSessionNotFound
	}
	rec := val.(memoryRecord)

	// Check if expired
	if time.Now().After(rec.expiresAt) {
		r.sessions.Delete(id)
		return nil, biz.ErrSessionNotFound
	}

	out := make([]byte, len(rec.data))
	copy(out, rec.data)
	return out, nil
}

func (r *memorySessionRepo) Save(_ context.Context, id string, data []byte, ttl time.Duration) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	r.sessions.Store(id, memoryRecord{data: buf, expiresAt: time.Now().Add(ttl)})
	return nil
}

func (r *memorySessionRepo) Delete(_ context.Context, id string) error {
	r.sessions.Delete(id)
	return nil
}

func (r *memorySessionRepo) Ping(context.Context) error {
	return nil
}

func (r *memorySessionRepo) Close() error {
	r.once.Do(func() { close(r.stop) })
	return nil
}

// cleanupExpiredSessions runs periodically to remove expired sessions
func (r *memorySessionRepo) cleanupExpiredSessions(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			now := time.Now()
			r.sessions.Range(func(key, value any) bool {
				if now.After(value.(memoryRecord).expiresAt) {
					r.sessions.Delete(key)
				}
				return true
			})
		}
	}
}
