package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kerdahl/authentication-samples/internal/biz"

	_ "modernc.org/sqlite"
)

// sqliteSessionRepo SQLite 实现的会话仓库
type sqliteSessionRepo struct {
	db   *sql.DB
	stop chan struct{}
	once sync.Once
}

// NewSQLiteSessionRepo 创建 SQLite 会话仓库
func NewSQLiteSessionRepo(dbPath string, cleanupInterval time.Duration) (biz.SessionRepo, error) {
	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// 单连接写入，避免 SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// 创建 sessions 表
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expires_at INTEGER NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	// 创建索引
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions index: %w", err)
	}

	r := &sqliteSessionRepo{db: db, stop: make(chan struct{})}
	if cleanupInterval <= 0 {
		cleanupInterval = 15 * time.Minute
	}
	go r.cleanupExpiredSessions(cleanupInterval)
	return r, nil
}

// Load 读取未过期的会话
func (r *sqliteSessionRepo) Load(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT data FROM sessions WHERE id = ? AND expires_at > ?",
		id, time.Now().UnixNano(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, biz.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return data, nil
}

// Save 写入会话（整体覆盖）
func (r *sqliteSessionRepo) Save(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, data, expires_at, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`, id, data, time.Now().Add(ttl).UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete 删除会话
func (r *sqliteSessionRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *sqliteSessionRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close 关闭数据库连接
func (r *sqliteSessionRepo) Close() error {
	r.once.Do(func() { close(r.stop) })
	return r.db.Close()
}

// purgeExpired 清理过期会话
func (r *sqliteSessionRepo) purgeExpired() (int64, error) {
	res, err := r.db.Exec("DELETE FROM sessions WHERE expires_at <= ?", time.Now().UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sqliteSessionRepo) cleanupExpiredSessions(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.purgeExpired()
		}
	}
}
