package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shieldtech/linkshield/internal/core"
	"github.com/shieldtech/linkshield/internal/urlutil"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite implementation of the VerdictCache interface
type SQLiteCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS verdict_cache (
			url_key TEXT PRIMARY KEY,
			url TEXT,
			classification TEXT,
			reason TEXT,
			observed_at TIMESTAMP,
			expires_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Index on expires_at for faster cleanup
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_expires_at ON verdict_cache(expires_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	cache := &SQLiteCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	go cache.startCleanupTask()

	return cache, nil
}

// Get retrieves a cached verdict for a URL
func (c *SQLiteCache) Get(ctx context.Context, rawURL string) (*core.Verdict, bool) {
	var url, classification, reason, observedAt string

	err := c.db.QueryRowContext(ctx, `
		SELECT url, classification, reason, observed_at
		FROM verdict_cache
		WHERE url_key = ? AND expires_at > datetime('now')
	`, urlutil.CacheKey(keyPrefix, rawURL)).Scan(&url, &classification, &reason, &observedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false
		}
		c.logger.Error("Failed to query cache", zap.Error(err), zap.String("url", rawURL))
		return nil, false
	}

	parsedAt, err := time.Parse(time.RFC3339, observedAt)
	if err != nil {
		c.logger.Error("Failed to parse observed_at timestamp", zap.Error(err))
		return nil, false
	}

	return &core.Verdict{
		URL:            url,
		Classification: core.ParseClassification(classification),
		Reason:         reason,
		ObservedAt:     parsedAt,
	}, true
}

// Set stores a verdict for a URL with the given TTL
func (c *SQLiteCache) Set(ctx context.Context, rawURL string, verdict *core.Verdict, ttl time.Duration) {
	expiresAt := time.Now().Add(ttl)

	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO verdict_cache (url_key, url, classification, reason, observed_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, urlutil.CacheKey(keyPrefix, rawURL), verdict.URL, string(verdict.Classification), verdict.Reason,
		verdict.ObservedAt.Format(time.RFC3339), expiresAt.Format(time.RFC3339))

	if err != nil {
		c.logger.Error("Failed to insert cache entry", zap.Error(err), zap.String("url", rawURL))
	}
}

// Cleanup removes expired entries
func (c *SQLiteCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM verdict_cache
		WHERE expires_at <= datetime('now')
	`)

	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *SQLiteCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (c *SQLiteCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
