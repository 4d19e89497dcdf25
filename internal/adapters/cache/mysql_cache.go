package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shieldtech/linkshield/internal/core"
	"github.com/shieldtech/linkshield/internal/urlutil"
	"go.uber.org/zap"
)

const mysqlTimeFormat = "2006-01-02 15:04:05"

// MySQLCache is a MySQL implementation of the VerdictCache interface
type MySQLCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS verdict_cache (
			url_key VARCHAR(128) PRIMARY KEY,
			url TEXT,
			classification VARCHAR(16),
			reason TEXT,
			observed_at TIMESTAMP,
			expires_at TIMESTAMP,
			INDEX idx_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	cache := &MySQLCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	go cache.startCleanupTask()

	return cache, nil
}

// Get retrieves a cached verdict for a URL
func (c *MySQLCache) Get(ctx context.Context, rawURL string) (*core.Verdict, bool) {
	var url, classification, reason, observedAt string

	err := c.db.QueryRowContext(ctx, `
		SELECT url, classification, reason, observed_at
		FROM verdict_cache
		WHERE url_key = ? AND expires_at > NOW()
	`, urlutil.CacheKey(keyPrefix, rawURL)).Scan(&url, &classification, &reason, &observedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false
		}
		c.logger.Error("Failed to query cache", zap.Error(err), zap.String("url", rawURL))
		return nil, false
	}

	parsedAt, err := time.Parse(mysqlTimeFormat, observedAt)
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
func (c *MySQLCache) Set(ctx context.Context, rawURL string, verdict *core.Verdict, ttl time.Duration) {
	expiresAt := time.Now().Add(ttl)

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO verdict_cache (url_key, url, classification, reason, observed_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			url = VALUES(url),
			classification = VALUES(classification),
			reason = VALUES(reason),
			observed_at = VALUES(observed_at),
			expires_at = VALUES(expires_at)
	`, urlutil.CacheKey(keyPrefix, rawURL), verdict.URL, string(verdict.Classification), verdict.Reason,
		verdict.ObservedAt.Format(mysqlTimeFormat), expiresAt.Format(mysqlTimeFormat))

	if err != nil {
		c.logger.Error("Failed to insert cache entry", zap.Error(err), zap.String("url", rawURL))
	}
}

// Cleanup removes expired entries
func (c *MySQLCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM verdict_cache
		WHERE expires_at <= NOW()
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
func (c *MySQLCache) startCleanupTask() {
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
func (c *MySQLCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
