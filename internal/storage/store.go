package storage

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// VerificationCacheEntry represents a cached product verification result.
type VerificationCacheEntry struct {
	IsValid      bool
	Confidence   float64
	Reason       string
	AutoApproved bool
}

// Producer represents a farmer allowed to submit products.
type Producer struct {
	TelegramID int64
	AddedAt    time.Time
	AddedBy    int64
}

// Store defines the interface for marketplace persistence.
type Store interface {
	Close() error

	// Verification cache methods
	GetVerificationCache(key string) (*VerificationCacheEntry, error)
	SetVerificationCache(key string, entry *VerificationCacheEntry) error
	PruneVerificationCache(olderThan time.Duration) (int64, error)

	// Product methods
	CreateProduct(p *Product) (*Product, error)
	GetProduct(id string) (*Product, error)
	ListProductsByStatus(status ProductStatus, limit int) ([]Product, error)
	ListProductsByProducer(producerID int64, limit int) ([]Product, error)
	CountProductsByStatus(status ProductStatus) (int, error)
	SetProductStatus(id string, status ProductStatus, reviewedBy int64) (*Product, error)

	// Producer whitelist methods
	IsProducerAllowed(telegramID int64) (bool, error)
	AddProducer(telegramID, addedBy int64) error
	RemoveProducer(telegramID int64) error
	GetProducers() ([]Producer, error)
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based store.
// The dbPath is the path to the SQLite database file, or ":memory:".
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: gets its own database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Set file permissions (only works on creation)
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Str("dbPath", dbPath).Msg("failed to chmod database file")
	}

	store := &SQLiteStore{db: db}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	verificationCacheQuery := `
	CREATE TABLE IF NOT EXISTS verification_cache (
		cache_key TEXT PRIMARY KEY,
		is_valid INTEGER NOT NULL,
		confidence REAL NOT NULL,
		reason TEXT NOT NULL,
		auto_approved INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(verificationCacheQuery); err != nil {
		return fmt.Errorf("failed to create verification_cache table: %w", err)
	}

	productsQuery := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		producer_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		image_ref TEXT NOT NULL,
		status TEXT NOT NULL,
		is_valid INTEGER NOT NULL,
		confidence REAL NOT NULL,
		reason TEXT NOT NULL,
		auto_approved INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		reviewed_at DATETIME,
		reviewed_by INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_products_status ON products(status, created_at);
	CREATE INDEX IF NOT EXISTS idx_products_producer ON products(producer_id, created_at);
	`
	if _, err := s.db.Exec(productsQuery); err != nil {
		return fmt.Errorf("failed to create products table: %w", err)
	}

	producersQuery := `
	CREATE TABLE IF NOT EXISTS producers (
		telegram_id INTEGER PRIMARY KEY,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		added_by INTEGER
	);
	`
	if _, err := s.db.Exec(producersQuery); err != nil {
		return fmt.Errorf("failed to create producers table: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetVerificationCache retrieves a cached verification result by key.
// Returns nil, nil if no cache entry exists.
func (s *SQLiteStore) GetVerificationCache(key string) (*VerificationCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entry VerificationCacheEntry
	err := s.db.QueryRow(
		"SELECT is_valid, confidence, reason, auto_approved FROM verification_cache WHERE cache_key = ?",
		key,
	).Scan(&entry.IsValid, &entry.Confidence, &entry.Reason, &entry.AutoApproved)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query verification cache: %w", err)
	}

	return &entry, nil
}

// SetVerificationCache stores a verification result in the cache.
func (s *SQLiteStore) SetVerificationCache(key string, entry *VerificationCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO verification_cache (cache_key, is_valid, confidence, reason, auto_approved)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			is_valid = excluded.is_valid,
			confidence = excluded.confidence,
			reason = excluded.reason,
			auto_approved = excluded.auto_approved,
			created_at = CURRENT_TIMESTAMP
	`, key, entry.IsValid, entry.Confidence, entry.Reason, entry.AutoApproved)

	if err != nil {
		return fmt.Errorf("failed to cache verification result: %w", err)
	}
	return nil
}

// PruneVerificationCache deletes cache entries older than the given duration.
func (s *SQLiteStore) PruneVerificationCache(olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan).UTC().Format("2006-01-02 15:04:05")
	result, err := s.db.Exec(`DELETE FROM verification_cache WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune verification cache: %w", err)
	}

	return result.RowsAffected()
}

// IsProducerAllowed checks if a producer is in the whitelist.
func (s *SQLiteStore) IsProducerAllowed(telegramID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM producers WHERE telegram_id = ?",
		telegramID,
	).Scan(&count)

	if err != nil {
		return false, fmt.Errorf("failed to check producer: %w", err)
	}

	return count > 0, nil
}

// AddProducer adds a producer to the whitelist.
func (s *SQLiteStore) AddProducer(telegramID, addedBy int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO producers (telegram_id, added_by)
		VALUES (?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			added_by = excluded.added_by,
			added_at = CURRENT_TIMESTAMP
	`, telegramID, addedBy)

	if err != nil {
		return fmt.Errorf("failed to add producer: %w", err)
	}
	return nil
}

// RemoveProducer removes a producer from the whitelist.
func (s *SQLiteStore) RemoveProducer(telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM producers WHERE telegram_id = ?", telegramID)
	if err != nil {
		return fmt.Errorf("failed to remove producer: %w", err)
	}
	return nil
}

// GetProducers returns all producers in the whitelist.
func (s *SQLiteStore) GetProducers() ([]Producer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT telegram_id, added_at, added_by FROM producers ORDER BY added_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query producers: %w", err)
	}
	defer rows.Close()

	var producers []Producer
	for rows.Next() {
		var p Producer
		if err := rows.Scan(&p.TelegramID, &p.AddedAt, &p.AddedBy); err != nil {
			return nil, fmt.Errorf("failed to scan producer: %w", err)
		}
		producers = append(producers, p)
	}

	return producers, rows.Err()
}
