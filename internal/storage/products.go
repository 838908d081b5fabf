package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProductStatus is the moderation state of a submitted product.
type ProductStatus string

const (
	StatusPending  ProductStatus = "pending"
	StatusApproved ProductStatus = "approved"
	StatusRejected ProductStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ProductStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ErrProductNotFound is returned when a product ID does not exist.
var ErrProductNotFound = errors.New("product not found")

// Product is a listing submitted by a producer together with its
// verification outcome.
type Product struct {
	ID           string
	ProducerID   int64
	Name         string
	Description  string
	Category     string
	ImageRef     string
	Status       ProductStatus
	IsValid      bool
	Confidence   float64
	Reason       string
	AutoApproved bool
	CreatedAt    time.Time
	ReviewedAt   *time.Time
	ReviewedBy   int64
}

const productColumns = `id, producer_id, name, description, category, image_ref, status,
	is_valid, confidence, reason, auto_approved, created_at, reviewed_at, reviewed_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*Product, error) {
	var p Product
	var status string
	var reviewedAt sql.NullTime
	var reviewedBy sql.NullInt64
	err := row.Scan(
		&p.ID, &p.ProducerID, &p.Name, &p.Description, &p.Category, &p.ImageRef, &status,
		&p.IsValid, &p.Confidence, &p.Reason, &p.AutoApproved, &p.CreatedAt, &reviewedAt, &reviewedBy,
	)
	if err != nil {
		return nil, err
	}
	p.Status = ProductStatus(status)
	if reviewedAt.Valid {
		t := reviewedAt.Time
		p.ReviewedAt = &t
	}
	p.ReviewedBy = reviewedBy.Int64
	return &p, nil
}

// CreateProduct stores a new product. ID and CreatedAt are assigned here.
// Auto-approved products are stored as approved and reviewed by nobody.
func (s *SQLiteStore) CreateProduct(p *Product) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product := *p
	product.ID = uuid.New().String()
	product.CreatedAt = time.Now()
	if product.Status == "" {
		product.Status = StatusPending
	}
	if !product.Status.Valid() {
		return nil, fmt.Errorf("invalid product status: %s", product.Status)
	}

	var reviewedAt any
	if product.Status != StatusPending {
		now := product.CreatedAt
		product.ReviewedAt = &now
		reviewedAt = now
	}

	_, err := s.db.Exec(
		`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID, product.ProducerID, product.Name, product.Description, product.Category, product.ImageRef,
		string(product.Status), product.IsValid, product.Confidence, product.Reason, product.AutoApproved,
		product.CreatedAt, reviewedAt, product.ReviewedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return &product, nil
}

// GetProduct retrieves a product by ID.
// Returns ErrProductNotFound if it doesn't exist.
func (s *SQLiteStore) GetProduct(id string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getProduct(id)
}

func (s *SQLiteStore) getProduct(id string) (*Product, error) {
	p, err := scanProduct(s.db.QueryRow(`SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

// ListProductsByStatus returns products with the given status, oldest first.
func (s *SQLiteStore) ListProductsByStatus(status ProductStatus, limit int) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryProducts(
		`SELECT `+productColumns+` FROM products WHERE status = ? ORDER BY created_at ASC, rowid ASC LIMIT ?`,
		string(status), limit,
	)
}

// ListProductsByProducer returns a producer's products, newest first.
func (s *SQLiteStore) ListProductsByProducer(producerID int64, limit int) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryProducts(
		`SELECT `+productColumns+` FROM products WHERE producer_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		producerID, limit,
	)
}

func (s *SQLiteStore) queryProducts(query string, args ...any) ([]Product, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}

	return products, rows.Err()
}

// CountProductsByStatus returns the number of products with the given status.
func (s *SQLiteStore) CountProductsByStatus(status ProductStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM products WHERE status = ?`, string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// SetProductStatus records a moderation decision and returns the updated product.
func (s *SQLiteStore) SetProductStatus(id string, status ProductStatus, reviewedBy int64) (*Product, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid product status: %s", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(
		`UPDATE products SET status = ?, reviewed_at = ?, reviewed_by = ? WHERE id = ?`,
		string(status), time.Now(), reviewedBy, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update product status: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return nil, ErrProductNotFound
	}

	return s.getProduct(id)
}
