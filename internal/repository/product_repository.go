package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Juanes-crypto/grupo-agro-backend/internal/domain"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Product, error)
	// Update persists the product, asserting the version it was loaded with.
	// Returns ErrOptimisticLockFailed if the row changed concurrently.
	Update(ctx context.Context, product *domain.Product, expectedVersion int) error
}

type productRepository struct {
	q Querier
}

// NewProductRepository creates a product repository over a database handle or
// an open transaction.
func NewProductRepository(q Querier) ProductRepository {
	return &productRepository{q: q}
}

const productColumns = `id, owner_id, name, description, price, category, stock, unit,
	image_url, published, tradable, perishable, freshness_certified, version, created_at, updated_at`

func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.q.ExecContext(ctx, query,
		p.ID.String(), p.OwnerID.String(), p.Name, p.Description, p.Price, p.Category,
		p.Stock, p.Unit, p.ImageURL,
		boolToInt(p.Published), boolToInt(p.Tradable), boolToInt(p.Perishable), boolToInt(p.FreshnessCertified),
		p.Version,
		p.CreatedAt.UTC().Format(time.RFC3339), p.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	return scanProduct(r.q.QueryRowContext(ctx, query, id.String()))
}

func (r *productRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE owner_id = ? ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, ownerID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProductRows(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

func (r *productRepository) Update(ctx context.Context, p *domain.Product, expectedVersion int) error {
	query := `
		UPDATE products
		SET owner_id = ?, name = ?, description = ?, price = ?, category = ?,
		    stock = ?, unit = ?, image_url = ?, published = ?, tradable = ?,
		    perishable = ?, freshness_certified = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := r.q.ExecContext(ctx, query,
		p.OwnerID.String(), p.Name, p.Description, p.Price, p.Category,
		p.Stock, p.Unit, p.ImageURL,
		boolToInt(p.Published), boolToInt(p.Tradable), boolToInt(p.Perishable), boolToInt(p.FreshnessCertified),
		p.Version, time.Now().UTC().Format(time.RFC3339),
		p.ID.String(), expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOptimisticLockFailed
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row *sql.Row) (*domain.Product, error) {
	p, err := scanProductRows(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrProductNotFound
	}
	return p, err
}

func scanProductRows(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var id, ownerID, createdAtStr, updatedAtStr string
	var published, tradable, perishable, certified int

	err := row.Scan(
		&id, &ownerID, &p.Name, &p.Description, &p.Price, &p.Category,
		&p.Stock, &p.Unit, &p.ImageURL,
		&published, &tradable, &perishable, &certified,
		&p.Version, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	p.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid product id %q: %w", id, err)
	}
	p.OwnerID, err = uuid.Parse(ownerID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id %q: %w", ownerID, err)
	}

	p.Published = published != 0
	p.Tradable = tradable != 0
	p.Perishable = perishable != 0
	p.FreshnessCertified = certified != 0

	if createdAt, err := time.Parse(time.RFC3339, createdAtStr); err == nil {
		p.CreatedAt = createdAt
	}
	if updatedAt, err := time.Parse(time.RFC3339, updatedAtStr); err == nil {
		p.UpdatedAt = updatedAt
	}

	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
