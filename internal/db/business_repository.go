package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var ErrBusinessNotFound = errors.New("business not found")
var ErrOwnerHasBusiness = errors.New("owner already has a business")
var ErrBusinessExists = errors.New("business name or phone already exists")

type Business struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Slug        string
	Phone       string
	Categories  []string
	State       string
	LGA         string
	Town        string
	Address     string
	StoreType   string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SearchFilter matches businesses by location and category. All fields
// are compared case-insensitively and exactly.
type SearchFilter struct {
	State    string
	LGA      string
	Town     string
	Category string
}

type BusinessRepository struct {
	db *DB
}

func NewBusinessRepository(db *DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

const businessColumns = `id, owner_id, business_name, slug, phone, categories,
	state, lga, town, address, store_type, COALESCE(description, ''), created_at, updated_at`

func (r *BusinessRepository) Create(ctx context.Context, b *Business) error {
	query := `
		INSERT INTO businesses (id, owner_id, business_name, slug, phone, categories,
			state, lga, town, address, store_type, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.OwnerID, b.Name, b.Slug, b.Phone, pq.Array(b.Categories),
		b.State, b.LGA, b.Town, b.Address, b.StoreType, b.Description,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if constraintContains(err, "owner") {
				return ErrOwnerHasBusiness
			}
			return ErrBusinessExists
		}
		return err
	}

	return nil
}

func (r *BusinessRepository) GetBySlug(ctx context.Context, slug string) (*Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE slug = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, slug))
}

func (r *BusinessRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE owner_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, ownerID))
}

// Update rewrites the owner's business. The owner scope is part of the
// WHERE clause, so a user can never update another user's record.
func (r *BusinessRepository) Update(ctx context.Context, b *Business) error {
	query := `
		UPDATE businesses
		SET business_name = $1, slug = $2, phone = $3, categories = $4,
			state = $5, lga = $6, town = $7, address = $8, store_type = $9,
			description = $10, updated_at = $11
		WHERE owner_id = $12
	`

	result, err := r.db.ExecContext(ctx, query,
		b.Name, b.Slug, b.Phone, pq.Array(b.Categories),
		b.State, b.LGA, b.Town, b.Address, b.StoreType,
		b.Description, b.UpdatedAt, b.OwnerID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrBusinessExists
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrBusinessNotFound
	}

	return nil
}

// Search returns a page of matching businesses plus the total match
// count. A window function folds the count into the page query so a
// second COUNT round trip is not needed.
func (r *BusinessRepository) Search(ctx context.Context, f SearchFilter, page, limit int) ([]Business, int, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	offset := (page - 1) * limit

	query := `
		SELECT ` + businessColumns + `, COUNT(*) OVER() AS total
		FROM businesses
		WHERE LOWER(state) = LOWER($1)
		  AND LOWER(lga) = LOWER($2)
		  AND LOWER(town) = LOWER($3)
		  AND EXISTS (
			SELECT 1 FROM unnest(categories) AS c WHERE LOWER(c) = LOWER($4)
		  )
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6
	`

	rows, err := r.db.QueryContext(ctx, query, f.State, f.LGA, f.Town, f.Category, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []Business
	total := 0
	for rows.Next() {
		var b Business
		if err := rows.Scan(
			&b.ID, &b.OwnerID, &b.Name, &b.Slug, &b.Phone, pq.Array(&b.Categories),
			&b.State, &b.LGA, &b.Town, &b.Address, &b.StoreType, &b.Description,
			&b.CreatedAt, &b.UpdatedAt, &total,
		); err != nil {
			return nil, 0, err
		}
		results = append(results, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

func (r *BusinessRepository) scanOne(row *sql.Row) (*Business, error) {
	b := &Business{}
	err := row.Scan(
		&b.ID, &b.OwnerID, &b.Name, &b.Slug, &b.Phone, pq.Array(&b.Categories),
		&b.State, &b.LGA, &b.Town, &b.Address, &b.StoreType, &b.Description,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}
	return b, nil
}

func constraintContains(err error, substr string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && strings.Contains(pqErr.Constraint, substr)
}
