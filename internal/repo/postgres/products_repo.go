package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shoplite/shoplite-api/internal/domain"
)

type ProductsRepo interface {
	Create(ctx context.Context, name string, price int64, inventory int) (*domain.Product, error)
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, limit, offset int) ([]domain.Product, error)
	Update(ctx context.Context, id int64, name string, price int64) (*domain.Product, error)
	// SetInventory overwrites the stock count. Returns nil if the product
	// does not exist.
	SetInventory(ctx context.Context, id int64, inventory int) (*domain.Product, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type ProductsRepoImpl struct{ pool *pgxpool.Pool }

func NewProductsRepo(pool *pgxpool.Pool) *ProductsRepoImpl { return &ProductsRepoImpl{pool: pool} }

const productCols = `id, name, price, inventory, created_at, updated_at`

func (r *ProductsRepoImpl) Create(ctx context.Context, name string, price int64, inventory int) (*domain.Product, error) {
	const q = `
INSERT INTO products (name, price, inventory)
VALUES ($1,$2,$3)
RETURNING ` + productCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.Product
	if err := r.pool.QueryRow(ctx, q, name, price, inventory).Scan(
		&p.ID, &p.Name, &p.Price, &p.Inventory, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductsRepoImpl) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	const q = `SELECT ` + productCols + ` FROM products WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.Product
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&p.ID, &p.Name, &p.Price, &p.Inventory, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductsRepoImpl) List(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + productCols + ` FROM products ORDER BY id LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ps := make([]domain.Product, 0, limit)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Inventory, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return ps, rows.Err()
}

func (r *ProductsRepoImpl) Update(ctx context.Context, id int64, name string, price int64) (*domain.Product, error) {
	const q = `
UPDATE products SET name=$1, price=$2, updated_at=now()
WHERE id=$3
RETURNING ` + productCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.Product
	err := r.pool.QueryRow(ctx, q, name, price, id).Scan(
		&p.ID, &p.Name, &p.Price, &p.Inventory, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductsRepoImpl) SetInventory(ctx context.Context, id int64, inventory int) (*domain.Product, error) {
	const q = `
UPDATE products SET inventory=$1, updated_at=now()
WHERE id=$2
RETURNING ` + productCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.Product
	err := r.pool.QueryRow(ctx, q, inventory, id).Scan(
		&p.ID, &p.Name, &p.Price, &p.Inventory, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductsRepoImpl) Delete(ctx context.Context, id int64) (bool, error) {
	const q = `DELETE FROM products WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

var _ ProductsRepo = (*ProductsRepoImpl)(nil)
