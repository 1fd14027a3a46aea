package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shoplite/shoplite-api/internal/domain"
)

type OrdersRepo interface {
	// CreateWithItems validates and decrements inventory for every item and
	// persists the order in a single transaction. Either the whole order lands
	// with its inventory decrements or nothing does.
	CreateWithItems(ctx context.Context, userID int64, req *domain.CreateOrderRequest) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	List(ctx context.Context, limit, offset int) ([]domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]domain.Order, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status domain.OrderStatus) (int64, error)
	// UpdateStatus sets a new status; a transition into cancelled restores
	// each item's inventory inside the same transaction. Returns nil if the
	// order does not exist.
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
	// CancelPending cancels an order only while it is still pending and
	// restores inventory. Returns false when the status guard fails.
	CancelPending(ctx context.Context, id int64) (bool, error)
}

type OrdersRepoImpl struct{ pool *pgxpool.Pool }

func NewOrdersRepo(pool *pgxpool.Pool) *OrdersRepoImpl { return &OrdersRepoImpl{pool: pool} }

const orderCols = `o.id, o.user_id, o.street, o.city, o.state, o.zip_code, o.country,
o.total_amount, o.status, o.payment_method, o.notes, o.created_at, o.updated_at`

func (r *OrdersRepoImpl) CreateWithItems(ctx context.Context, userID int64, req *domain.CreateOrderRequest) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var (
		total int64
		items = make([]domain.OrderItem, 0, len(req.Items))
	)

	// Lock every product row up front so the check and the decrement see the
	// same inventory, and a mid-loop failure rolls everything back.
	for _, it := range req.Items {
		var (
			name      string
			price     int64
			inventory int
		)
		err := tx.QueryRow(ctx,
			`SELECT name, price, inventory FROM products WHERE id=$1 FOR UPDATE`,
			it.ProductID,
		).Scan(&name, &price, &inventory)
		if err == pgx.ErrNoRows {
			return nil, domain.Errorf(domain.KindNotFound, "Product not found: %d", it.ProductID)
		}
		if err != nil {
			return nil, err
		}

		if inventory < it.Quantity {
			return nil, domain.Errorf(domain.KindInvalid, "Insufficient inventory for product: %s", name)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE products SET inventory = inventory - $1, updated_at = now() WHERE id=$2`,
			it.Quantity, it.ProductID,
		); err != nil {
			return nil, err
		}

		total += price * int64(it.Quantity)
		items = append(items, domain.OrderItem{
			ProductID: it.ProductID,
			Name:      name,
			Price:     price,
			Quantity:  it.Quantity,
		})
	}

	o := &domain.Order{
		UserID:          userID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		TotalAmount:     total,
		Status:          domain.OrderPending,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	}

	err = tx.QueryRow(ctx, `
INSERT INTO orders (user_id, street, city, state, zip_code, country, total_amount, status, payment_method, notes)
VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',$8,$9)
RETURNING id, created_at, updated_at`,
		userID,
		req.ShippingAddress.Street, req.ShippingAddress.City, req.ShippingAddress.State,
		req.ShippingAddress.ZipCode, req.ShippingAddress.Country,
		total, req.PaymentMethod, req.Notes,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	for _, it := range items {
		if _, err := tx.Exec(ctx, `
INSERT INTO order_items (order_id, product_id, name, price, quantity)
VALUES ($1,$2,$3,$4,$5)`,
			o.ID, it.ProductID, it.Name, it.Price, it.Quantity,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrdersRepoImpl) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	const q = `
SELECT ` + orderCols + `, u.name, u.email, u.phone
FROM orders o
JOIN users u ON u.id = o.user_id
WHERE o.id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		o    domain.Order
		info domain.UserInfo
	)
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&o.ID, &o.UserID,
		&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
		&o.ShippingAddress.ZipCode, &o.ShippingAddress.Country,
		&o.TotalAmount, &o.Status, &o.PaymentMethod, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
		&info.Name, &info.Email, &info.Phone,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	info.ID = o.UserID
	o.User = &info

	items, err := r.loadItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *OrdersRepoImpl) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	const q = `
SELECT ` + orderCols + `
FROM orders o
WHERE o.user_id=$1
ORDER BY o.created_at DESC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	os, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}
	return r.attachItems(ctx, os)
}

func (r *OrdersRepoImpl) List(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	const q = `
SELECT ` + orderCols + `, u.name, u.email, u.phone
FROM orders o
JOIN users u ON u.id = o.user_id
ORDER BY o.created_at DESC
LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	os, err := scanOrdersWithUser(rows)
	if err != nil {
		return nil, err
	}
	return r.attachItems(ctx, os)
}

func (r *OrdersRepoImpl) ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]domain.Order, error) {
	const q = `
SELECT ` + orderCols + `, u.name, u.email, u.phone
FROM orders o
JOIN users u ON u.id = o.user_id
WHERE o.status=$1
ORDER BY o.created_at DESC
LIMIT $2 OFFSET $3`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	os, err := scanOrdersWithUser(rows)
	if err != nil {
		return nil, err
	}
	return r.attachItems(ctx, os)
}

func (r *OrdersRepoImpl) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&n)
	return n, err
}

func (r *OrdersRepoImpl) CountByStatus(ctx context.Context, status domain.OrderStatus) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE status=$1`, status).Scan(&n)
	return n, err
}

func (r *OrdersRepoImpl) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var current domain.OrderStatus
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&current)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// Entering cancelled restores inventory; an already-cancelled order is
	// never restored twice.
	if status == domain.OrderCancelled && current != domain.OrderCancelled {
		if err := restoreInventoryTx(ctx, tx, id); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE orders SET status=$1, updated_at=now() WHERE id=$2`, status, id,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *OrdersRepoImpl) CancelPending(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx,
		`UPDATE orders SET status='cancelled', updated_at=now() WHERE id=$1 AND status='pending'`, id)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		return false, nil
	}

	if err := restoreInventoryTx(ctx, tx, id); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func restoreInventoryTx(ctx context.Context, tx pgx.Tx, orderID int64) error {
	_, err := tx.Exec(ctx, `
UPDATE products p
SET inventory = p.inventory + oi.quantity, updated_at = now()
FROM order_items oi
WHERE oi.order_id = $1 AND oi.product_id = p.id`, orderID)
	return err
}

func (r *OrdersRepoImpl) loadItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, name, price, quantity FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Price, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *OrdersRepoImpl) attachItems(ctx context.Context, os []domain.Order) ([]domain.Order, error) {
	for i := range os {
		items, err := r.loadItems(ctx, os[i].ID)
		if err != nil {
			return nil, err
		}
		os[i].Items = items
	}
	return os, nil
}

func scanOrders(rows pgx.Rows) ([]domain.Order, error) {
	var os []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID, &o.UserID,
			&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
			&o.ShippingAddress.ZipCode, &o.ShippingAddress.Country,
			&o.TotalAmount, &o.Status, &o.PaymentMethod, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		os = append(os, o)
	}
	return os, rows.Err()
}

func scanOrdersWithUser(rows pgx.Rows) ([]domain.Order, error) {
	var os []domain.Order
	for rows.Next() {
		var (
			o    domain.Order
			info domain.UserInfo
		)
		if err := rows.Scan(
			&o.ID, &o.UserID,
			&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
			&o.ShippingAddress.ZipCode, &o.ShippingAddress.Country,
			&o.TotalAmount, &o.Status, &o.PaymentMethod, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
			&info.Name, &info.Email, &info.Phone,
		); err != nil {
			return nil, err
		}
		info.ID = o.UserID
		o.User = &info
		os = append(os, o)
	}
	return os, rows.Err()
}

var _ OrdersRepo = (*OrdersRepoImpl)(nil)
