package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shoplite/shoplite-api/internal/domain"
)

// OTPRepo stores registration codes. Codes are kept bcrypt-hashed; the most
// recent record per email is the one checked at registration.
type OTPRepo interface {
	Create(ctx context.Context, email, codeHash string, expiresAt time.Time) error
	FindLatestByEmail(ctx context.Context, email string) (*domain.OTP, error)
	// Delete consumes a record after successful registration.
	Delete(ctx context.Context, id int64) error
	// DeleteExpired purges stale records (maintenance loop).
	DeleteExpired(ctx context.Context) (int64, error)
}

type OTPRepoImpl struct{ pool *pgxpool.Pool }

func NewOTPRepo(pool *pgxpool.Pool) *OTPRepoImpl { return &OTPRepoImpl{pool: pool} }

func (r *OTPRepoImpl) Create(ctx context.Context, email, codeHash string, expiresAt time.Time) error {
	const q = `
INSERT INTO otps (email, code_hash, expires_at)
VALUES ($1,$2,$3)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, email, codeHash, expiresAt)
	return err
}

func (r *OTPRepoImpl) FindLatestByEmail(ctx context.Context, email string) (*domain.OTP, error) {
	const q = `
SELECT id, email, code_hash, expires_at, created_at
FROM otps
WHERE lower(email)=lower($1)
ORDER BY id DESC
LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var o domain.OTP
	err := r.pool.QueryRow(ctx, q, email).Scan(&o.ID, &o.Email, &o.CodeHash, &o.ExpiresAt, &o.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OTPRepoImpl) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM otps WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id)
	return err
}

func (r *OTPRepoImpl) DeleteExpired(ctx context.Context) (int64, error) {
	const q = `DELETE FROM otps WHERE expires_at < now()`
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ OTPRepo = (*OTPRepoImpl)(nil)
