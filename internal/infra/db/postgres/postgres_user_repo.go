package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"whatsapp-image-bot/internal/domain"
	"whatsapp-image-bot/internal/domain/model"
	"whatsapp-image-bot/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

// PostgresUserRepo persists users and their credit balances.
//
// Every balance mutation is a single conditional UPDATE, so row-level locking
// in Postgres provides the read-modify-write atomicity the ledger needs; no
// explicit transactions or advisory locks are required.
//
// Schema:
//
//	CREATE TABLE users (
//	    address            TEXT PRIMARY KEY,
//	    credits_remaining  INT  NOT NULL CHECK (credits_remaining >= 0),
//	    created_at         TIMESTAMPTZ NOT NULL,
//	    last_seen_at       TIMESTAMPTZ NOT NULL
//	);
type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

// EnsureUser inserts on first contact and returns the stored row either way.
// ON CONFLICT DO NOTHING serializes concurrent first contacts inside
// Postgres: exactly one insert wins, so the starting grant happens once.
func (r *PostgresUserRepo) EnsureUser(ctx context.Context, address string, startingCredits int) (*model.User, bool, error) {
	nu, err := model.NewUser(address, startingCredits)
	if err != nil {
		return nil, false, err
	}

	const ins = `
INSERT INTO users (address, credits_remaining, created_at, last_seen_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (address) DO NOTHING;
`
	tag, err := r.pool.Exec(ctx, ins, nu.Address, nu.CreditsRemaining, nu.CreatedAt, nu.LastSeenAt)
	if err != nil {
		return nil, false, fmt.Errorf("ensure user: %w", err)
	}
	created := tag.RowsAffected() == 1
	u, err := r.FindByAddress(ctx, nu.Address)
	return u, created, err
}

func (r *PostgresUserRepo) FindByAddress(ctx context.Context, address string) (*model.User, error) {
	const q = `
SELECT address, credits_remaining, created_at, last_seen_at
  FROM users WHERE address = $1;
`
	row := r.pool.QueryRow(ctx, q, model.NormalizeAddress(address))
	var u model.User
	if err := row.Scan(&u.Address, &u.CreditsRemaining, &u.CreatedAt, &u.LastSeenAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Debit decrements only when the balance covers the amount; a concurrent
// debit that would overdraw simply matches zero rows.
func (r *PostgresUserRepo) Debit(ctx context.Context, address string, amount int) (int, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	const q = `
UPDATE users
   SET credits_remaining = credits_remaining - $2
 WHERE address = $1 AND credits_remaining >= $2
RETURNING credits_remaining;
`
	row := r.pool.QueryRow(ctx, q, model.NormalizeAddress(address), amount)
	var balance int
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either no such user or not enough credits; disambiguate for
			// the caller since the ledger treats these differently.
			if _, ferr := r.FindByAddress(ctx, address); ferr != nil {
				return 0, ferr
			}
			return 0, domain.ErrInsufficientCredits
		}
		return 0, fmt.Errorf("debit: %w", err)
	}
	return balance, nil
}

func (r *PostgresUserRepo) Credit(ctx context.Context, address string, amount int) (int, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	const q = `
UPDATE users
   SET credits_remaining = credits_remaining + $2
 WHERE address = $1
RETURNING credits_remaining;
`
	row := r.pool.QueryRow(ctx, q, model.NormalizeAddress(address), amount)
	var balance int
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("credit: %w", err)
	}
	return balance, nil
}

func (r *PostgresUserRepo) Touch(ctx context.Context, address string) error {
	const q = `UPDATE users SET last_seen_at = now() WHERE address = $1;`
	tag, err := r.pool.Exec(ctx, q, model.NormalizeAddress(address))
	if err != nil {
		return err
	}
	return rowsAffectedErr(tag)
}

func rowsAffectedErr(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
