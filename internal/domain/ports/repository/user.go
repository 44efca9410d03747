package repository

import (
	"context"

	"whatsapp-image-bot/internal/domain/model"
)

// UserRepository is the persistence port for the credit ledger. All balance
// mutations must be atomic read-modify-writes: no lost updates, never
// negative.
type UserRepository interface {
	// EnsureUser is an idempotent get-or-create. Creation grants
	// startingCredits exactly once per address, even under concurrent
	// first contact. The second return reports whether this call created
	// the row.
	EnsureUser(ctx context.Context, address string, startingCredits int) (*model.User, bool, error)

	FindByAddress(ctx context.Context, address string) (*model.User, error)

	// Debit atomically decrements the balance and returns the new value.
	// Returns domain.ErrInsufficientCredits when the balance is short.
	Debit(ctx context.Context, address string, amount int) (int, error)

	// Credit atomically increments the balance and returns the new value.
	// Returns domain.ErrNotFound for an unknown address.
	Credit(ctx context.Context, address string, amount int) (int, error)

	Touch(ctx context.Context, address string) error
}
