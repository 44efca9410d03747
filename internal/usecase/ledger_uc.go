// File: internal/usecase/ledger_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"whatsapp-image-bot/internal/domain/model"
	"whatsapp-image-bot/internal/domain/ports/repository"
	"whatsapp-image-bot/internal/infra/logging"
	"whatsapp-image-bot/internal/infra/metrics"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// LedgerUseCase exposes the credit ledger operations used by the pipeline
// and by the purchase-webhook collaborator.
type LedgerUseCase interface {
	// EnsureUser is idempotent get-or-create; creation grants the starting
	// free credits exactly once per address.
	EnsureUser(ctx context.Context, address string) (*model.User, error)
	HasCredits(ctx context.Context, address string) (bool, error)
	Balance(ctx context.Context, address string) (int, error)
	// Debit fails with domain.ErrInsufficientCredits; never drives the
	// balance negative.
	Debit(ctx context.Context, address string, amount int) (int, error)
	// Credit is called by the payment collaborator; source labels metrics.
	Credit(ctx context.Context, address string, amount int, source string) (int, error)
}

type ledgerUC struct {
	users         repository.UserRepository
	startingGrant int
	log           *zerolog.Logger
}

func NewLedgerUseCase(users repository.UserRepository, startingGrant int, logger *zerolog.Logger) *ledgerUC {
	return &ledgerUC{users: users, startingGrant: startingGrant, log: logger}
}

func (l *ledgerUC) EnsureUser(ctx context.Context, address string) (*model.User, error) {
	defer logging.TraceDuration(l.log, "LedgerUC.EnsureUser")()

	u, created, err := l.users.EnsureUser(ctx, address, l.startingGrant)
	if err != nil {
		return nil, err
	}
	if created {
		metrics.AddCreditsGranted("signup", l.startingGrant)
		l.log.Info().Int("starting_credits", l.startingGrant).Msg("user created")
	}
	// Best effort; losing a last-seen update is harmless.
	_ = l.users.Touch(ctx, u.Address)
	return u, nil
}

func (l *ledgerUC) HasCredits(ctx context.Context, address string) (bool, error) {
	u, err := l.users.FindByAddress(ctx, address)
	if err != nil {
		return false, err
	}
	return u.CreditsRemaining > 0, nil
}

func (l *ledgerUC) Balance(ctx context.Context, address string) (int, error) {
	u, err := l.users.FindByAddress(ctx, address)
	if err != nil {
		return 0, err
	}
	return u.CreditsRemaining, nil
}

func (l *ledgerUC) Debit(ctx context.Context, address string, amount int) (int, error) {
	defer logging.TraceDuration(l.log, "LedgerUC.Debit")()

	balance, err := l.users.Debit(ctx, address, amount)
	if err != nil {
		return 0, err
	}
	metrics.AddCreditsSpent(amount)
	return balance, nil
}

func (l *ledgerUC) Credit(ctx context.Context, address string, amount int, source string) (int, error) {
	defer logging.TraceDuration(l.log, "LedgerUC.Credit")()

	balance, err := l.users.Credit(ctx, address, amount)
	if err != nil {
		return 0, err
	}
	metrics.AddCreditsGranted(source, amount)
	l.log.Info().Int("amount", amount).Int("balance", balance).Str("source", source).Msg("credits added")
	return balance, nil
}
