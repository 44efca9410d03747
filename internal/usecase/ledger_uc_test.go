//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"whatsapp-image-bot/internal/domain"
	"whatsapp-image-bot/internal/usecase"
)

func TestLedgerUseCase_EnsureUser(t *testing.T) {
	ctx := context.Background()
	testLogger := newTestLogger()

	t.Run("should grant starting credits exactly once", func(t *testing.T) {
		repo := newMemUserRepo()
		uc := usecase.NewLedgerUseCase(repo, 3, testLogger)

		u1, err := uc.EnsureUser(ctx, "whatsapp:+14155551234")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if u1.CreditsRemaining != 3 {
			t.Errorf("expected 3 starting credits, got %d", u1.CreditsRemaining)
		}

		u2, err := uc.EnsureUser(ctx, "+14155551234")
		if err != nil {
			t.Fatalf("expected no error on second call, but got: %v", err)
		}
		if u2.CreditsRemaining != 3 {
			t.Errorf("expected balance unchanged on repeat, got %d", u2.CreditsRemaining)
		}
	})

	t.Run("concurrent first contact still grants once", func(t *testing.T) {
		repo := newMemUserRepo()
		uc := usecase.NewLedgerUseCase(repo, 3, testLogger)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := uc.EnsureUser(ctx, "+14155551234"); err != nil {
					t.Errorf("EnsureUser failed: %v", err)
				}
			}()
		}
		wg.Wait()

		if got := repo.balance("+14155551234"); got != 3 {
			t.Errorf("expected exactly one signup grant, balance is %d", got)
		}
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		repo := newMemUserRepo()
		repo.ensureErr = errors.New("connection refused")
		uc := usecase.NewLedgerUseCase(repo, 3, testLogger)

		if _, err := uc.EnsureUser(ctx, "+14155551234"); err == nil {
			t.Fatal("expected an error, but got nil")
		}
	})
}

func TestLedgerUseCase_Debit(t *testing.T) {
	ctx := context.Background()
	testLogger := newTestLogger()

	t.Run("should decrement and return the new balance", func(t *testing.T) {
		repo := newMemUserRepo()
		uc := usecase.NewLedgerUseCase(repo, 3, testLogger)
		if _, err := uc.EnsureUser(ctx, "+14155551234"); err != nil {
			t.Fatalf("EnsureUser failed: %v", err)
		}

		balance, err := uc.Debit(ctx, "+14155551234", 1)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if balance != 2 {
			t.Errorf("expected balance 2 after debit, got %d", balance)
		}
	})

	t.Run("should fail on insufficient credits without going negative", func(t *testing.T) {
		repo := newMemUserRepo()
		uc := usecase.NewLedgerUseCase(repo, 1, testLogger)
		if _, err := uc.EnsureUser(ctx, "+14155551234"); err != nil {
			t.Fatalf("EnsureUser failed: %v", err)
		}

		if _, err := uc.Debit(ctx, "+14155551234", 1); err != nil {
			t.Fatalf("first debit should succeed: %v", err)
		}
		_, err := uc.Debit(ctx, "+14155551234", 1)
		if !errors.Is(err, domain.ErrInsufficientCredits) {
			t.Fatalf("expected ErrInsufficientCredits, got %v", err)
		}
		if got := repo.balance("+14155551234"); got != 0 {
			t.Errorf("expected balance to stay at 0, got %d", got)
		}
	})

	t.Run("concurrent debits never exceed the balance", func(t *testing.T) {
		repo := newMemUserRepo()
		uc := usecase.NewLedgerUseCase(repo, 5, testLogger)
		if _, err := uc.EnsureUser(ctx, "+14155551234"); err != nil {
			t.Fatalf("EnsureUser failed: %v", err)
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := uc.Debit(ctx, "+14155551234", 1); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if succeeded != 5 {
			t.Errorf("expected exactly 5 debits to succeed, got %d", succeeded)
		}
		if got := repo.balance("+14155551234"); got != 0 {
			t.Errorf("expected final balance 0, got %d", got)
		}
	})
}

func TestLedgerUseCase_Credit(t *testing.T) {
	ctx := context.Background()
	testLogger := newTestLogger()

	t.Run("should add purchased credits to an existing user", func(t *testing.T) {
		repo := newMemUserRepo()
		uc := usecase.NewLedgerUseCase(repo, 3, testLogger)
		if _, err := uc.EnsureUser(ctx, "+14155551234"); err != nil {
			t.Fatalf("EnsureUser failed: %v", err)
		}

		balance, err := uc.Credit(ctx, "+14155551234", 10, "purchase")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if balance != 13 {
			t.Errorf("expected balance 13, got %d", balance)
		}
	})

	t.Run("should fail for an unknown address", func(t *testing.T) {
		repo := newMemUserRepo()
		uc := usecase.NewLedgerUseCase(repo, 3, testLogger)

		_, err := uc.Credit(ctx, "+10000000000", 10, "purchase")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestLedgerUseCase_HasCredits(t *testing.T) {
	ctx := context.Background()
	testLogger := newTestLogger()

	repo := newMemUserRepo()
	uc := usecase.NewLedgerUseCase(repo, 1, testLogger)
	if _, err := uc.EnsureUser(ctx, "+14155551234"); err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}

	ok, err := uc.HasCredits(ctx, "+14155551234")
	if err != nil || !ok {
		t.Fatalf("expected credits available, got ok=%v err=%v", ok, err)
	}

	if _, err := uc.Debit(ctx, "+14155551234", 1); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	ok, err = uc.HasCredits(ctx, "+14155551234")
	if err != nil || ok {
		t.Fatalf("expected no credits after spend, got ok=%v err=%v", ok, err)
	}
}
