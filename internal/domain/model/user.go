package model

import (
	"strings"
	"time"

	"whatsapp-image-bot/internal/domain"
)

// User is a domain entity keyed by the sender's WhatsApp address
// (E.164 phone number, "whatsapp:+14155551234" form accepted).
// The credit balance is the only money-like state in the system.
type User struct {
	Address          string
	CreditsRemaining int
	CreatedAt        time.Time
	LastSeenAt       time.Time
}

// NormalizeAddress strips the channel prefix and whitespace so the same
// phone number always maps to the same ledger row.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.TrimPrefix(addr, "whatsapp:")
	return addr
}

func NewUser(address string, startingCredits int) (*User, error) {
	address = NormalizeAddress(address)
	if address == "" {
		return nil, domain.ErrInvalidArgument
	}
	if startingCredits < 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		Address:          address,
		CreditsRemaining: startingCredits,
		CreatedAt:        now,
		LastSeenAt:       now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.Address == "" }
func (u *User) Touch()       { u.LastSeenAt = time.Now() }
