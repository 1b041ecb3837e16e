package domain

import (
	"time"

	"github.com/google/uuid"
)

// Payment statuses mirror the provider's billing states.
const (
	PaymentPending   = "PENDING"
	PaymentPaid      = "PAID"
	PaymentExpired   = "EXPIRED"
	PaymentCancelled = "CANCELLED"
)

// Payment is one purchase of credits through the PIX provider. Credits
// are added to the owner's balance exactly once, at the transition into
// PAID.
type Payment struct {
	ID               uuid.UUID  `json:"id"`
	UserID           string     `json:"user_id"`
	ProviderID       string     `json:"provider_id"`
	AmountCents      int        `json:"amount_cents"`
	CreditsPurchased int        `json:"credits_purchased"`
	Status           string     `json:"status"`
	BRCode           string     `json:"br_code"`
	BRCodeBase64     string     `json:"br_code_base64"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
}

// CreditPlan is a purchasable credit bundle.
type CreditPlan struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	CreditsAmount int       `json:"credits_amount"`
	PriceCents    int       `json:"price_brl_cents"`
	Active        bool      `json:"is_active"`
}
