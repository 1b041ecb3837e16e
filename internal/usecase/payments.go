package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"flash-resume/internal/domain"
	"flash-resume/pkg/pix"

	"github.com/google/uuid"
)

const (
	chargeExpirySeconds = 3600
	descriptionFormat   = "%d credit(s) for Flash Resume"
)

// PaymentStore persists payments and credit plans.
type PaymentStore interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByProviderID(ctx context.Context, providerID string) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	MarkPaidAndCredit(ctx context.Context, id uuid.UUID) (bool, error)
	ActivePlans(ctx context.Context) ([]domain.CreditPlan, error)
	GetPlan(ctx context.Context, id string) (*domain.CreditPlan, error)
}

// CreditBalance reads a user's spendable credits.
type CreditBalance interface {
	GetOrCreateBalance(ctx context.Context, userID string) (int, error)
}

// PixProvider is the external PIX charge API.
type PixProvider interface {
	CreateQRCode(ctx context.Context, amountCents int, description string, expiresIn int) (*pix.QRCode, error)
	CheckStatus(ctx context.Context, providerID string) (string, error)
	Simulate(ctx context.Context, providerID string) error
}

// PaymentService sells credit plans over PIX and reconciles charge
// state from both webhooks and client-driven polling.
type PaymentService struct {
	payments  PaymentStore
	ledger    CreditBalance
	provider  PixProvider
	publicKey string
	dev       bool
	logger    *slog.Logger
}

func NewPaymentService(payments PaymentStore, ledger CreditBalance, provider PixProvider,
	publicKey string, dev bool, logger *slog.Logger) *PaymentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentService{
		payments:  payments,
		ledger:    ledger,
		provider:  provider,
		publicKey: publicKey,
		dev:       dev,
		logger:    logger,
	}
}

func (s *PaymentService) Plans(ctx context.Context) ([]domain.CreditPlan, error) {
	return s.payments.ActivePlans(ctx)
}

func (s *PaymentService) Balance(ctx context.Context, userID string) (int, error) {
	return s.ledger.GetOrCreateBalance(ctx, userID)
}

// CreatePixPayment creates a PIX charge for the plan and records it as
// pending. In dev mode the charge is settled immediately through the
// provider sandbox so the purchase flow can be exercised end to end.
func (s *PaymentService) CreatePixPayment(ctx context.Context, userID, planID string) (*domain.Payment, error) {
	plan, err := s.payments.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf(descriptionFormat, plan.CreditsAmount)
	qr, err := s.provider.CreateQRCode(ctx, plan.PriceCents, description, chargeExpirySeconds)
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		ID:               uuid.New(),
		UserID:           userID,
		ProviderID:       qr.ID,
		AmountCents:      plan.PriceCents,
		CreditsPurchased: plan.CreditsAmount,
		Status:           domain.PaymentPending,
		BRCode:           qr.BRCode,
		BRCodeBase64:     qr.BRCodeBase64,
		CreatedAt:        time.Now().UTC(),
		ExpiresAt:        qr.ExpiresAt,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.Info("payment created", "payment_id", payment.ID, "user_id", userID,
		"amount_cents", plan.PriceCents, "credits", plan.CreditsAmount)

	if s.dev {
		if _, err := s.SimulatePayment(ctx, qr.ID); err != nil {
			s.logger.Warn("dev payment simulation failed", "payment_id", payment.ID, "error", err)
		}
	}

	return payment, nil
}

// CheckStatus returns the payment's current state, consulting the
// provider when it is still pending. Provider failures fall back to the
// locally stored state so a flaky provider never blocks the client. A
// paid answer settles credits through the same guarded path as the
// webhook, so polling and webhook delivery can race safely.
func (s *PaymentService) CheckStatus(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status == domain.PaymentPaid {
		return payment, nil
	}

	status, err := s.provider.CheckStatus(ctx, payment.ProviderID)
	if err != nil {
		s.logger.Warn("provider status check failed, returning stored state",
			"payment_id", id, "error", err)
		return payment, nil
	}

	switch status {
	case domain.PaymentPaid:
		credited, err := s.payments.MarkPaidAndCredit(ctx, id)
		if err != nil {
			return nil, err
		}
		if credited {
			s.logger.Info("payment settled via polling", "payment_id", id,
				"credits", payment.CreditsPurchased)
		}
	case domain.PaymentExpired, domain.PaymentCancelled:
		if err := s.payments.UpdateStatus(ctx, id, status); err != nil {
			return nil, err
		}
	}

	return s.payments.GetByID(ctx, id)
}

// HandleWebhook settles the charge named by the provider id. Replayed
// deliveries are acknowledged without crediting twice.
func (s *PaymentService) HandleWebhook(ctx context.Context, providerID string) (*domain.Payment, error) {
	payment, err := s.payments.GetByProviderID(ctx, providerID)
	if err != nil {
		return nil, err
	}

	credited, err := s.payments.MarkPaidAndCredit(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	if !credited {
		s.logger.Info("webhook replay ignored", "payment_id", payment.ID)
		return s.payments.GetByID(ctx, payment.ID)
	}

	s.logger.Info("webhook settled payment", "payment_id", payment.ID,
		"user_id", payment.UserID, "credits", payment.CreditsPurchased)
	return s.payments.GetByID(ctx, payment.ID)
}

// SimulatePayment settles a charge through the provider sandbox and
// credits the buyer. Only available in dev mode.
func (s *PaymentService) SimulatePayment(ctx context.Context, providerID string) (*domain.Payment, error) {
	if !s.dev {
		return nil, fmt.Errorf("payment simulation is only available in dev mode")
	}

	if err := s.provider.Simulate(ctx, providerID); err != nil {
		return nil, err
	}
	return s.HandleWebhook(ctx, providerID)
}

// VerifySignature checks the webhook HMAC-SHA256 signature against the
// raw request body. When no public key is configured, verification is
// skipped with a warning so local setups still receive webhooks.
func (s *PaymentService) VerifySignature(rawBody []byte, signature string) bool {
	if s.publicKey == "" {
		s.logger.Warn("webhook public key not configured, skipping signature verification")
		return true
	}

	mac := hmac.New(sha256.New, []byte(s.publicKey))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
