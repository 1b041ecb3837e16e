package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"flash-resume/internal/adapter/repository"
	"flash-resume/internal/domain"
	"flash-resume/internal/usecase"
	"flash-resume/pkg/pix"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type memPayments struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*domain.Payment
	plans    map[string]*domain.CreditPlan
	credits  map[string]int
}

func newMemPayments() *memPayments {
	return &memPayments{
		payments: map[uuid.UUID]*domain.Payment{},
		plans:    map[string]*domain.CreditPlan{},
		credits:  map[string]int{},
	}
}

func (m *memPayments) Create(_ context.Context, p *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *memPayments) GetByID(_ context.Context, id uuid.UUID) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPayments) GetByProviderID(_ context.Context, providerID string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ProviderID == providerID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrPaymentNotFound
}

func (m *memPayments) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payments[id]; ok && p.Status == domain.PaymentPending {
		p.Status = status
	}
	return nil
}

func (m *memPayments) MarkPaidAndCredit(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return false, repository.ErrPaymentNotFound
	}
	if p.Status == domain.PaymentPaid {
		return false, nil
	}
	p.Status = domain.PaymentPaid
	m.credits[p.UserID] += p.CreditsPurchased
	return true, nil
}

func (m *memPayments) ActivePlans(context.Context) ([]domain.CreditPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CreditPlan
	for _, p := range m.plans {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memPayments) GetPlan(_ context.Context, id string) (*domain.CreditPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, repository.ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPayments) GetOrCreateBalance(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credits[userID], nil
}

type stubProvider struct{}

func (stubProvider) CreateQRCode(_ context.Context, _ int, _ string, expiresIn int) (*pix.QRCode, error) {
	exp := time.Now().Add(time.Duration(expiresIn) * time.Second)
	return &pix.QRCode{
		ID: "pix-1", Status: domain.PaymentPending,
		BRCode: "00020126brcode", BRCodeBase64: "aW1hZ2U=", ExpiresAt: &exp,
	}, nil
}

func (stubProvider) CheckStatus(context.Context, string) (string, error) {
	return domain.PaymentPending, nil
}

func (stubProvider) Simulate(context.Context, string) error { return nil }

const webhookSecret = "hook-secret"

func newPaymentApp(store *memPayments, publicKey string) *fiber.App {
	svc := usecase.NewPaymentService(store, store, stubProvider{}, publicKey, false, nil)
	app := fiber.New()
	NewPaymentHandler(svc, webhookSecret, nil).Register(app)
	return app
}

func paidWebhookBody(providerID string) []byte {
	b, _ := json.Marshal(map[string]interface{}{
		"event": "billing.paid",
		"data": map[string]interface{}{
			"pixQrCode": map[string]interface{}{"id": providerID},
		},
	})
	return b
}

func postWebhook(app *fiber.App, secret string, body []byte, signature string) (int, []byte) {
	req := httptest.NewRequest("POST", "/api/v1/payment/webhook?webhookSecret="+secret, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	resp, _ := app.Test(req, -1)
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func pendingPayment(store *memPayments, providerID string, credits int) *domain.Payment {
	p := &domain.Payment{
		ID: uuid.New(), UserID: "user-1", ProviderID: providerID,
		Status: domain.PaymentPending, CreditsPurchased: credits, AmountCents: 1000,
	}
	store.payments[p.ID] = p
	return p
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	store := newMemPayments()
	pendingPayment(store, "pix-1", 1)
	app := newPaymentApp(store, "")

	code, _ := postWebhook(app, "wrong", paidWebhookBody("pix-1"), "")
	if code != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", code)
	}
	if store.credits["user-1"] != 0 {
		t.Fatal("credits granted despite bad secret")
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	store := newMemPayments()
	pendingPayment(store, "pix-1", 1)
	app := newPaymentApp(store, "public-key")

	code, _ := postWebhook(app, webhookSecret, paidWebhookBody("pix-1"), "not-a-real-signature")
	if code != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", code)
	}
}

func TestWebhookAcceptsValidSignature(t *testing.T) {
	store := newMemPayments()
	pendingPayment(store, "pix-1", 2)
	app := newPaymentApp(store, "public-key")

	body := paidWebhookBody("pix-1")
	mac := hmac.New(sha256.New, []byte("public-key"))
	mac.Write(body)
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	code, data := postWebhook(app, webhookSecret, body, sig)
	if code != fiber.StatusOK {
		t.Fatalf("status = %d, want 200: %s", code, data)
	}
	if store.credits["user-1"] != 2 {
		t.Fatalf("credits = %d, want 2", store.credits["user-1"])
	}
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	store := newMemPayments()
	pendingPayment(store, "pix-1", 1)
	app := newPaymentApp(store, "")

	body, _ := json.Marshal(map[string]interface{}{"event": "billing.created"})
	code, data := postWebhook(app, webhookSecret, body, "")
	if code != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	var out struct {
		Processed bool `json:"processed"`
	}
	if err := json.Unmarshal(data, &out); err != nil || out.Processed {
		t.Fatalf("event should be acknowledged but not processed: %s", data)
	}
	if store.credits["user-1"] != 0 {
		t.Fatal("credits granted for ignored event")
	}
}

func TestWebhookReplayCreditsOnce(t *testing.T) {
	store := newMemPayments()
	pendingPayment(store, "pix-1", 3)
	app := newPaymentApp(store, "")

	for i := 0; i < 3; i++ {
		code, data := postWebhook(app, webhookSecret, paidWebhookBody("pix-1"), "")
		if code != fiber.StatusOK {
			t.Fatalf("delivery %d: status = %d: %s", i, code, data)
		}
	}
	if store.credits["user-1"] != 3 {
		t.Fatalf("credits = %d, want exactly 3", store.credits["user-1"])
	}
}

func TestWebhookUnknownPaymentAcknowledged(t *testing.T) {
	app := newPaymentApp(newMemPayments(), "")
	code, data := postWebhook(app, webhookSecret, paidWebhookBody("ghost"), "")
	if code != fiber.StatusOK {
		t.Fatalf("status = %d, want 200: %s", code, data)
	}
}

func TestCreatePayment(t *testing.T) {
	store := newMemPayments()
	plan := &domain.CreditPlan{ID: uuid.New(), Name: "Starter", CreditsAmount: 1, PriceCents: 1000, Active: true}
	store.plans[plan.ID.String()] = plan
	app := newPaymentApp(store, "")

	body, _ := json.Marshal(map[string]string{"plan_id": plan.ID.String()})
	req := httptest.NewRequest("POST", "/api/v1/payment/create", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	data, _ := io.ReadAll(resp.Body)
	var out domain.Payment
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if out.Status != domain.PaymentPending || out.BRCode == "" {
		t.Fatalf("unexpected payment: %s", data)
	}
}

func TestCreatePaymentUnknownPlan(t *testing.T) {
	app := newPaymentApp(newMemPayments(), "")
	body, _ := json.Marshal(map[string]string{"plan_id": uuid.NewString()})
	req := httptest.NewRequest("POST", "/api/v1/payment/create", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestPaymentStatusOwnerOnly(t *testing.T) {
	store := newMemPayments()
	p := pendingPayment(store, "pix-1", 1)
	app := newPaymentApp(store, "")

	req := httptest.NewRequest("GET", "/api/v1/payment/"+p.ID.String(), nil)
	req.Header.Set("X-User-ID", "someone-else")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/v1/payment/"+p.ID.String(), nil)
	req.Header.Set("X-User-ID", "user-1")
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestBalanceEndpoint(t *testing.T) {
	store := newMemPayments()
	store.credits["user-1"] = 5
	app := newPaymentApp(store, "")

	req := httptest.NewRequest("GET", "/api/v1/payment/balance", nil)
	req.Header.Set("X-User-ID", "user-1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	var out struct {
		Credits int `json:"credits"`
	}
	if err := json.Unmarshal(data, &out); err != nil || out.Credits != 5 {
		t.Fatalf("unexpected balance response: %s", data)
	}
}
