package http

import (
	"errors"
	"log/slog"

	"flash-resume/internal/adapter/repository"
	"flash-resume/internal/usecase"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// PaymentHandler serves the credit purchase endpoints and the provider
// webhook.
type PaymentHandler struct {
	svc           *usecase.PaymentService
	webhookSecret string
	logger        *slog.Logger
}

func NewPaymentHandler(svc *usecase.PaymentService, webhookSecret string, logger *slog.Logger) *PaymentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentHandler{svc: svc, webhookSecret: webhookSecret, logger: logger}
}

// Register mounts the payment routes. Fixed paths come before the
// :paymentID route so they are not captured as path parameters.
func (h *PaymentHandler) Register(app *fiber.App) {
	p := app.Group("/api/v1/payment")
	p.Get("/plans", h.Plans)
	p.Get("/balance", h.BalanceOf)
	p.Post("/create", h.Create)
	p.Post("/webhook", h.Webhook)
	p.Get("/:paymentID", h.Status)
}

func (h *PaymentHandler) Plans(c *fiber.Ctx) error {
	plans, err := h.svc.Plans(c.Context())
	if err != nil {
		h.logger.Error("list plans failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(plans)
}

func (h *PaymentHandler) BalanceOf(c *fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing X-User-ID header"})
	}

	credits, err := h.svc.Balance(c.Context(), userID)
	if err != nil {
		h.logger.Error("balance lookup failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{"credits": credits})
}

type createPaymentReq struct {
	PlanID string `json:"plan_id"`
}

// Create opens a PIX charge for a credit plan.
func (h *PaymentHandler) Create(c *fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing X-User-ID header"})
	}

	var req createPaymentReq
	if err := c.BodyParser(&req); err != nil || req.PlanID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "plan_id is required"})
	}

	payment, err := h.svc.CreatePixPayment(c.Context(), userID, req.PlanID)
	if errors.Is(err, repository.ErrPlanNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "credit plan not found"})
	}
	if err != nil {
		h.logger.Error("payment creation failed", "user_id", userID, "plan_id", req.PlanID, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "failed to create PIX charge"})
	}

	return c.Status(fiber.StatusCreated).JSON(payment)
}

// Status polls the payment, reconciling against the provider when it
// is still pending. Only the buyer may read it.
func (h *PaymentHandler) Status(c *fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing X-User-ID header"})
	}

	id, err := uuid.Parse(c.Params("paymentID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payment id"})
	}

	payment, err := h.svc.CheckStatus(c.Context(), id)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "payment not found"})
	}
	if err != nil {
		h.logger.Error("payment status check failed", "payment_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	if payment.UserID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
	}

	return c.JSON(fiber.Map{
		"id":                payment.ID,
		"status":            payment.Status,
		"credits_purchased": payment.CreditsPurchased,
		"expires_at":        payment.ExpiresAt,
	})
}

// Webhook receives provider notifications. The shared secret rides in
// the query string; the HMAC signature covers the raw body. Only
// billing.paid settles a payment, everything else is acknowledged and
// ignored.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	if c.Query("webhookSecret") != h.webhookSecret {
		h.logger.Warn("webhook with invalid secret")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid webhook secret"})
	}

	body := c.Body()
	if signature := c.Get("X-Webhook-Signature"); signature != "" && !h.svc.VerifySignature(body, signature) {
		h.logger.Warn("webhook with invalid signature")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid webhook signature"})
	}

	if !gjson.ValidBytes(body) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON payload"})
	}

	event := gjson.GetBytes(body, "event").String()
	if event != "billing.paid" {
		h.logger.Info("ignoring webhook event", "event", event)
		return c.JSON(fiber.Map{"received": true, "processed": false})
	}

	providerID := gjson.GetBytes(body, "data.pixQrCode.id").String()
	if providerID == "" {
		h.logger.Warn("webhook missing pixQrCode.id")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing payment id"})
	}

	payment, err := h.svc.HandleWebhook(c.Context(), providerID)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		h.logger.Warn("webhook for unknown payment", "provider_id", providerID)
		return c.JSON(fiber.Map{"received": true, "processed": false, "error": "payment not found"})
	}
	if err != nil {
		h.logger.Error("webhook processing failed", "provider_id", providerID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.JSON(fiber.Map{"received": true, "processed": true, "payment_id": payment.ID})
}
