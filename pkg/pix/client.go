package pix

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const (
	// The provider rejects descriptions longer than 37 characters.
	descriptionLimit = 37

	createMaxTries = 3
	callTimeout    = 15 * time.Second
)

// ProviderError reports a PIX provider call that failed or timed out.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("pix %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// QRCode is the provider's view of one PIX charge.
type QRCode struct {
	ID           string
	Status       string
	BRCode       string
	BRCodeBase64 string
	ExpiresAt    *time.Time
}

// Client talks to an AbacatePay-style PIX API.
type Client struct {
	http    *resty.Client
	baseURL string
	apiKey  string
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		http:    resty.New(),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// CreateQRCode requests a new PIX charge. Transient failures are retried
// with exponential backoff (1s, 2s); after the final attempt the last
// error surfaces as a terminal ProviderError.
func (c *Client) CreateQRCode(ctx context.Context, amountCents int, description string, expiresIn int) (*QRCode, error) {
	if len(description) > descriptionLimit {
		description = description[:descriptionLimit]
	}

	var lastErr error
	for attempt := 1; attempt <= createMaxTries; attempt++ {
		qr, err := c.create(ctx, amountCents, description, expiresIn)
		if err == nil {
			return qr, nil
		}
		lastErr = err

		if attempt < createMaxTries {
			select {
			case <-time.After(time.Duration(1<<(attempt-1)) * time.Second):
			case <-ctx.Done():
				return nil, &ProviderError{Op: "create", Err: ctx.Err()}
			}
		}
	}
	return nil, &ProviderError{Op: "create", Err: fmt.Errorf("failed after %d attempts: %w", createMaxTries, lastErr)}
}

func (c *Client) create(ctx context.Context, amountCents int, description string, expiresIn int) (*QRCode, error) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(callCtx).
		SetAuthToken(c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"amount":      amountCents,
			"description": description,
			"expiresIn":   expiresIn,
		}).
		Post(c.baseURL + "/pixQrCode/create")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode(), resp.String())
	}

	data := gjson.GetBytes(resp.Body(), "data")
	qr := &QRCode{
		ID:           data.Get("id").String(),
		Status:       data.Get("status").String(),
		BRCode:       data.Get("brCode").String(),
		BRCodeBase64: data.Get("brCodeBase64").String(),
	}
	if qr.ID == "" {
		return nil, fmt.Errorf("provider response missing charge id")
	}
	if raw := data.Get("expiresAt").String(); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			qr.ExpiresAt = &t
		}
	}
	return qr, nil
}

// CheckStatus asks the provider for the current status of a charge.
func (c *Client) CheckStatus(ctx context.Context, providerID string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(callCtx).
		SetAuthToken(c.apiKey).
		SetQueryParam("id", providerID).
		Get(c.baseURL + "/pixQrCode/check")
	if err != nil {
		return "", &ProviderError{Op: "check", Err: err}
	}
	if resp.StatusCode() != 200 {
		return "", &ProviderError{Op: "check", Err: fmt.Errorf("provider returned %d", resp.StatusCode())}
	}

	status := gjson.GetBytes(resp.Body(), "data.status").String()
	if status == "" {
		return "", &ProviderError{Op: "check", Err: fmt.Errorf("provider response missing status")}
	}
	return status, nil
}

// Simulate settles a pending charge in the provider's sandbox.
func (c *Client) Simulate(ctx context.Context, providerID string) error {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(callCtx).
		SetAuthToken(c.apiKey).
		SetQueryParam("id", providerID).
		Post(c.baseURL + "/pixQrCode/simulate-payment")
	if err != nil {
		return &ProviderError{Op: "simulate", Err: err}
	}
	if resp.StatusCode() != 200 {
		return &ProviderError{Op: "simulate", Err: fmt.Errorf("provider returned %d", resp.StatusCode())}
	}
	return nil
}
