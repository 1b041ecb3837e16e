// Package http exposes the REST surface over fiber.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"flash-resume/internal/adapter/repository"
	"flash-resume/internal/domain"
	"flash-resume/internal/queue"
	"flash-resume/internal/render"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

// JobStore is the slice of the job repository the handlers need.
type JobStore interface {
	Create(ctx context.Context, j *domain.ResumeJob) error
	Get(ctx context.Context, id uuid.UUID) (*domain.ResumeJob, error)
	ListCompletedByUser(ctx context.Context, userID string) ([]*domain.ResumeJob, error)
}

// Enqueuer hands accepted jobs to the background queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload *queue.TaskPayload) error
}

// Balance reads a user's spendable credits.
type Balance interface {
	GetOrCreateBalance(ctx context.Context, userID string) (int, error)
}

// Handler serves the resume endpoints.
type Handler struct {
	jobs   JobStore
	ledger Balance
	queue  Enqueuer
	logger *slog.Logger

	defaultLanguage        string
	experimentalJobDetails bool
}

func NewHandler(jobs JobStore, ledger Balance, q Enqueuer, defaultLanguage string,
	experimentalJobDetails bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		jobs:                   jobs,
		ledger:                 ledger,
		queue:                  q,
		logger:                 logger,
		defaultLanguage:        defaultLanguage,
		experimentalJobDetails: experimentalJobDetails,
	}
}

// Register mounts the resume routes. my-resumes is registered before
// the :jobID route so it is not captured as a path parameter.
func (h *Handler) Register(app *fiber.App) {
	r := app.Group("/api/v1/resume")
	r.Post("/generate", h.Generate)
	r.Get("/my-resumes", h.MyResumes)
	r.Get("/:jobID", h.JobStatus)
	r.Get("/:jobID/download", h.Download)
}

type generateReq struct {
	Mode          string `json:"mode"`
	Language      string `json:"language,omitempty"`
	ProfileURL    string `json:"profile_url,omitempty"`
	JobPostingURL string `json:"job_posting_url,omitempty"`
	GitHubToken   string `json:"github_token,omitempty"`
}

// Generate validates a submission, checks the caller's balance and
// queues a pending job. The credit itself is only spent when the
// pipeline succeeds.
func (h *Handler) Generate(c *fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing X-User-ID header"})
	}

	var req generateReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}

	if !domain.ValidMode(req.Mode) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "mode must be one of profile-only, code-activity-only, mixed",
		})
	}

	language := req.Language
	if language == "" {
		language = h.defaultLanguage
	}
	if !render.Supported(language) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unsupported language: " + language})
	}

	needsProfile := req.Mode == domain.ModeProfileOnly || req.Mode == domain.ModeMixed
	if needsProfile && !validProfileURL(req.ProfileURL) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "profile_url must be a LinkedIn profile URL"})
	}

	needsToken := req.Mode == domain.ModeCodeActivityOnly || req.Mode == domain.ModeMixed
	if needsToken && req.GitHubToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "github_token is required for this mode"})
	}

	postingURL := req.JobPostingURL
	if postingURL != "" {
		if !h.experimentalJobDetails {
			h.logger.Info("job posting URL ignored, experimental flag disabled", "user_id", userID)
			postingURL = ""
		} else if !validHTTPURL(postingURL) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "job_posting_url is not a valid URL"})
		}
	}

	credits, err := h.ledger.GetOrCreateBalance(c.Context(), userID)
	if err != nil {
		h.logger.Error("balance check failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	if credits < 1 {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error": "insufficient credits, purchase credits to generate a resume",
		})
	}

	now := time.Now().UTC()
	job := &domain.ResumeJob{
		ID:            uuid.New(),
		UserID:        userID,
		Status:        domain.StatusPending,
		Mode:          req.Mode,
		Language:      language,
		ProfileURL:    req.ProfileURL,
		JobPostingURL: postingURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.jobs.Create(c.Context(), job); err != nil {
		h.logger.Error("job create failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	if err := h.queue.Enqueue(c.Context(), &queue.TaskPayload{
		JobID:       job.ID,
		GitHubToken: req.GitHubToken,
	}); err != nil {
		h.logger.Error("enqueue failed", "job_id", job.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to queue job"})
	}

	h.logger.Info("job accepted", "job_id", job.ID, "user_id", userID, "mode", job.Mode)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":  job.ID,
		"status":  job.Status,
		"message": "resume generation started, poll GET /api/v1/resume/{job_id} for status",
	})
}

// JobStatus returns the lifecycle state and artifact URLs of a job.
func (h *Handler) JobStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("jobID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid job id"})
	}

	job, err := h.jobs.Get(c.Context(), id)
	if errors.Is(err, repository.ErrJobNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.JSON(fiber.Map{
		"id":         job.ID,
		"status":     job.Status,
		"mode":       job.Mode,
		"language":   job.Language,
		"html_url":   job.HTMLURL,
		"pdf_url":    job.PDFURL,
		"cover_url":  job.CoverURL,
		"error":      job.Error,
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
	})
}

// Download returns artifact URLs for a completed job, 409 while the
// job is still running and 500 with the failure text when it failed.
func (h *Handler) Download(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("jobID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid job id"})
	}

	job, err := h.jobs.Get(c.Context(), id)
	if errors.Is(err, repository.ErrJobNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	switch job.Status {
	case domain.StatusPending, domain.StatusProcessing:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "resume is still being generated (status: " + job.Status + ")",
		})
	case domain.StatusFailed:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "resume generation failed: " + job.Error,
		})
	}

	return c.JSON(fiber.Map{
		"job_id":   job.ID,
		"status":   job.Status,
		"html_url": job.HTMLURL,
		"pdf_url":  job.PDFURL,
	})
}

// MyResumes lists the caller's completed resumes, newest first.
func (h *Handler) MyResumes(c *fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing X-User-ID header"})
	}

	jobs, err := h.jobs.ListCompletedByUser(c.Context(), userID)
	if err != nil {
		h.logger.Error("list resumes failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	items := make([]fiber.Map, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, fiber.Map{
			"resume_cover": job.CoverURL,
			"download_links": fiber.Map{
				"pdf":  job.PDFURL,
				"html": job.HTMLURL,
			},
		})
	}
	return c.JSON(items)
}

// validProfileURL accepts https LinkedIn profile URLs only, comparing
// the registrable domain so subdomains like www or br pass.
func validProfileURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.Scheme != "https" {
		return false
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(u.Hostname())
	if err != nil {
		return false
	}
	return strings.EqualFold(domain, "linkedin.com")
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Host != "" && (u.Scheme == "http" || u.Scheme == "https")
}
