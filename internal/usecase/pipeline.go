// Package usecase contains the resume generation pipeline and the
// payment flows that feed it credits.
package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"flash-resume/internal/domain"
	"flash-resume/internal/model"
	"flash-resume/internal/render"
	"flash-resume/pkg/scrape"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	convertMaxTries = 3
)

// JobStore loads and persists job records.
type JobStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.ResumeJob, error)
	Save(ctx context.Context, j *domain.ResumeJob) error
}

// Ledger spends credits after successful generation.
type Ledger interface {
	DeductOne(ctx context.Context, userID string) (bool, error)
}

// ProfileScraper acquires professional history from a public profile
// and, optionally, a job posting to tailor against.
type ProfileScraper interface {
	ScrapeProfile(ctx context.Context, profileURL string) (*scrape.Profile, error)
	ScrapeJobPosting(ctx context.Context, postingURL string) (*scrape.JobPosting, error)
}

// CodeActivityFetcher acquires repository and contribution history for
// the authenticated developer.
type CodeActivityFetcher interface {
	FetchActivity(ctx context.Context, token string) (*scrape.CodeActivity, error)
}

// Generator produces structured resume content from acquired sources.
type Generator interface {
	GenerateResume(ctx context.Context, sources map[string]interface{}, language string) (map[string]interface{}, error)
}

// Converter turns rendered HTML into print artifacts.
type Converter interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
	RenderImage(ctx context.Context, html string) ([]byte, error)
}

// Publisher stores artifacts and returns their public URLs.
type Publisher interface {
	Upload(ctx context.Context, data []byte, contentType, path string) (string, error)
}

// StageInputs carries per-run secrets that are never persisted with the
// job record.
type StageInputs struct {
	GitHubToken string
}

// Pipeline runs a submitted job through acquire, generate, render,
// convert, publish and settle. Each stage persists its output before
// the next begins, so a crashed run leaves an inspectable record.
type Pipeline struct {
	jobs      JobStore
	ledger    Ledger
	profiles  ProfileScraper
	code      CodeActivityFetcher
	generator Generator
	converter Converter
	publisher Publisher
	logger    *slog.Logger
}

func NewPipeline(jobs JobStore, ledger Ledger, profiles ProfileScraper, code CodeActivityFetcher,
	generator Generator, converter Converter, publisher Publisher, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		jobs:      jobs,
		ledger:    ledger,
		profiles:  profiles,
		code:      code,
		generator: generator,
		converter: converter,
		publisher: publisher,
		logger:    logger,
	}
}

// Run executes the full pipeline for one job. A job already in a
// terminal state is left alone. Stage failures mark the job failed with
// the stage error; a settle failure after publication is logged but
// never demotes a completed job.
func (p *Pipeline) Run(ctx context.Context, jobID uuid.UUID, in StageInputs) (err error) {
	job, err := p.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Terminal() {
		p.logger.Warn("job already terminal, skipping", "job_id", jobID, "status", job.Status)
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline panic", "job_id", jobID, "panic", r)
			p.fail(ctx, job, fmt.Errorf("internal error: %v", r))
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	log := p.logger.With("job_id", jobID, "mode", job.Mode)

	job.Status = domain.StatusProcessing
	if err := p.jobs.Save(ctx, job); err != nil {
		return err
	}

	log.Info("acquiring sources")
	if err := p.acquire(ctx, job, in); err != nil {
		log.Error("acquire failed", "error", err)
		return p.fail(ctx, job, err)
	}
	if err := p.jobs.Save(ctx, job); err != nil {
		return err
	}

	log.Info("generating resume content")
	generated, err := p.generator.GenerateResume(ctx, p.sources(job), job.Language)
	if err != nil {
		log.Error("generation failed", "error", err)
		return p.fail(ctx, job, err)
	}
	job.GeneratedData = generated
	if err := p.jobs.Save(ctx, job); err != nil {
		return err
	}

	log.Info("rendering document")
	resume, err := toResume(generated)
	if err != nil {
		return p.fail(ctx, job, err)
	}
	html, err := render.Render(resume, job.Language)
	if err != nil {
		log.Error("render failed", "error", err)
		return p.fail(ctx, job, err)
	}

	log.Info("converting artifacts")
	pdf, cover, err := p.convert(ctx, html)
	if err != nil {
		log.Error("conversion failed", "error", err)
		return p.fail(ctx, job, err)
	}

	log.Info("publishing artifacts")
	if err := p.publish(ctx, job, html, pdf, cover); err != nil {
		log.Error("publish failed", "error", err)
		return p.fail(ctx, job, err)
	}

	job.Status = domain.StatusCompleted
	if err := p.jobs.Save(ctx, job); err != nil {
		return err
	}

	// The job is done; credit settlement happens after completion so a
	// ledger hiccup can never cost the user their artifacts.
	deducted, err := p.ledger.DeductOne(ctx, job.UserID)
	if err != nil {
		log.Error("credit settlement failed", "user_id", job.UserID, "error", err)
	} else if !deducted {
		log.Error("credit settlement found no balance to deduct", "user_id", job.UserID)
	}

	log.Info("job completed")
	return nil
}

// acquire fetches the data sources the job's mode calls for. Fetches
// run concurrently; the first failure cancels the rest.
func (p *Pipeline) acquire(ctx context.Context, job *domain.ResumeJob, in StageInputs) error {
	g, gctx := errgroup.WithContext(ctx)

	if job.Mode == domain.ModeProfileOnly || job.Mode == domain.ModeMixed {
		g.Go(func() error {
			profile, err := p.profiles.ScrapeProfile(gctx, job.ProfileURL)
			if err != nil {
				return err
			}
			m, err := toMap(profile)
			if err != nil {
				return err
			}
			job.ProfileData = m
			return nil
		})
	}

	if job.Mode == domain.ModeCodeActivityOnly || job.Mode == domain.ModeMixed {
		g.Go(func() error {
			activity, err := p.code.FetchActivity(gctx, in.GitHubToken)
			if err != nil {
				return err
			}
			m, err := toMap(activity)
			if err != nil {
				return err
			}
			job.CodeActivityData = m
			return nil
		})
	}

	if job.JobPostingURL != "" {
		g.Go(func() error {
			posting, err := p.profiles.ScrapeJobPosting(gctx, job.JobPostingURL)
			if err != nil {
				return err
			}
			m, err := toMap(posting)
			if err != nil {
				return err
			}
			job.JobPostingData = m
			return nil
		})
	}

	return g.Wait()
}

func (p *Pipeline) sources(job *domain.ResumeJob) map[string]interface{} {
	sources := make(map[string]interface{}, 3)
	if job.ProfileData != nil {
		sources["profile"] = job.ProfileData
	}
	if job.CodeActivityData != nil {
		sources["code_activity"] = job.CodeActivityData
	}
	if job.JobPostingData != nil {
		sources["job_posting"] = job.JobPostingData
	}
	return sources
}

// convert produces the PDF and cover image, retrying the pair together
// with backoff. A PDF that does not start with the %PDF magic counts as
// a failed attempt.
func (p *Pipeline) convert(ctx context.Context, html string) (pdf, cover []byte, err error) {
	var lastErr error
	for attempt := 1; attempt <= convertMaxTries; attempt++ {
		pdf, lastErr = p.converter.RenderPDF(ctx, html)
		if lastErr == nil && !bytes.HasPrefix(pdf, []byte("%PDF")) {
			lastErr = fmt.Errorf("converter produced invalid PDF output")
		}
		if lastErr == nil {
			cover, lastErr = p.converter.RenderImage(ctx, html)
		}
		if lastErr == nil {
			return pdf, cover, nil
		}

		if attempt < convertMaxTries {
			select {
			case <-time.After(time.Duration(1<<(attempt-1)) * time.Second):
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}
	}
	return nil, nil, fmt.Errorf("conversion failed after %d attempts: %w", convertMaxTries, lastErr)
}

func (p *Pipeline) publish(ctx context.Context, job *domain.ResumeJob, html string, pdf, cover []byte) error {
	prefix := job.ID.String()

	htmlURL, err := p.publisher.Upload(ctx, []byte(html), "text/html", prefix+"/resume.html")
	if err != nil {
		return err
	}
	pdfURL, err := p.publisher.Upload(ctx, pdf, "application/pdf", prefix+"/resume.pdf")
	if err != nil {
		return err
	}
	coverURL, err := p.publisher.Upload(ctx, cover, "image/png", prefix+"/cover.png")
	if err != nil {
		return err
	}

	job.HTMLURL = htmlURL
	job.PDFURL = pdfURL
	job.CoverURL = coverURL
	return nil
}

func (p *Pipeline) fail(ctx context.Context, job *domain.ResumeJob, cause error) error {
	job.Status = domain.StatusFailed
	job.Error = cause.Error()
	if saveErr := p.jobs.Save(ctx, job); saveErr != nil {
		p.logger.Error("failed to persist job failure", "job_id", job.ID, "error", saveErr)
	}
	return cause
}

func toMap(v interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func toResume(m map[string]interface{}) (*model.Resume, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var r model.Resume
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("generated content does not fit resume shape: %w", err)
	}
	return &r, nil
}
