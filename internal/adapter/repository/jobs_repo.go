package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"flash-resume/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var ErrJobNotFound = errors.New("job not found")

// JobsRepo persists resume jobs. Status writes are guarded so a terminal
// row is never overwritten.
type JobsRepo struct {
	pool *pgxpool.Pool
}

func NewJobsRepo(pool *pgxpool.Pool) *JobsRepo {
	return &JobsRepo{pool: pool}
}

func (r *JobsRepo) Create(ctx context.Context, j *domain.ResumeJob) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO resume_jobs
		(id, user_id, status, mode, language, profile_url, job_posting_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		j.ID, j.UserID, j.Status, j.Mode, j.Language, j.ProfileURL, j.JobPostingURL, j.CreatedAt, j.UpdatedAt)
	return err
}

// Save writes the full job snapshot. Rows already in a terminal state are
// left untouched.
func (r *JobsRepo) Save(ctx context.Context, j *domain.ResumeJob) error {
	j.UpdatedAt = time.Now().UTC()

	_, err := r.pool.Exec(ctx, `UPDATE resume_jobs SET
			status = $2,
			profile_data = $3,
			job_posting_data = $4,
			code_activity_data = $5,
			generated_data = $6,
			html_url = $7,
			pdf_url = $8,
			cover_url = $9,
			error = $10,
			updated_at = $11
		WHERE id = $1 AND status NOT IN ('completed','failed')`,
		j.ID, j.Status,
		marshalJSON(j.ProfileData), marshalJSON(j.JobPostingData),
		marshalJSON(j.CodeActivityData), marshalJSON(j.GeneratedData),
		j.HTMLURL, j.PDFURL, j.CoverURL, j.Error, j.UpdatedAt)
	return err
}

func (r *JobsRepo) Get(ctx context.Context, id uuid.UUID) (*domain.ResumeJob, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, user_id, status, mode, language,
			profile_url, job_posting_url,
			profile_data, job_posting_data, code_activity_data, generated_data,
			html_url, pdf_url, cover_url, error, created_at, updated_at
		FROM resume_jobs WHERE id = $1`, id)
	return scanJob(row)
}

func (r *JobsRepo) ListCompletedByUser(ctx context.Context, userID string) ([]*domain.ResumeJob, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, user_id, status, mode, language,
			profile_url, job_posting_url,
			profile_data, job_posting_data, code_activity_data, generated_data,
			html_url, pdf_url, cover_url, error, created_at, updated_at
		FROM resume_jobs
		WHERE user_id = $1 AND status = 'completed'
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ResumeJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func scanJob(row pgx.Row) (*domain.ResumeJob, error) {
	j := &domain.ResumeJob{}
	var profileData, jobPostingData, codeActivityData, generatedData []byte
	err := row.Scan(&j.ID, &j.UserID, &j.Status, &j.Mode, &j.Language,
		&j.ProfileURL, &j.JobPostingURL,
		&profileData, &jobPostingData, &codeActivityData, &generatedData,
		&j.HTMLURL, &j.PDFURL, &j.CoverURL, &j.Error, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	j.ProfileData = unmarshalJSON(profileData)
	j.JobPostingData = unmarshalJSON(jobPostingData)
	j.CodeActivityData = unmarshalJSON(codeActivityData)
	j.GeneratedData = unmarshalJSON(generatedData)
	return j, nil
}

func marshalJSON(m map[string]interface{}) []byte {
	if m == nil {
		return nil
	}
	b, _ := json.Marshal(m)
	return b
}

func unmarshalJSON(b []byte) map[string]interface{} {
	if len(b) == 0 {
		return nil
	}
	var m map[string]interface{}
	_ = json.Unmarshal(b, &m)
	return m
}
