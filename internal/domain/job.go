package domain

import (
	"time"

	"github.com/google/uuid"
)

// Job statuses. A job only ever moves pending -> processing -> completed|failed.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Content-source modes select which raw data feeds generation.
const (
	ModeProfileOnly      = "profile-only"
	ModeCodeActivityOnly = "code-activity-only"
	ModeMixed            = "mixed"
)

// ResumeJob is one resume-generation request and its lifecycle record.
// It is created pending by the submission handler and mutated only by
// the pipeline run that owns it.
type ResumeJob struct {
	ID       uuid.UUID `json:"id"`
	UserID   string    `json:"user_id"`
	Status   string    `json:"status"`
	Mode     string    `json:"mode"`
	Language string    `json:"language"`

	ProfileURL    string `json:"profile_url,omitempty"`
	JobPostingURL string `json:"job_posting_url,omitempty"`

	// Raw acquired data and the generated content, kept for debugging
	// and re-generation.
	ProfileData      map[string]interface{} `json:"profile_data,omitempty"`
	JobPostingData   map[string]interface{} `json:"job_posting_data,omitempty"`
	CodeActivityData map[string]interface{} `json:"code_activity_data,omitempty"`
	GeneratedData    map[string]interface{} `json:"generated_data,omitempty"`

	HTMLURL  string `json:"html_url,omitempty"`
	PDFURL   string `json:"pdf_url,omitempty"`
	CoverURL string `json:"cover_url,omitempty"`

	// Error holds the last stage error text, set only on failed jobs.
	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the job has reached a final state.
func (j *ResumeJob) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// ValidMode reports whether s is a known content-source mode.
func ValidMode(s string) bool {
	switch s {
	case ModeProfileOnly, ModeCodeActivityOnly, ModeMixed:
		return true
	}
	return false
}
