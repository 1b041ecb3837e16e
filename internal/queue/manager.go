// Package queue dispatches submitted jobs to background workers over
// Redis.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"flash-resume/internal/usecase"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// TaskResumeGenerate runs the full generation pipeline for one job.
	TaskResumeGenerate = "resume:generate"

	queueName = "resume"
)

// TaskPayload is the wire form of one queued generation run. The code
// host token rides along in the payload instead of the job record so it
// is never written to the database.
type TaskPayload struct {
	JobID       uuid.UUID `json:"jobId"`
	GitHubToken string    `json:"githubToken,omitempty"`
}

// Manager owns the asynq client and worker server for the generation
// queue.
type Manager struct {
	client   *asynq.Client
	server   *asynq.Server
	mux      *asynq.ServeMux
	pipeline *usecase.Pipeline
	logger   *slog.Logger
}

func NewManager(redisURL string, concurrency int, pipeline *usecase.Pipeline, logger *slog.Logger) (*Manager, error) {
	if pipeline == nil {
		return nil, errors.New("pipeline is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName: 1,
		},
	})

	m := &Manager{
		client:   client,
		server:   server,
		mux:      asynq.NewServeMux(),
		pipeline: pipeline,
		logger:   logger,
	}
	m.mux.HandleFunc(TaskResumeGenerate, m.handleGenerate)
	return m, nil
}

// Enqueue queues a generation run for a pending job. The pipeline
// handles its own stage retries, so a failed run is not requeued.
func (m *Manager) Enqueue(ctx context.Context, payload *TaskPayload) error {
	if payload == nil || payload.JobID == uuid.Nil {
		return errors.New("payload requires a job id")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskResumeGenerate, body, asynq.Queue(queueName))
	if _, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(0)); err != nil {
		return fmt.Errorf("enqueue job %s: %w", payload.JobID, err)
	}
	return nil
}

// StartWorkers runs the worker server in the background.
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && err != asynq.ErrServerClosed {
			m.logger.Error("worker server stopped", "error", err)
		}
	}()
}

// Shutdown stops workers, letting in-flight runs finish, then closes
// the client.
func (m *Manager) Shutdown() {
	m.server.Shutdown()
	m.client.Close()
}

func (m *Manager) handleGenerate(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	if payload.JobID == uuid.Nil {
		return errors.New("missing job id in payload")
	}

	return m.pipeline.Run(ctx, payload.JobID, usecase.StageInputs{
		GitHubToken: payload.GitHubToken,
	})
}
