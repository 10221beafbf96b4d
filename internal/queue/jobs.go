package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// ArchiveTask is scheduled for every upload that was stored in the raw
	// bucket.
	ArchiveTask = "intake:archive"

	archiveMaxRetry = 5
)

// ArchivePayload tells the worker which raw object to re-read and which
// document row to update.
type ArchivePayload struct {
	DocumentID string `json:"document_id"`
	ObjectKey  string `json:"object_key"`
	FileName   string `json:"file_name"`
}

// Enqueuer is the subset of *asynq.Client used to schedule tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewArchiveTask builds the task without scheduling it.
func NewArchiveTask(payload ArchivePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(ArchiveTask, data), nil
}

// EnqueueArchive schedules an archive job.
func EnqueueArchive(ctx context.Context, client Enqueuer, payload ArchivePayload) error {
	task, err := NewArchiveTask(payload)
	if err != nil {
		return err
	}
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(archiveMaxRetry)); err != nil {
		return fmt.Errorf("enqueue archive task: %w", err)
	}
	return nil
}

// DecodeArchive reads the payload back out of a task.
func DecodeArchive(task *asynq.Task) (ArchivePayload, error) {
	var payload ArchivePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}
