// Package archive copies accepted uploads into object storage and hands them
// to the background worker.
package archive

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/IntakeDesk/internal/queue"
	"github.com/dharsanguruparan/IntakeDesk/internal/repository"
)

// RawStore receives the uploaded PDF bytes.
type RawStore interface {
	UploadRaw(ctx context.Context, objectKey string, reader io.Reader, size int64) error
}

// DocumentRecorder persists the document row.
type DocumentRecorder interface {
	Create(ctx context.Context, doc *repository.Document) error
}

// Service archives uploads: object first, then the row, then the task.
type Service struct {
	raw   RawStore
	docs  DocumentRecorder
	queue queue.Enqueuer
	newID func() string
}

// New constructs a Service.
func New(raw RawStore, docs DocumentRecorder, q queue.Enqueuer) *Service {
	return &Service{raw: raw, docs: docs, queue: q, newID: uuid.NewString}
}

// ObjectKey returns the raw bucket key for an upload.
func ObjectKey(id, fileName string) string {
	return fmt.Sprintf("uploads/%s/%s", id, filepath.Base(fileName))
}

// Archive stores the upload and enqueues its archive task. It returns the new
// document id.
func (s *Service) Archive(ctx context.Context, fileName string, r io.Reader, size int64) (string, error) {
	id := s.newID()
	key := ObjectKey(id, fileName)
	if err := s.raw.UploadRaw(ctx, key, r, size); err != nil {
		return "", fmt.Errorf("store raw upload: %w", err)
	}
	doc := &repository.Document{
		ID:        id,
		FileName:  fileName,
		ObjectKey: key,
		SizeBytes: size,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return "", fmt.Errorf("record document: %w", err)
	}
	payload := queue.ArchivePayload{DocumentID: id, ObjectKey: key, FileName: fileName}
	if err := queue.EnqueueArchive(ctx, s.queue, payload); err != nil {
		return "", err
	}
	return id, nil
}
