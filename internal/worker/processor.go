package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/IntakeDesk/internal/extraction"
	"github.com/dharsanguruparan/IntakeDesk/internal/logger"
	pdfutil "github.com/dharsanguruparan/IntakeDesk/internal/pdf"
	"github.com/dharsanguruparan/IntakeDesk/internal/queue"
)

// ObjectStore is the slice of s3storage.Storage the worker needs.
type ObjectStore interface {
	DownloadRaw(ctx context.Context, objectKey string) ([]byte, error)
	UploadProcessed(ctx context.Context, objectKey string, data []byte) error
}

// DocumentStore is the slice of repository.DocumentRepository the worker needs.
type DocumentStore interface {
	MarkProcessing(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, msg string) error
	MarkCompleted(ctx context.Context, id, processedKey string, extracted []byte) error
}

// Result is the JSON document written to the processed bucket.
type Result struct {
	Text      string                 `json:"text"`
	Extracted extraction.PatientInfo `json:"extracted"`
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	docs  DocumentStore
	store ObjectStore
	log   logger.AppLogger
}

// NewProcessor constructs a worker processor.
func NewProcessor(docs DocumentStore, store ObjectStore, log logger.AppLogger) *Processor {
	return &Processor{docs: docs, store: store, log: log.With(slog.String("component", "worker"))}
}

// Handler registers the archive job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ArchiveTask, p.handleArchive)
	return mux
}

func (p *Processor) handleArchive(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.DecodeArchive(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	failure := func(err error) error {
		p.log.Error("archive failed", err, slog.String("document_id", payload.DocumentID))
		if markErr := p.docs.MarkFailed(ctx, payload.DocumentID, err.Error()); markErr != nil {
			p.log.Error("mark failed", markErr, slog.String("document_id", payload.DocumentID))
		}
		return err
	}
	if err := p.docs.MarkProcessing(ctx, payload.DocumentID); err != nil {
		return failure(err)
	}
	data, err := p.store.DownloadRaw(ctx, payload.ObjectKey)
	if err != nil {
		return failure(err)
	}
	text, err := pdfutil.ExtractText(data)
	if err == nil && !pdfutil.HasText(text) {
		err = pdfutil.ErrNoText
	}
	if err != nil {
		// Retrying cannot make an unreadable document readable.
		return failure(fmt.Errorf("%w: %w", err, asynq.SkipRetry))
	}
	info := extraction.ExtractPatientInfo(text)
	result, err := json.Marshal(Result{Text: text, Extracted: info})
	if err != nil {
		return failure(fmt.Errorf("encode result: %w", err))
	}
	extracted, err := json.Marshal(info)
	if err != nil {
		return failure(fmt.Errorf("encode extracted: %w", err))
	}
	processedKey := ProcessedObjectKey(payload.ObjectKey)
	if err := p.store.UploadProcessed(ctx, processedKey, result); err != nil {
		return failure(err)
	}
	if err := p.docs.MarkCompleted(ctx, payload.DocumentID, processedKey, extracted); err != nil {
		return failure(err)
	}
	p.log.Info("document archived",
		slog.String("document_id", payload.DocumentID),
		slog.Int("text_bytes", len(text)),
		slog.Bool("patient_found", !info.Empty()))
	return nil
}

// ProcessedObjectKey maps uploads/{id}/name.pdf to uploads/{id}/name.json.
func ProcessedObjectKey(objectKey string) string {
	return strings.TrimSuffix(objectKey, filepath.Ext(objectKey)) + ".json"
}
