// Package ingest holds the client-side controller for document uploads: one
// selected file, one upload in flight at a time, and the most recent
// extraction result.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dharsanguruparan/IntakeDesk/internal/logger"
)

var (
	// ErrNoFile is returned by SubmitUpload when no file is selected.
	ErrNoFile = errors.New("no file selected")
	// ErrUploadInFlight is returned by SubmitUpload while another upload is
	// outstanding. No request is issued.
	ErrUploadInFlight = errors.New("upload already in progress")
	// ErrClosed is returned once the controller has been torn down.
	ErrClosed = errors.New("ingest controller closed")
)

// API is the slice of the HTTP client the controller needs.
type API interface {
	Upload(ctx context.Context, filename string, r io.Reader) (map[string]any, error)
}

// State is a point-in-time copy of the controller used for rendering. Result
// must be treated as read-only.
type State struct {
	File      *File
	Result    map[string]any
	Uploading bool
	Err       error
}

// Controller owns the upload slot and the latest extraction result.
type Controller struct {
	api      API
	log      logger.AppLogger
	onChange func()

	life context.Context
	stop context.CancelFunc

	mu        sync.Mutex
	slot      *File
	result    map[string]any
	uploading bool
	err       error
	closed    bool
}

// Option customises a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for failed uploads.
func WithLogger(l logger.AppLogger) Option {
	return func(c *Controller) { c.log = l }
}

// WithOnChange registers a callback run after every state change, without
// the controller lock held.
func WithOnChange(fn func()) Option {
	return func(c *Controller) { c.onChange = fn }
}

// New constructs an empty Controller.
func New(api API, opts ...Option) *Controller {
	life, stop := context.WithCancel(context.Background())
	c := &Controller{
		api:  api,
		log:  logger.Discard(),
		life: life,
		stop: stop,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(slog.String("component", "ingest"))
	return c
}

// SelectFile replaces the upload slot. A nil file clears it. The file type is
// not checked; the server decides what it accepts.
func (c *Controller) SelectFile(f *File) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.slot = f
	c.mu.Unlock()
	c.notify()
}

// SubmitUpload uploads the selected file. On success the extraction result is
// replaced; on failure the previous result is kept and the error recorded.
// The selected file stays selected either way.
func (c *Controller) SubmitUpload(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.slot == nil:
		c.mu.Unlock()
		return ErrNoFile
	case c.uploading:
		c.mu.Unlock()
		return ErrUploadInFlight
	}
	c.uploading = true
	file := c.slot
	c.mu.Unlock()
	c.notify()

	defer func() {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.uploading = false
		c.mu.Unlock()
		c.notify()
	}()

	ctx, done := c.scope(ctx)
	defer done()

	body, err := c.upload(ctx, file)
	if err != nil {
		err = fmt.Errorf("upload %s: %w", file.Name, err)
		c.mu.Lock()
		closed := c.closed
		if !closed {
			c.err = err
		}
		c.mu.Unlock()
		if closed {
			return ErrClosed
		}
		c.log.Error("document upload failed", err, slog.String("file", file.Name))
		return err
	}

	result := ExtractionResult(body)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.result = result
	c.err = nil
	c.mu.Unlock()
	c.log.Info("document extracted", slog.String("file", file.Name), slog.Int("fields", len(result)))
	return nil
}

func (c *Controller) upload(ctx context.Context, file *File) (map[string]any, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer rc.Close()
	return c.api.Upload(ctx, file.Name, rc)
}

// State returns a copy of the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		File:      c.slot,
		Result:    c.result,
		Uploading: c.uploading,
		Err:       c.err,
	}
}

// Close tears the controller down, cancelling any upload in flight.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.stop()
}

// ExtractionResult unwraps the "extracted" object from an upload response.
// When the key is missing, null or not an object the whole body is the
// result.
func ExtractionResult(body map[string]any) map[string]any {
	if inner, ok := body["extracted"].(map[string]any); ok && inner != nil {
		return inner
	}
	return body
}

func (c *Controller) scope(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(c.life, cancel)
	return ctx, func() {
		stopAfter()
		cancel()
	}
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}
