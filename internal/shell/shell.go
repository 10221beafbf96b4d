// Package shell is the interactive operator console. It renders the order
// list next to the document panel and drives both controllers from a menu.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dharsanguruparan/IntakeDesk/internal/ingest"
	"github.com/dharsanguruparan/IntakeDesk/internal/model"
	"github.com/dharsanguruparan/IntakeDesk/internal/orders"
	"github.com/dharsanguruparan/IntakeDesk/internal/view"
)

// Action is one menu entry.
type Action int

const (
	ActionCreate Action = iota
	ActionDelete
	ActionChooseFile
	ActionUpload
	ActionRefresh
	ActionQuit
)

var menu = []string{
	ActionCreate:     "Create order",
	ActionDelete:     "Delete order",
	ActionChooseFile: "Choose PDF",
	ActionUpload:     "Upload PDF",
	ActionRefresh:    "Refresh orders",
	ActionQuit:       "Quit",
}

const defaultWidth = 56

// Shell wires the two controllers to a prompt driver. Requests run on
// background goroutines so the menu stays available while they are in
// flight.
type Shell struct {
	orders *orders.Controller
	ingest *ingest.Controller
	prompt PromptDriver
	out    io.Writer
	width  int

	wg      sync.WaitGroup
	mu      sync.Mutex
	notices []string
}

// Option customises a Shell.
type Option func(*Shell)

// WithWidth sets the width of the left column.
func WithWidth(width int) Option {
	return func(s *Shell) {
		if width > 0 {
			s.width = width
		}
	}
}

// New constructs a Shell writing its panels to out.
func New(o *orders.Controller, i *ingest.Controller, prompt PromptDriver, out io.Writer, opts ...Option) *Shell {
	s := &Shell{orders: o, ingest: i, prompt: prompt, out: out, width: defaultWidth}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run loads the order list and serves the menu until the operator quits or
// aborts. Requests still in flight are awaited and the final state rendered
// before Run returns.
func (s *Shell) Run(ctx context.Context) error {
	s.report(s.orders.Activate(ctx))
	for {
		s.Render()
		idx, err := s.prompt.Select(ctx, SelectConfig{Message: "Action", Options: menu})
		if err != nil {
			if errors.Is(err, ErrAborted) {
				s.finish()
				return nil
			}
			s.wg.Wait()
			return err
		}
		switch Action(idx) {
		case ActionQuit:
			s.finish()
			return nil
		case ActionCreate:
			if s.orders.State().Submitting {
				s.notice("Still saving the previous order.")
				continue
			}
			err = s.createOrder(ctx)
		case ActionDelete:
			err = s.deleteOrder(ctx)
		case ActionChooseFile:
			err = s.chooseFile(ctx)
		case ActionUpload:
			st := s.ingest.State()
			switch {
			case st.File == nil:
				s.notice("Choose a PDF first.")
			case st.Uploading:
				s.notice("Still uploading.")
			default:
				s.spawn(ctx, s.ingest.SubmitUpload)
			}
		case ActionRefresh:
			s.spawn(ctx, s.orders.Refresh)
		default:
			err = fmt.Errorf("unknown action %d", idx)
		}
		if err != nil && !errors.Is(err, ErrAborted) {
			s.wg.Wait()
			return err
		}
	}
}

// Render writes both panels side by side, followed by pending notices.
func (s *Shell) Render() {
	s.mu.Lock()
	notices := s.notices
	s.notices = nil
	s.mu.Unlock()

	left := view.Orders(s.orders.State()).String()
	right := view.Extraction(s.ingest.State()).String()
	fmt.Fprintln(s.out)
	fmt.Fprint(s.out, view.SideBySide(left, right, s.width))
	for _, n := range notices {
		fmt.Fprintf(s.out, "* %s\n", n)
	}
}

func (s *Shell) spawn(ctx context.Context, op func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.report(op(ctx))
	}()
}

func (s *Shell) finish() {
	s.wg.Wait()
	s.Render()
}

func (s *Shell) createOrder(ctx context.Context) error {
	draft := s.orders.Draft()
	first, err := s.prompt.Input(ctx, InputConfig{
		Message:   "Patient first name",
		Default:   draft.PatientFirstName,
		Validator: required("first name"),
	})
	if err != nil {
		return err
	}
	s.orders.UpdateDraft(func(d *model.OrderDraft) { d.PatientFirstName = first })

	last, err := s.prompt.Input(ctx, InputConfig{
		Message:   "Patient last name",
		Default:   draft.PatientLastName,
		Validator: required("last name"),
	})
	if err != nil {
		return err
	}
	s.orders.UpdateDraft(func(d *model.OrderDraft) { d.PatientLastName = last })

	dob, err := s.prompt.Input(ctx, InputConfig{
		Message:   "Date of birth",
		Default:   draft.DOB,
		Help:      "YYYY-MM-DD, leave blank if unknown",
		Validator: optionalDate,
	})
	if err != nil {
		return err
	}
	s.orders.UpdateDraft(func(d *model.OrderDraft) { d.DOB = strings.TrimSpace(dob) })

	options := make([]string, len(model.Statuses))
	current := 0
	for i, st := range model.Statuses {
		options[i] = string(st)
		if st == draft.Status {
			current = i
		}
	}
	idx, err := s.prompt.Select(ctx, SelectConfig{Message: "Status", Options: options, DefaultIndex: current})
	if err != nil {
		return err
	}
	if idx >= 0 && idx < len(model.Statuses) {
		s.orders.UpdateDraft(func(d *model.OrderDraft) { d.Status = model.Statuses[idx] })
	}

	if err := s.orders.Draft().Validate(); err != nil {
		s.notice(err.Error())
		return nil
	}
	s.spawn(ctx, s.orders.Submit)
	return nil
}

func (s *Shell) deleteOrder(ctx context.Context) error {
	list := s.orders.State().Orders
	if len(list) == 0 {
		s.notice(view.EmptyOrdersText)
		return nil
	}
	options := make([]string, len(list))
	for i, o := range list {
		options[i] = fmt.Sprintf("#%d %s (%s)", o.ID, view.OrderTitle(o), view.OrderDetail(o))
	}
	idx, err := s.prompt.Select(ctx, SelectConfig{Message: "Delete which order?", Options: options, PageSize: 10})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(list) {
		return nil
	}
	id := list[idx].ID
	s.spawn(ctx, func(ctx context.Context) error { return s.orders.Remove(ctx, id) })
	return nil
}

func (s *Shell) chooseFile(ctx context.Context) error {
	path, err := s.prompt.Input(ctx, InputConfig{
		Message:   "Path to PDF",
		Help:      "Leave blank to clear the selection",
		Validator: optionalFile,
	})
	if err != nil {
		return err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		s.ingest.SelectFile(nil)
		return nil
	}
	s.ingest.SelectFile(ingest.FileFromPath(path))
	return nil
}

// report queues errors the panels do not already show.
func (s *Shell) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, ingest.ErrNoFile):
		s.notice("Choose a PDF first.")
	case errors.Is(err, orders.ErrSubmitInFlight), errors.Is(err, ingest.ErrUploadInFlight):
		s.notice(err.Error())
	}
}

// notice queues a message for the next Render.
func (s *Shell) notice(msg string) {
	s.mu.Lock()
	s.notices = append(s.notices, msg)
	s.mu.Unlock()
}

func required(field string) func(string) error {
	return func(v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func optionalDate(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if _, err := time.Parse(model.DateLayout, v); err != nil {
		return errors.New("use YYYY-MM-DD")
	}
	return nil
}

func optionalFile(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	info, err := os.Stat(v)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", v, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", v)
	}
	return nil
}
