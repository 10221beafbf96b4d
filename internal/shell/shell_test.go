package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/IntakeDesk/internal/ingest"
	"github.com/dharsanguruparan/IntakeDesk/internal/model"
	"github.com/dharsanguruparan/IntakeDesk/internal/orders"
)

type stubDriver struct {
	inputs    []string
	selectIdx []int
	inputPos  int
	selectPos int
	seen      []InputConfig
}

// Input re-asks on validation failure the way survey does.
func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	for {
		if s.inputPos >= len(s.inputs) {
			return "", errors.New("no input scripted")
		}
		val := s.inputs[s.inputPos]
		s.inputPos++
		s.seen = append(s.seen, cfg)
		if cfg.Validator == nil || cfg.Validator(val) == nil {
			return val, nil
		}
	}
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, ErrAborted
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

type fakeAPI struct {
	orders  []model.Order
	created []model.CreateOrderRequest
	uploads []string
}

func (f *fakeAPI) ListOrders(ctx context.Context) ([]model.Order, error) {
	out := make([]model.Order, len(f.orders))
	copy(out, f.orders)
	return out, nil
}

func (f *fakeAPI) CreateOrder(ctx context.Context, req model.CreateOrderRequest) error {
	f.created = append(f.created, req)
	o := model.Order{
		ID:               int64(len(f.created)),
		PatientFirstName: req.PatientFirstName,
		PatientLastName:  req.PatientLastName,
		DOB:              req.DOB,
		Status:           req.Status,
	}
	f.orders = append([]model.Order{o}, f.orders...)
	return nil
}

func (f *fakeAPI) DeleteOrder(ctx context.Context, id int64) error {
	for i, o := range f.orders {
		if o.ID == id {
			f.orders = append(f.orders[:i], f.orders[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeAPI) Upload(ctx context.Context, filename string, r io.Reader) (map[string]any, error) {
	f.uploads = append(f.uploads, filename)
	return map[string]any{"extracted": map[string]any{"patient_first_name": "Jane"}}, nil
}

func newShell(api *fakeAPI, driver *stubDriver) (*Shell, *bytes.Buffer) {
	var out bytes.Buffer
	o := orders.New(api)
	i := ingest.New(api)
	return New(o, i, driver, &out, WithWidth(40)), &out
}

func TestShellCreatesOrder(t *testing.T) {
	api := &fakeAPI{}
	driver := &stubDriver{
		selectIdx: []int{int(ActionCreate), 1, int(ActionQuit)},
		inputs:    []string{"Jane", "Doe", "1990-01-01"},
	}
	sh, out := newShell(api, driver)

	require.NoError(t, sh.Run(context.Background()))
	require.Len(t, api.created, 1)
	req := api.created[0]
	assert.Equal(t, "Jane", req.PatientFirstName)
	assert.Equal(t, "Doe", req.PatientLastName)
	assert.Equal(t, "1990-01-01", *req.DOB)
	assert.Equal(t, model.StatusProcessing, req.Status)
	assert.Contains(t, out.String(), "#1 Jane Doe")
	assert.Equal(t, model.EmptyDraft(), sh.orders.Draft())
}

func TestShellReasksForRequiredName(t *testing.T) {
	api := &fakeAPI{}
	driver := &stubDriver{
		selectIdx: []int{int(ActionCreate), 0, int(ActionQuit)},
		inputs:    []string{"  ", "Jane", "Doe", "31/01/1990", ""},
	}
	sh, _ := newShell(api, driver)

	require.NoError(t, sh.Run(context.Background()))
	require.Len(t, api.created, 1)
	assert.Equal(t, "Jane", api.created[0].PatientFirstName)
	assert.Nil(t, api.created[0].DOB)
	assert.Len(t, driver.seen, 5)
	assert.Equal(t, "Patient first name", driver.seen[1].Message)
}

func TestShellDeletesChosenOrder(t *testing.T) {
	api := &fakeAPI{orders: []model.Order{
		{ID: 2, PatientFirstName: "Bob", PatientLastName: "Ray", Status: model.StatusNew},
		{ID: 1, PatientFirstName: "Ann", PatientLastName: "Lee", Status: model.StatusNew},
	}}
	driver := &stubDriver{selectIdx: []int{int(ActionDelete), 1, int(ActionQuit)}}
	sh, _ := newShell(api, driver)

	require.NoError(t, sh.Run(context.Background()))
	require.Len(t, api.orders, 1)
	assert.Equal(t, int64(2), api.orders[0].ID)
	assert.Len(t, sh.orders.State().Orders, 1)
}

func TestShellUploadFlow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	api := &fakeAPI{}
	driver := &stubDriver{
		selectIdx: []int{int(ActionUpload), int(ActionChooseFile), int(ActionUpload), int(ActionQuit)},
		inputs:    []string{path},
	}
	sh, out := newShell(api, driver)

	require.NoError(t, sh.Run(context.Background()))
	assert.Contains(t, out.String(), "* Choose a PDF first.")
	assert.Equal(t, []string{"intake.pdf"}, api.uploads)
	assert.Contains(t, out.String(), `"patient_first_name": "Jane"`)
}

func TestShellAbortEndsRun(t *testing.T) {
	sh, out := newShell(&fakeAPI{}, &stubDriver{})
	require.NoError(t, sh.Run(context.Background()))
	assert.Contains(t, out.String(), "No orders yet")
}

func TestValidators(t *testing.T) {
	assert.Error(t, required("first name")(""))
	assert.NoError(t, required("first name")("Jane"))
	assert.NoError(t, optionalDate(""))
	assert.NoError(t, optionalDate("1990-01-31"))
	assert.Error(t, optionalDate("01/31/1990"))
	assert.NoError(t, optionalFile(""))
	assert.Error(t, optionalFile(filepath.Join(t.TempDir(), "missing.pdf")))
	assert.Error(t, optionalFile(t.TempDir()))
}
