package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/IntakeDesk/internal/model"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	m.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	dob := "1990-01-01"
	first, err := m.Create(ctx, model.CreateOrderRequest{PatientFirstName: "Jane", PatientLastName: "Doe", DOB: &dob, Status: model.StatusNew})
	require.NoError(t, err)
	second, err := m.Create(ctx, model.CreateOrderRequest{PatientFirstName: "Bob", PatientLastName: "Ray", Status: model.StatusProcessing})
	require.NoError(t, err)
	require.Equal(t, int64(1), first.ID)
	require.Equal(t, int64(2), second.ID)

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, int64(2), list[0].ID, "newest first")

	// Returned copies do not alias stored state.
	*list[1].DOB = "2000-01-01"
	got, err := m.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "1990-01-01", *got.DOB)

	got.Status = model.StatusComplete
	got.DOB = nil
	updated, err := m.Update(ctx, got)
	require.NoError(t, err)
	require.Equal(t, model.StatusComplete, updated.Status)
	require.Nil(t, updated.DOB)
	require.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	require.NoError(t, m.Delete(ctx, 1))
	require.ErrorIs(t, m.Delete(ctx, 1), model.ErrNotFound)
	_, err = m.Get(ctx, 1)
	require.ErrorIs(t, err, model.ErrNotFound)
	_, err = m.Update(ctx, &model.Order{ID: 1})
	require.ErrorIs(t, err, model.ErrNotFound)

	list, err = m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}
