package contention

import (
	"context"
	"testing"

	infra_memory "github.com/humanbelnik/boardmate/internal/infra/memory"
	"github.com/humanbelnik/boardmate/internal/model"
	"github.com/humanbelnik/boardmate/internal/storage"
	usecase_admission "github.com/humanbelnik/boardmate/internal/usecase/admission"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var params = Params{MaxOccupancy: 4, Users: 100, Workers: 32}

func TestRunPessimistic(t *testing.T) {
	store := infra_memory.New()
	svc := usecase_admission.NewPessimistic(store, nil, zerolog.Nop())

	report, err := Run(context.Background(), store, svc, usecase_admission.StrategyPessimistic, params)

	require.NoError(t, err)
	t.Log(report)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 97, report.RoomFull)
	assert.Zero(t, report.Failed)
	assert.Equal(t, 4, report.FinalOccupancy)
	assert.False(t, report.Overbooked())
	assert.True(t, report.Consistent())
}

func TestRunOptimistic(t *testing.T) {
	store := infra_memory.New()
	svc := usecase_admission.NewOptimistic(store, nil, zerolog.Nop(), usecase_admission.DefaultMaxRetry)

	report, err := Run(context.Background(), store, svc, usecase_admission.StrategyOptimistic, params)

	require.NoError(t, err)
	t.Log(report)
	assert.Equal(t, params.Users, report.Succeeded+report.RoomFull+report.Failed)
	assert.Equal(t, report.Succeeded+1, report.FinalOccupancy)
	assert.True(t, report.Consistent())
}

func TestRunRejectsInvalidCapacity(t *testing.T) {
	store := infra_memory.New()
	svc := usecase_admission.NewPessimistic(store, nil, zerolog.Nop())

	_, err := Run(context.Background(), store, svc, usecase_admission.StrategyPessimistic, Params{MaxOccupancy: 1, Users: 1, Workers: 1})

	assert.Error(t, err)
}

func TestRunRejectsInvalidParams(t *testing.T) {
	testCases := []struct {
		name   string
		params Params
	}{
		{name: "zero workers", params: Params{MaxOccupancy: 4, Users: 10, Workers: 0}},
		{name: "negative workers", params: Params{MaxOccupancy: 4, Users: 10, Workers: -1}},
		{name: "negative users", params: Params{MaxOccupancy: 4, Users: -1, Workers: 4}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := infra_memory.New()
			svc := usecase_admission.NewPessimistic(store, nil, zerolog.Nop())

			_, err := Run(context.Background(), store, svc, usecase_admission.StrategyPessimistic, tc.params)

			assert.ErrorIs(t, err, ErrInvalidParams)
			rooms, err := roomCount(store)
			require.NoError(t, err)
			assert.Zero(t, rooms)
		})
	}
}

func roomCount(store *infra_memory.Store) (int, error) {
	var n int
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		rooms, err := tx.Rooms().ListByStatus(ctx, model.StatusWaiting)
		n = len(rooms)
		return err
	})
	return n, err
}
