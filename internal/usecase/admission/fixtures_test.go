package usecase_admission

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	infra_memory "github.com/humanbelnik/boardmate/internal/infra/memory"
	"github.com/humanbelnik/boardmate/internal/model"
	"github.com/humanbelnik/boardmate/internal/storage"
	notifier_mocks "github.com/humanbelnik/boardmate/mocks/notifier"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var strategyNames = []string{StrategyPessimistic, StrategyOptimistic}

type resources struct {
	store       *infra_memory.Store
	notifier    *notifier_mocks.Notifier
	pessimistic *Pessimistic
	optimistic  *Optimistic
	ctx         context.Context
}

func initResources(t provider.T) *resources {
	store := infra_memory.New()
	notifier := notifier_mocks.NewNotifier(t)
	logger := zerolog.Nop()

	return &resources{
		store:       store,
		notifier:    notifier,
		pessimistic: NewPessimistic(store, notifier, logger),
		optimistic:  NewOptimistic(store, notifier, logger, DefaultMaxRetry),
		ctx:         context.Background(),
	}
}

func (r *resources) strategies() map[string]Service {
	return map[string]Service{
		StrategyPessimistic: r.pessimistic,
		StrategyOptimistic:  r.optimistic,
	}
}

func (r *resources) acceptEvents() {
	r.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Maybe()
}

func (r *resources) seedRoom(t provider.T, maxOccupancy int) (model.Room, model.User) {
	host := model.User{ID: uuid.New(), Nickname: "host", CreatedAt: time.Now().UTC()}
	room, err := model.NewRoom(host.ID, model.RoomParams{
		Title:        "Catan",
		Region:       "Seoul",
		GameDate:     time.Now().Add(24 * time.Hour),
		MaxOccupancy: maxOccupancy,
	})
	require.NoError(t, err)

	err = r.store.WithinTx(r.ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Users().Create(ctx, &host); err != nil {
			return err
		}
		if err := tx.Rooms().Create(ctx, room); err != nil {
			return err
		}
		return tx.Participants().Create(ctx, model.NewParticipant(room.ID, host.ID))
	})
	require.NoError(t, err)
	return *room, host
}

func (r *resources) seedUsers(t provider.T, n int) []model.User {
	users := make([]model.User, 0, n)
	for i := range n {
		users = append(users, model.User{
			ID:        uuid.New(),
			Nickname:  fmt.Sprintf("player-%d", i),
			CreatedAt: time.Now().UTC(),
		})
	}

	err := r.store.WithinTx(r.ctx, func(ctx context.Context, tx storage.Tx) error {
		for i := range users {
			if err := tx.Users().Create(ctx, &users[i]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return users
}

func (r *resources) room(t provider.T, roomID uuid.UUID) model.Room {
	var room model.Room
	err := r.store.WithinTx(r.ctx, func(ctx context.Context, tx storage.Tx) error {
		found, err := tx.Rooms().Get(ctx, roomID)
		if err != nil {
			return err
		}
		room = *found
		return nil
	})
	require.NoError(t, err)
	return room
}

func (r *resources) participants(t provider.T, roomID uuid.UUID) []model.Participant {
	var out []model.Participant
	err := r.store.WithinTx(r.ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = tx.Participants().FindByRoom(ctx, roomID)
		return err
	})
	require.NoError(t, err)
	return out
}

func (r *resources) closeRoom(t provider.T, roomID uuid.UUID) {
	err := r.store.WithinTx(r.ctx, func(ctx context.Context, tx storage.Tx) error {
		room, err := tx.Rooms().GetForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		room.CloseForAdmission()
		return tx.Rooms().Save(ctx, room)
	})
	require.NoError(t, err)
}

func (r *resources) deleteRoom(t provider.T, roomID uuid.UUID) {
	err := r.store.WithinTx(r.ctx, func(ctx context.Context, tx storage.Tx) error {
		room, err := tx.Rooms().GetForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		room.SoftDelete()
		return tx.Rooms().Save(ctx, room)
	})
	require.NoError(t, err)
}

// conflictingTransactor makes every version-checked room write lose the race.
type conflictingTransactor struct {
	inner    storage.Transactor
	attempts atomic.Int32
}

func (c *conflictingTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	c.attempts.Add(1)
	return c.inner.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return fn(ctx, conflictingTx{tx})
	})
}

type conflictingTx struct {
	storage.Tx
}

func (t conflictingTx) Rooms() storage.RoomRepository {
	return conflictingRooms{t.Tx.Rooms()}
}

type conflictingRooms struct {
	storage.RoomRepository
}

func (conflictingRooms) SaveVersioned(context.Context, *model.Room) error {
	return storage.ErrVersionConflict
}
