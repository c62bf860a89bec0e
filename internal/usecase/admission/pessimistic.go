package usecase_admission

import (
	"context"

	"github.com/google/uuid"
	"github.com/humanbelnik/boardmate/internal/model"
	"github.com/humanbelnik/boardmate/internal/storage"
	"github.com/rs/zerolog"
)

// Pessimistic serializes every join and leave on a room behind the room's row
// lock, so each transaction sees the occupancy left by the previous one.
type Pessimistic struct {
	core
}

func NewPessimistic(transactor storage.Transactor, notifier Notifier, logger zerolog.Logger) *Pessimistic {
	return &Pessimistic{
		core: core{
			transactor: transactor,
			notifier:   notifier,
			logger:     logger.With().Str("strategy", StrategyPessimistic).Logger(),
			strategy:   StrategyPessimistic,
		},
	}
}

func (u *Pessimistic) Join(ctx context.Context, userID, roomID uuid.UUID) (model.Participant, error) {
	ctx, span := u.startSpan(ctx, "admission.join", userID, roomID)
	defer span.End()

	var (
		participant *model.Participant
		room        model.Room
		user        model.User
	)
	err := u.transactor.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		locked, err := tx.Rooms().GetForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		joiner, err := u.loadUser(ctx, tx, userID)
		if err != nil {
			return err
		}

		participant, err = u.admit(ctx, tx, locked, joiner)
		if err != nil {
			return err
		}
		if err := tx.Rooms().Save(ctx, locked); err != nil {
			return err
		}

		room, user = *locked, *joiner
		return nil
	})
	if err != nil {
		return model.Participant{}, u.fail(span, err)
	}

	u.logger.Debug().
		Str("room_id", roomID.String()).
		Str("user_id", userID.String()).
		Int("occupancy", room.CurrentOccupancy).
		Msg("participant admitted")
	u.publishJoin(ctx, room, user)
	return *participant, nil
}

func (u *Pessimistic) Leave(ctx context.Context, userID, roomID uuid.UUID) error {
	ctx, span := u.startSpan(ctx, "admission.leave", userID, roomID)
	defer span.End()

	var (
		room model.Room
		user model.User
	)
	err := u.transactor.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		locked, err := tx.Rooms().GetForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		leaver, err := u.loadUser(ctx, tx, userID)
		if err != nil {
			return err
		}

		if err := u.release(ctx, tx, locked, leaver); err != nil {
			return err
		}
		if err := tx.Rooms().Save(ctx, locked); err != nil {
			return err
		}

		room, user = *locked, *leaver
		return nil
	})
	if err != nil {
		return u.fail(span, err)
	}

	u.publishLeave(ctx, room, user)
	return nil
}
