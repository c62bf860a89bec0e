package usecase_admission

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/humanbelnik/boardmate/internal/model"
	"github.com/humanbelnik/boardmate/internal/storage"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// Optimistic reads the room without a lock and writes it back with a version
// check, retrying the whole transaction on a version conflict.
//
// Running out of retries on Join is reported as ErrCapacityExceeded, same as a
// genuinely full room. Callers cannot tell contention from a full room.
type Optimistic struct {
	core
	maxRetry int
}

func NewOptimistic(transactor storage.Transactor, notifier Notifier, logger zerolog.Logger, maxRetry int) *Optimistic {
	if maxRetry <= 0 {
		maxRetry = DefaultMaxRetry
	}

	return &Optimistic{
		core: core{
			transactor: transactor,
			notifier:   notifier,
			logger:     logger.With().Str("strategy", StrategyOptimistic).Logger(),
			strategy:   StrategyOptimistic,
		},
		maxRetry: maxRetry,
	}
}

// Join is the joinWithRetry operation.
func (u *Optimistic) Join(ctx context.Context, userID, roomID uuid.UUID) (model.Participant, error) {
	ctx, span := u.startSpan(ctx, "admission.join", userID, roomID)
	defer span.End()

	for attempt := 1; attempt <= u.maxRetry; attempt++ {
		span.SetAttributes(attribute.Int("admission.attempts", attempt))

		participant, room, user, err := u.joinOnce(ctx, userID, roomID)
		if err == nil {
			u.publishJoin(ctx, room, user)
			return participant, nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return model.Participant{}, u.fail(span, err)
		}

		u.logger.Debug().
			Str("room_id", roomID.String()).
			Str("user_id", userID.String()).
			Int("attempt", attempt).
			Msg("version conflict on join")
	}

	u.logger.Warn().
		Str("room_id", roomID.String()).
		Str("user_id", userID.String()).
		Int("attempts", u.maxRetry).
		Msg("join retries exhausted")
	return model.Participant{}, ErrCapacityExceeded
}

func (u *Optimistic) joinOnce(ctx context.Context, userID, roomID uuid.UUID) (model.Participant, model.Room, model.User, error) {
	var (
		participant *model.Participant
		room        model.Room
		user        model.User
	)
	err := u.transactor.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		read, err := tx.Rooms().Get(ctx, roomID)
		if err != nil {
			return err
		}
		joiner, err := u.loadUser(ctx, tx, userID)
		if err != nil {
			return err
		}

		participant, err = u.admit(ctx, tx, read, joiner)
		if err != nil {
			return err
		}
		if err := tx.Rooms().SaveVersioned(ctx, read); err != nil {
			return err
		}

		room, user = *read, *joiner
		return nil
	})
	if err != nil {
		return model.Participant{}, model.Room{}, model.User{}, err
	}
	return *participant, room, user, nil
}

func (u *Optimistic) Leave(ctx context.Context, userID, roomID uuid.UUID) error {
	ctx, span := u.startSpan(ctx, "admission.leave", userID, roomID)
	defer span.End()

	for attempt := 1; attempt <= u.maxRetry; attempt++ {
		span.SetAttributes(attribute.Int("admission.attempts", attempt))

		room, user, err := u.leaveOnce(ctx, userID, roomID)
		if err == nil {
			u.publishLeave(ctx, room, user)
			return nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return u.fail(span, err)
		}

		u.logger.Debug().
			Str("room_id", roomID.String()).
			Str("user_id", userID.String()).
			Int("attempt", attempt).
			Msg("version conflict on leave")
	}

	u.logger.Warn().
		Str("room_id", roomID.String()).
		Str("user_id", userID.String()).
		Int("attempts", u.maxRetry).
		Msg("leave retries exhausted")
	return ErrRoomBusy
}

func (u *Optimistic) leaveOnce(ctx context.Context, userID, roomID uuid.UUID) (model.Room, model.User, error) {
	var (
		room model.Room
		user model.User
	)
	err := u.transactor.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		read, err := tx.Rooms().Get(ctx, roomID)
		if err != nil {
			return err
		}
		leaver, err := u.loadUser(ctx, tx, userID)
		if err != nil {
			return err
		}

		if err := u.release(ctx, tx, read, leaver); err != nil {
			return err
		}
		if err := tx.Rooms().SaveVersioned(ctx, read); err != nil {
			return err
		}

		room, user = *read, *leaver
		return nil
	})
	return room, user, err
}
