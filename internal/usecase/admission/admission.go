package usecase_admission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/humanbelnik/boardmate/internal/model"
	"github.com/humanbelnik/boardmate/internal/storage"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	StrategyPessimistic = "pessimistic"
	StrategyOptimistic  = "optimistic"

	DefaultMaxRetry = 3
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrAlreadyJoined       = errors.New("user already joined the room")
	ErrCapacityExceeded    = model.ErrCapacityExceeded
	ErrRoomClosed          = model.ErrRoomClosed
	ErrHostCannotLeave     = errors.New("host cannot leave the room")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrRoomBusy            = errors.New("room is busy, try again")
	ErrUnknownStrategy     = errors.New("unknown admission strategy")
	ErrInternal            = errors.New("internal error")
)

// Service is implemented by both concurrency strategies.
type Service interface {
	Join(ctx context.Context, userID, roomID uuid.UUID) (model.Participant, error)
	Leave(ctx context.Context, userID, roomID uuid.UUID) error
}

//go:generate mockery --name=Notifier --output=../../../mocks/notifier --filename=notifier.go
type Notifier interface {
	Notify(ctx context.Context, event model.RoomEvent) error
}

var tracer = otel.Tracer("github.com/humanbelnik/boardmate/internal/usecase/admission")

// core holds what both strategies share: the validation and mutation steps
// that run inside a transaction, and the post-commit notification.
type core struct {
	transactor storage.Transactor
	notifier   Notifier
	logger     zerolog.Logger
	strategy   string
}

func (c *core) startSpan(ctx context.Context, name string, userID, roomID uuid.UUID) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("room.id", roomID.String()),
		attribute.String("user.id", userID.String()),
		attribute.String("admission.strategy", c.strategy),
	))
}

func (c *core) loadUser(ctx context.Context, tx storage.Tx, userID uuid.UUID) (*model.User, error) {
	return tx.Users().Get(ctx, userID)
}

func (c *core) admit(ctx context.Context, tx storage.Tx, room *model.Room, user *model.User) (*model.Participant, error) {
	exists, err := tx.Participants().Exists(ctx, room.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyJoined
	}

	if err := room.AdmitOne(); err != nil {
		return nil, err
	}

	participant := model.NewParticipant(room.ID, user.ID)
	if err := tx.Participants().Create(ctx, participant); err != nil {
		return nil, err
	}
	return participant, nil
}

func (c *core) release(ctx context.Context, tx storage.Tx, room *model.Room, user *model.User) error {
	if room.IsHost(user.ID) {
		return ErrHostCannotLeave
	}

	participant, err := tx.Participants().Find(ctx, room.ID, user.ID)
	if err != nil {
		return err
	}

	if err := room.ReleaseOne(); err != nil {
		return err
	}
	return tx.Participants().Delete(ctx, participant)
}

func (c *core) publishJoin(ctx context.Context, room model.Room, user model.User) {
	c.publish(ctx, model.JoinEvent(room, user))
	if room.IsFull() {
		c.publish(ctx, model.RoomFullEvent(room))
	}
}

func (c *core) publishLeave(ctx context.Context, room model.Room, user model.User) {
	c.publish(ctx, model.LeaveEvent(room, user))
}

// publish never fails the caller: the admission is already committed.
func (c *core) publish(ctx context.Context, event model.RoomEvent) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(context.WithoutCancel(ctx), event); err != nil {
		c.logger.Warn().
			Err(err).
			Str("event", event.Type).
			Str("room_id", event.RoomID.String()).
			Msg("failed to publish room event")
	}
}

func (c *core) fail(span trace.Span, err error) error {
	mapped := mapError(err)
	if errors.Is(mapped, ErrInternal) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error().Err(err).Msg("admission failed")
	}
	return mapped
}

func mapError(err error) error {
	switch {
	case errors.Is(err, storage.ErrRoomNotFound):
		return ErrRoomNotFound
	case errors.Is(err, storage.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, storage.ErrParticipantNotFound):
		return ErrParticipantNotFound
	case errors.Is(err, storage.ErrParticipantExists):
		return ErrAlreadyJoined
	case errors.Is(err, ErrAlreadyJoined),
		errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, ErrRoomClosed),
		errors.Is(err, ErrHostCannotLeave),
		errors.Is(err, ErrParticipantNotFound),
		errors.Is(err, ErrRoomBusy):
		return err
	default:
		return errors.Join(ErrInternal, err)
	}
}

// Selector resolves a strategy name to a Service. An empty name picks the default.
type Selector struct {
	def      string
	services map[string]Service
}

func NewSelector(def string, pessimistic *Pessimistic, optimistic *Optimistic) (*Selector, error) {
	s := &Selector{
		def: def,
		services: map[string]Service{
			StrategyPessimistic: pessimistic,
			StrategyOptimistic:  optimistic,
		},
	}
	if _, ok := s.services[def]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, def)
	}
	return s, nil
}

func (s *Selector) Pick(name string) (Service, error) {
	if name == "" {
		name = s.def
	}
	svc, ok := s.services[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return svc, nil
}
