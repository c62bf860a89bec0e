package service_notifier

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/humanbelnik/boardmate/internal/model"
)

type Sink interface {
	Notify(ctx context.Context, event model.RoomEvent) error
}

// Multi delivers every event to all sinks, even when some of them fail.
type Multi struct {
	sinks []Sink
}

func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *Multi) Notify(ctx context.Context, event model.RoomEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// JoinableIndex applies a change only when version is newer than the last one
// it applied for that room, so late events cannot undo newer ones.
//
//go:generate mockery --name=JoinableIndex --output=../../../mocks/joinable_index --filename=joinable_index.go
type JoinableIndex interface {
	Add(ctx context.Context, roomID uuid.UUID, version int64) error
	Remove(ctx context.Context, roomID uuid.UUID, version int64) error
}

// Joinable keeps the joinable-room index in step with the status carried by
// committed room events.
type Joinable struct {
	index JoinableIndex
}

func NewJoinable(index JoinableIndex) *Joinable {
	return &Joinable{index: index}
}

func (j *Joinable) Notify(ctx context.Context, event model.RoomEvent) error {
	if event.Status == model.StatusWaiting && event.Type != model.EventRoomDeleted {
		return j.index.Add(ctx, event.RoomID, event.Version)
	}
	return j.index.Remove(ctx, event.RoomID, event.Version)
}
