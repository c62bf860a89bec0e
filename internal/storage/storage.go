// Package storage declares the transactional persistence contract used by the
// admission and room use cases. Implementations live under internal/infra.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/humanbelnik/boardmate/internal/model"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrParticipantExists   = errors.New("participant already exists")

	// ErrVersionConflict means a version-checked write lost the race against
	// another committed write. Callers may retry the whole transaction.
	ErrVersionConflict = errors.New("room version conflict")
)

type Transactor interface {
	// WithinTx commits when fn returns nil and rolls back otherwise.
	// Row locks taken inside fn are held until WithinTx returns.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	Rooms() RoomRepository
	Participants() ParticipantRepository
	Users() UserRepository
}

// RoomFilter narrows Search to joinable rooms. Zero fields are not applied.
type RoomFilter struct {
	// Region matches case-insensitively anywhere in the room region.
	Region       string
	GameDateFrom time.Time
	GameDateTo   time.Time
	Offset       int
	Limit        int
}

// Soft-deleted rooms are invisible to every read: lookups by id fail with
// ErrRoomNotFound and listings skip them.
type RoomRepository interface {
	Create(ctx context.Context, room *model.Room) error
	Get(ctx context.Context, roomID uuid.UUID) (*model.Room, error)
	// GetForUpdate takes an exclusive lock on the room row. Other lockers and
	// writers of the same row block until the transaction ends; plain reads do not.
	GetForUpdate(ctx context.Context, roomID uuid.UUID) (*model.Room, error)
	// Save writes unconditionally and bumps the version.
	Save(ctx context.Context, room *model.Room) error
	// SaveVersioned writes only if the stored version still equals room.Version,
	// otherwise it fails with ErrVersionConflict.
	SaveVersioned(ctx context.Context, room *model.Room) error
	ListByStatus(ctx context.Context, status model.RoomStatus) ([]model.Room, error)
	// ListByUser returns the rooms userID participates in, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Room, error)
	// Search returns one page of WAITING rooms, newest first, and the number
	// of rooms matching the filter across all pages.
	Search(ctx context.Context, filter RoomFilter) ([]model.Room, int, error)
}

type ParticipantRepository interface {
	Exists(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	Find(ctx context.Context, roomID, userID uuid.UUID) (*model.Participant, error)
	Create(ctx context.Context, p *model.Participant) error
	Delete(ctx context.Context, p *model.Participant) error
	FindByRoom(ctx context.Context, roomID uuid.UUID) ([]model.Participant, error)
	UpdateAttendance(ctx context.Context, p *model.Participant) error
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, userID uuid.UUID) (*model.User, error)
}
