package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type RoomStatus = string

const (
	StatusWaiting RoomStatus = "WAITING"
	StatusFull    RoomStatus = "FULL"
	StatusPlaying RoomStatus = "PLAYING"
	StatusClosed  RoomStatus = "CLOSED"
)

var (
	ErrCapacityExceeded = errors.New("room is full")
	ErrRoomClosed       = errors.New("room is closed")
	ErrRoomEmpty        = errors.New("room has no occupants")
	ErrInvalidCapacity  = errors.New("max occupancy must be at least 2")
	ErrRoomNotStartable = errors.New("room is not waiting for players")
)

// Room is the capacity-bounded meetup aggregate.
// Occupancy and status are only changed through its methods.
type Room struct {
	ID               uuid.UUID
	HostID           uuid.UUID
	Title            string
	Region           string
	CafeName         string
	GameDate         time.Time
	Description      string
	MaxOccupancy     int
	CurrentOccupancy int
	Status           RoomStatus
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

type RoomParams struct {
	Title        string
	Region       string
	CafeName     string
	GameDate     time.Time
	Description  string
	MaxOccupancy int
}

// NewRoom seats the host right away, so a fresh room starts with one occupant.
func NewRoom(hostID uuid.UUID, p RoomParams) (*Room, error) {
	if p.MaxOccupancy < 2 {
		return nil, ErrInvalidCapacity
	}

	now := time.Now().UTC()
	return &Room{
		ID:               uuid.New(),
		HostID:           hostID,
		Title:            p.Title,
		Region:           p.Region,
		CafeName:         p.CafeName,
		GameDate:         p.GameDate,
		Description:      p.Description,
		MaxOccupancy:     p.MaxOccupancy,
		CurrentOccupancy: 1,
		Status:           StatusWaiting,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// AdmitOne takes one seat. It reaches FULL on the admission that hits the cap.
func (r *Room) AdmitOne() error {
	if r.Status == StatusClosed {
		return ErrRoomClosed
	}
	if r.CurrentOccupancy >= r.MaxOccupancy {
		return ErrCapacityExceeded
	}

	r.CurrentOccupancy++
	if r.CurrentOccupancy == r.MaxOccupancy && r.Status == StatusWaiting {
		r.Status = StatusFull
	}
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// ReleaseOne frees one seat. A FULL room goes back to WAITING.
func (r *Room) ReleaseOne() error {
	if r.Status == StatusClosed {
		return ErrRoomClosed
	}
	if r.CurrentOccupancy <= 0 {
		return ErrRoomEmpty
	}

	r.CurrentOccupancy--
	if r.Status == StatusFull {
		r.Status = StatusWaiting
	}
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Room) StartGame() error {
	if r.Status != StatusWaiting && r.Status != StatusFull {
		return ErrRoomNotStartable
	}
	r.Status = StatusPlaying
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// CloseForAdmission is terminal: no joins or leaves are accepted afterwards.
func (r *Room) CloseForAdmission() {
	if r.Status == StatusClosed {
		return
	}
	r.Status = StatusClosed
	r.UpdatedAt = time.Now().UTC()
}

// SoftDelete hides the room from every lookup. Participant rows are kept.
func (r *Room) SoftDelete() {
	if r.DeletedAt != nil {
		return
	}
	now := time.Now().UTC()
	r.DeletedAt = &now
	r.UpdatedAt = now
}

func (r *Room) IsDeleted() bool {
	return r.DeletedAt != nil
}

func (r *Room) IsHost(userID uuid.UUID) bool {
	return r.HostID == userID
}

func (r *Room) IsFull() bool {
	return r.CurrentOccupancy >= r.MaxOccupancy
}

func (r *Room) IsJoinable() bool {
	return r.Status == StatusWaiting
}
