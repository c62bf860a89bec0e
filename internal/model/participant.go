package model

import (
	"time"

	"github.com/google/uuid"
)

type AttendanceStatus = string

const (
	AttendancePending   AttendanceStatus = "PENDING"
	AttendanceAttended  AttendanceStatus = "ATTENDED"
	AttendanceNoShow    AttendanceStatus = "NO_SHOW"
	AttendanceCancelled AttendanceStatus = "CANCELLED"
)

// Participant is unique per (RoomID, UserID).
type Participant struct {
	ID               uuid.UUID
	RoomID           uuid.UUID
	UserID           uuid.UUID
	AttendanceStatus AttendanceStatus
	JoinedAt         time.Time
	CancelledAt      *time.Time
}

func NewParticipant(roomID, userID uuid.UUID) *Participant {
	return &Participant{
		ID:               uuid.New(),
		RoomID:           roomID,
		UserID:           userID,
		AttendanceStatus: AttendancePending,
		JoinedAt:         time.Now().UTC(),
	}
}

func (p *Participant) MarkAttended() {
	p.AttendanceStatus = AttendanceAttended
}

func (p *Participant) MarkNoShow() {
	p.AttendanceStatus = AttendanceNoShow
}

func (p *Participant) Cancel() {
	now := time.Now().UTC()
	p.AttendanceStatus = AttendanceCancelled
	p.CancelledAt = &now
}

func (p *Participant) UpdateAttendance(status AttendanceStatus) {
	switch status {
	case AttendanceCancelled:
		p.Cancel()
	default:
		p.AttendanceStatus = status
	}
}

func IsValidAttendance(status AttendanceStatus) bool {
	switch status {
	case AttendancePending, AttendanceAttended, AttendanceNoShow, AttendanceCancelled:
		return true
	}
	return false
}
