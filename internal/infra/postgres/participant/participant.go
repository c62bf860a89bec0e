package infra_postgres_participant

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/humanbelnik/boardmate/internal/infra/postgres/pgerr"
	"github.com/humanbelnik/boardmate/internal/model"
	"github.com/humanbelnik/boardmate/internal/storage"
	"github.com/jmoiron/sqlx"
)

type Driver struct {
	db sqlx.ExtContext
}

func New(db sqlx.ExtContext) *Driver {
	return &Driver{db: db}
}

type participantDTO struct {
	ID               uuid.UUID  `db:"id"`
	RoomID           uuid.UUID  `db:"room_id"`
	UserID           uuid.UUID  `db:"user_id"`
	AttendanceStatus string     `db:"attendance_status"`
	JoinedAt         time.Time  `db:"joined_at"`
	CancelledAt      *time.Time `db:"cancelled_at"`
}

func (dto participantDTO) toModel() model.Participant {
	return model.Participant{
		ID:               dto.ID,
		RoomID:           dto.RoomID,
		UserID:           dto.UserID,
		AttendanceStatus: dto.AttendanceStatus,
		JoinedAt:         dto.JoinedAt,
		CancelledAt:      dto.CancelledAt,
	}
}

const selectParticipant = `
	SELECT id, room_id, user_id, attendance_status, joined_at, cancelled_at
	FROM participants
`

func (d *Driver) Exists(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM participants WHERE room_id = $1 AND user_id = $2)`

	var exists bool
	if err := d.db.QueryRowxContext(ctx, query, roomID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (d *Driver) Find(ctx context.Context, roomID, userID uuid.UUID) (*model.Participant, error) {
	var dto participantDTO
	err := sqlx.GetContext(ctx, d.db, &dto, selectParticipant+`WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrParticipantNotFound
		}
		return nil, err
	}

	p := dto.toModel()
	return &p, nil
}

func (d *Driver) Create(ctx context.Context, p *model.Participant) error {
	query := `
		INSERT INTO participants (id, room_id, user_id, attendance_status, joined_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := d.db.ExecContext(ctx, query,
		p.ID,
		p.RoomID,
		p.UserID,
		p.AttendanceStatus,
		p.JoinedAt,
		p.CancelledAt,
	)
	if err != nil {
		if pgerr.IsUniqueViolation(err) {
			return storage.ErrParticipantExists
		}
		return err
	}
	return nil
}

func (d *Driver) Delete(ctx context.Context, p *model.Participant) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, p.ID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return storage.ErrParticipantNotFound
	}
	return nil
}

func (d *Driver) FindByRoom(ctx context.Context, roomID uuid.UUID) ([]model.Participant, error) {
	var dtos []participantDTO
	if err := sqlx.SelectContext(ctx, d.db, &dtos, selectParticipant+`WHERE room_id = $1 ORDER BY joined_at`, roomID); err != nil {
		return nil, err
	}

	participants := make([]model.Participant, 0, len(dtos))
	for _, dto := range dtos {
		participants = append(participants, dto.toModel())
	}
	return participants, nil
}

func (d *Driver) UpdateAttendance(ctx context.Context, p *model.Participant) error {
	query := `
		UPDATE participants
		SET attendance_status = $2, cancelled_at = $3
		WHERE id = $1
	`

	result, err := d.db.ExecContext(ctx, query, p.ID, p.AttendanceStatus, p.CancelledAt)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return storage.ErrParticipantNotFound
	}
	return nil
}
