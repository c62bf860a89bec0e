package infra_postgres_room

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/humanbelnik/boardmate/internal/model"
	"github.com/humanbelnik/boardmate/internal/storage"
	"github.com/jmoiron/sqlx"
)

// Driver works against either the pool or a transaction.
type Driver struct {
	db sqlx.ExtContext
}

func New(db sqlx.ExtContext) *Driver {
	return &Driver{db: db}
}

type roomDTO struct {
	ID               uuid.UUID  `db:"id"`
	HostID           uuid.UUID  `db:"host_id"`
	Title            string     `db:"title"`
	Region           string     `db:"region"`
	CafeName         string     `db:"cafe_name"`
	GameDate         time.Time  `db:"game_date"`
	Description      string     `db:"description"`
	MaxOccupancy     int        `db:"max_occupancy"`
	CurrentOccupancy int        `db:"current_occupancy"`
	Status           string     `db:"status"`
	Version          int64      `db:"version"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
	DeletedAt        *time.Time `db:"deleted_at"`
}

func (dto roomDTO) toModel() *model.Room {
	return &model.Room{
		ID:               dto.ID,
		HostID:           dto.HostID,
		Title:            dto.Title,
		Region:           dto.Region,
		CafeName:         dto.CafeName,
		GameDate:         dto.GameDate,
		Description:      dto.Description,
		MaxOccupancy:     dto.MaxOccupancy,
		CurrentOccupancy: dto.CurrentOccupancy,
		Status:           dto.Status,
		Version:          dto.Version,
		CreatedAt:        dto.CreatedAt,
		UpdatedAt:        dto.UpdatedAt,
		DeletedAt:        dto.DeletedAt,
	}
}

const selectRoom = `
	SELECT id, host_id, title, region, cafe_name, game_date, description,
	       max_occupancy, current_occupancy, status, version, created_at, updated_at, deleted_at
	FROM rooms
`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (d *Driver) Create(ctx context.Context, room *model.Room) error {
	query := `
		INSERT INTO rooms (id, host_id, title, region, cafe_name, game_date, description,
		                   max_occupancy, current_occupancy, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := d.db.ExecContext(ctx, query,
		room.ID,
		room.HostID,
		room.Title,
		room.Region,
		room.CafeName,
		room.GameDate,
		room.Description,
		room.MaxOccupancy,
		room.CurrentOccupancy,
		room.Status,
		room.Version,
		room.CreatedAt,
		room.UpdatedAt,
	)
	return err
}

func (d *Driver) Get(ctx context.Context, roomID uuid.UUID) (*model.Room, error) {
	return d.get(ctx, selectRoom+`WHERE id = $1 AND deleted_at IS NULL`, roomID)
}

// GetForUpdate holds the row lock until the enclosing transaction ends.
func (d *Driver) GetForUpdate(ctx context.Context, roomID uuid.UUID) (*model.Room, error) {
	return d.get(ctx, selectRoom+`WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, roomID)
}

func (d *Driver) get(ctx context.Context, query string, roomID uuid.UUID) (*model.Room, error) {
	var dto roomDTO
	if err := sqlx.GetContext(ctx, d.db, &dto, query, roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRoomNotFound
		}
		return nil, err
	}
	return dto.toModel(), nil
}

func (d *Driver) Save(ctx context.Context, room *model.Room) error {
	query := `
		UPDATE rooms
		SET current_occupancy = $2, status = $3, updated_at = $4, deleted_at = $5, version = version + 1
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING version
	`

	err := d.db.QueryRowxContext(ctx, query,
		room.ID,
		room.CurrentOccupancy,
		room.Status,
		room.UpdatedAt,
		room.DeletedAt,
	).Scan(&room.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrRoomNotFound
		}
		return err
	}
	return nil
}

// SaveVersioned is a compare-and-swap on the version that was read.
// Under READ COMMITTED a concurrent writer makes this UPDATE wait for the row
// lock and then match zero rows. A room deleted meanwhile matches zero rows too.
func (d *Driver) SaveVersioned(ctx context.Context, room *model.Room) error {
	query := `
		UPDATE rooms
		SET current_occupancy = $2, status = $3, updated_at = $4, deleted_at = $5, version = version + 1
		WHERE id = $1 AND version = $6 AND deleted_at IS NULL
		RETURNING version
	`

	err := d.db.QueryRowxContext(ctx, query,
		room.ID,
		room.CurrentOccupancy,
		room.Status,
		room.UpdatedAt,
		room.DeletedAt,
		room.Version,
	).Scan(&room.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrVersionConflict
		}
		return err
	}
	return nil
}

func (d *Driver) ListByStatus(ctx context.Context, status model.RoomStatus) ([]model.Room, error) {
	return d.list(ctx, selectRoom+`WHERE status = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, status)
}

func (d *Driver) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Room, error) {
	query := selectRoom + `
		WHERE id IN (SELECT room_id FROM participants WHERE user_id = $1)
		  AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	return d.list(ctx, query, userID)
}

func (d *Driver) Search(ctx context.Context, filter storage.RoomFilter) ([]model.Room, int, error) {
	conds := []string{"status = $1", "deleted_at IS NULL"}
	args := []any{model.StatusWaiting}

	if filter.Region != "" {
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(filter.Region))+"%")
		conds = append(conds, fmt.Sprintf("LOWER(region) LIKE $%d", len(args)))
	}
	if !filter.GameDateFrom.IsZero() {
		args = append(args, filter.GameDateFrom)
		conds = append(conds, fmt.Sprintf("game_date >= $%d", len(args)))
	}
	if !filter.GameDateTo.IsZero() {
		args = append(args, filter.GameDateTo)
		conds = append(conds, fmt.Sprintf("game_date < $%d", len(args)))
	}
	where := "WHERE " + strings.Join(conds, " AND ")

	var total int
	if err := sqlx.GetContext(ctx, d.db, &total, `SELECT COUNT(*) FROM rooms `+where, args...); err != nil {
		return nil, 0, err
	}

	query := selectRoom + where + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rooms, err := d.list(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return rooms, total, nil
}

func (d *Driver) list(ctx context.Context, query string, args ...any) ([]model.Room, error) {
	var dtos []roomDTO
	if err := sqlx.SelectContext(ctx, d.db, &dtos, query, args...); err != nil {
		return nil, err
	}

	rooms := make([]model.Room, 0, len(dtos))
	for _, dto := range dtos {
		rooms = append(rooms, *dto.toModel())
	}
	return rooms, nil
}
