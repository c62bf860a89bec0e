package infra_postgres_user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
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

type userDTO struct {
	ID        uuid.UUID `db:"id"`
	Nickname  string    `db:"nickname"`
	CreatedAt time.Time `db:"created_at"`
}

func (d *Driver) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, nickname, created_at) VALUES ($1, $2, $3)`

	_, err := d.db.ExecContext(ctx, query, user.ID, user.Nickname, user.CreatedAt)
	return err
}

func (d *Driver) Get(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	var dto userDTO
	err := sqlx.GetContext(ctx, d.db, &dto, `SELECT id, nickname, created_at FROM users WHERE id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}

	return &model.User{
		ID:        dto.ID,
		Nickname:  dto.Nickname,
		CreatedAt: dto.CreatedAt,
	}, nil
}
