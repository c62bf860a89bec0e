package infra_postgres_tx

import (
	"context"
	"fmt"

	infra_postgres_participant "github.com/humanbelnik/boardmate/internal/infra/postgres/participant"
	infra_postgres_room "github.com/humanbelnik/boardmate/internal/infra/postgres/room"
	infra_postgres_user "github.com/humanbelnik/boardmate/internal/infra/postgres/user"
	"github.com/humanbelnik/boardmate/internal/storage"
	"github.com/jmoiron/sqlx"
)

type Transactor struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Transactor {
	return &Transactor{db: db}
}

type unit struct {
	rooms        *infra_postgres_room.Driver
	participants *infra_postgres_participant.Driver
	users        *infra_postgres_user.Driver
}

func (u *unit) Rooms() storage.RoomRepository               { return u.rooms }
func (u *unit) Participants() storage.ParticipantRepository { return u.participants }
func (u *unit) Users() storage.UserRepository               { return u.users }

// WithinTx runs fn in a READ COMMITTED transaction. A panic in fn rolls the
// transaction back before it propagates.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) (err error) {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && err != nil {
			err = fmt.Errorf("%w: rollback: %v", err, rbErr)
		}
	}()

	if err = fn(ctx, &unit{
		rooms:        infra_postgres_room.New(tx),
		participants: infra_postgres_participant.New(tx),
		users:        infra_postgres_user.New(tx),
	}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
