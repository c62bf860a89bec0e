package usecase_room

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/humanbelnik/boardmate/internal/model"
	"github.com/humanbelnik/boardmate/internal/storage"
	"github.com/rs/zerolog"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrNotHost             = errors.New("only the host can do this")
	ErrInvalidCapacity     = model.ErrInvalidCapacity
	ErrRoomNotStartable    = model.ErrRoomNotStartable
	ErrInvalidAttendance   = errors.New("attendance must be ATTENDED or NO_SHOW")
	ErrInvalidPage         = errors.New("page must be non-negative and size between 1 and 100")
	ErrInternal            = errors.New("internal error")
)

type Notifier interface {
	Notify(ctx context.Context, event model.RoomEvent) error
}

//go:generate mockery --name=JoinableSet --output=../../../mocks/joinable_set --filename=joinable_set.go
type JoinableSet interface {
	Add(ctx context.Context, roomID uuid.UUID, version int64) error
	Members(ctx context.Context) ([]uuid.UUID, error)
}

type CreateParams = model.RoomParams

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// SearchParams with no Region and no Date is served from the joinable list.
type SearchParams struct {
	Region string
	// Date selects rooms whose game starts on that calendar day, in Date's location.
	Date *time.Time
	Page int
	Size int
}

func (p SearchParams) filtered() bool {
	return p.Region != "" || p.Date != nil
}

type Page struct {
	Rooms []model.Room
	Page  int
	Size  int
	Total int
}

type AttendanceItem struct {
	UserID uuid.UUID
	Status model.AttendanceStatus
}

type Usecase struct {
	transactor storage.Transactor
	notifier   Notifier
	joinable   JoinableSet
	logger     zerolog.Logger
}

// New accepts a nil notifier and a nil joinable set.
func New(
	transactor storage.Transactor,
	notifier Notifier,
	joinable JoinableSet,
	logger zerolog.Logger,
) *Usecase {
	return &Usecase{
		transactor: transactor,
		notifier:   notifier,
		joinable:   joinable,
		logger:     logger,
	}
}

// Create seats the host as the first participant in the same transaction.
func (u *Usecase) Create(ctx context.Context, hostID uuid.UUID, params CreateParams) (model.Room, error) {
	room, err := model.NewRoom(hostID, params)
	if err != nil {
		return model.Room{}, err
	}

	err = u.transactor.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.Users().Get(ctx, hostID); err != nil {
			return err
		}
		if err := tx.Rooms().Create(ctx, room); err != nil {
			return err
		}
		return tx.Participants().Create(ctx, model.NewParticipant(room.ID, hostID))
	})
	if err != nil {
		return model.Room{}, mapError(err)
	}

	if u.joinable != nil {
		if err := u.joinable.Add(context.WithoutCancel(ctx), room.ID, room.Version); err != nil {
			u.logger.Warn().Err(err).Str("room_id", room.ID.String()).Msg("failed to index joinable room")
		}
	}
	return *room, nil
}

func (u *Usecase) Get(ctx context.Context, roomID uuid.UUID) (model.Room, error) {
	var room model.Room
	err := u.transactor.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		r, err := tx.Rooms().Get(ctx, roomID)
		if err != nil {
			return err
		}
		room = *r
		return nil
	})
	if err != nil {
		return model.Room{}, mapError(err)
	}
	return room, nil
}

// ListWaiting reads the joinable set when one is configured and falls back to
// the store when it is absent or unavailable. The set can be stale, so every
// room is re-read and filtered by its stored status. Newest rooms come first.
func (u *Usecase) ListWaiting(ctx context.Context) ([]model.Room, error) {
	if u.joinable != nil {
		rooms, err := u.listIndexed(ctx)
		if err == nil {
			return rooms, nil
		}
		u.logger.Warn().Err(err).Msg("joinable set unavailable, listing from store")
	}

	var rooms []model.Room
	err := u.transactor.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		rooms, err = tx.Rooms().ListByStatus(ctx, model.StatusWaiting)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return rooms, nil
}

func (u *Usecase) listIndexed(ctx context.Context) ([]model.Room, error) {
	ids, err := u.joinable.Members(ctx)
	if err != nil {
		return nil, err
	}

	rooms := make([]model.Room, 0, len(ids))
	err = u.transactor.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		for _, id := range ids {
			room, err := tx.Rooms().Get(ctx, id)
			if errors.Is(err, storage.ErrRoomNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if room.IsJoinable() {
				rooms = append(rooms, *room)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	return rooms, nil
}

// Search pages through joinable rooms, newest first.
func (u *Usecase) Search(ctx context.Context, params SearchParams) (Page, error) {
	if params.Size == 0 {
		params.Size = DefaultPageSize
	}
	if params.Page < 0 || params.Size < 1 || params.Size > MaxPageSize {
		return Page{}, ErrInvalidPage
	}
	page := Page{Page: params.Page, Size: params.Size}
	offset := params.Page * params.Size

	if !params.filtered() {
		waiting, err := u.ListWaiting(ctx)
		if err != nil {
			return Page{}, err
		}

		page.Total = len(waiting)
		start := min(offset, len(waiting))
		end := min(start+params.Size, len(waiting))
		page.Rooms = waiting[start:end]
		return page, nil
	}

	filter := storage.RoomFilter{
		Region: strings.TrimSpace(params.Region),
		Offset: offset,
		Limit:  params.Size,
	}
	if params.Date != nil {
		d := *params.Date
		filter.GameDateFrom = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
		filter.GameDateTo = filter.GameDateFrom.AddDate(0, 0, 1)
	}

	err := u.transactor.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		page.Rooms, page.Total, err = tx.Rooms().Search(ctx, filter)
		return err
	})
	if err != nil {
		return Page{}, mapError(err)
	}
	return page, nil
}

// MyRooms lists the rooms the user takes part in, hosted ones included.
func (u *Usecase) MyRooms(ctx context.Context, userID uuid.UUID) ([]model.Room, error) {
	var rooms []model.Room
	err := u.transactor.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		rooms, err = tx.Rooms().ListByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return rooms, nil
}

// Delete soft-deletes the room. From then on every lookup, joins and leaves
// included, reports ErrRoomNotFound.
func (u *Usecase) Delete(ctx context.Context, hostID, roomID uuid.UUID) error {
	var room model.Room
	err := u.transactor.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		locked, err := tx.Rooms().GetForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		if _, err := tx.Users().Get(ctx, hostID); err != nil {
			return err
		}
		if !locked.IsHost(hostID) {
			return ErrNotHost
		}

		locked.SoftDelete()
		if err := tx.Rooms().Save(ctx, locked); err != nil {
			return err
		}
		room = *locked
		return nil
	})
	if err != nil {
		return mapError(err)
	}

	u.publish(ctx, model.RoomDeletedEvent(room))
	return nil
}

func (u *Usecase) Participants(ctx context.Context, roomID uuid.UUID) ([]model.Participant, error) {
	var participants []model.Participant
	err := u.transactor.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.Rooms().Get(ctx, roomID); err != nil {
			return err
		}
		var err error
		participants, err = tx.Participants().FindByRoom(ctx, roomID)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return participants, nil
}

func (u *Usecase) StartGame(ctx context.Context, hostID, roomID uuid.UUID) (model.Room, error) {
	var room model.Room
	err := u.transactor.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		locked, err := u.lockAsHost(ctx, tx, hostID, roomID)
		if err != nil {
			return err
		}
		if err := locked.StartGame(); err != nil {
			return err
		}
		if err := tx.Rooms().Save(ctx, locked); err != nil {
			return err
		}
		room = *locked
		return nil
	})
	if err != nil {
		return model.Room{}, mapError(err)
	}

	u.publish(ctx, model.GameStartedEvent(room))
	return room, nil
}

// CheckAttendance ends the meetup: the room is closed for admission and every
// listed participant gets a final attendance status. Nothing is written if any
// item is rejected.
func (u *Usecase) CheckAttendance(ctx context.Context, hostID, roomID uuid.UUID, items []AttendanceItem) ([]model.Participant, error) {
	for _, item := range items {
		if item.Status != model.AttendanceAttended && item.Status != model.AttendanceNoShow {
			return nil, ErrInvalidAttendance
		}
	}

	var (
		room    model.Room
		updated []model.Participant
	)
	err := u.transactor.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		locked, err := u.lockAsHost(ctx, tx, hostID, roomID)
		if err != nil {
			return err
		}

		locked.CloseForAdmission()

		for _, item := range items {
			p, err := tx.Participants().Find(ctx, roomID, item.UserID)
			if err != nil {
				return err
			}
			p.UpdateAttendance(item.Status)
			if err := tx.Participants().UpdateAttendance(ctx, p); err != nil {
				return err
			}
			updated = append(updated, *p)
		}

		if err := tx.Rooms().Save(ctx, locked); err != nil {
			return err
		}
		room = *locked
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}

	u.publish(ctx, model.GameClosedEvent(room))
	return updated, nil
}

func (u *Usecase) lockAsHost(ctx context.Context, tx storage.Tx, hostID, roomID uuid.UUID) (*model.Room, error) {
	room, err := tx.Rooms().GetForUpdate(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(hostID) {
		return nil, ErrNotHost
	}
	return room, nil
}

func (u *Usecase) publish(ctx context.Context, event model.RoomEvent) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.Notify(context.WithoutCancel(ctx), event); err != nil {
		u.logger.Warn().
			Err(err).
			Str("event", event.Type).
			Str("room_id", event.RoomID.String()).
			Msg("failed to publish room event")
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, storage.ErrRoomNotFound):
		return ErrRoomNotFound
	case errors.Is(err, storage.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, storage.ErrParticipantNotFound):
		return ErrParticipantNotFound
	case errors.Is(err, ErrNotHost),
		errors.Is(err, ErrInvalidPage),
		errors.Is(err, ErrRoomNotStartable),
		errors.Is(err, ErrInvalidCapacity):
		return err
	default:
		return errors.Join(ErrInternal, err)
	}
}
