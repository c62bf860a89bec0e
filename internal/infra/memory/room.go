package infra_memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/humanbelnik/boardmate/internal/model"
	"github.com/humanbelnik/boardmate/internal/storage"
)

type roomRepository struct {
	tx *tx
}

func (r roomRepository) Create(ctx context.Context, room *model.Room) error {
	c := *room
	r.tx.roomCreates[room.ID] = &c
	return nil
}

func (r roomRepository) Get(ctx context.Context, roomID uuid.UUID) (*model.Room, error) {
	room, ok := r.tx.lookupRoom(roomID)
	if !ok {
		return nil, storage.ErrRoomNotFound
	}
	return room, nil
}

func (r roomRepository) GetForUpdate(ctx context.Context, roomID uuid.UUID) (*model.Room, error) {
	if err := r.tx.acquire(ctx, roomID); err != nil {
		return nil, err
	}
	return r.Get(ctx, roomID)
}

func (r roomRepository) Save(ctx context.Context, room *model.Room) error {
	return r.write(room, false)
}

func (r roomRepository) SaveVersioned(ctx context.Context, room *model.Room) error {
	return r.write(room, true)
}

// write stamps room with the version it gets once the transaction commits,
// the way UPDATE ... RETURNING version does.
func (r roomRepository) write(room *model.Room, versioned bool) error {
	if w, ok := r.tx.roomWrites[room.ID]; ok {
		room.Version = w.expected + 1
		w.room = room
		w.versioned = w.versioned || versioned
		return nil
	}
	r.tx.roomWrites[room.ID] = &roomWrite{
		room:      room,
		expected:  room.Version,
		versioned: versioned,
	}
	room.Version++
	return nil
}

func (r roomRepository) ListByStatus(ctx context.Context, status model.RoomStatus) ([]model.Room, error) {
	s := r.tx.store
	s.mu.Lock()
	rooms := make([]model.Room, 0)
	for _, room := range s.rooms {
		if room.Status == status && !room.IsDeleted() {
			rooms = append(rooms, room)
		}
	}
	s.mu.Unlock()

	sortNewestFirst(rooms)
	return rooms, nil
}

func (r roomRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Room, error) {
	s := r.tx.store
	s.mu.Lock()
	rooms := make([]model.Room, 0)
	for key := range s.participants {
		if key.userID != userID {
			continue
		}
		if room, ok := s.rooms[key.roomID]; ok && !room.IsDeleted() {
			rooms = append(rooms, room)
		}
	}
	s.mu.Unlock()

	sortNewestFirst(rooms)
	return rooms, nil
}

func (r roomRepository) Search(ctx context.Context, filter storage.RoomFilter) ([]model.Room, int, error) {
	s := r.tx.store
	region := strings.ToLower(filter.Region)

	s.mu.Lock()
	matched := make([]model.Room, 0)
	for _, room := range s.rooms {
		if room.Status != model.StatusWaiting || room.IsDeleted() {
			continue
		}
		if region != "" && !strings.Contains(strings.ToLower(room.Region), region) {
			continue
		}
		if !filter.GameDateFrom.IsZero() && room.GameDate.Before(filter.GameDateFrom) {
			continue
		}
		if !filter.GameDateTo.IsZero() && !room.GameDate.Before(filter.GameDateTo) {
			continue
		}
		matched = append(matched, room)
	}
	s.mu.Unlock()

	sortNewestFirst(matched)
	total := len(matched)

	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matched[start:end], total, nil
}

func sortNewestFirst(rooms []model.Room) {
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
}
