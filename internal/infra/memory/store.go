package infra_memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/humanbelnik/boardmate/internal/model"
	"github.com/humanbelnik/boardmate/internal/storage"
)

type participantKey struct {
	roomID uuid.UUID
	userID uuid.UUID
}

// Store is a transactional in-process engine. Writes are buffered per
// transaction and applied atomically at commit. Every room row has an
// exclusive lock that GetForUpdate holds until the transaction ends and that
// commit takes for each written row, the same way an UPDATE waits on a row
// lock in Postgres.
type Store struct {
	mu           sync.Mutex
	rooms        map[uuid.UUID]model.Room
	participants map[participantKey]model.Participant
	users        map[uuid.UUID]model.User
	locks        map[uuid.UUID]*rowLock
}

// rowLock is dropped from Store.locks once nobody holds or waits for it.
type rowLock struct {
	ch   chan struct{}
	refs int
}

func New() *Store {
	return &Store{
		rooms:        make(map[uuid.UUID]model.Room),
		participants: make(map[participantKey]model.Participant),
		users:        make(map[uuid.UUID]model.User),
		locks:        make(map[uuid.UUID]*rowLock),
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	t := newTx(s)
	defer t.release()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(ctx, t); err != nil {
		return err
	}
	return t.commit(ctx)
}

func (s *Store) refLock(roomID uuid.UUID) *rowLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[roomID]
	if !ok {
		l = &rowLock{ch: make(chan struct{}, 1)}
		s.locks[roomID] = l
	}
	l.refs++
	return l
}

func (s *Store) unrefLock(roomID uuid.UUID, l *rowLock) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(s.locks, roomID)
	}
}

type roomWrite struct {
	room      *model.Room
	expected  int64
	versioned bool
}

type tx struct {
	store *Store
	held  map[uuid.UUID]*rowLock

	roomCreates map[uuid.UUID]*model.Room
	roomWrites  map[uuid.UUID]*roomWrite
	userCreates map[uuid.UUID]*model.User

	partCreates map[participantKey]*model.Participant
	partDeletes map[participantKey]struct{}
	partUpdates map[participantKey]*model.Participant
}

func newTx(s *Store) *tx {
	return &tx{
		store:       s,
		held:        make(map[uuid.UUID]*rowLock),
		roomCreates: make(map[uuid.UUID]*model.Room),
		roomWrites:  make(map[uuid.UUID]*roomWrite),
		userCreates: make(map[uuid.UUID]*model.User),
		partCreates: make(map[participantKey]*model.Participant),
		partDeletes: make(map[participantKey]struct{}),
		partUpdates: make(map[participantKey]*model.Participant),
	}
}

func (t *tx) Rooms() storage.RoomRepository               { return roomRepository{t} }
func (t *tx) Participants() storage.ParticipantRepository { return participantRepository{t} }
func (t *tx) Users() storage.UserRepository               { return userRepository{t} }

func (t *tx) acquire(ctx context.Context, roomID uuid.UUID) error {
	if _, ok := t.held[roomID]; ok {
		return nil
	}

	l := t.store.refLock(roomID)
	select {
	case l.ch <- struct{}{}:
		t.held[roomID] = l
		return nil
	case <-ctx.Done():
		t.store.unrefLock(roomID, l)
		return ctx.Err()
	}
}

func (t *tx) release() {
	for id, l := range t.held {
		<-l.ch
		t.store.unrefLock(id, l)
		delete(t.held, id)
	}
}

func (t *tx) commit(ctx context.Context) error {
	ids := make([]uuid.UUID, 0, len(t.roomWrites))
	for id := range t.roomWrites {
		ids = append(ids, id)
	}
	// Fixed order so two committers never wait on each other's rows.
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	for _, id := range ids {
		if err := t.acquire(ctx, id); err != nil {
			return err
		}
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := t.validate(); err != nil {
		return err
	}

	for id, u := range t.userCreates {
		s.users[id] = *u
	}
	for id, r := range t.roomCreates {
		s.rooms[id] = *r
	}
	for id, w := range t.roomWrites {
		stored := s.rooms[id]
		row := *w.room
		row.Version = stored.Version + 1
		s.rooms[id] = row
		w.room.Version = row.Version
	}
	for key := range t.partDeletes {
		delete(s.participants, key)
	}
	for key, p := range t.partCreates {
		s.participants[key] = *p
	}
	for key, p := range t.partUpdates {
		if _, ok := s.participants[key]; ok {
			s.participants[key] = *p
		}
	}
	return nil
}

// validate runs under store.mu.
func (t *tx) validate() error {
	s := t.store
	for id := range t.roomCreates {
		if _, ok := s.rooms[id]; ok {
			return storage.ErrVersionConflict
		}
	}
	for id, w := range t.roomWrites {
		stored, ok := s.rooms[id]
		if !ok {
			if _, created := t.roomCreates[id]; created {
				continue
			}
			return storage.ErrRoomNotFound
		}
		if stored.IsDeleted() {
			return storage.ErrRoomNotFound
		}
		if w.versioned && stored.Version != w.expected {
			return storage.ErrVersionConflict
		}
	}
	for key := range t.partDeletes {
		if _, ok := s.participants[key]; !ok {
			return storage.ErrParticipantNotFound
		}
	}
	for key := range t.partCreates {
		if _, ok := s.participants[key]; ok {
			if _, deleted := t.partDeletes[key]; !deleted {
				return storage.ErrParticipantExists
			}
		}
		if _, ok := s.rooms[key.roomID]; !ok {
			if _, created := t.roomCreates[key.roomID]; !created {
				return storage.ErrRoomNotFound
			}
		}
		if _, ok := s.users[key.userID]; !ok {
			if _, created := t.userCreates[key.userID]; !created {
				return storage.ErrUserNotFound
			}
		}
	}
	return nil
}

// lookupRoom sees this transaction's own writes first, then committed rows.
// Deleted rooms are not found.
func (t *tx) lookupRoom(roomID uuid.UUID) (*model.Room, bool) {
	if w, ok := t.roomWrites[roomID]; ok {
		if w.room.IsDeleted() {
			return nil, false
		}
		r := *w.room
		return &r, true
	}
	if c, ok := t.roomCreates[roomID]; ok {
		r := *c
		return &r, true
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	stored, ok := t.store.rooms[roomID]
	if !ok || stored.IsDeleted() {
		return nil, false
	}
	return &stored, true
}
