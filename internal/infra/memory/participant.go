package infra_memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/humanbelnik/boardmate/internal/model"
	"github.com/humanbelnik/boardmate/internal/storage"
)

type participantRepository struct {
	tx *tx
}

func (r participantRepository) Exists(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	_, ok := r.lookup(participantKey{roomID: roomID, userID: userID})
	return ok, nil
}

func (r participantRepository) Find(ctx context.Context, roomID, userID uuid.UUID) (*model.Participant, error) {
	p, ok := r.lookup(participantKey{roomID: roomID, userID: userID})
	if !ok {
		return nil, storage.ErrParticipantNotFound
	}
	return p, nil
}

func (r participantRepository) Create(ctx context.Context, p *model.Participant) error {
	key := participantKey{roomID: p.RoomID, userID: p.UserID}
	if _, ok := r.tx.partCreates[key]; ok {
		return storage.ErrParticipantExists
	}
	c := *p
	r.tx.partCreates[key] = &c
	return nil
}

func (r participantRepository) Delete(ctx context.Context, p *model.Participant) error {
	key := participantKey{roomID: p.RoomID, userID: p.UserID}
	if _, ok := r.tx.partCreates[key]; ok {
		delete(r.tx.partCreates, key)
		return nil
	}
	if _, ok := r.lookup(key); !ok {
		return storage.ErrParticipantNotFound
	}
	r.tx.partDeletes[key] = struct{}{}
	delete(r.tx.partUpdates, key)
	return nil
}

func (r participantRepository) FindByRoom(ctx context.Context, roomID uuid.UUID) ([]model.Participant, error) {
	s := r.tx.store
	s.mu.Lock()
	out := make([]model.Participant, 0)
	for key, p := range s.participants {
		if key.roomID != roomID {
			continue
		}
		if _, deleted := r.tx.partDeletes[key]; deleted {
			continue
		}
		if u, ok := r.tx.partUpdates[key]; ok {
			p = *u
		}
		out = append(out, p)
	}
	s.mu.Unlock()

	for key, p := range r.tx.partCreates {
		if key.roomID == roomID {
			out = append(out, *p)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (r participantRepository) UpdateAttendance(ctx context.Context, p *model.Participant) error {
	key := participantKey{roomID: p.RoomID, userID: p.UserID}
	if c, ok := r.tx.partCreates[key]; ok {
		*c = *p
		return nil
	}
	if _, ok := r.lookup(key); !ok {
		return storage.ErrParticipantNotFound
	}
	c := *p
	r.tx.partUpdates[key] = &c
	return nil
}

func (r participantRepository) lookup(key participantKey) (*model.Participant, bool) {
	if _, deleted := r.tx.partDeletes[key]; deleted {
		return nil, false
	}
	if c, ok := r.tx.partCreates[key]; ok {
		p := *c
		return &p, true
	}
	if u, ok := r.tx.partUpdates[key]; ok {
		p := *u
		return &p, true
	}

	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[key]
	if !ok {
		return nil, false
	}
	return &p, true
}
