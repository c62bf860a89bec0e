package infra_memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/humanbelnik/boardmate/internal/model"
	"github.com/humanbelnik/boardmate/internal/storage"
)

type userRepository struct {
	tx *tx
}

func (r userRepository) Create(ctx context.Context, user *model.User) error {
	c := *user
	r.tx.userCreates[user.ID] = &c
	return nil
}

func (r userRepository) Get(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	if c, ok := r.tx.userCreates[userID]; ok {
		u := *c
		return &u, nil
	}

	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return &u, nil
}
