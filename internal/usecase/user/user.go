package usecase_user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/humanbelnik/boardmate/internal/model"
	"github.com/humanbelnik/boardmate/internal/storage"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidNickname = errors.New("nickname must be 1 to 32 characters")
	ErrInternal        = errors.New("internal error")
)

const maxNicknameLen = 32

type Usecase struct {
	transactor storage.Transactor
}

func New(transactor storage.Transactor) *Usecase {
	return &Usecase{transactor: transactor}
}

func (u *Usecase) Register(ctx context.Context, nickname string) (model.User, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || len([]rune(nickname)) > maxNicknameLen {
		return model.User{}, ErrInvalidNickname
	}

	user := model.User{
		ID:        uuid.New(),
		Nickname:  nickname,
		CreatedAt: time.Now().UTC(),
	}
	err := u.transactor.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.Users().Create(ctx, &user)
	})
	if err != nil {
		return model.User{}, errors.Join(ErrInternal, err)
	}
	return user, nil
}

func (u *Usecase) Get(ctx context.Context, userID uuid.UUID) (model.User, error) {
	var user model.User
	err := u.transactor.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		found, err := tx.Users().Get(ctx, userID)
		if err != nil {
			return err
		}
		user = *found
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, errors.Join(ErrInternal, err)
	}
	return user, nil
}
