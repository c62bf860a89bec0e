package infra_redis_roomid_set

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
)

const (
	maxWatchAttempts = 5
	// Versions of rooms that stopped changing are forgotten eventually.
	versionTTL = 30 * 24 * time.Hour
)

var ErrContended = errors.New("joinable set update kept losing to concurrent writers")

// Driver keeps the set of rooms that still accept players. Next to the set it
// stores, per room, the room version of the last applied change. Changes that
// carry an older or equal version are dropped.
type Driver struct {
	client *redis.Client
	key    string
}

func New(
	client *redis.Client,
	key string,
) *Driver {
	return &Driver{
		client: client,
		key:    key,
	}
}

func (d *Driver) Add(ctx context.Context, roomID uuid.UUID, version int64) error {
	return d.apply(ctx, roomID, version, true)
}

func (d *Driver) Remove(ctx context.Context, roomID uuid.UUID, version int64) error {
	return d.apply(ctx, roomID, version, false)
}

func (d *Driver) versionKey(roomID uuid.UUID) string {
	return fmt.Sprintf("%s:version:%s", d.key, roomID)
}

func (d *Driver) apply(ctx context.Context, roomID uuid.UUID, version int64, joinable bool) error {
	if roomID == uuid.Nil {
		return nil
	}

	client := d.client.WithContext(ctx)
	versionKey := d.versionKey(roomID)

	txf := func(tx *redis.Tx) error {
		applied, err := tx.Get(versionKey).Int64()
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		case applied >= version:
			return nil
		}

		_, err = tx.Pipelined(func(pipe redis.Pipeliner) error {
			pipe.Set(versionKey, version, versionTTL)
			if joinable {
				pipe.SAdd(d.key, roomID.String())
			} else {
				pipe.SRem(d.key, roomID.String())
			}
			return nil
		})
		return err
	}

	for range maxWatchAttempts {
		err := client.Watch(txf, versionKey)
		if err != redis.TxFailedErr {
			return err
		}
	}
	return ErrContended
}

// Members skips entries that are not valid room ids.
func (d *Driver) Members(ctx context.Context) ([]uuid.UUID, error) {
	raw, err := d.client.WithContext(ctx).SMembers(d.key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
