package infra_redis_notifier

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis"
	"github.com/humanbelnik/boardmate/internal/model"
)

const channelPrefix = "rooms:"

// Driver publishes room events to the rooms:<room_id> channel so that other
// instances can relay them to their own websocket subscribers.
type Driver struct {
	client *redis.Client
}

func New(client *redis.Client) *Driver {
	return &Driver{client: client}
}

func Channel(event model.RoomEvent) string {
	return channelPrefix + event.RoomID.String()
}

func (d *Driver) Notify(ctx context.Context, event model.RoomEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return d.client.WithContext(ctx).Publish(Channel(event), payload).Err()
}
