package ws_room

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/humanbelnik/boardmate/internal/model"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type HubUnitSuite struct {
	suite.Suite
}

func sampleEvent(roomID uuid.UUID) model.RoomEvent {
	room := model.Room{ID: roomID, MaxOccupancy: 4, CurrentOccupancy: 2, Status: model.StatusWaiting}
	return model.JoinEvent(room, model.User{ID: uuid.New(), Nickname: "meeple"})
}

func (suite *HubUnitSuite) TestNotifyReachesOnlyRoomSubscribers(t provider.T) {
	t.Parallel()
	hub := New(zerolog.Nop())

	roomID := uuid.New()
	subscriber := NewClient(hub, nil, roomID, uuid.New())
	outsider := NewClient(hub, nil, uuid.New(), uuid.New())
	hub.RegisterClient(subscriber)
	hub.RegisterClient(outsider)

	event := sampleEvent(roomID)
	require.NoError(t, hub.Notify(context.Background(), event))

	require.Len(t, subscriber.Send, 1)
	assert.Len(t, outsider.Send, 0)

	var got model.RoomEvent
	require.NoError(t, json.Unmarshal(<-subscriber.Send, &got))
	assert.Equal(t, model.EventJoin, got.Type)
	assert.Equal(t, roomID, got.RoomID)
	assert.Equal(t, "meeple", got.Nickname)
}

func (suite *HubUnitSuite) TestSlowClientIsDropped(t provider.T) {
	t.Parallel()
	hub := New(zerolog.Nop())

	roomID := uuid.New()
	slow := NewClient(hub, nil, roomID, uuid.New())
	hub.RegisterClient(slow)

	for range sendBuffer + 1 {
		require.NoError(t, hub.Notify(context.Background(), sampleEvent(roomID)))
	}

	assert.Equal(t, 0, hub.Subscribers(roomID))

	drained := 0
	for range slow.Send {
		drained++
	}
	assert.Equal(t, sendBuffer, drained)
}

func (suite *HubUnitSuite) TestRemoveClientIsIdempotent(t provider.T) {
	t.Parallel()
	hub := New(zerolog.Nop())

	client := NewClient(hub, nil, uuid.New(), uuid.New())
	hub.RegisterClient(client)
	assert.Equal(t, 1, hub.Subscribers(client.RoomID))

	hub.RemoveClient(client)
	hub.RemoveClient(client)

	assert.Equal(t, 0, hub.Subscribers(client.RoomID))
	_, open := <-client.Send
	assert.False(t, open)
}

func TestHubUnitSuite(t *testing.T) {
	suite.RunSuite(t, new(HubUnitSuite))
}
