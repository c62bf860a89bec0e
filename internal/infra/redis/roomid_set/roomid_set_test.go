package infra_redis_roomid_set

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis"
	"github.com/google/uuid"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "boardmate:joinable_rooms"

type RoomIDSetInfraSuite struct {
	suite.Suite
}

type resources struct {
	server *miniredis.Miniredis
	client *redis.Client
	driver *Driver
	ctx    context.Context
}

func initResources(t provider.T) *resources {
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return &resources{
		server: server,
		client: client,
		driver: New(client, testKey),
		ctx:    context.Background(),
	}
}

func (r *resources) isMember(t provider.T, roomID uuid.UUID) bool {
	ok, err := r.client.SIsMember(testKey, roomID.String()).Result()
	require.NoError(t, err)
	return ok
}

func (suite *RoomIDSetInfraSuite) TestAddAndRemove(t provider.T) {
	t.Parallel()
	r := initResources(t)
	roomID := uuid.New()

	require.NoError(t, r.driver.Add(r.ctx, roomID, 0))
	assert.True(t, r.isMember(t, roomID))

	require.NoError(t, r.driver.Remove(r.ctx, roomID, 1))
	assert.False(t, r.isMember(t, roomID))

	require.NoError(t, r.driver.Add(r.ctx, roomID, 2))
	assert.True(t, r.isMember(t, roomID))
}

func (suite *RoomIDSetInfraSuite) TestOutOfOrderChanges(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		apply      func(r *resources, roomID uuid.UUID) error
		wantMember bool
	}{
		{
			name: "Should keep a reopened room when the earlier removal arrives late",
			apply: func(r *resources, roomID uuid.UUID) error {
				if err := r.driver.Add(r.ctx, roomID, 3); err != nil {
					return err
				}
				return r.driver.Remove(r.ctx, roomID, 2)
			},
			wantMember: true,
		},
		{
			name: "Should keep a filled room out when the earlier addition arrives late",
			apply: func(r *resources, roomID uuid.UUID) error {
				if err := r.driver.Remove(r.ctx, roomID, 5); err != nil {
					return err
				}
				return r.driver.Add(r.ctx, roomID, 4)
			},
			wantMember: false,
		},
		{
			name: "Should ignore a second change with the same version",
			apply: func(r *resources, roomID uuid.UUID) error {
				if err := r.driver.Add(r.ctx, roomID, 1); err != nil {
					return err
				}
				return r.driver.Remove(r.ctx, roomID, 1)
			},
			wantMember: true,
		},
		{
			name: "Should let the creation index lose to any later change",
			apply: func(r *resources, roomID uuid.UUID) error {
				if err := r.driver.Remove(r.ctx, roomID, 1); err != nil {
					return err
				}
				return r.driver.Add(r.ctx, roomID, 0)
			},
			wantMember: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			roomID := uuid.New()

			require.NoError(t, tc.apply(r, roomID))

			assert.Equal(t, tc.wantMember, r.isMember(t, roomID))
		})
	}
}

func (suite *RoomIDSetInfraSuite) TestVersionKeyExpires(t provider.T) {
	t.Parallel()
	r := initResources(t)
	roomID := uuid.New()

	require.NoError(t, r.driver.Add(r.ctx, roomID, 7))

	assert.Equal(t, versionTTL, r.server.TTL(r.driver.versionKey(roomID)))
	got, err := r.server.Get(r.driver.versionKey(roomID))
	require.NoError(t, err)
	assert.Equal(t, "7", got)
}

func (suite *RoomIDSetInfraSuite) TestIgnoresNilRoom(t provider.T) {
	t.Parallel()
	r := initResources(t)

	require.NoError(t, r.driver.Add(r.ctx, uuid.Nil, 1))

	assert.False(t, r.server.Exists(testKey))
}

func (suite *RoomIDSetInfraSuite) TestMembers(t provider.T) {
	t.Parallel()

	t.Run("Should skip entries that are not room ids", func(t provider.T) {
		t.Parallel()
		r := initResources(t)
		valid := uuid.New()
		_, err := r.server.SAdd(testKey, valid.String(), "not-a-room", "")
		require.NoError(t, err)

		ids, err := r.driver.Members(r.ctx)

		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{valid}, ids)
	})

	t.Run("Should return nothing for a missing set", func(t provider.T) {
		t.Parallel()
		r := initResources(t)

		ids, err := r.driver.Members(r.ctx)

		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("Should surface connection errors", func(t provider.T) {
		t.Parallel()
		r := initResources(t)
		r.server.Close()

		_, err := r.driver.Members(r.ctx)
		assert.Error(t, err)
		assert.Error(t, r.driver.Add(r.ctx, uuid.New(), 1))
	})
}

func TestRoomIDSetInfraSuite(t *testing.T) {
	suite.RunSuite(t, new(RoomIDSetInfraSuite))
}
