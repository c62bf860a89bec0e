package http_participant

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	http_user_middleware "github.com/humanbelnik/boardmate/internal/delivery/http/middleware/user"
	infra_memory "github.com/humanbelnik/boardmate/internal/infra/memory"
	"github.com/humanbelnik/boardmate/internal/model"
	usecase_admission "github.com/humanbelnik/boardmate/internal/usecase/admission"
	usecase_room "github.com/humanbelnik/boardmate/internal/usecase/room"
	usecase_user "github.com/humanbelnik/boardmate/internal/usecase/user"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ParticipantControllerSuite struct {
	suite.Suite
}

type resources struct {
	engine *gin.Engine
	rooms  *usecase_room.Usecase
	users  *usecase_user.Usecase
	ctx    context.Context
}

func initResources(t provider.T) *resources {
	gin.SetMode(gin.TestMode)
	store := infra_memory.New()
	logger := zerolog.Nop()

	pessimistic := usecase_admission.NewPessimistic(store, nil, logger)
	optimistic := usecase_admission.NewOptimistic(store, nil, logger, usecase_admission.DefaultMaxRetry)
	selector, err := usecase_admission.NewSelector(usecase_admission.StrategyPessimistic, pessimistic, optimistic)
	require.NoError(t, err)

	rooms := usecase_room.New(store, nil, nil, logger)
	engine := gin.New()
	New(selector, rooms, http_user_middleware.New(logger).UserRequired(), logger).
		RegisterRoutes(engine.Group("/api/v1"))

	return &resources{
		engine: engine,
		rooms:  rooms,
		users:  usecase_user.New(store),
		ctx:    context.Background(),
	}
}

func (r *resources) do(method, path string, userID uuid.UUID, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req.Header.Set("X-user-id", userID.String())
	}

	rec := httptest.NewRecorder()
	r.engine.ServeHTTP(rec, req)
	return rec
}

func (r *resources) seed(t provider.T, maxOccupancy int) (model.Room, model.User) {
	host, err := r.users.Register(r.ctx, "host")
	require.NoError(t, err)
	room, err := r.rooms.Create(r.ctx, host.ID, usecase_room.CreateParams{
		Title:        "Azul",
		GameDate:     time.Now().Add(time.Hour),
		MaxOccupancy: maxOccupancy,
	})
	require.NoError(t, err)
	return room, host
}

func (r *resources) player(t provider.T) model.User {
	user, err := r.users.Register(r.ctx, "player")
	require.NoError(t, err)
	return user
}

func participantsPath(roomID uuid.UUID) string {
	return "/api/v1/rooms/" + roomID.String() + "/participants"
}

func (suite *ParticipantControllerSuite) TestJoin(t provider.T) {
	t.Parallel()

	for _, strategy := range []string{"", usecase_admission.StrategyPessimistic, usecase_admission.StrategyOptimistic} {
		t.Run("Should admit until full with strategy "+strategy, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			room, _ := r.seed(t, 2)

			first := r.do(http.MethodPost, participantsPath(room.ID)+"?strategy="+strategy, r.player(t).ID, nil)
			require.Equal(t, http.StatusCreated, first.Code)

			var dto ParticipantResponseDTO
			require.NoError(t, json.Unmarshal(first.Body.Bytes(), &dto))
			assert.Equal(t, model.AttendancePending, dto.AttendanceStatus)

			second := r.do(http.MethodPost, participantsPath(room.ID)+"?strategy="+strategy, r.player(t).ID, nil)
			assert.Equal(t, http.StatusConflict, second.Code)
			assert.Contains(t, second.Body.String(), "room is full")
		})
	}

	t.Run("Should map errors to statuses", func(t provider.T) {
		t.Parallel()
		r := initResources(t)
		room, host := r.seed(t, 4)
		player := r.player(t)

		assert.Equal(t, http.StatusUnauthorized, r.do(http.MethodPost, participantsPath(room.ID), uuid.Nil, nil).Code)
		assert.Equal(t, http.StatusBadRequest, r.do(http.MethodPost, "/api/v1/rooms/nope/participants", player.ID, nil).Code)
		assert.Equal(t, http.StatusBadRequest, r.do(http.MethodPost, participantsPath(room.ID)+"?strategy=magic", player.ID, nil).Code)
		assert.Equal(t, http.StatusNotFound, r.do(http.MethodPost, participantsPath(uuid.New()), player.ID, nil).Code)
		assert.Equal(t, http.StatusNotFound, r.do(http.MethodPost, participantsPath(room.ID), uuid.New(), nil).Code)
		assert.Equal(t, http.StatusConflict, r.do(http.MethodPost, participantsPath(room.ID), host.ID, nil).Code)
	})
}

func (suite *ParticipantControllerSuite) TestLeave(t provider.T) {
	t.Parallel()
	r := initResources(t)
	room, host := r.seed(t, 4)
	player := r.player(t)

	require.Equal(t, http.StatusCreated, r.do(http.MethodPost, participantsPath(room.ID), player.ID, nil).Code)

	assert.Equal(t, http.StatusNoContent, r.do(http.MethodDelete, participantsPath(room.ID)+"?strategy=optimistic", player.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, r.do(http.MethodDelete, participantsPath(room.ID), player.ID, nil).Code)
	assert.Equal(t, http.StatusConflict, r.do(http.MethodDelete, participantsPath(room.ID), host.ID, nil).Code)

	list := r.do(http.MethodGet, participantsPath(room.ID), uuid.Nil, nil)
	require.Equal(t, http.StatusOK, list.Code)
	var dtos []ParticipantResponseDTO
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &dtos))
	require.Len(t, dtos, 1)
	assert.Equal(t, host.ID, dtos[0].UserID)
}

func (suite *ParticipantControllerSuite) TestCheckAttendance(t provider.T) {
	t.Parallel()
	r := initResources(t)
	room, host := r.seed(t, 4)
	player := r.player(t)
	require.Equal(t, http.StatusCreated, r.do(http.MethodPost, participantsPath(room.ID), player.ID, nil).Code)

	body := AttendanceRequestDTO{Attendances: []AttendanceItemDTO{{UserID: player.ID, Status: model.AttendanceNoShow}}}

	assert.Equal(t, http.StatusForbidden, r.do(http.MethodPost, participantsPath(room.ID)+"/attendance", player.ID, body).Code)

	rec := r.do(http.MethodPost, participantsPath(room.ID)+"/attendance", host.ID, body)
	require.Equal(t, http.StatusOK, rec.Code)
	var dtos []ParticipantResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dtos))
	require.Len(t, dtos, 1)
	assert.Equal(t, model.AttendanceNoShow, dtos[0].AttendanceStatus)

	late := r.player(t)
	assert.Equal(t, http.StatusConflict, r.do(http.MethodPost, participantsPath(room.ID), late.ID, nil).Code)
}

func TestParticipantControllerSuite(t *testing.T) {
	suite.RunSuite(t, new(ParticipantControllerSuite))
}
