package http_participant

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	http_common "github.com/humanbelnik/boardmate/internal/delivery/http/common"
	"github.com/humanbelnik/boardmate/internal/model"
	usecase_admission "github.com/humanbelnik/boardmate/internal/usecase/admission"
	usecase_room "github.com/humanbelnik/boardmate/internal/usecase/room"
	"github.com/rs/zerolog"
)

type StrategyPicker interface {
	Pick(name string) (usecase_admission.Service, error)
}

type RoomUsecase interface {
	Participants(ctx context.Context, roomID uuid.UUID) ([]model.Participant, error)
	CheckAttendance(ctx context.Context, hostID, roomID uuid.UUID, items []usecase_room.AttendanceItem) ([]model.Participant, error)
}

type Controller struct {
	admission    StrategyPicker
	rooms        RoomUsecase
	userRequired gin.HandlerFunc
	logger       zerolog.Logger
}

func New(
	admission StrategyPicker,
	rooms RoomUsecase,
	userRequired gin.HandlerFunc,
	logger zerolog.Logger,
) *Controller {
	return &Controller{
		admission:    admission,
		rooms:        rooms,
		userRequired: userRequired,
		logger:       logger,
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	participants := router.Group("/rooms/:room_id/participants")
	{
		participants.GET("", c.list)
		participants.POST("", c.userRequired, c.join)
		participants.DELETE("", c.userRequired, c.leave)
		participants.POST("/attendance", c.userRequired, c.checkAttendance)
	}
}

type ParticipantResponseDTO struct {
	ID               uuid.UUID  `json:"id"`
	RoomID           uuid.UUID  `json:"room_id"`
	UserID           uuid.UUID  `json:"user_id"`
	AttendanceStatus string     `json:"attendance_status"`
	JoinedAt         time.Time  `json:"joined_at"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
}

func toResponse(p model.Participant) ParticipantResponseDTO {
	return ParticipantResponseDTO{
		ID:               p.ID,
		RoomID:           p.RoomID,
		UserID:           p.UserID,
		AttendanceStatus: p.AttendanceStatus,
		JoinedAt:         p.JoinedAt,
		CancelledAt:      p.CancelledAt,
	}
}

func toResponses(ps []model.Participant) []ParticipantResponseDTO {
	out := make([]ParticipantResponseDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, toResponse(p))
	}
	return out
}

type AttendanceItemDTO struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Status string    `json:"status" binding:"required"`
}

type AttendanceRequestDTO struct {
	Attendances []AttendanceItemDTO `json:"attendances"`
}

// identify resolves caller, room and admission strategy. It writes the error
// response itself and reports whether the handler may continue.
func (c *Controller) identify(ctx *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := http_common.UserID(ctx)
	if err != nil {
		http_common.Error(ctx, http.StatusUnauthorized, err.Error())
		return uuid.Nil, uuid.Nil, false
	}
	roomID, ok := http_common.RoomID(ctx)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return userID, roomID, true
}

func (c *Controller) join(ctx *gin.Context) {
	userID, roomID, ok := c.identify(ctx)
	if !ok {
		return
	}
	svc, err := c.admission.Pick(ctx.Query("strategy"))
	if err != nil {
		http_common.Error(ctx, http.StatusBadRequest, err.Error())
		return
	}

	participant, err := svc.Join(ctx.Request.Context(), userID, roomID)
	if err != nil {
		c.fail(ctx, "failed to join room", err)
		return
	}
	ctx.JSON(http.StatusCreated, toResponse(participant))
}

func (c *Controller) leave(ctx *gin.Context) {
	userID, roomID, ok := c.identify(ctx)
	if !ok {
		return
	}
	svc, err := c.admission.Pick(ctx.Query("strategy"))
	if err != nil {
		http_common.Error(ctx, http.StatusBadRequest, err.Error())
		return
	}

	if err := svc.Leave(ctx.Request.Context(), userID, roomID); err != nil {
		c.fail(ctx, "failed to leave room", err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *Controller) list(ctx *gin.Context) {
	roomID, ok := http_common.RoomID(ctx)
	if !ok {
		return
	}

	participants, err := c.rooms.Participants(ctx.Request.Context(), roomID)
	if err != nil {
		c.fail(ctx, "failed to list participants", err)
		return
	}
	ctx.JSON(http.StatusOK, toResponses(participants))
}

func (c *Controller) checkAttendance(ctx *gin.Context) {
	hostID, roomID, ok := c.identify(ctx)
	if !ok {
		return
	}

	var req AttendanceRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		http_common.Error(ctx, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]usecase_room.AttendanceItem, 0, len(req.Attendances))
	for _, a := range req.Attendances {
		items = append(items, usecase_room.AttendanceItem{UserID: a.UserID, Status: a.Status})
	}

	updated, err := c.rooms.CheckAttendance(ctx.Request.Context(), hostID, roomID, items)
	if err != nil {
		c.fail(ctx, "failed to check attendance", err)
		return
	}
	ctx.JSON(http.StatusOK, toResponses(updated))
}

func (c *Controller) fail(ctx *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, usecase_admission.ErrRoomNotFound),
		errors.Is(err, usecase_room.ErrRoomNotFound):
		http_common.Error(ctx, http.StatusNotFound, "room not found")
	case errors.Is(err, usecase_admission.ErrUserNotFound),
		errors.Is(err, usecase_room.ErrUserNotFound):
		http_common.Error(ctx, http.StatusNotFound, "user not found")
	case errors.Is(err, usecase_admission.ErrParticipantNotFound),
		errors.Is(err, usecase_room.ErrParticipantNotFound):
		http_common.Error(ctx, http.StatusNotFound, "participant not found")
	case errors.Is(err, usecase_admission.ErrAlreadyJoined),
		errors.Is(err, usecase_admission.ErrCapacityExceeded),
		errors.Is(err, usecase_admission.ErrRoomClosed),
		errors.Is(err, usecase_admission.ErrHostCannotLeave),
		errors.Is(err, usecase_admission.ErrRoomBusy):
		http_common.Error(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, usecase_room.ErrNotHost):
		http_common.Error(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, usecase_room.ErrInvalidAttendance):
		http_common.Error(ctx, http.StatusBadRequest, err.Error())
	default:
		c.logger.Error().Err(err).Msg(msg)
		http_common.Internal(ctx)
	}
}
