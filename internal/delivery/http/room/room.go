package http_room

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	http_common "github.com/humanbelnik/boardmate/internal/delivery/http/common"
	ws_room "github.com/humanbelnik/boardmate/internal/delivery/ws/room"
	"github.com/humanbelnik/boardmate/internal/model"
	usecase_room "github.com/humanbelnik/boardmate/internal/usecase/room"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type RoomUsecase interface {
	Create(ctx context.Context, hostID uuid.UUID, params usecase_room.CreateParams) (model.Room, error)
	Get(ctx context.Context, roomID uuid.UUID) (model.Room, error)
	Search(ctx context.Context, params usecase_room.SearchParams) (usecase_room.Page, error)
	MyRooms(ctx context.Context, userID uuid.UUID) ([]model.Room, error)
	StartGame(ctx context.Context, hostID, roomID uuid.UUID) (model.Room, error)
	Delete(ctx context.Context, hostID, roomID uuid.UUID) error
}

type Controller struct {
	uc           RoomUsecase
	hub          *ws_room.Hub
	userRequired gin.HandlerFunc
	logger       zerolog.Logger
}

func New(
	uc RoomUsecase,
	hub *ws_room.Hub,
	userRequired gin.HandlerFunc,
	logger zerolog.Logger,
) *Controller {
	return &Controller{
		uc:           uc,
		hub:          hub,
		userRequired: userRequired,
		logger:       logger,
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	rooms := router.Group("/rooms")
	{
		rooms.POST("", c.userRequired, c.create)
		rooms.GET("", c.search)
		rooms.GET("/my", c.userRequired, c.myRooms)
		rooms.GET("/:room_id", c.get)
		rooms.DELETE("/:room_id", c.userRequired, c.delete)
		rooms.POST("/:room_id/start", c.userRequired, c.start)
		rooms.GET("/:room_id/ws", c.roomWS)
	}
}

type CreateRequestDTO struct {
	Title        string    `json:"title" binding:"required"`
	Region       string    `json:"region"`
	CafeName     string    `json:"cafe_name"`
	GameDate     time.Time `json:"game_date" binding:"required"`
	Description  string    `json:"description"`
	MaxOccupancy int       `json:"max_occupancy" binding:"required"`
}

type RoomResponseDTO struct {
	ID               uuid.UUID `json:"id"`
	HostID           uuid.UUID `json:"host_id"`
	Title            string    `json:"title"`
	Region           string    `json:"region"`
	CafeName         string    `json:"cafe_name"`
	GameDate         time.Time `json:"game_date"`
	Description      string    `json:"description"`
	MaxOccupancy     int       `json:"max_occupancy"`
	CurrentOccupancy int       `json:"current_occupancy"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

type PageResponseDTO struct {
	Rooms []RoomResponseDTO `json:"rooms"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
	Total int               `json:"total"`
}

type SearchQueryDTO struct {
	Region string `form:"region"`
	Date   string `form:"date"`
	Page   int    `form:"page"`
	Size   int    `form:"size"`
}

const dateLayout = "2006-01-02"

func ToResponse(r model.Room) RoomResponseDTO {
	return RoomResponseDTO{
		ID:               r.ID,
		HostID:           r.HostID,
		Title:            r.Title,
		Region:           r.Region,
		CafeName:         r.CafeName,
		GameDate:         r.GameDate,
		Description:      r.Description,
		MaxOccupancy:     r.MaxOccupancy,
		CurrentOccupancy: r.CurrentOccupancy,
		Status:           r.Status,
		CreatedAt:        r.CreatedAt,
	}
}

func (c *Controller) create(ctx *gin.Context) {
	hostID, err := http_common.UserID(ctx)
	if err != nil {
		http_common.Error(ctx, http.StatusUnauthorized, err.Error())
		return
	}

	var req CreateRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		http_common.Error(ctx, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := c.uc.Create(ctx.Request.Context(), hostID, usecase_room.CreateParams{
		Title:        req.Title,
		Region:       req.Region,
		CafeName:     req.CafeName,
		GameDate:     req.GameDate,
		Description:  req.Description,
		MaxOccupancy: req.MaxOccupancy,
	})
	if err != nil {
		c.fail(ctx, "failed to create room", err)
		return
	}

	ctx.JSON(http.StatusCreated, ToResponse(room))
}

func toResponses(rooms []model.Room) []RoomResponseDTO {
	out := make([]RoomResponseDTO, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, ToResponse(r))
	}
	return out
}

// search serves GET /rooms?region=&date=YYYY-MM-DD&page=&size=.
// Without filters it pages over the joinable room list.
func (c *Controller) search(ctx *gin.Context) {
	var query SearchQueryDTO
	if err := ctx.ShouldBindQuery(&query); err != nil {
		http_common.Error(ctx, http.StatusBadRequest, "invalid query")
		return
	}

	params := usecase_room.SearchParams{
		Region: query.Region,
		Page:   query.Page,
		Size:   query.Size,
	}
	if query.Date != "" {
		date, err := time.ParseInLocation(dateLayout, query.Date, time.UTC)
		if err != nil {
			http_common.Error(ctx, http.StatusBadRequest, "date must be "+dateLayout)
			return
		}
		params.Date = &date
	}

	page, err := c.uc.Search(ctx.Request.Context(), params)
	if err != nil {
		c.fail(ctx, "failed to search rooms", err)
		return
	}

	ctx.JSON(http.StatusOK, PageResponseDTO{
		Rooms: toResponses(page.Rooms),
		Page:  page.Page,
		Size:  page.Size,
		Total: page.Total,
	})
}

func (c *Controller) myRooms(ctx *gin.Context) {
	userID, err := http_common.UserID(ctx)
	if err != nil {
		http_common.Error(ctx, http.StatusUnauthorized, err.Error())
		return
	}

	rooms, err := c.uc.MyRooms(ctx.Request.Context(), userID)
	if err != nil {
		c.fail(ctx, "failed to list user rooms", err)
		return
	}
	ctx.JSON(http.StatusOK, toResponses(rooms))
}

func (c *Controller) get(ctx *gin.Context) {
	roomID, ok := http_common.RoomID(ctx)
	if !ok {
		return
	}

	room, err := c.uc.Get(ctx.Request.Context(), roomID)
	if err != nil {
		c.fail(ctx, "failed to get room", err)
		return
	}
	ctx.JSON(http.StatusOK, ToResponse(room))
}

func (c *Controller) start(ctx *gin.Context) {
	hostID, err := http_common.UserID(ctx)
	if err != nil {
		http_common.Error(ctx, http.StatusUnauthorized, err.Error())
		return
	}
	roomID, ok := http_common.RoomID(ctx)
	if !ok {
		return
	}

	room, err := c.uc.StartGame(ctx.Request.Context(), hostID, roomID)
	if err != nil {
		c.fail(ctx, "failed to start game", err)
		return
	}
	ctx.JSON(http.StatusOK, ToResponse(room))
}

func (c *Controller) delete(ctx *gin.Context) {
	hostID, err := http_common.UserID(ctx)
	if err != nil {
		http_common.Error(ctx, http.StatusUnauthorized, err.Error())
		return
	}
	roomID, ok := http_common.RoomID(ctx)
	if !ok {
		return
	}

	if err := c.uc.Delete(ctx.Request.Context(), hostID, roomID); err != nil {
		c.fail(ctx, "failed to delete room", err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// roomWS subscribes the connection to events of an existing room.
func (c *Controller) roomWS(ctx *gin.Context) {
	roomID, ok := http_common.RoomID(ctx)
	if !ok {
		return
	}

	if _, err := c.uc.Get(ctx.Request.Context(), roomID); err != nil {
		c.fail(ctx, "failed to subscribe to room", err)
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to upgrade to websocket")
		return
	}

	userID, _ := uuid.Parse(ctx.Query("user_id"))
	client := ws_room.NewClient(c.hub, conn, roomID, userID)
	c.hub.RegisterClient(client)

	go c.hub.StartClientReading(client)
	go c.hub.StartClientWriting(client)
}

func (c *Controller) fail(ctx *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, usecase_room.ErrRoomNotFound):
		http_common.Error(ctx, http.StatusNotFound, "room not found")
	case errors.Is(err, usecase_room.ErrUserNotFound):
		http_common.Error(ctx, http.StatusNotFound, "user not found")
	case errors.Is(err, usecase_room.ErrNotHost):
		http_common.Error(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, usecase_room.ErrRoomNotStartable):
		http_common.Error(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, usecase_room.ErrInvalidCapacity),
		errors.Is(err, usecase_room.ErrInvalidPage):
		http_common.Error(ctx, http.StatusBadRequest, err.Error())
	default:
		c.logger.Error().Err(err).Msg(msg)
		http_common.Internal(ctx)
	}
}
