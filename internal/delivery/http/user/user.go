package http_user

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	http_common "github.com/humanbelnik/boardmate/internal/delivery/http/common"
	"github.com/humanbelnik/boardmate/internal/model"
	usecase_user "github.com/humanbelnik/boardmate/internal/usecase/user"
	"github.com/rs/zerolog"
)

type UserUsecase interface {
	Register(ctx context.Context, nickname string) (model.User, error)
	Get(ctx context.Context, userID uuid.UUID) (model.User, error)
}

type Controller struct {
	uc     UserUsecase
	logger zerolog.Logger
}

func New(uc UserUsecase, logger zerolog.Logger) *Controller {
	return &Controller{
		uc:     uc,
		logger: logger,
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.POST("", c.register)
		users.GET("/:user_id", c.get)
	}
}

type RegisterRequestDTO struct {
	Nickname string `json:"nickname" binding:"required"`
}

type UserResponseDTO struct {
	ID        uuid.UUID `json:"id"`
	Nickname  string    `json:"nickname"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Controller) register(ctx *gin.Context) {
	var req RegisterRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		http_common.Error(ctx, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := c.uc.Register(ctx.Request.Context(), req.Nickname)
	if err != nil {
		if errors.Is(err, usecase_user.ErrInvalidNickname) {
			http_common.Error(ctx, http.StatusBadRequest, err.Error())
			return
		}
		c.logger.Error().Err(err).Msg("failed to register user")
		http_common.Internal(ctx)
		return
	}

	ctx.JSON(http.StatusCreated, UserResponseDTO{ID: user.ID, Nickname: user.Nickname, CreatedAt: user.CreatedAt})
}

func (c *Controller) get(ctx *gin.Context) {
	userID, err := uuid.Parse(ctx.Param("user_id"))
	if err != nil {
		http_common.Error(ctx, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := c.uc.Get(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, usecase_user.ErrUserNotFound) {
			http_common.Error(ctx, http.StatusNotFound, "user not found")
			return
		}
		c.logger.Error().Err(err).Msg("failed to get user")
		http_common.Internal(ctx)
		return
	}

	ctx.JSON(http.StatusOK, UserResponseDTO{ID: user.ID, Nickname: user.Nickname, CreatedAt: user.CreatedAt})
}
