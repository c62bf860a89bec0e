package http_common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const UserIDKey = "user_id"

var ErrNoUser = errors.New("no user in context")

type ErrorResponse struct {
	Message string `json:"message"`
}

func Error(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, ErrorResponse{Message: message})
}

func Internal(ctx *gin.Context) {
	Error(ctx, http.StatusInternalServerError, "internal error")
}

// UserID returns the caller identity put in the context by the user middleware.
func UserID(ctx *gin.Context) (uuid.UUID, error) {
	v, ok := ctx.Get(UserIDKey)
	if !ok {
		return uuid.Nil, ErrNoUser
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrNoUser
	}
	return id, nil
}

func RoomID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("room_id"))
	if err != nil {
		Error(ctx, http.StatusBadRequest, "invalid room id")
		return uuid.Nil, false
	}
	return id, true
}
