package http_user_middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	http_common "github.com/humanbelnik/boardmate/internal/delivery/http/common"
	"github.com/rs/zerolog"
)

const header = "X-user-id"

type Middleware struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Middleware {
	return &Middleware{logger: logger}
}

// UserRequired trusts the X-user-id header. Authentication happens upstream.
func (m *Middleware) UserRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		raw := ctx.GetHeader(header)
		if raw == "" {
			m.logger.Debug().Msgf("no %s header", header)
			http_common.Error(ctx, http.StatusUnauthorized, fmt.Sprintf("no %s header", header))
			ctx.Abort()
			return
		}

		userID, err := uuid.Parse(raw)
		if err != nil {
			m.logger.Debug().Str("provided", raw).Msg("malformed user id")
			http_common.Error(ctx, http.StatusUnauthorized, "invalid user id")
			ctx.Abort()
			return
		}

		ctx.Set(http_common.UserIDKey, userID)
		ctx.Next()
	}
}
