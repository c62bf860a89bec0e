package http_access_middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestReadOnlyBadGatewayMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		mode   string
		method string
		want   int
	}{
		{"RO", http.MethodGet, http.StatusOK},
		{"RO", http.MethodPost, http.StatusBadGateway},
		{"RO", http.MethodDelete, http.StatusBadGateway},
		{"RW", http.MethodPost, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.mode+" "+tc.method, func(t *testing.T) {
			engine := gin.New()
			engine.Use(ReadOnlyBadGatewayMiddleware(tc.mode))
			engine.Handle(tc.method, "/rooms", func(c *gin.Context) { c.Status(http.StatusOK) })

			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, httptest.NewRequest(tc.method, "/rooms", nil))

			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
