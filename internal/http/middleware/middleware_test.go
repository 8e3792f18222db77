package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/market-escrow/internal/models"
	"github.com/ignatzorin/market-escrow/internal/pkg/apperror"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubTokens struct {
	userID uuid.UUID
	role   string
}

func (s stubTokens) ParseAccess(token string) (uuid.UUID, string, error) {
	if token != "good" {
		return uuid.Nil, "", errors.New("bad token")
	}
	return s.userID, s.role, nil
}

func perform(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestErrorHandler_DomainErrors(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/conflict", func(c *gin.Context) { _ = c.Error(apperror.ErrAlreadyResolved) })
	r.GET("/wrapped", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("resolve: %w", apperror.ErrInsufficientBalance))
	})
	r.GET("/internal", func(c *gin.Context) { _ = c.Error(errors.New("pq: connection refused")) })

	w := perform(r, http.MethodGet, "/conflict", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), string(apperror.ErrCodeAlreadyResolved))

	w = perform(r, http.MethodGet, "/wrapped", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = perform(r, http.MethodGet, "/internal", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestAuthMiddlewareAndRequireRole(t *testing.T) {
	userID := uuid.New()
	r := gin.New()
	r.GET("/me", AuthMiddleware(stubTokens{userID: userID, role: models.RoleUser}), func(c *gin.Context) {
		c.String(http.StatusOK, c.MustGet(ContextUserIDKey).(uuid.UUID).String())
	})
	r.GET("/admin", AuthMiddleware(stubTokens{userID: userID, role: models.RoleUser}), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer bad"}).Code)

	w := perform(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer good"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())

	assert.Equal(t, http.StatusForbidden, perform(r, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer good"}).Code)
}

func TestUUIDValidator(t *testing.T) {
	r := gin.New()
	r.GET("/orders/:id", UUIDValidator("id"), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodGet, "/orders/42", nil).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/orders/"+uuid.NewString(), nil).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	store := memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: "test"})
	r := gin.New()
	r.GET("/", RateLimitMiddleware(store, 2, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, perform(r, http.MethodGet, "/", nil).Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RequestLogger())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(r, http.MethodGet, "/", map[string]string{RequestIDHeader: "abc"})
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))

	w = perform(r, http.MethodGet, "/", nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://market.example"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(r, http.MethodOptions, "/", map[string]string{"Origin": "https://market.example"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://market.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = perform(r, http.MethodGet, "/", map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
