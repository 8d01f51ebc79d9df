package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRequestIDMiddleware_GenerateID(t *testing.T) {
	// Setup
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := zap.NewNop()
	router.Use(RequestIDMiddleware(logger))
	router.GET("/test", func(c *gin.Context) {
		requestID := GetRequestID(c)
		c.JSON(http.StatusOK, gin.H{"request_id": requestID})
	})

	// Execute
	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)

	responseID := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, responseID)

	// Verify it's a valid UUID
	_, err := uuid.Parse(responseID)
	assert.NoError(t, err)
}

func TestRequestIDMiddleware_UseProvidedID(t *testing.T) {
	// Setup
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := zap.NewNop()
	router.Use(RequestIDMiddleware(logger))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": GetRequestID(c)})
	})

	// Execute
	providedID := uuid.New().String()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(RequestIDHeader, providedID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, providedID, w.Header().Get(RequestIDHeader))
}

func TestIdempotencyMiddleware_DuplicateRequest(t *testing.T) {
	// Setup
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := zap.NewNop()
	store := NewInMemoryRequestIDStore()
	requestID := uuid.New().String()

	// A previous attempt at the same proposal already went through.
	cached := []byte(`{"id":"p-1","status":"pending"}`)
	err := store.Store(context.Background(), idempotencyKey("POST", "/barter", "", requestID), cached, 5*time.Minute)
	assert.NoError(t, err)

	router.Use(RequestIDMiddleware(logger))
	router.Use(IdempotencyMiddleware(store, logger, 5*time.Minute))
	router.POST("/barter", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"id": "p-2", "status": "pending"})
	})

	// Execute - retry carrying the stored ID
	req := httptest.NewRequest("POST", "/barter", nil)
	req.Header.Set(RequestIDHeader, requestID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Assert - cached response replayed, no second proposal opened
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"id":"p-1","status":"pending"}`, w.Body.String())
}

func TestIdempotencyMiddleware_NewRequest(t *testing.T) {
	// Setup
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := zap.NewNop()
	store := NewInMemoryRequestIDStore()

	router.Use(RequestIDMiddleware(logger))
	router.Use(IdempotencyMiddleware(store, logger, 5*time.Minute))
	router.Use(StoreResponseMiddleware(store, logger, 5*time.Minute))
	router.POST("/barter", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "new response"})
	})

	// Execute - first attempt processes normally
	requestID := uuid.New().String()
	req := httptest.NewRequest("POST", "/barter", nil)
	req.Header.Set(RequestIDHeader, requestID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "new response")

	// Execute - retry with the same ID
	req2 := httptest.NewRequest("POST", "/barter", nil)
	req2.Header.Set(RequestIDHeader, requestID)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req2)

	// Assert - identical body comes from the store
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, w.Body.String(), w2.Body.String())
}

func TestIdempotencyMiddleware_ScopedToCaller(t *testing.T) {
	// Setup
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := zap.NewNop()
	store := NewInMemoryRequestIDStore()

	calls := 0
	router.Use(RequestIDMiddleware(logger))
	router.Use(IdempotencyMiddleware(store, logger, 5*time.Minute))
	router.Use(StoreResponseMiddleware(store, logger, 5*time.Minute))
	router.POST("/barter", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"call": calls})
	})

	// Execute - two users reuse the same X-Request-ID
	requestID := uuid.New().String()
	req := httptest.NewRequest("POST", "/barter", nil)
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Authorization", "Bearer token-ana")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	req2 := httptest.NewRequest("POST", "/barter", nil)
	req2.Header.Set(RequestIDHeader, requestID)
	req2.Header.Set("Authorization", "Bearer token-beto")
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req2)

	// Assert - the second caller is processed fresh, not served ana's response
	assert.Equal(t, 2, calls)
	assert.Equal(t, http.StatusCreated, w2.Code)
	assert.NotEqual(t, w.Body.String(), w2.Body.String())
}

func TestIdempotencyMiddleware_ScopedToRoute(t *testing.T) {
	// Setup
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := zap.NewNop()
	store := NewInMemoryRequestIDStore()

	router.Use(RequestIDMiddleware(logger))
	router.Use(IdempotencyMiddleware(store, logger, 5*time.Minute))
	router.Use(StoreResponseMiddleware(store, logger, 5*time.Minute))
	router.POST("/barter", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"resource": "proposal"})
	})
	router.POST("/products", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"resource": "product"})
	})

	// Execute - same ID against two different endpoints
	requestID := uuid.New().String()
	req := httptest.NewRequest("POST", "/barter", nil)
	req.Header.Set(RequestIDHeader, requestID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	req2 := httptest.NewRequest("POST", "/products", nil)
	req2.Header.Set(RequestIDHeader, requestID)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req2)

	// Assert - the barter response is never replayed for the product call
	assert.Equal(t, http.StatusCreated, w2.Code)
	assert.Contains(t, w2.Body.String(), "product")
}

func TestIdempotencyMiddleware_GETRequest(t *testing.T) {
	// Setup
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := zap.NewNop()
	store := NewInMemoryRequestIDStore()

	router.Use(RequestIDMiddleware(logger))
	router.Use(IdempotencyMiddleware(store, logger, 5*time.Minute))
	router.GET("/barter/myproposals", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "response"})
	})

	// Execute
	req := httptest.NewRequest("GET", "/barter/myproposals", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Assert - reads are never checked for idempotency
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestInMemoryRequestIDStore_Expiration(t *testing.T) {
	// Setup
	store := NewInMemoryRequestIDStore()
	requestID := uuid.New().String()
	response := []byte(`{"message":"test"}`)

	err := store.Store(context.Background(), requestID, response, 100*time.Millisecond)
	assert.NoError(t, err)

	exists, err := store.Exists(context.Background(), requestID)
	assert.NoError(t, err)
	assert.True(t, exists)

	// Wait for expiration
	time.Sleep(150 * time.Millisecond)

	exists, err = store.Exists(context.Background(), requestID)
	assert.NoError(t, err)
	assert.False(t, exists)
}
