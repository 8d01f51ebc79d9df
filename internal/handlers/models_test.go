package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindJSON[T any](t *testing.T, body string) (T, int) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var got T
	code := 0
	router := gin.New()
	router.POST("/bind", func(c *gin.Context) {
		if err := c.ShouldBindJSON(&got); err != nil {
			code = http.StatusBadRequest
			c.Status(code)
			return
		}
		code = http.StatusOK
		c.Status(code)
	})

	req := httptest.NewRequest("POST", "/bind", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), req)
	return got, code
}

func TestCreateProposalRequestBinding(t *testing.T) {
	recipient := uuid.New().String()
	offered := uuid.New().String()
	requested := uuid.New().String()

	body := `{
		"recipientId": "` + recipient + `",
		"offeredProductIds": ["` + offered + `"],
		"requestedProductIds": ["` + requested + `"],
		"message": "te cambio"
	}`

	got, code := bindJSON[CreateProposalRequest](t, body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, recipient, got.RecipientID)
	assert.Equal(t, []string{offered}, got.OfferedProductIDs)
	assert.Equal(t, []string{requested}, got.RequestedProductIDs)
	assert.Equal(t, "te cambio", got.Message)
}

func TestCreateProposalRequestBindingRejectsMissingItems(t *testing.T) {
	body := `{"recipientId": "` + uuid.New().String() + `", "offeredProductIds": []}`

	_, code := bindJSON[CreateProposalRequest](t, body)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCounterProposalRequestBinding(t *testing.T) {
	offered := uuid.New().String()
	requested := uuid.New().String()

	body := `{
		"offeredProductIds": ["` + offered + `"],
		"requestedProductIds": ["` + requested + `"]
	}`

	got, code := bindJSON[CounterProposalRequest](t, body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{offered}, got.OfferedProductIDs)
	assert.Equal(t, []string{requested}, got.RequestedProductIDs)
}
