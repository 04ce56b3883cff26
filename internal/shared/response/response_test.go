package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		write   func(c *gin.Context)
		status  int
		success bool
		code    string
	}{
		{"success", func(c *gin.Context) { Success(c, http.StatusCreated, gin.H{"id": 1}) }, http.StatusCreated, true, ""},
		{"bad request", func(c *gin.Context) { BadRequest(c, "nope") }, http.StatusBadRequest, false, "BAD_REQUEST"},
		{"not found", func(c *gin.Context) { NotFound(c, "gone") }, http.StatusNotFound, false, "NOT_FOUND"},
		{"custom", func(c *gin.Context) { ErrorResponse(c, http.StatusBadGateway, "ORD_PAYMENT_SETUP_FAILED", "x") }, http.StatusBadGateway, false, "ORD_PAYMENT_SETUP_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Set("request_id", "req-42")

			tt.write(c)

			require.Equal(t, tt.status, w.Code)
			var env Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.Equal(t, tt.success, env.Success)
			assert.Equal(t, "req-42", env.RequestID)
			if tt.code == "" {
				assert.Nil(t, env.Error)
			} else {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.code, env.Error.Code)
			}
		})
	}
}

func TestErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ErrorWithDetails(c, http.StatusBadGateway, "ORD_PAYMENT_SETUP_FAILED", "retry later", gin.H{"order_id": "abc"})

	var env struct {
		RequestID *string `json:"request_id"`
		Error     struct {
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "abc", env.Error.Details["order_id"])
	assert.Nil(t, env.RequestID)
}
