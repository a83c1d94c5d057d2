package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCORSMiddleware(t *testing.T) {
	t.Run("Success_Disabled", func(t *testing.T) {
		assert.Nil(t, createCORSMiddleware(false, "https://app.example.com", discardLogger()))
	})

	t.Run("Success_EnabledWithoutOrigins", func(t *testing.T) {
		assert.Nil(t, createCORSMiddleware(true, "", discardLogger()))
	})

	t.Run("Success_PreflightFromAllowedOrigin", func(t *testing.T) {
		middleware := createCORSMiddleware(true, "https://app.example.com", discardLogger())
		require.NotNil(t, middleware)

		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(middleware)
		router.POST("/v1/checkout", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodOptions, "/v1/checkout", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("Error_DisallowedOrigin", func(t *testing.T) {
		middleware := createCORSMiddleware(true, "https://app.example.com", discardLogger())
		require.NotNil(t, middleware)

		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(middleware)
		router.POST("/v1/checkout", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodOptions, "/v1/checkout", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty string", "", nil},
		{"single origin", "https://app.example.com", []string{"https://app.example.com"}},
		{
			"multiple origins with whitespace",
			" https://app.example.com , https://admin.example.com ",
			[]string{"https://app.example.com", "https://admin.example.com"},
		},
		{"trailing comma", "https://app.example.com,", []string{"https://app.example.com"}},
		{"only commas", ",,,", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseOrigins(tt.input)
			if tt.expected == nil {
				assert.Nil(t, result)
				return
			}
			assert.Equal(t, tt.expected, result)
		})
	}
}
