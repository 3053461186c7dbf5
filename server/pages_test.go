package server

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanURLRouting(t *testing.T) {
	app, _ := newTestApp(t, testDeps{})

	tests := []struct {
		path     string
		wantPage string
	}{
		{"/", "feed"},
		{"/feed", "feed"},
		{"/login", "login"},
		{"/signup", "signup"},
		{"/profile", "profile"},
		{"/profile/edit", "profile-edit"},
		{"/write", "write"},
		{"/terms", "terms"},
		{"/privacy", "privacy"},
		{"/feedback", "feedback"},
		{"/onboarding", "onboarding"},
		{"/post/123", "post"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)

			body, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(body), tt.wantPage)
		})
	}
}

func TestUnknownPathServes404Page(t *testing.T) {
	app, _ := newTestApp(t, testDeps{})

	resp, err := app.Test(httptest.NewRequest("GET", "/no-such-page", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "404")
}

func TestHealthCheck(t *testing.T) {
	app, _ := newTestApp(t, testDeps{})

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Status string  `json:"status"`
		Uptime float64 `json:"uptime"`
		Checks struct {
			Redis    string `json:"redis"`
			Database string `json:"database"`
		} `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "healthy", payload.Status)
	assert.GreaterOrEqual(t, payload.Uptime, 0.0)
	assert.Equal(t, "unavailable", payload.Checks.Redis)
	assert.Equal(t, "disabled", payload.Checks.Database)
}

func TestHealthCheck_ReportsUnhealthyRedis(t *testing.T) {
	app, srv := newTestApp(t, testDeps{})
	// A client pointing nowhere: Ping fails, the check must go red.
	srv.redis = redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = srv.redis.Close() })

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var payload struct {
		Status string `json:"status"`
		Checks struct {
			Redis string `json:"redis"`
		} `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "unhealthy", payload.Status, "the body must agree with the status code")
	assert.Equal(t, "unhealthy", payload.Checks.Redis)
}

func TestClientConfig(t *testing.T) {
	app, srv := newTestApp(t, testDeps{})

	resp, err := app.Test(httptest.NewRequest("GET", "/config", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, srv.config.APIBaseURL, payload["API_BASE_URL"])
	assert.Equal(t, "https://upload.example.com", payload["IMAGE_UPLOAD_API"])
	assert.Equal(t, "test", payload["APP_VERSION"])
	_, hasKey := payload["GEMINI_API_KEY"]
	assert.False(t, hasKey, "secrets must never reach the client config")
}
