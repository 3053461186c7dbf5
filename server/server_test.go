package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"anoo/client"
	"anoo/config"
	"anoo/gemini"
	"anoo/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// memDraftStore replaces the Redis draft store in tests.
type memDraftStore struct {
	mu sync.Mutex
	m  map[string]models.Draft
}

func newMemDraftStore() *memDraftStore {
	return &memDraftStore{m: map[string]models.Draft{}}
}

func (s *memDraftStore) Save(_ context.Context, deviceID string, draft models.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[deviceID] = draft
	return nil
}

func (s *memDraftStore) Get(_ context.Context, deviceID string) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.m[deviceID]; ok {
		return &d, nil
	}
	return nil, nil
}

func (s *memDraftStore) Clear(_ context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, deviceID)
	return nil
}

func (s *memDraftStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

type testDeps struct {
	backend    http.HandlerFunc
	gemini     http.HandlerFunc
	geminiKey  string
	proxyHosts string
}

// newTestApp wires a Server against fake upstreams. Redis and the ledger
// stay nil; both fail open by design.
func newTestApp(t *testing.T, deps testDeps) (*fiber.App, *Server) {
	t.Helper()

	backendURL := "http://127.0.0.1:0"
	if deps.backend != nil {
		backendSrv := httptest.NewServer(deps.backend)
		t.Cleanup(backendSrv.Close)
		backendURL = backendSrv.URL
	}

	geminiURL := "http://127.0.0.1:0"
	if deps.gemini != nil {
		geminiSrv := httptest.NewServer(deps.gemini)
		t.Cleanup(geminiSrv.Close)
		geminiURL = geminiSrv.URL
	}

	cfg := &config.Config{
		Port:              "8080",
		AppEnv:            "test",
		AppVersion:        "test",
		PublicDir:         writePublicDir(t),
		APIBaseURL:        backendURL,
		ImageUploadAPI:    "https://upload.example.com",
		GeminiAPIKey:      deps.geminiKey,
		GeminiBaseURL:     geminiURL,
		DeviceTokenSecret: "test-secret-key",
		ImageProxyHosts:   deps.proxyHosts,
		AIDailyLimit:      5,
	}

	api, err := client.New(client.Config{BaseURL: cfg.APIBaseURL})
	require.NoError(t, err)

	srv := &Server{
		config:  cfg,
		api:     api,
		gemini:  gemini.New(gemini.Config{BaseURL: cfg.GeminiBaseURL, APIKey: cfg.GeminiAPIKey}),
		drafts:  newMemDraftStore(),
		quota:   NewQuota(nil, nil, cfg.AIDailyLimit),
		started: time.Now(),
	}

	app := fiber.New(fiber.Config{BodyLimit: 16 * 1024 * 1024})
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)
	return app, srv
}

// writePublicDir lays out the static assets the page routes expect.
func writePublicDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	htmlDir := filepath.Join(dir, "html")
	require.NoError(t, os.MkdirAll(htmlDir, 0o755))

	pages := []string{"feed", "login", "signup", "profile", "profile-edit",
		"write", "terms", "privacy", "feedback", "onboarding", "post", "404"}
	for _, p := range pages {
		content := "<html><body>" + p + "</body></html>"
		require.NoError(t, os.WriteFile(filepath.Join(htmlDir, p+".html"), []byte(content), 0o644))
	}
	return dir
}
