package handler

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Alwanly/guang-panel/internal/config"
	authentication "github.com/Alwanly/guang-panel/pkg/auth"
	"github.com/Alwanly/guang-panel/pkg/database"
	"github.com/Alwanly/guang-panel/pkg/deps"
	"github.com/Alwanly/guang-panel/pkg/logger"
	"github.com/Alwanly/guang-panel/pkg/middleware"
	"github.com/Alwanly/guang-panel/pkg/poll"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type result struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T, backend http.HandlerFunc, auth *authentication.BasicAuthTConfig) (*fiber.App, *Handler) {
	t.Helper()
	return newTestAppWithDB(t, backend, auth, nil)
}

func newTestAppWithDB(t *testing.T, backend http.HandlerFunc, auth *authentication.BasicAuthTConfig, db *gorm.DB) (*fiber.App, *Handler) {
	t.Helper()
	ts := httptest.NewServer(backend)
	t.Cleanup(ts.Close)

	log := logger.NewNop()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(log),
	})
	app.Use(middleware.CanonicalLoggerMiddleware(log, "/health"))

	cfg := &config.PanelConfig{
		BackendURL:      ts.URL,
		RequestTimeout:  time.Second,
		BeaconInterval:  5 * time.Second,
		UpdateInterval:  5 * time.Second,
		WorkersInterval: 2500 * time.Millisecond,
		MessagesMaxShow: 10,
		ScanMaxRows:     10,
	}

	d := deps.App{
		Fiber:      app,
		Database:   db,
		Logger:     log,
		Middleware: middleware.NewAuthMiddleware(middleware.SetBasicAuth(auth)),
		Poller:     poll.NewPoller(log),
	}
	h, err := NewHandler(d, cfg, config.DefaultFacilities())
	if err != nil {
		t.Fatalf("failed to create handler: %v", err)
	}
	return app, h
}

func do(t *testing.T, app *fiber.App, method, path, body string, header ...string) (int, result) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var res result
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &res)
	return resp.StatusCode, res
}

func okBackend(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasPrefix(r.URL.Path, "/ajax/spawn_worker/"):
		_, _ = w.Write([]byte(`{"Status":true,"NewCnt":12}`))
	case strings.HasPrefix(r.URL.Path, "/ajax/stop_worker/"):
		_, _ = w.Write([]byte(`{"Status":false,"Message":"busy"}`))
	default:
		_, _ = w.Write([]byte(`{"Status":true}`))
	}
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, okBackend, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestSpawnWorkers(t *testing.T) {
	app, h := newTestApp(t, okBackend, nil)

	code, res := do(t, app, http.MethodPost, "/api/facilities/Scanner/spawn", `{"amount":5}`)
	if code != http.StatusOK || !res.Success {
		t.Fatalf("expected success, got %d %+v", code, res)
	}
	var body struct {
		Facility struct {
			Count int `json:"count"`
		} `json:"facility"`
	}
	_ = json.Unmarshal(res.Data, &body)
	if body.Facility.Count != 12 {
		t.Fatalf("expected count 12, got %d", body.Facility.Count)
	}
	if h.UseCase.Messages.Len() != 0 {
		t.Fatalf("expected empty message log")
	}
}

func TestSpawnWorkers_DefaultAmount(t *testing.T) {
	var path string
	app, _ := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		okBackend(w, r)
	}, nil)

	if code, _ := do(t, app, http.MethodPost, "/api/facilities/XFR/spawn", ""); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if path != "/ajax/spawn_worker/4/1" {
		t.Fatalf("expected default amount 1, got %s", path)
	}
}

func TestStopWorkers_BackendRefusal(t *testing.T) {
	app, h := newTestApp(t, okBackend, nil)

	code, res := do(t, app, http.MethodPost, "/api/facilities/Scanner/stop", `{"amount":1}`)
	if code != http.StatusBadGateway || res.Success {
		t.Fatalf("expected 502, got %d %+v", code, res)
	}
	if !strings.Contains(res.Message, "busy") {
		t.Fatalf("expected backend message, got %q", res.Message)
	}
	if h.UseCase.Messages.Len() != 1 {
		t.Fatalf("expected one ERROR entry, got %d", h.UseCase.Messages.Len())
	}
}

func TestWorkerRoutes_Validation(t *testing.T) {
	app, _ := newTestApp(t, okBackend, nil)

	if code, _ := do(t, app, http.MethodPost, "/api/facilities/Toaster/spawn", `{"amount":1}`); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown facility, got %d", code)
	}
	if code, _ := do(t, app, http.MethodPost, "/api/facilities/Scanner/spawn", `{"amount":-2}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative amount, got %d", code)
	}
	if code, _ := do(t, app, http.MethodPost, "/api/facilities/Scanner/spawn", `{"amount":`); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", code)
	}
}

func TestMessages(t *testing.T) {
	app, _ := newTestApp(t, okBackend, nil)

	code, res := do(t, app, http.MethodPost, "/api/messages", `{"message":"hello"}`)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %+v", code, res)
	}
	var row struct {
		ID    string `json:"id"`
		Level string `json:"level"`
	}
	_ = json.Unmarshal(res.Data, &row)
	if row.Level != "DEBUG" || row.ID == "" {
		t.Fatalf("unexpected row %+v", row)
	}

	if code, _ := do(t, app, http.MethodPost, "/api/messages", `{"message":""}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty message, got %d", code)
	}

	if code, _ := do(t, app, http.MethodDelete, "/api/messages/"+row.ID, ""); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	code, res = do(t, app, http.MethodGet, "/api/messages", "")
	var log struct {
		Count   int  `json:"count"`
		Visible bool `json:"visible"`
	}
	_ = json.Unmarshal(res.Data, &log)
	if code != http.StatusOK || log.Count != 0 || log.Visible {
		t.Fatalf("expected empty hidden log, got %d %+v", code, log)
	}
}

func TestPostMessage_DuplicateIsConflict(t *testing.T) {
	app, h := newTestApp(t, okBackend, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.UseCase.Now = func() time.Time { return now }

	if code, _ := do(t, app, http.MethodPost, "/api/messages", `{"level":"INFO","message":"hello"}`); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}

	code, res := do(t, app, http.MethodPost, "/api/messages", `{"level":"INFO","message":"hello"}`)
	var row struct {
		ID       string `json:"id"`
		Accepted bool   `json:"accepted"`
	}
	_ = json.Unmarshal(res.Data, &row)
	if code != http.StatusConflict || res.Success || row.Accepted || row.ID == "" {
		t.Fatalf("expected 409 with accepted=false, got %d %+v", code, row)
	}
	if h.UseCase.Messages.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", h.UseCase.Messages.Len())
	}
}

func TestSettings(t *testing.T) {
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "panel.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	app, _ := newTestAppWithDB(t, okBackend, nil, db)

	if code, _ := do(t, app, http.MethodPut, "/api/pollers/update", `{"interval_ms":1000,"enabled":false}`); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	code, res := do(t, app, http.MethodGet, "/api/settings", "")
	var settings []struct {
		Category string `json:"category"`
		Key      string `json:"key"`
		Value    string `json:"value"`
	}
	_ = json.Unmarshal(res.Data, &settings)
	if code != http.StatusOK || len(settings) != 2 {
		t.Fatalf("expected 2 settings, got %d %+v", code, settings)
	}
	if settings[0].Key != "active" || settings[0].Value != "false" || settings[1].Key != "interval" || settings[1].Value != "1000" {
		t.Fatalf("unexpected settings %+v", settings)
	}
}

func TestSettings_WithoutDatabase(t *testing.T) {
	app, _ := newTestApp(t, okBackend, nil)

	code, res := do(t, app, http.MethodGet, "/api/settings", "")
	if code != http.StatusOK || string(res.Data) != "[]" {
		t.Fatalf("expected empty list, got %d %s", code, res.Data)
	}
}

func TestSetCapacity(t *testing.T) {
	app, h := newTestApp(t, okBackend, nil)

	if code, _ := do(t, app, http.MethodPut, "/api/messages/capacity", `{"capacity":-1}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if code, _ := do(t, app, http.MethodPut, "/api/messages/capacity", `{"capacity":3}`); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if h.UseCase.Messages.Capacity() != 3 {
		t.Fatalf("expected capacity 3, got %d", h.UseCase.Messages.Capacity())
	}
}

func TestPollers(t *testing.T) {
	app, _ := newTestApp(t, okBackend, nil)

	code, res := do(t, app, http.MethodGet, "/api/pollers", "")
	var pollers []struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(res.Data, &pollers)
	if code != http.StatusOK || len(pollers) != 3 {
		t.Fatalf("expected 3 pollers, got %d %+v", code, pollers)
	}

	if code, _ := do(t, app, http.MethodPut, "/api/pollers/workers", `{"interval_ms":0}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero interval, got %d", code)
	}
	if code, _ := do(t, app, http.MethodPut, "/api/pollers/workers", `{"interval_ms":18446744073710}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for overflowing interval, got %d", code)
	}
	if code, _ := do(t, app, http.MethodPut, "/api/pollers/nope", `{"enabled":false}`); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown task, got %d", code)
	}

	if code, _ := do(t, app, http.MethodPut, "/api/pollers/beacon", `{"enabled":false}`); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	_, res = do(t, app, http.MethodGet, "/api/beacon", "")
	var beacon struct {
		Suspended bool   `json:"suspended"`
		Text      string `json:"text"`
	}
	_ = json.Unmarshal(res.Data, &beacon)
	if !beacon.Suspended || beacon.Text != "Beacon is suspended" {
		t.Fatalf("unexpected beacon %+v", beacon)
	}
}

func TestShutdown_NeedsConfirm(t *testing.T) {
	calls := 0
	app, _ := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		okBackend(w, r)
	}, nil)

	if code, _ := do(t, app, http.MethodPost, "/api/shutdown", `{"confirm":false}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if code, _ := do(t, app, http.MethodPost, "/api/shutdown", `{"confirm":true}`); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one backend call, got %d", calls)
	}
}

func TestBasicAuth_ProtectsMutatingRoutes(t *testing.T) {
	app, _ := newTestApp(t, okBackend, &authentication.BasicAuthTConfig{Username: "admin", Password: "pw"})

	if code, _ := do(t, app, http.MethodGet, "/api/messages", ""); code != http.StatusOK {
		t.Fatalf("reads must stay open, got %d", code)
	}
	if code, _ := do(t, app, http.MethodPost, "/api/maintenance/db", ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", code)
	}

	token := "Basic " + base64.StdEncoding.EncodeToString([]byte("admin:pw"))
	code, res := do(t, app, http.MethodPost, "/api/maintenance/db", "", "Authorization", token)
	if code != http.StatusOK || !res.Success {
		t.Fatalf("expected 200 with credentials, got %d %+v", code, res)
	}
}

func TestErrorHandler_UnknownRoute(t *testing.T) {
	app, _ := newTestApp(t, okBackend, nil)

	code, res := do(t, app, http.MethodGet, "/api/nowhere", "")
	if code != http.StatusNotFound || res.Success {
		t.Fatalf("expected 404 envelope, got %d %+v", code, res)
	}
}
