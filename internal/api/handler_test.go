package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/signcfg/internal/release"
	"github.com/eugenenazirov/signcfg/internal/signing"
	"github.com/eugenenazirov/signcfg/internal/storage"
)

type controllableClock struct {
	mu  sync.RWMutex
	now time.Time
}

func newControllableClock(initial time.Time) *controllableClock {
	return &controllableClock{now: initial}
}

func (c *controllableClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *controllableClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var testClock = newControllableClock(time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC))

// newTestHandler builds a handler over a temp project directory. An empty
// content leaves the properties file absent.
func newTestHandler(t *testing.T, content string) (*Handler, *controllableClock) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "key.properties")
	if content != "" {
		writeTestFile(t, path, content)
	}

	planner, err := release.New(dir, release.FallbackUnsigned)
	if err != nil {
		t.Fatalf("release.New returned error: %v", err)
	}

	clock := newControllableClock(testClock.Now())
	handler := NewHandler(signing.NewLoader(), planner, storage.NewMemoryStorage(), path, WithClock(clock.Now))
	return handler, clock
}

func setupTestRouter(t *testing.T, content string) (http.Handler, *Handler, *controllableClock) {
	t.Helper()

	handler, clock := newTestHandler(t, content)
	if _, err := handler.Reload(); err != nil {
		t.Fatalf("initial Reload returned error: %v", err)
	}
	logger := zaptest.NewLogger(t)
	router := NewRouter(handler, logger, WithLogging(false))

	return router, handler, clock
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func serve(router http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type signingBody struct {
	Mode              string    `json:"mode"`
	Source            string    `json:"source"`
	Found             bool      `json:"found"`
	StoreFile         string    `json:"storeFile"`
	KeyAlias          string    `json:"keyAlias"`
	StorePasswordSet  bool      `json:"storePasswordSet"`
	KeyPasswordSet    bool      `json:"keyPasswordSet"`
	UnrecognizedKeys  []string  `json:"unrecognizedKeys"`
	Verified          bool      `json:"verified"`
	VerificationError string    `json:"verificationError"`
	LoadedAt          time.Time `json:"loadedAt"`
	Message           string    `json:"message"`
}

func decodeSigning(t *testing.T, rec *httptest.ResponseRecorder) signingBody {
	t.Helper()
	var body signingBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func TestRequestIDHelpers(t *testing.T) {
	ctx := contextWithRequestID(context.Background(), "abc")
	if got := requestIDFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %s", got)
	}
	resp := httptest.NewRecorder()
	writeInternalError(resp, assertError("boom"))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.Code)
	}
}

type assertError string

func (a assertError) Error() string { return string(a) }

func TestHealthEndpoint(t *testing.T) {
	router, _, clock := setupTestRouter(t, "")

	rec := serve(router, http.MethodGet, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if body.Status != "ok" {
		t.Fatalf("expected status ok, got %s", body.Status)
	}
	if !body.Timestamp.Equal(clock.Now()) {
		t.Fatalf("expected timestamp %s, got %s", clock.Now(), body.Timestamp)
	}
}

func TestGetSigningMissingFileIsUnsigned(t *testing.T) {
	router, handler, clock := setupTestRouter(t, "")

	rec := serve(router, http.MethodGet, "/api/signing")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := decodeSigning(t, rec)
	if body.Mode != string(release.ModeUnsigned) {
		t.Fatalf("expected unsigned mode, got %s", body.Mode)
	}
	if body.Found {
		t.Fatalf("expected missing file to be reported")
	}
	if body.Source != handler.path {
		t.Fatalf("expected source %s, got %s", handler.path, body.Source)
	}
	if !body.Verified {
		t.Fatalf("unsigned plans always verify, got %+v", body)
	}
	if !body.LoadedAt.Equal(clock.Now()) {
		t.Fatalf("expected loadedAt %s, got %s", clock.Now(), body.LoadedAt)
	}
}

func TestGetSigningNeverReturnsSecrets(t *testing.T) {
	router, handler, _ := setupTestRouter(t, "storeFile=upload.jks\nstorePassword=hunter2\nkeyAlias=upload\nkeyPassword=swordfish\nextra=1\n")
	writeTestFile(t, filepath.Join(filepath.Dir(handler.path), "upload.jks"), "keystore")

	rec := serve(router, http.MethodGet, "/api/signing")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	raw := rec.Body.String()
	if strings.Contains(raw, "hunter2") || strings.Contains(raw, "swordfish") {
		t.Fatalf("response leaked a password: %s", raw)
	}

	body := decodeSigning(t, rec)
	if body.Mode != string(release.ModeRelease) || body.KeyAlias != "upload" {
		t.Fatalf("unexpected body %+v", body)
	}
	if !body.StorePasswordSet || !body.KeyPasswordSet {
		t.Fatalf("expected passwords to be reported as set")
	}
	if !body.Verified {
		t.Fatalf("expected plan to verify, got %s", body.VerificationError)
	}
	if len(body.UnrecognizedKeys) != 1 || body.UnrecognizedKeys[0] != "extra" {
		t.Fatalf("unexpected unrecognized keys %v", body.UnrecognizedKeys)
	}
}

func TestGetSigningBeforeLoad(t *testing.T) {
	handler, _ := newTestHandler(t, "")
	router := NewRouter(handler, zaptest.NewLogger(t), WithLogging(false))

	rec := serve(router, http.MethodGet, "/api/signing")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}

func TestReloadPicksUpChanges(t *testing.T) {
	router, handler, clock := setupTestRouter(t, "")

	clock.Advance(time.Hour)
	writeTestFile(t, handler.path, "storeFile=upload.jks\nkeyAlias=upload\n")

	rec := serve(router, http.MethodPost, "/api/signing/reload")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := decodeSigning(t, rec)
	if body.Mode != string(release.ModeRelease) || !body.Found {
		t.Fatalf("expected release mode after reload, got %+v", body)
	}
	if body.Verified {
		t.Fatalf("expected verification to fail for missing keystore")
	}
	if body.Message == "" {
		t.Fatalf("expected reload message")
	}
	if !body.LoadedAt.Equal(clock.Now()) {
		t.Fatalf("expected loadedAt %s, got %s", clock.Now(), body.LoadedAt)
	}

	rec = serve(router, http.MethodGet, "/api/signing")
	if got := decodeSigning(t, rec); got.Mode != string(release.ModeRelease) {
		t.Fatalf("expected stored snapshot to be updated, got %+v", got)
	}
}

func TestReloadParseErrorKeepsPreviousSnapshot(t *testing.T) {
	router, handler, _ := setupTestRouter(t, "storeFile=upload.jks\n")

	writeTestFile(t, handler.path, "storeFile=\\uZZZZ\n")

	rec := serve(router, http.MethodPost, "/api/signing/reload")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}

	var errBody struct {
		Error      string `json:"error"`
		Suggestion string `json:"suggestion"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&errBody); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if errBody.Error == "" || errBody.Suggestion == "" {
		t.Fatalf("expected error and suggestion, got %+v", errBody)
	}

	rec = serve(router, http.MethodGet, "/api/signing")
	if got := decodeSigning(t, rec); got.Mode != string(release.ModeRelease) {
		t.Fatalf("expected previous snapshot to survive, got %+v", got)
	}
}

func TestReloadReadErrorReturns500(t *testing.T) {
	router, handler, _ := setupTestRouter(t, "")

	if err := os.Mkdir(handler.path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	rec := serve(router, http.MethodPost, "/api/signing/reload")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func TestReloadRejectsWrongMethod(t *testing.T) {
	router, _, _ := setupTestRouter(t, "")

	rec := serve(router, http.MethodGet, "/api/signing/reload")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
}

func TestCorsPreflight(t *testing.T) {
	router, _, _ := setupTestRouter(t, "")

	req := httptest.NewRequest(http.MethodOptions, "/api/signing/reload", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("expected Access-Control-Allow-Origin header to be set")
	}
}

func TestRequestIDPropagation(t *testing.T) {
	router, _, _ := setupTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "test-request-id")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "test-request-id" {
		t.Fatalf("expected X-Request-ID header to be echoed, got %s", got)
	}
}
