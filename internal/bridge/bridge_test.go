package bridge

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vidbee/internal/config"
	"vidbee/internal/downloader"
	"vidbee/internal/events"
	"vidbee/internal/extractor"
	"vidbee/internal/history"
	"vidbee/internal/queue"
)

func pastExpiry() time.Time { return time.Now().Add(-time.Minute) }

func newTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := history.Open(t.TempDir())
	if err != nil {
		t.Fatalf("history.Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := history.NewStore(db)

	bus := events.NewBus()
	q := queue.New(bus, 2, 16)
	driver := extractor.New("", "")
	settingsFn := func() config.Settings { return config.Default().Get() }
	engine := downloader.New(q, driver, store, bus, settingsFn, t.TempDir(), "")

	return New(engine)
}

func TestHandleStatus_ReturnsOK(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", w.Code)
	}
}

func TestHandleToken_IssuesSingleUseToken(t *testing.T) {
	s := newTestServer(t)

	token, err := s.issueToken()
	if err != nil {
		t.Fatalf("issueToken() error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	if !s.consumeToken(token) {
		t.Fatal("expected the first consumeToken() to succeed")
	}
	if s.consumeToken(token) {
		t.Fatal("expected the second consumeToken() on the same token to fail")
	}
}

func TestConsumeToken_RejectsExpired(t *testing.T) {
	s := newTestServer(t)

	s.tokensMu.Lock()
	s.tokens["expired-token"] = pastExpiry()
	s.tokensMu.Unlock()

	if s.consumeToken("expired-token") {
		t.Fatal("expected an expired token to be rejected")
	}
}

func TestHandleVideoInfo_RejectsNonLoopbackPeer(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/video-info?url=https://example.com/v", nil)
	req.RemoteAddr = "203.0.113.5:5555"
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status code = %d, want 403", w.Code)
	}
}

func TestHandleVideoInfo_RejectsMissingToken(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/video-info?url=https://example.com/v", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status code = %d, want 401", w.Code)
	}
}

func TestHandleVideoInfo_RejectsMissingURLAfterConsumingToken(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.issueToken()

	req := httptest.NewRequest(http.MethodGet, "/video-info?token="+token, nil)
	req.RemoteAddr = "127.0.0.1:5555"
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want 400", w.Code)
	}
	if s.consumeToken(token) {
		t.Error("expected the token to already be consumed by the failed request")
	}
}

func TestHandleVideoInfo_RejectsMalformedURL(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.issueToken()

	req := httptest.NewRequest(http.MethodGet, "/video-info?token="+token+"&url=not-a-url", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want 400", w.Code)
	}
}

func TestHandlePreflight_Returns204WithCORSHeaders(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/video-info", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status code = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestIsLoopback(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:1234", true},
		{"[::1]:1234", true},
		{"[::ffff:127.0.0.1]:1234", true},
		{"203.0.113.5:1234", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isLoopback(tt.addr); got != tt.want {
			t.Errorf("isLoopback(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}
