package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc-123" || rec.Header().Get("X-Request-ID") != "abc-123" {
		t.Errorf("safe caller id should be kept, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "<script>"+strings.Repeat("a", 80))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "" || strings.Contains(seen, "<") {
		t.Errorf("unsafe caller id should be replaced, got %q", seen)
	}
}

func TestCORS(t *testing.T) {
	h := CORS("https://app.studio.test, https://admin.studio.test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/quotes", nil)
	req.Header.Set("Origin", "https://admin.studio.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight should short-circuit with 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://admin.studio.test" {
		t.Error("listed origin should be allowed")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
	req.Header.Set("Origin", "https://evil.test")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unlisted origin must not be allowed")
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("non-preflight requests should reach the handler, got %d", rec.Code)
	}
}

func TestRecoverer(t *testing.T) {
	h := RequestID(Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", rec.Code)
	}
}

func TestLogger_RecordsStatusAndBytes(t *testing.T) {
	var got *responseRecorder
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = w.(*responseRecorder)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("hello"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/quotes", nil))
	if got.status != http.StatusCreated || got.bytes != 5 {
		t.Errorf("recorded status=%d bytes=%d", got.status, got.bytes)
	}
	if rec.Body.String() != "hello" {
		t.Errorf("body not passed through: %q", rec.Body.String())
	}
}
