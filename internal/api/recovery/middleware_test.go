package recovery

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestMiddleware_RecoversPanicWith500(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).With().Str("node", "well-cell").Logger()

	handler := Middleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Internal Server Error") {
		t.Fatalf("body: %s", rec.Body.String())
	}
	logged := buf.String()
	if !strings.Contains(logged, "boom") || !strings.Contains(logged, "well-cell") {
		t.Fatalf("panic log missing fields: %s", logged)
	}
}

func TestMiddleware_PassesThroughCleanRequests(t *testing.T) {
	handler := Middleware(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status: %d", rec.Code)
	}
}
