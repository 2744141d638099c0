package ratelimit

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"ip-api/middleware/clientip"
	"ip-api/middleware/ratelimit/infra"
)

func okHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
}

func TestMiddleware_AllowsThenRejectsSameKey(t *testing.T) {
	store := infra.NewStore(1, time.Minute)

	calls := 0
	h := Middleware(Options{
		Limiter:             store,
		RejectStatus:        http.StatusTooManyRequests,
		RetryAfter:          60 * time.Second,
		AddRateLimitHeaders: true,
	})(okHandler(&calls))

	// 1) primeira passa
	r1 := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r1.RemoteAddr = "10.0.0.1:1234"
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, r1)
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w1.Code)
	}
	if got := w1.Header().Get("X-RateLimit-Key"); got != "10.0.0.1" {
		t.Fatalf("expected X-RateLimit-Key=10.0.0.1, got %q", got)
	}
	if got := w1.Header().Get("X-RateLimit-Limit"); got != "1" {
		t.Fatalf("expected X-RateLimit-Limit=1, got %q", got)
	}
	if got := w1.Header().Get("X-RateLimit-Window"); got != "60" {
		t.Fatalf("expected X-RateLimit-Window=60, got %q", got)
	}

	// 2) segunda deve bloquear (cota=1)
	r2 := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r2.RemoteAddr = "10.0.0.1:4321"
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, r2)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w2.Code)
	}
	if got := w2.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After=60, got %q", got)
	}
	if body := strings.TrimSpace(w2.Body.String()); body != RejectMessage {
		t.Fatalf("unexpected reject body %q", body)
	}

	if calls != 1 {
		t.Fatalf("expected next handler to be called once, got %d", calls)
	}
}

func TestMiddleware_KeyByHeader(t *testing.T) {
	store := infra.NewStore(1, time.Minute)

	h := Middleware(Options{
		Limiter:   store,
		KeyHeader: "X-Api-Key",
	})(okHandler(nil))

	// duas chaves diferentes => ambos passam (cada chave tem sua própria janela)
	for _, k := range []string{"k1", "k2"} {
		r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
		r.Header.Set("X-Api-Key", k)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 for key %s, got %d", k, w.Code)
		}
	}
}

func TestMiddleware_ForwardedClientsHaveIndependentQuotas(t *testing.T) {
	store := infra.NewStore(1, time.Minute)

	h := Middleware(Options{
		Limiter:  store,
		ClientIP: clientip.Extractor{TrustForwarded: true},
	})(okHandler(nil))

	for _, ip := range []string{"1.1.1.1", "2.2.2.2"} {
		r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		r.Header.Set("X-Forwarded-For", ip)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", ip, w.Code)
		}
	}
}

func TestMiddleware_RequestsWithoutIPShareUnknownQuota(t *testing.T) {
	store := infra.NewStore(1, time.Minute)
	stats := infra.NewMemoryStatsStore(infra.WithTrackKeys(true))

	h := Middleware(Options{
		Limiter: store,
		Stats:   stats,
	})(okHandler(nil))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
		r.RemoteAddr = ""
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected [200 429], got %v", codes)
	}
	if got := stats.ByKey()["unknown"]; got.Allowed != 1 || got.Denied != 1 {
		t.Fatalf("expected unknown key stats 1/1, got %+v", got)
	}
}

func TestMiddleware_RetryAfterUsesSeconds(t *testing.T) {
	store := infra.NewStore(1, time.Minute)

	h := Middleware(Options{
		Limiter:    store,
		RetryAfter: 2500 * time.Millisecond,
	})(okHandler(nil))

	var last *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		last = httptest.NewRecorder()
		h.ServeHTTP(last, r)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", last.Code)
	}
	if got := strings.TrimSpace(last.Header().Get("Retry-After")); got != "3" {
		// 2.5s arredonda para cima
		t.Fatalf("expected Retry-After=3, got %q", got)
	}
}

func TestMiddleware_RecordsStats(t *testing.T) {
	store := infra.NewStore(1, time.Minute)
	stats := infra.NewMemoryStatsStore()

	h := Middleware(Options{Limiter: store, Stats: stats})(okHandler(nil))

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "http://example/lookup?ip=8.8.8.8", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(httptest.NewRecorder(), r)
	}

	if got := stats.Total(); got.Allowed != 1 || got.Denied != 2 {
		t.Fatalf("expected 1 allowed / 2 denied, got %+v", got)
	}
	if got := stats.ByRoute()["GET /lookup"]; got.Denied != 2 {
		t.Fatalf("expected route stats for GET /lookup, got %+v", got)
	}
}

func TestMiddleware_SubSecondRetryAfterIsAtLeastOne(t *testing.T) {
	store := infra.NewStore(0, time.Minute)

	h := Middleware(Options{
		Limiter:    store,
		RetryAfter: 500 * time.Millisecond,
	})(okHandler(nil))

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("expected Retry-After=1, got %q", got)
	}
}

func TestMiddleware_StatsFoldUnknownPaths(t *testing.T) {
	store := infra.NewStore(1000, time.Minute)
	stats := infra.NewMemoryStatsStore()
	routes := []string{"/", "/lookup", "/health"}

	h := Middleware(Options{Limiter: store, Stats: stats, Routes: routes})(okHandler(nil))

	for i := 0; i < 500; i++ {
		r := httptest.NewRequest(http.MethodGet, "http://example/junk/"+strconv.Itoa(i), nil)
		r.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(httptest.NewRecorder(), r)
	}
	r := httptest.NewRequest(http.MethodGet, "http://example/health", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	h.ServeHTTP(httptest.NewRecorder(), r)

	byRoute := stats.ByRoute()
	if len(byRoute) > len(routes)+1 {
		t.Fatalf("expected at most %d routes tracked, got %d", len(routes)+1, len(byRoute))
	}
	if got := byRoute["GET "+OtherRoute]; got.Allowed != 500 {
		t.Fatalf("expected 500 requests folded into other, got %+v", got)
	}
	if got := byRoute["GET /health"]; got.Allowed != 1 {
		t.Fatalf("expected known route kept, got %+v", got)
	}
}
