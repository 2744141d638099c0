package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ip-api/middleware/clientip"
	"ip-api/middleware/ratelimit/application"
	"ip-api/middleware/ratelimit/domain"

	"golang.org/x/time/rate"
)

// RejectMessage é o corpo da resposta 429.
const RejectMessage = "Rate limit exceeded. Please try again later."

type KeyFunc func(r *http.Request) string

type Options struct {
	Limiter             domain.Limiter
	Stats               domain.StatsStore
	KeyFn               KeyFunc
	KeyHeader           string
	ClientIP            clientip.Extractor
	RejectStatus        int
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
	Logger              *slog.Logger

	// Routes limita os caminhos gravados nas estatísticas; o resto vira "other".
	// Vazio grava o caminho como veio.
	Routes []string
}

// OtherRoute agrupa nas estatísticas os caminhos fora de Options.Routes.
const OtherRoute = "other"

type windowInfo interface {
	MaxRequests() int
	Window() time.Duration
}

// DefaultKeyFunc usa o header configurado, senão o IP do cliente.
// Sem IP derivável a chave vira domain.UnknownKey: a requisição é limitada
// junto com as outras sem IP, nunca liberada.
func DefaultKeyFunc(keyHeader string, ext clientip.Extractor) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}
		if ip := ext.FromRequest(r); ip != "" {
			return ip
		}
		return string(domain.UnknownKey)
	}
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.ClientIP)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	svc := application.Service{
		Limiter:    opts.Limiter,
		RetryAfter: opts.RetryAfter,
	}

	known := make(map[string]struct{}, len(opts.Routes))
	for _, p := range opts.Routes {
		known[p] = struct{}{}
	}
	statsPath := func(p string) string {
		if len(known) == 0 {
			return p
		}
		if _, ok := known[p]; ok {
			return p
		}
		return OtherRoute
	}

	// no máximo um log de bloqueio por segundo, mesmo sob ataque
	denyLog := &rate.Sometimes{First: 1, Interval: time.Second}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			if key == "" {
				key = string(domain.UnknownKey)
			}

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", key)
				if wi, ok := opts.Limiter.(windowInfo); ok {
					w.Header().Set("X-RateLimit-Limit", strconv.Itoa(wi.MaxRequests()))
					w.Header().Set("X-RateLimit-Window", strconv.Itoa(int(wi.Window().Seconds())))
				}
			}

			dec := svc.Decide(domain.Key(key))
			if opts.Stats != nil {
				ev := domain.StatsEvent{
					Key:     domain.Key(key),
					Allowed: dec.Allowed,
					Method:  r.Method,
					Path:    statsPath(r.URL.Path),
					At:      time.Now(),
				}
				if err := opts.Stats.Record(context.WithoutCancel(r.Context()), ev); err != nil {
					opts.Logger.Debug("rate limit stats failed", "error", err)
				}
			}
			if !dec.Allowed {
				denyLog.Do(func() {
					opts.Logger.Warn("rate limit exceeded", "client_ip", key, "path", r.URL.Path)
				})
				w.Header().Set("Retry-After", retryAfterSeconds(dec.RetryAfter))
				http.Error(w, RejectMessage, opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds arredonda para cima: Retry-After é em segundos inteiros e nunca 0.
func retryAfterSeconds(d time.Duration) string {
	return strconv.Itoa(max(1, int(math.Ceil(d.Seconds()))))
}
