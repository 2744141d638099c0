package ratelimit

import (
	"net/http"
	"time"

	"ip-api/middleware/ratelimit/application"
	"ip-api/middleware/ratelimit/domain"
	"ip-api/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max int

	// Pool permite compartilhar o pool (ex: para expor vagas ocupadas em métricas).
	// Se nil, um ChanPool com capacidade Max é criado.
	Pool           domain.SlotPool
	RejectStatus   int
	AcquireTimeout time.Duration

	// Service, se informado, substitui Pool/AcquireTimeout e permite ler Rejected().
	Service *application.ConcurrencyService
}

func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Service == nil && opts.Pool == nil && opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}

	svc := opts.Service
	if svc == nil {
		if opts.Pool == nil {
			opts.Pool = infra.NewChanPool(opts.Max)
		}
		svc = application.NewConcurrencyService(opts.Pool, opts.AcquireTimeout)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
