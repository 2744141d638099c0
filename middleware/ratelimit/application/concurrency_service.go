package application

import (
	"context"
	"sync/atomic"
	"time"

	"ip-api/middleware/ratelimit/domain"
)

// ConcurrencyService controla quantas requisições de lookup rodam ao mesmo
// tempo e conta as que ficaram sem vaga.
type ConcurrencyService struct {
	pool     domain.SlotPool
	wait     time.Duration
	rejected atomic.Uint64
}

// NewConcurrencyService: wait <= 0 espera até o ctx da requisição acabar.
func NewConcurrencyService(pool domain.SlotPool, wait time.Duration) *ConcurrencyService {
	return &ConcurrencyService{pool: pool, wait: wait}
}

func (s *ConcurrencyService) Acquire(ctx context.Context) (func(), bool) {
	if s.pool == nil {
		return func() {}, true
	}

	if s.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.wait)
		defer cancel()
	}

	release, ok := s.pool.Acquire(ctx)
	if !ok {
		s.rejected.Add(1)
		return nil, false
	}
	return release, true
}

// Rejected é o total de requisições recusadas por falta de vaga.
func (s *ConcurrencyService) Rejected() uint64 { return s.rejected.Load() }
