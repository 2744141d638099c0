package application

import (
	"time"

	"ip-api/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Limiter    domain.Limiter
	RetryAfter time.Duration
}

func (s Service) Decide(key domain.Key) domain.Decision {
	if s.Limiter == nil {
		return domain.Decision{Allowed: true}
	}
	if key == "" {
		key = domain.UnknownKey
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = 1 * time.Second
	}

	if s.Limiter.Check(key) {
		return domain.Decision{Allowed: true}
	}
	return domain.Decision{Allowed: false, RetryAfter: s.RetryAfter}
}
