package infra

import (
	"sync"
	"time"

	"ip-api/middleware/ratelimit/domain"
)

// Store é o limiter de janela fixa por chave (IP).
//
// Cada chave tem um contador e o instante em que a janela começou. Quando a
// janela passa, o contador volta a zero antes de avaliar a requisição atual.
// Perto da virada da janela podem passar até 2x maxRequests em pouco tempo;
// é a aproximação aceita para janela fixa.
type Store struct {
	mu          sync.Mutex
	entries     map[string]*windowEntry
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

type windowEntry struct {
	count       int
	windowStart time.Time
}

type StoreOption func(*Store)

// WithClock troca o relógio usado pelo store (útil em testes).
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(maxRequests int, window time.Duration, opts ...StoreOption) *Store {
	s := &Store{
		entries:     make(map[string]*windowEntry),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) MaxRequests() int { return s.maxRequests }
func (s *Store) Window() time.Duration { return s.window }

// Check implementa domain.Limiter.
func (s *Store) Check(key domain.Key) bool {
	return s.CheckString(string(key))
}

func (s *Store) CheckString(key string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		ent = &windowEntry{windowStart: now}
		s.entries[key] = ent
	}
	if now.Sub(ent.windowStart) > s.window {
		ent.count = 0
		ent.windowStart = now
	}
	ent.count++

	return ent.count <= s.maxRequests
}

// Cleanup remove as chaves cuja janela já expirou e retorna quantas saíram.
// A memória fica limitada aos IPs vistos dentro de uma janela.
func (s *Store) Cleanup() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, ent := range s.entries {
		if now.Sub(ent.windowStart) > s.window {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Len retorna quantas chaves estão sendo acompanhadas.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
