package rdns

import (
	"sync"
	"time"
)

// Value é o resultado de uma consulta reversa guardado no cache.
// Found=false é um resultado negativo cacheado (a consulta foi feita e falhou),
// diferente de "ainda não consultado", que é o ok=false de Cache.Get.
type Value struct {
	Hostname string
	Found    bool
}

// Hit cria um Value com nome resolvido.
func Hit(hostname string) Value { return Value{Hostname: hostname, Found: true} }

// Miss cria um Value negativo.
func Miss() Value { return Value{} }

type entry struct {
	value     Value
	expiresAt time.Time
}

// Cache guarda resultados de PTR por IP com TTL único.
//
// Get nunca devolve entrada vencida (expiração preguiçosa); Cleanup remove as
// vencidas de verdade e é chamado periodicamente pelo janitor.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

type CacheOption func(*Cache)

// WithCacheClock troca o relógio do cache (útil em testes).
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCache(ttl time.Duration, opts ...CacheOption) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) TTL() time.Duration { return c.ttl }

// Get retorna (valor, true) se existe entrada viva para key.
func (c *Cache) Get(key string) (Value, bool) {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		return Value{}, false
	}
	return e.value, true
}

// Insert sobrescreve a entrada de key; a expiração conta a partir de agora.
func (c *Cache) Insert(key string, v Value) {
	expiresAt := c.now().Add(c.ttl)

	c.mu.Lock()
	c.entries[key] = entry{value: v, expiresAt: expiresAt}
	c.mu.Unlock()
}

// Cleanup remove as entradas com expiresAt <= agora e retorna quantas saíram.
func (c *Cache) Cleanup() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Size inclui entradas vencidas que o Cleanup ainda não removeu.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
