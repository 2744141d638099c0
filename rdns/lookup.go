package rdns

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Lookuper junta Cache e Resolver: consulta o cache, resolve fora de qualquer
// lock quando falta, grava o resultado (inclusive negativo) e devolve.
//
// Não há single-flight: misses simultâneos para o mesmo IP resolvem cada um
// por conta própria e o último Insert vence.
type Lookuper struct {
	cache    *Cache
	resolver Resolver
	timeout  time.Duration
	slots    *semaphore.Weighted
}

type LookupOption func(*Lookuper)

// WithTimeout limita cada resolução; estourar o prazo vira resultado negativo.
func WithTimeout(d time.Duration) LookupOption {
	return func(l *Lookuper) { l.timeout = d }
}

// WithMaxInFlight limita quantas resoluções rodam ao mesmo tempo.
func WithMaxInFlight(n int64) LookupOption {
	return func(l *Lookuper) {
		if n > 0 {
			l.slots = semaphore.NewWeighted(n)
		} else {
			l.slots = nil
		}
	}
}

func NewLookuper(cache *Cache, resolver Resolver, opts ...LookupOption) *Lookuper {
	l := &Lookuper{
		cache:    cache,
		resolver: resolver,
		timeout:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Lookuper) Cache() *Cache { return l.cache }

// Lookup nunca retorna erro: falha de DNS é Miss().
func (l *Lookuper) Lookup(ctx context.Context, ip string) Value {
	if v, ok := l.cache.Get(ip); ok {
		return v
	}

	v, cacheable := l.resolve(ctx, ip)
	if cacheable {
		l.cache.Insert(ip, v)
	}
	return v
}

// resolve devolve cacheable=false quando a consulta nem chegou a ser feita
// ou foi abandonada porque o ctx do chamador acabou.
func (l *Lookuper) resolve(ctx context.Context, ip string) (Value, bool) {
	if l.resolver == nil {
		return Miss(), false
	}
	if l.slots != nil {
		if err := l.slots.Acquire(ctx, 1); err != nil {
			return Miss(), false
		}
		defer l.slots.Release(1)
	}

	lookupCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	name, err := l.resolver.LookupAddr(lookupCtx, ip)
	if ctx.Err() != nil {
		return Miss(), false
	}
	if err != nil || name == "" {
		return Miss(), true
	}
	return Hit(name), true
}
