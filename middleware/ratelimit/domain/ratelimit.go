package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

// Key identifica o cliente limitado (normalmente o IP).
type Key string

// UnknownKey agrupa as requisições das quais não foi possível extrair um IP.
// Elas dividem uma única cota em vez de passarem sem limite.
const UnknownKey Key = "unknown"

// Limiter decide se a requisição da chave cabe na cota da janela atual.
//
// Check conta a requisição mesmo quando nega; negar não é erro, é decisão.
type Limiter interface {
	Check(Key) bool
}

type Decision struct {
	Allowed bool
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
