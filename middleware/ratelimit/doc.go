// Package ratelimit fornece adapters HTTP (net/http) para rate limit e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela fixa por IP, semáforo, estatísticas)
//   - ratelimit (este pacote): middlewares HTTP + extração de chave + tradução para status/headers
//
// Fluxo por requisição:
//
//  1. Extrai a chave do cliente (header/XFF/RemoteAddr, ou "unknown")
//  2. Chama a camada application para obter a decisão
//  3. Se bloqueado, responde 429 (rate limit) ou 503 (concorrência)
//  4. Se permitido, chama o próximo handler
//
// A janela é fixa: RATE_LIMIT_REQUESTS requisições a cada RATE_LIMIT_WINDOW_SECS
// por IP. As entradas vencidas são removidas pelo janitor do cmd/ip-api.
package ratelimit
