// Package rdns faz consulta reversa (PTR) com cache por TTL.
//
//   - Cache: IP -> Value (nome ou negativo) com expiração
//   - Resolver: SystemResolver (net.Resolver) ou PTRResolver (github.com/miekg/dns)
//   - Lookuper: cache + resolver com timeout e limite de resoluções em andamento
//
// Nenhuma operação faz I/O segurando o lock do cache.
package rdns
