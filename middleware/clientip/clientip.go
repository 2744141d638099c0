// Package clientip extrai o IP do cliente de uma requisição HTTP.
//
// O mesmo Extractor alimenta a chave do rate limit e o endpoint "/",
// para que os dois enxerguem o mesmo cliente.
package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

type Extractor struct {
	// TrustForwarded liga X-Forwarded-For / X-Real-IP.
	TrustForwarded bool
	// TrustedProxies restringe de quais peers os headers são aceitos.
	// Vazio = qualquer peer (comportamento de quem roda atrás de um único proxy).
	TrustedProxies []string
}

// FromRequest retorna o IP canônico do cliente, ou "" se nada válido foi encontrado.
func (e Extractor) FromRequest(r *http.Request) string {
	remote := RemoteHost(r.RemoteAddr)

	if e.TrustForwarded && e.trusts(remote) {
		// primeiro IP do X-Forwarded-For é o cliente original
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := Normalize(first); ip != "" {
				return ip
			}
		}
		if ip := Normalize(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}

	return Normalize(remote)
}

func (e Extractor) trusts(remote string) bool {
	if len(e.TrustedProxies) == 0 {
		return true
	}
	remote = Normalize(remote)
	for _, p := range e.TrustedProxies {
		if Normalize(p) == remote && remote != "" {
			return true
		}
	}
	return false
}

// RemoteHost tira a porta de um RemoteAddr ("10.0.0.1:1234" -> "10.0.0.1").
func RemoteHost(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// Normalize valida e devolve o IP em forma canônica; "" se não for IP.
// IPv4 mapeado em IPv6 (::ffff:1.2.3.4) vira IPv4.
func Normalize(s string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return addr.Unmap().String()
}
