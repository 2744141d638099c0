// Package security adiciona headers de segurança em todas as respostas.
package security

import (
	"net/http"
	"strings"
)

const (
	ContentTypeOptions      = "nosniff"
	FrameOptions            = "DENY"
	XSSProtection           = "1; mode=block"
	ReferrerPolicy          = "strict-origin-when-cross-origin"
	ContentSecurityPolicy   = "default-src 'none'; frame-ancestors 'none'"
	StrictTransportSecurity = "max-age=31536000; includeSubDomains"
)

// Headers aplica os headers antes do handler escrever a resposta.
// HSTS só vai quando o proxy informa X-Forwarded-Proto: https.
func Headers(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", ContentTypeOptions)
		h.Set("X-Frame-Options", FrameOptions)
		h.Set("X-XSS-Protection", XSSProtection)
		h.Set("Referrer-Policy", ReferrerPolicy)
		h.Set("Content-Security-Policy", ContentSecurityPolicy)
		if strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https") {
			h.Set("Strict-Transport-Security", StrictTransportSecurity)
		}

		next.ServeHTTP(w, r)
	})
}
