package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ip-api/middleware/clientip"
)

// IPResponse é o corpo de "/" e "/lookup".
type IPResponse struct {
	IP            string  `json:"IP"`
	RDNS          *string `json:"rDNS"`
	UserAgent     *string `json:"User-Agent"`
	UnixTimestamp int64   `json:"Unix-Timestamp"`
	UTCTime       string  `json:"UTC-Time"`
	LocalTime     string  `json:"Local-Time"`
}

const maxUserAgentLength = 512

// getIPInfo responde com os dados do próprio chamador.
func (h *Handler) getIPInfo(w http.ResponseWriter, r *http.Request) {
	ip := h.opts.ClientIP.FromRequest(r)
	if ip == "" {
		badRequest(w)
		return
	}

	var ua *string
	if v, ok := r.Header["User-Agent"]; ok && len(v) > 0 {
		if !validUserAgent(v[0]) {
			badRequest(w)
			return
		}
		ua = &v[0]
	}

	h.respondIP(w, r, ip, ua)
}

// lookupIP responde para qualquer IP informado em ?ip=.
func (h *Handler) lookupIP(w http.ResponseWriter, r *http.Request) {
	ip := clientip.Normalize(r.URL.Query().Get("ip"))
	if ip == "" {
		badRequest(w)
		return
	}
	h.respondIP(w, r, ip, nil)
}

func (h *Handler) respondIP(w http.ResponseWriter, r *http.Request, ip string, ua *string) {
	resp := IPResponse{IP: ip, UserAgent: ua}

	if h.opts.Lookuper != nil {
		if v := h.opts.Lookuper.Lookup(r.Context(), ip); v.Found {
			name := v.Hostname
			resp.RDNS = &name
		}
	}

	h.stamp(&resp, h.opts.Now())

	if wantsText(r) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprint(w, resp.Text())
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) stamp(resp *IPResponse, now time.Time) {
	resp.UnixTimestamp = now.Unix()
	resp.UTCTime = now.UTC().Format("2006-01-02 15:04:05") + " UTC"
	resp.LocalTime = now.In(h.opts.Location).Format("2006-01-02 15:04:05")
}

// Text renderiza a resposta como linhas "Chave: valor".
func (resp IPResponse) Text() string {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}

	var b strings.Builder
	line := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteByte('\n')
	}
	line("IP", resp.IP)
	line("rDNS", deref(resp.RDNS))
	line("User-Agent", deref(resp.UserAgent))
	line("Unix-Timestamp", strconv.FormatInt(resp.UnixTimestamp, 10))
	line("UTC-Time", resp.UTCTime)
	line("Local-Time", resp.LocalTime)
	return b.String()
}

func wantsText(r *http.Request) bool {
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "text", "plain":
		return true
	case "json":
		return false
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/plain") && !strings.Contains(accept, "application/json")
}

// validUserAgent: até 512 bytes e sem caracteres de controle (exceto tab).
func validUserAgent(ua string) bool {
	if len(ua) > maxUserAgentLength {
		return false
	}
	for _, c := range ua {
		if c == '\t' {
			continue
		}
		if c < 0x20 || (c >= 0x7f && c < 0xa0) {
			return false
		}
	}
	return true
}
