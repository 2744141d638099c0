package api

import (
	"net/http"
	"runtime"
	"strings"
)

type HealthResponse struct {
	Status        string `json:"status"`
	Timestamp     int64  `json:"timestamp"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type MetricsResponse struct {
	TotalRequests       uint64 `json:"total_requests"`
	SuccessfulRequests  uint64 `json:"successful_requests"`
	FailedRequests      uint64 `json:"failed_requests"`
	RateLimitedRequests int64  `json:"rate_limited_requests"`
	DNSCacheSize        int    `json:"dns_cache_size"`
	UptimeSeconds       int64  `json:"uptime_seconds"`
	Timestamp           int64  `json:"timestamp"`
}

type HeadersResponse struct {
	Headers map[string]string `json:"headers"`
}

type VersionResponse struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Repository string `json:"repository,omitempty"`
	GoVersion  string `json:"go_version"`
}

func (h *Handler) uptimeSeconds() int64 {
	return int64(h.opts.Now().Sub(h.start).Seconds())
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		Timestamp:     h.opts.Now().Unix(),
		UptimeSeconds: h.uptimeSeconds(),
	})
}

func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	resp := MetricsResponse{
		UptimeSeconds: h.uptimeSeconds(),
		Timestamp:     h.opts.Now().Unix(),
	}
	if s := h.opts.Stats; s != nil {
		resp.TotalRequests = s.Total()
		resp.SuccessfulRequests = s.Success()
		resp.FailedRequests = s.Failure()
	}
	if h.opts.RateLimited != nil {
		resp.RateLimitedRequests = h.opts.RateLimited()
	}
	if h.opts.CacheSize != nil {
		resp.DNSCacheSize = h.opts.CacheSize()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// headers devolve os headers recebidos (nomes em minúsculas) para depuração.
func (h *Handler) headers(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]string, len(r.Header)+1)
	for name, values := range r.Header {
		out[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	if r.Host != "" {
		out["host"] = r.Host
	}
	h.writeJSON(w, http.StatusOK, HeadersResponse{Headers: out})
}

func (h *Handler) version(w http.ResponseWriter, r *http.Request) {
	v := h.opts.Version
	h.writeJSON(w, http.StatusOK, VersionResponse{
		Name:       v.Name,
		Version:    v.Version,
		Repository: v.Repository,
		GoVersion:  runtime.Version(),
	})
}
