// Package api implementa os endpoints HTTP do serviço.
//
// Os handlers não guardam estado próprio: cache, métricas e extração de IP
// chegam prontos do cmd/ip-api via Options.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"ip-api/middleware/clientip"
	"ip-api/rdns"
)

// ReverseLookuper resolve o nome reverso de um IP já validado.
type ReverseLookuper interface {
	Lookup(ctx context.Context, ip string) rdns.Value
}

// RequestStats são os contadores do /metrics.
type RequestStats interface {
	Total() uint64
	Success() uint64
	Failure() uint64
}

type VersionInfo struct {
	Name       string
	Version    string
	Repository string
}

type Options struct {
	Lookuper ReverseLookuper
	ClientIP clientip.Extractor
	Stats    RequestStats

	// RateLimited e CacheSize são opcionais; sem eles o /metrics mostra 0.
	RateLimited func() int64
	CacheSize   func() int

	// Prometheus é servido em /metrics/prometheus quando presente.
	Prometheus http.Handler

	Version  VersionInfo
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

type Handler struct {
	opts  Options
	start time.Time
}

func New(opts Options) *Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{opts: opts, start: opts.Now()}
}

// Routes lista os caminhos atendidos (usado como label nas métricas).
func Routes() []string {
	return []string{"/", "/lookup", "/health", "/metrics", "/metrics/prometheus", "/headers", "/version"}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.getIPInfo)
	mux.HandleFunc("GET /lookup", h.lookupIP)
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /metrics", h.metrics)
	mux.HandleFunc("GET /headers", h.headers)
	mux.HandleFunc("GET /version", h.version)
	if h.opts.Prometheus != nil {
		mux.Handle("GET /metrics/prometheus", h.opts.Prometheus)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.opts.Logger.Debug("write response failed", "error", err)
	}
}

func badRequest(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
}
