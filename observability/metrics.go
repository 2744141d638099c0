// Package observability conta as requisições atendidas e expõe os números
// em JSON (/metrics) e no formato do Prometheus (/metrics/prometheus).
package observability

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	start time.Time

	total   atomic.Uint64
	success atomic.Uint64
	failure atomic.Uint64

	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics cria um registry próprio (nada no registry global do pacote prometheus).
func NewMetrics() *Metrics {
	m := &Metrics{
		start:    time.Now(),
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipapi_http_requests_total",
				Help: "HTTP requests by status code.",
			},
			[]string{"code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ipapi_http_request_duration_seconds",
				Help:    "Time spent serving HTTP requests.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"route"},
		),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Register adiciona coletores do resto do serviço (tamanho do cache, etc.).
func (m *Metrics) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// GaugeFunc registra um gauge lido sob demanda.
func (m *Metrics) GaugeFunc(name, help string, fn func() float64) error {
	return m.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn))
}

// CounterFunc registra um contador lido sob demanda.
func (m *Metrics) CounterFunc(name, help string, fn func() float64) error {
	return m.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{Name: name, Help: help}, fn))
}

func (m *Metrics) Total() uint64   { return m.total.Load() }
func (m *Metrics) Success() uint64 { return m.success.Load() }
func (m *Metrics) Failure() uint64 { return m.failure.Load() }

func (m *Metrics) Uptime() time.Duration { return time.Since(m.start) }

// Observe registra uma requisição concluída. 2xx conta como sucesso.
func (m *Metrics) Observe(route string, status int, d time.Duration) {
	m.total.Add(1)
	if status >= 200 && status < 300 {
		m.success.Add(1)
	} else {
		m.failure.Add(1)
	}
	m.requests.WithLabelValues(strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler expõe o registry no formato texto do Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware mede cada requisição. Só os caminhos em routes viram label;
// o resto cai em "other" para não explodir a cardinalidade.
func (m *Metrics) Middleware(routes ...string) func(next http.Handler) http.Handler {
	known := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		known[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := "other"
			if _, ok := known[r.URL.Path]; ok {
				route = r.URL.Path
			}
			m.Observe(route, rec.status, time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
