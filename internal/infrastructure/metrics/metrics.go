// Package metrics expone las métricas Prometheus del servicio.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "danfe"

// Metrics agrupa los colectores. Implementa danfe.Metrics.
type Metrics struct {
	RetrievalsInFlight prometheus.Gauge
	RetrievalsTotal    *prometheus.CounterVec
	RetrievalDuration  *prometheus.HistogramVec
	RetrievalAttempts  prometheus.Histogram
	ParsesTotal        *prometheus.CounterVec
	ParseDuration      prometheus.Histogram
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	ActiveSessions     prometheus.Gauge

	reg *prometheus.Registry
}

// New registra los colectores en reg. Con reg nil se usa un registro nuevo, que
// incluye los colectores de proceso y del runtime de Go.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	f := promauto.With(reg)
	return &Metrics{
		RetrievalsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "retrievals_in_flight",
			Help:      "Recuperações com sessão de navegador aberta",
		}),
		RetrievalsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Recuperações concluídas por código de resultado",
		}, []string{"code"}),
		RetrievalDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Duração da recuperação completa (portal + leitura)",
			Buckets:   []float64{5, 10, 15, 20, 30, 45, 60, 90, 120, 180, 300},
		}, []string{"code"}),
		RetrievalAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_attempts",
			Help:      "Tentativas usadas por recuperação",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		ParsesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parses_total",
			Help:      "XML enviados pelo cliente e interpretados, por código de resultado",
		}, []string{"code"}),
		ParseDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Duração da leitura de XML enviado",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Requisições HTTP por rota e status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latência HTTP por rota",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mcp_active_sessions",
			Help:      "Sessões MCP abertas",
		}),
		reg: reg,
	}
}

// Handler sirve el registro en formato de exposición de Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) RetrievalStarted() {
	m.RetrievalsInFlight.Inc()
}

func (m *Metrics) RetrievalFinished(code string, attempts int, d time.Duration) {
	// Una llamada que no llegó a abrir sesión (chave inválida, cola cancelada) no registró inicio.
	if attempts > 0 {
		m.RetrievalsInFlight.Dec()
		m.RetrievalAttempts.Observe(float64(attempts))
	}
	m.RetrievalsTotal.WithLabelValues(code).Inc()
	m.RetrievalDuration.WithLabelValues(code).Observe(d.Seconds())
}

func (m *Metrics) ParseFinished(code string, d time.Duration) {
	m.ParsesTotal.WithLabelValues(code).Inc()
	m.ParseDuration.Observe(d.Seconds())
}

// HTTPRequest registra una petición ya respondida.
func (m *Metrics) HTTPRequest(method, route string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// SetActiveSessions actualiza el número de sesiones MCP abiertas.
func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}
