// Package metrics exposes service counters in the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Redirect outcomes.
const (
	OutcomeRedirect = "redirect"
	OutcomeUnlock   = "unlock"
	OutcomeNotFound = "not_found"
	OutcomeGone     = "gone"
	OutcomeLocked   = "password_required"
	OutcomeDenied   = "password_mismatch"
	OutcomeError    = "error"
)

// Enrichment results.
const (
	EnrichmentOK      = "ok"
	EnrichmentFailed  = "failed"
	EnrichmentDropped = "dropped"
)

// Recorder is what the rest of the service reports to.
type Recorder interface {
	Redirect(outcome string)
	CacheLookup(hit bool)
	RateLimited(scope string)
	Enrichment(result string)
	QueueDepth(n int)
}

// Noop discards everything. Used when no registry is wired.
type Noop struct{}

func (Noop) Redirect(string)    {}
func (Noop) CacheLookup(bool)   {}
func (Noop) RateLimited(string) {}
func (Noop) Enrichment(string)  {}
func (Noop) QueueDepth(int)     {}

// Prometheus keeps the collectors in its own registry so tests can build
// several instances side by side.
type Prometheus struct {
	registry    *prometheus.Registry
	redirects   *prometheus.CounterVec
	cache       *prometheus.CounterVec
	rateLimited *prometheus.CounterVec
	enrichment  *prometheus.CounterVec
	queueDepth  prometheus.Gauge
}

func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		registry: reg,
		redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shawty",
			Name:      "redirects_total",
			Help:      "Redirect requests by outcome.",
		}, []string{"outcome"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shawty",
			Name:      "cache_lookups_total",
			Help:      "Short code cache lookups by result.",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shawty",
			Name:      "rate_limited_total",
			Help:      "Requests denied by a rate limiter.",
		}, []string{"scope"}),
		enrichment: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shawty",
			Name:      "click_enrichment_total",
			Help:      "Background click enrichment jobs by result.",
		}, []string{"result"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shawty",
			Name:      "enrichment_queue_depth",
			Help:      "Jobs waiting in the enrichment queue.",
		}),
	}
	reg.MustRegister(
		p.redirects, p.cache, p.rateLimited, p.enrichment, p.queueDepth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) Redirect(outcome string) {
	p.redirects.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cache.WithLabelValues(result).Inc()
}

func (p *Prometheus) RateLimited(scope string) {
	p.rateLimited.WithLabelValues(scope).Inc()
}

func (p *Prometheus) Enrichment(result string) {
	p.enrichment.WithLabelValues(result).Inc()
}

func (p *Prometheus) QueueDepth(n int) {
	p.queueDepth.Set(float64(n))
}

// Registry returns the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry for scraping.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

var (
	_ Recorder = Noop{}
	_ Recorder = (*Prometheus)(nil)
)
