package metrics

import (
	"log"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// #region prom-recorder

type promRecorder struct {
	decisions    *prom.CounterVec
	degradations *prom.CounterVec
	lookups      *prom.HistogramVec
	steps        prom.Histogram
}

func (p *promRecorder) IncDecision(action string) {
	p.decisions.WithLabelValues(action).Inc()
}

func (p *promRecorder) IncDegradation(kind string) {
	p.degradations.WithLabelValues(kind).Inc()
}

func (p *promRecorder) ObserveLookupSeconds(source string, seconds float64) {
	p.lookups.WithLabelValues(source).Observe(seconds)
}

func (p *promRecorder) ObserveStepSeconds(seconds float64) {
	p.steps.Observe(seconds)
}

// #endregion prom-recorder

// #region enable

func enablePrometheus(addr string) error {
	registry := prom.NewRegistry()
	p := &promRecorder{
		decisions: prom.NewCounterVec(prom.CounterOpts{
			Name: "siren_gate_decisions_total",
			Help: "Gate decisions by action",
		}, []string{"action"}),
		degradations: prom.NewCounterVec(prom.CounterOpts{
			Name: "siren_degradations_total",
			Help: "Degraded-mode events by kind",
		}, []string{"kind"}),
		lookups: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "siren_lookup_seconds",
			Help:    "External lookup duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"source"}),
		steps: prom.NewHistogram(prom.HistogramOpts{
			Name:    "siren_step_seconds",
			Help:    "Full decode-step evaluation duration in seconds",
			Buckets: prom.DefBuckets,
		}),
	}

	registry.MustRegister(p.decisions, p.degradations, p.lookups, p.steps)
	SetRecorder(p)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("[METRICS] server stopped: %v", err)
		}
	}()
	return nil
}

// #endregion enable
