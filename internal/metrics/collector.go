// Package metrics provides Prometheus instrumentation for manifestgate.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kubegov/manifestgate/internal/store"
)

// Collector instruments policy evaluations and admission decisions.
type Collector struct {
	evaluationsTotal *prometheus.CounterVec
	violationsTotal  *prometheus.CounterVec
	decisionAllowed  *prometheus.GaugeVec
	evalDuration     prometheus.Histogram
	reloadsTotal     *prometheus.CounterVec
	policyLoadedAt   prometheus.Gauge
}

// NewCollector creates and registers metrics on the given registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		evaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "manifestgate",
			Name:      "evaluations_total",
			Help:      "Total manifest evaluations by kind and outcome.",
		}, []string{"kind", "outcome"}),

		violationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "manifestgate",
			Name:      "violations_total",
			Help:      "Total violations emitted by code and severity.",
		}, []string{"code", "severity"}),

		decisionAllowed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "manifestgate",
			Name:      "decision_allowed",
			Help:      "Whether the most recent evaluation for a kind was allowed (1) or denied (0).",
		}, []string{"kind"}),

		evalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "manifestgate",
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of a single manifest evaluation.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),

		reloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "manifestgate",
			Name:      "policy_reloads_total",
			Help:      "Policy reload attempts by result.",
		}, []string{"result"}),

		policyLoadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "manifestgate",
			Name:      "policy_loaded_timestamp",
			Help:      "Unix timestamp of the last successful policy load.",
		}),
	}

	reg.MustRegister(c.evaluationsTotal)
	reg.MustRegister(c.violationsTotal)
	reg.MustRegister(c.decisionAllowed)
	reg.MustRegister(c.evalDuration)
	reg.MustRegister(c.reloadsTotal)
	reg.MustRegister(c.policyLoadedAt)

	return c
}

// ObserveDecision records one evaluated manifest and its violations.
func (c *Collector) ObserveDecision(kind string, d store.Decision, took time.Duration) {
	outcome := "allowed"
	allowed := 1.0
	if !d.Allowed {
		outcome = "denied"
		allowed = 0
	}
	c.evaluationsTotal.With(prometheus.Labels{"kind": kind, "outcome": outcome}).Inc()
	c.decisionAllowed.With(prometheus.Labels{"kind": kind}).Set(allowed)
	c.evalDuration.Observe(took.Seconds())

	for _, v := range d.Violations {
		c.violationsTotal.With(prometheus.Labels{
			"code":     string(v.Code),
			"severity": string(v.Severity),
		}).Inc()
	}
}

// ObserveReload records the outcome of a policy reload attempt.
func (c *Collector) ObserveReload(err error, at time.Time) {
	if err != nil {
		c.reloadsTotal.With(prometheus.Labels{"result": "error"}).Inc()
		return
	}
	c.reloadsTotal.With(prometheus.Labels{"result": "ok"}).Inc()
	c.policyLoadedAt.Set(float64(at.Unix()))
}
