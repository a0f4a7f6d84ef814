// Package observability exposes prometheus counters for the fax pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type Metrics struct {
	FaxSubmissions   *prometheus.CounterVec
	WebhookEvents    *prometheus.CounterVec
	CreditDeductions *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		FaxSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fax_submissions_total",
			Help: "Fax submissions by provider and outcome.",
		}, []string{"provider", "outcome"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Ingested webhook events by provider, category and result.",
		}, []string{"provider", "category", "result"}),
		CreditDeductions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "credit_deductions_total",
			Help: "Page deductions applied to credit grants.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(m.FaxSubmissions, m.WebhookEvents, m.CreditDeductions)
	return m
}

func (m *Metrics) RecordSubmission(provider, outcome string) {
	if m == nil {
		return
	}
	m.FaxSubmissions.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) RecordWebhook(provider, category, result string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(provider, category, result).Inc()
}

func (m *Metrics) RecordDeduction(result string) {
	if m == nil {
		return
	}
	m.CreditDeductions.WithLabelValues(result).Inc()
}

var Module = fx.Module("observability",
	fx.Provide(NewMetrics),
)
