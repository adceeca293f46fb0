// Package metrics records engine lifecycle events as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/aretw0/talisman/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "talisman"

// Collector owns the engine metrics on a dedicated registry.
type Collector struct {
	registry *prometheus.Registry

	turns       *prometheus.CounterVec
	transitions *prometheus.CounterVec
	inference   *prometheus.HistogramVec
	artifacts   *prometheus.CounterVec
	polls       prometheus.Histogram
	saves       *prometheus.CounterVec
}

// New creates a Collector and registers its metrics, plus the Go runtime and process
// collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Turns revealed, by sender.",
		}, []string{"sender"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Dialogue transitions, by target step.",
		}, []string{"to"}),
		inference: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Inference round trips, by outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}, []string{"outcome"}),
		artifacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_jobs_total",
			Help:      "Finished talisman jobs, by terminal status.",
		}, []string{"status"}),
		polls: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "artifact_poll_attempts",
			Help:      "Status checks spent per talisman job.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30},
		}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consultation_saves_total",
			Help:      "Consultation save attempts, by outcome.",
		}, []string{"outcome"}),
	}
	c.registry.MustRegister(
		c.turns, c.transitions, c.inference, c.artifacts, c.polls, c.saves,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry holding the metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks feeding the metrics. Compose them with other hooks
// through Chain.
func (c *Collector) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(_ context.Context, _ string, ev domain.TurnEvent) {
			if ev.Kind == domain.TurnRevealed && ev.Turn != nil {
				c.turns.WithLabelValues(string(ev.Turn.Sender)).Inc()
			}
		},
		OnTransition: func(_ context.Context, ev *domain.TransitionEvent) {
			c.transitions.WithLabelValues(string(ev.To)).Inc()
		},
		OnInference: func(_ context.Context, ev *domain.InferenceEvent) {
			c.inference.WithLabelValues(outcome(ev.Err)).Observe(ev.Duration.Seconds())
		},
		OnArtifact: func(_ context.Context, ev *domain.ArtifactEvent) {
			status := string(ev.Job.Status)
			if ev.Err != nil && ev.Job.Status == domain.JobPending {
				status = "timeout"
			}
			c.artifacts.WithLabelValues(status).Inc()
			c.polls.Observe(float64(ev.Job.Attempts))
		},
		OnSave: func(_ context.Context, ev *domain.SaveEvent) {
			c.saves.WithLabelValues(outcome(ev.Err)).Inc()
		},
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Chain combines hooks so that each event reaches every non-nil callback in order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		out.OnTurn = chain3(out.OnTurn, h.OnTurn)
		out.OnTransition = chain2(out.OnTransition, h.OnTransition)
		out.OnInference = chain2(out.OnInference, h.OnInference)
		out.OnArtifact = chain2(out.OnArtifact, h.OnArtifact)
		out.OnSave = chain2(out.OnSave, h.OnSave)
	}
	return out
}

func chain2[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chain3(a, b func(context.Context, string, domain.TurnEvent)) func(context.Context, string, domain.TurnEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, id string, ev domain.TurnEvent) {
		a(ctx, id, ev)
		b(ctx, id, ev)
	}
}
