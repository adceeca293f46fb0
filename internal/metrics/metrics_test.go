package metrics_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/talisman/internal/metrics"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counter sums the samples of a metric family whose labels include want.
func counter(t *testing.T, c *metrics.Collector, name string, want map[string]string) float64 {
	t.Helper()
	families, err := c.Registry().Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue metric
				}
			}
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}

func TestHooks_RecordEvents(t *testing.T) {
	c := metrics.New()
	hooks := c.Hooks()
	ctx := context.Background()

	hooks.OnTurn(ctx, "s", domain.TurnEvent{Kind: domain.TurnTyping})
	hooks.OnTurn(ctx, "s", domain.TurnEvent{Kind: domain.TurnRevealed, Turn: &domain.Turn{Sender: domain.SenderSystem}})
	hooks.OnTransition(ctx, &domain.TransitionEvent{To: domain.StepFortuneResult})
	hooks.OnInference(ctx, &domain.InferenceEvent{Duration: time.Second})
	hooks.OnInference(ctx, &domain.InferenceEvent{Err: errors.New("boom")})
	hooks.OnArtifact(ctx, &domain.ArtifactEvent{Job: domain.GenerationJob{Status: domain.JobSucceeded, Attempts: 3}})
	hooks.OnArtifact(ctx, &domain.ArtifactEvent{Job: domain.GenerationJob{Status: domain.JobPending, Attempts: 30}, Err: errors.New("timeout")})
	hooks.OnSave(ctx, &domain.SaveEvent{ConsultationID: "c1"})

	assert.Equal(t, 1.0, counter(t, c, "talisman_turns_total", map[string]string{"sender": "system"}))
	assert.Equal(t, 1.0, counter(t, c, "talisman_transitions_total", map[string]string{"to": "fortune_result"}))
	assert.Equal(t, 1.0, counter(t, c, "talisman_inference_duration_seconds", map[string]string{"outcome": "ok"}))
	assert.Equal(t, 1.0, counter(t, c, "talisman_inference_duration_seconds", map[string]string{"outcome": "error"}))
	assert.Equal(t, 1.0, counter(t, c, "talisman_artifact_jobs_total", map[string]string{"status": "succeeded"}))
	assert.Equal(t, 1.0, counter(t, c, "talisman_artifact_jobs_total", map[string]string{"status": "timeout"}))
	assert.Equal(t, 2.0, counter(t, c, "talisman_artifact_poll_attempts", nil))
	assert.Equal(t, 1.0, counter(t, c, "talisman_consultation_saves_total", map[string]string{"outcome": "ok"}))
}

func TestChain(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{
		OnSave: func(context.Context, *domain.SaveEvent) { calls = append(calls, "a") },
	}
	b := domain.LifecycleHooks{
		OnSave:       func(context.Context, *domain.SaveEvent) { calls = append(calls, "b") },
		OnTransition: func(context.Context, *domain.TransitionEvent) { calls = append(calls, "b-transition") },
	}

	h := metrics.Chain(a, domain.LifecycleHooks{}, b)
	h.OnSave(context.Background(), &domain.SaveEvent{})
	h.OnTransition(context.Background(), &domain.TransitionEvent{})

	assert.Equal(t, []string{"a", "b", "b-transition"}, calls)
	assert.Nil(t, h.OnArtifact)
}

func TestHandler_Exposition(t *testing.T) {
	c := metrics.New()
	c.Hooks().OnSave(context.Background(), &domain.SaveEvent{})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "talisman_consultation_saves_total")
}
