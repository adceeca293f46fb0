package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/talisman/pkg/adapters/remote"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(url string) *remote.Client {
	return remote.NewClient(url,
		remote.WithAPIKey("secret"),
		remote.WithRetry(3, time.Millisecond),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestInference_Infer(t *testing.T) {
	var got ports.InferenceRequest
	r := chi.NewRouter()
	r.Post("/fortune", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]string{"text": "하나\n\n둘"})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	inf := remote.NewInference(newClient(srv.URL + "/"))
	text, err := inf.Infer(context.Background(), ports.InferenceRequest{
		Concern: ports.ConcernContext{Path: []string{"연애", "시작 단계", "짝사랑", "언제 고백할지"}, Text: "연애 > 시작 단계 > 짝사랑 > 언제 고백할지"},
		Profile: domain.Profile{Name: "지수"},
	})
	require.NoError(t, err)
	assert.Equal(t, "하나\n\n둘", text)
	assert.Equal(t, []string{"연애", "시작 단계", "짝사랑", "언제 고백할지"}, got.Concern.Path)
	assert.Equal(t, "지수", got.Profile.Name)
}

func TestClient_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			writeJSON(w, http.StatusOK, map[string]string{"text": "ok"})
		}
	}))
	defer srv.Close()

	text, err := remote.NewInference(newClient(srv.URL)).Infer(context.Background(), ports.InferenceRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := remote.NewInference(newClient(srv.URL)).Infer(context.Background(), ports.InferenceRequest{})
	var apiErr *remote.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, int32(4), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := remote.NewInference(newClient(srv.URL)).Infer(context.Background(), ports.InferenceRequest{})
	var apiErr *remote.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "bad key", apiErr.Body)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ContextCanceledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := remote.NewClient(srv.URL, remote.WithRetry(3, time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := remote.NewInference(c).Infer(ctx, ports.InferenceRequest{})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestArtifacts_JobLifecycle(t *testing.T) {
	var polls atomic.Int32
	var canceled atomic.Bool
	r := chi.NewRouter()
	r.Post("/images", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "재물 > 투자", body["prompt"])
		assert.Equal(t, "지수", body["requester"])
		writeJSON(w, http.StatusAccepted, map[string]string{"id": "job 1", "status": "queued"})
	})
	r.Get("/images/{id}", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "job 1", chi.URLParam(req, "id"))
		if polls.Add(1) < 2 {
			writeJSON(w, http.StatusOK, map[string]string{"status": "pending"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": "job 1", "status": "succeeded", "url": "https://cdn.example/1.png"})
	})
	r.Delete("/images/{id}", func(w http.ResponseWriter, req *http.Request) {
		canceled.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	a := remote.NewArtifacts(newClient(srv.URL))
	ctx := context.Background()

	h, err := a.Submit(ctx, "재물 > 투자", "지수")
	require.NoError(t, err)
	assert.Equal(t, "job 1", h.JobID)
	assert.Equal(t, domain.JobPending, h.Status, "unknown statuses are treated as pending")

	h, err = a.Status(ctx, h.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, h.Status)
	assert.Equal(t, "job 1", h.JobID)

	h, err = a.Status(ctx, h.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobSucceeded, h.Status)
	assert.Equal(t, "https://cdn.example/1.png", h.ArtifactRef)

	require.NoError(t, a.Cancel(ctx, h.JobID))
	assert.True(t, canceled.Load())
}

func TestArtifacts_SubmitWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "pending"})
	}))
	defer srv.Close()

	_, err := remote.NewArtifacts(newClient(srv.URL)).Submit(context.Background(), "p", "r")
	assert.ErrorContains(t, err, "no job id")
}
