// Package http exposes conversations over a JSON API with a server-sent event stream
// of turns and state changes.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/talisman"
	"github.com/aretw0/talisman/internal/logging"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/runner"
	"github.com/aretw0/talisman/pkg/session"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds request bodies; inputs are limited further by the sanitizer.
const maxBodyBytes = 64 << 10

// Server serves the conversation API.
type Server struct {
	Engine   *talisman.Engine
	Sessions *session.Manager
	Streams  *StreamManager

	logger   *slog.Logger
	mu       sync.Mutex
	attached map[string]struct{}
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server.
func NewServer(engine *talisman.Engine, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		Engine:   engine,
		Sessions: sessions,
		logger:   logging.NewNop(),
		attached: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	return s
}

// NewHandler creates the HTTP handler for engine.
func NewHandler(engine *talisman.Engine, sessions *session.Manager, opts ...Option) http.Handler {
	return NewServer(engine, sessions, opts...).Routes()
}

// Routes returns the router of the API.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/taxonomy", s.GetTaxonomy)

	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", s.ListConversations)
		r.Post("/", s.CreateConversation)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetConversation)
			r.Delete("/", s.DeleteConversation)
			r.Post("/select", s.Select)
			r.Post("/input", s.Input)
			r.Post("/restart", s.Restart)
			r.Post("/artifact", s.RequestArtifact)
			r.Post("/save", s.Save)
			r.Post("/reactions", s.React)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	r.Route("/consultations", func(r chi.Router) {
		r.Get("/", s.ListConsultations)
		r.Get("/{id}", s.GetConsultation)
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createRequest struct {
	Profile domain.Profile `json:"profile"`
}

type selectRequest struct {
	Option string `json:"option"`
}

type inputRequest struct {
	Text string `json:"text"`
}

type reactionRequest struct {
	TurnID   string `json:"turn_id"`
	Reaction string `json:"reaction"`
}

type saveResponse struct {
	ID string `json:"id"`
}

// streamMessage is the SSE payload.
type streamMessage struct {
	Type     string            `json:"type"`
	Turn     *domain.TurnEvent `json:"turn,omitempty"`
	Snapshot *domain.Snapshot  `json:"snapshot,omitempty"`
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "talisman-http",
		"version": strings.TrimSpace(talisman.Version),
	})
}

// GetTaxonomy handles GET /taxonomy.
func (s *Server) GetTaxonomy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Taxonomy())
}

// ListConversations handles GET /conversations.
func (s *Server) ListConversations(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// CreateConversation handles POST /conversations. The welcome is played in the
// background; follow it on the event stream.
func (s *Server) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if r.ContentLength != 0 {
		if !s.decode(w, r, &body) {
			return
		}
	}

	conv, err := s.Sessions.Create(r.Context(), body.Profile)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.attach(conv)

	if err := s.send(r, conv, talisman.StartEvent()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/conversations/"+conv.ID())
	writeJSON(w, http.StatusCreated, conv.Snapshot())
}

// GetConversation handles GET /conversations/{id}.
func (s *Server) GetConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.conversation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, conv.Snapshot())
}

// DeleteConversation handles DELETE /conversations/{id}.
func (s *Server) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Sessions.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mu.Lock()
	delete(s.attached, id)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// Select handles POST /conversations/{id}/select.
func (s *Server) Select(w http.ResponseWriter, r *http.Request) {
	var body selectRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.event(w, r, talisman.Select(body.Option))
}

// Input handles POST /conversations/{id}/input.
func (s *Server) Input(w http.ResponseWriter, r *http.Request) {
	var body inputRequest
	if !s.decode(w, r, &body) {
		return
	}
	clean, err := runner.SanitizeInput(body.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.event(w, r, talisman.Text(clean))
}

// Restart handles POST /conversations/{id}/restart.
func (s *Server) Restart(w http.ResponseWriter, r *http.Request) {
	s.event(w, r, talisman.Restart())
}

// RequestArtifact handles POST /conversations/{id}/artifact.
func (s *Server) RequestArtifact(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.conversation(w, r)
	if !ok {
		return
	}
	task, err := conv.RequestArtifact(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, task.Job())
}

// Save handles POST /conversations/{id}/save.
func (s *Server) Save(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.conversation(w, r)
	if !ok {
		return
	}
	id, err := conv.Save(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{ID: id})
}

// React handles POST /conversations/{id}/reactions.
func (s *Server) React(w http.ResponseWriter, r *http.Request) {
	var body reactionRequest
	if !s.decode(w, r, &body) {
		return
	}
	conv, ok := s.conversation(w, r)
	if !ok {
		return
	}
	if err := conv.React(body.TurnID, body.Reaction); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv.Snapshot())
}

// ListConsultations handles GET /consultations.
func (s *Server) ListConsultations(w http.ResponseWriter, r *http.Request) {
	store := s.Engine.Consultations()
	if store == nil {
		s.writeError(w, r, talisman.ErrSaveDisabled)
		return
	}
	list, err := store.ListConsultations(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.ConsultationSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetConsultation handles GET /consultations/{id}.
func (s *Server) GetConsultation(w http.ResponseWriter, r *http.Request) {
	store := s.Engine.Consultations()
	if store == nil {
		s.writeError(w, r, talisman.ErrSaveDisabled)
		return
	}
	c, err := store.GetConsultation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// SubscribeEvents handles GET /conversations/{id}/events (SSE). Each message is a
// streamMessage: "turn" for typing and revealed turns, "state" after every committed
// change.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	conv, ok := s.conversation(w, r)
	if !ok {
		return
	}

	ch, cancel := s.Streams.Subscribe(conv.ID())
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	if data, err := json.Marshal(streamMessage{Type: "state", Snapshot: conv.Snapshot()}); err == nil {
		fmt.Fprintf(w, "data: %s\n\n", data)
	}
	flusher.Flush()
	s.logger.Debug("SSE client connected", "session_id", conv.ID())

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "session_id", conv.ID())
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// event sends ev to the conversation named in the URL. With ?wait=true the transition
// runs to completion before responding; otherwise it runs in the background and the
// response is 202.
func (s *Server) event(w http.ResponseWriter, r *http.Request, ev talisman.Event) {
	conv, ok := s.conversation(w, r)
	if !ok {
		return
	}
	if err := s.send(r, conv, ev); err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusAccepted
	if wait(r) {
		status = http.StatusOK
	}
	writeJSON(w, status, conv.Snapshot())
}

func (s *Server) send(r *http.Request, conv *talisman.Conversation, ev talisman.Event) error {
	if wait(r) {
		return s.Sessions.Do(r.Context(), conv.ID(), func(ctx context.Context, c *talisman.Conversation) error {
			return c.Handle(ctx, ev)
		})
	}
	return conv.Dispatch(r.Context(), ev)
}

func wait(r *http.Request) bool {
	return r.URL.Query().Get("wait") == "true"
}

// conversation resolves {id} and attaches the event stream to it.
func (s *Server) conversation(w http.ResponseWriter, r *http.Request) (*talisman.Conversation, bool) {
	conv, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	s.attach(conv)
	return conv, true
}

// attach wires the conversation's observers to the stream manager once.
func (s *Server) attach(conv *talisman.Conversation) {
	id := conv.ID()
	s.mu.Lock()
	if _, ok := s.attached[id]; ok {
		s.mu.Unlock()
		return
	}
	s.attached[id] = struct{}{}
	s.mu.Unlock()

	conv.Subscribe(func(ev domain.TurnEvent) {
		s.broadcast(id, streamMessage{Type: "turn", Turn: &ev})
	})
	conv.OnChange(func() {
		s.broadcast(id, streamMessage{Type: "state", Snapshot: conv.Snapshot()})
	})
}

func (s *Server) broadcast(id string, msg streamMessage) {
	if s.Streams.Subscribers(id) == 0 {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("SSE encode failed", "session_id", id, "err", err)
		return
	}
	s.Streams.Broadcast(id, string(data))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Debug("invalid request body", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}
