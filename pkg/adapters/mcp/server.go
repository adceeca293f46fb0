// Package mcp exposes consultations as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/talisman"
	"github.com/aretw0/talisman/internal/logging"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const taxonomyURI = "talisman://taxonomy"

// ConsultResponse is the structured result of a consult tool.
type ConsultResponse struct {
	SessionID   string   `json:"session_id" jsonschema_description:"Identifier of the one-shot conversation"`
	ConcernText string   `json:"concern_text" jsonschema_description:"The concern the fortune answers"`
	Paragraphs  []string `json:"paragraphs" jsonschema_description:"Fortune paragraphs in delivery order"`
	Result      string   `json:"result" jsonschema_description:"The closing result paragraph"`
}

// Server wraps an Engine and exposes it as an MCP server. Every tool call runs a
// one-shot conversation that is closed before returning.
type Server struct {
	engine    *talisman.Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server. The engine should deliver instantly, as tool
// calls block until the fortune is complete.
func NewServer(engine *talisman.Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("talisman-mcp", strings.TrimSpace(talisman.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio serves on stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	pathTool := mcp.NewTool("consult_path",
		mcp.WithDescription("Read a fortune for a concern chosen from the taxonomy. Use list_concerns to discover valid values."),
		mcp.WithString("category", mcp.Required(), mcp.Description("Top-level concern, e.g. 연애")),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Topic inside the category")),
		mcp.WithString("detail", mcp.Required(), mcp.Description("Detail inside the topic")),
		mcp.WithString("option", mcp.Required(), mcp.Description("Final concern option")),
		mcp.WithString("name", mcp.Description("Name of the person asking (optional)")),
		mcp.WithOutputSchema[ConsultResponse](),
	)
	s.mcpServer.AddTool(pathTool, mcp.NewStructuredToolHandler(s.handleConsultPath))

	textTool := mcp.NewTool("consult_text",
		mcp.WithDescription("Read a fortune for a concern written in free text."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The concern in the user's own words")),
		mcp.WithString("name", mcp.Description("Name of the person asking (optional)")),
		mcp.WithOutputSchema[ConsultResponse](),
	)
	s.mcpServer.AddTool(textTool, mcp.NewStructuredToolHandler(s.handleConsultText))

	s.mcpServer.AddTool(mcp.NewTool("list_concerns",
		mcp.WithDescription("List the concern taxonomy: category, topic, detail and options."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := json.Marshal(s.engine.Taxonomy())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(taxonomyURI, "Concern Taxonomy",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.engine.Taxonomy())
		if err != nil {
			return nil, fmt.Errorf("failed to encode taxonomy: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      taxonomyURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func (s *Server) handleConsultPath(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ConsultResponse, error) {
	var events []talisman.Event
	for _, key := range []string{"category", "topic", "detail", "option"} {
		v, _ := args[key].(string)
		events = append(events, talisman.Select(strings.TrimSpace(v)))
	}
	return s.consult(ctx, profileFrom(args), events...)
}

func (s *Server) handleConsultText(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ConsultResponse, error) {
	text, _ := args["text"].(string)
	clean, err := runner.SanitizeInput(text)
	if err != nil {
		s.logger.Warn("MCP consult_text: input rejected", "err", err, "size", len(text))
		return ConsultResponse{}, fmt.Errorf("input rejected: %w", err)
	}
	return s.consult(ctx, profileFrom(args), talisman.Select(talisman.OptionDirectInput), talisman.Text(clean))
}

// consult plays a one-shot conversation and extracts the fortune.
func (s *Server) consult(ctx context.Context, profile domain.Profile, events ...talisman.Event) (ConsultResponse, error) {
	conv, err := s.engine.Start(ctx, "", profile)
	if err != nil {
		return ConsultResponse{}, fmt.Errorf("start failed: %w", err)
	}
	defer conv.Close()

	for _, ev := range events {
		if err := conv.Handle(ctx, ev); err != nil {
			return ConsultResponse{}, fmt.Errorf("consult failed: %w", err)
		}
	}

	st := conv.State()
	paragraphs, ok := fortuneParagraphs(conv.Transcript())
	if !ok {
		return ConsultResponse{}, errors.New("the fortune could not be read, try again later")
	}
	s.logger.Info("MCP consultation", "session_id", conv.ID(), "paragraphs", len(paragraphs))
	return ConsultResponse{
		SessionID:   conv.ID(),
		ConcernText: st.ConcernText,
		Paragraphs:  paragraphs,
		Result:      paragraphs[len(paragraphs)-1],
	}, nil
}

// fortuneParagraphs returns the system turns after the reading introduction that
// follows the last user turn. ok is false when no result turn was delivered.
func fortuneParagraphs(transcript []domain.Turn) ([]string, bool) {
	if _, ok := domain.ResultTurn(transcript); !ok {
		return nil, false
	}
	start := 0
	for i, t := range transcript {
		if t.Sender == domain.SenderUser {
			start = i + 1
		}
	}
	var out []string
	for _, t := range transcript[min(start+1, len(transcript)):] {
		if t.Sender == domain.SenderSystem {
			out = append(out, t.Text)
		}
	}
	return out, len(out) > 0
}

func profileFrom(args map[string]interface{}) domain.Profile {
	name, _ := args["name"].(string)
	return domain.Profile{Name: strings.TrimSpace(name)}
}
