// ABOUTME: MCP server initialization and configuration for adboard.
// ABOUTME: Exposes the listings board and sign-in as tools for AI agent access.
package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/adboard/internal/board"
	"github.com/2389-research/adboard/internal/models"
	"github.com/2389-research/adboard/internal/session"
)

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (models.LoginResult, error)
}

// Server wraps the MCP server around a board engine.
type Server struct {
	mcp     *gomcp.Server
	engine  *board.Engine
	session *session.Holder
	auth    Authenticator
	radius  float64
}

// ServerOption configures optional Server dependencies.
type ServerOption func(*Server)

// WithAuth enables the login tool.
func WithAuth(auth Authenticator, sess *session.Holder) ServerOption {
	return func(s *Server) {
		s.auth = auth
		s.session = sess
	}
}

// WithDefaultRadius sets the radius used when list_ads gets a point but no radius.
func WithDefaultRadius(km float64) ServerOption {
	return func(s *Server) {
		s.radius = km
	}
}

// NewServer creates an MCP server backed by a started engine.
func NewServer(engine *board.Engine, opts ...ServerOption) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("board engine is required")
	}

	mcpServer := gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "adboard",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcp:    mcpServer,
		engine: engine,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.registerBoardTools()
	if s.auth != nil && s.session != nil {
		s.registerAuthTools()
	}

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}

func toolError(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolText(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}
