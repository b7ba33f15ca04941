// ABOUTME: MCP tool implementations for signing in and out of the board.
// ABOUTME: Registers login, logout, and whoami tools.
package mcp

import (
	"context"
	"encoding/json"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerAuthTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "login",
		Description: "Sign in to the listings board. Creating, editing and deleting listings requires a signed-in user.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"username": {"type": "string", "description": "Account name.", "minLength": 1},
				"password": {"type": "string", "description": "Account password.", "minLength": 1}
			},
			"required": ["username", "password"]
		}`),
	}, s.handleLogin)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "logout",
		Description: "Sign out of the listings board.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleLogout)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "whoami",
		Description: "Show the signed-in user and role.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleWhoami)
}

func (s *Server) handleLogin(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.Username == "" || args.Password == "" {
		return toolError("username and password are required"), nil
	}

	res, err := s.auth.Login(ctx, args.Username, args.Password)
	if err != nil {
		return toolError("login failed: %v", err), nil
	}
	if err := s.session.Set(res); err != nil {
		return toolError("failed to save session: %v", err), nil
	}
	return toolText("Logged in as %s (%s)", s.session.UserName(), s.session.Role()), nil
}

func (s *Server) handleLogout(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	if err := s.session.Clear(); err != nil {
		return toolError("failed to clear session: %v", err), nil
	}
	return toolText("Logged out"), nil
}

func (s *Server) handleWhoami(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	if !s.session.IsAuthenticated() {
		return toolText("Not logged in"), nil
	}
	return toolText("%s (%s)", s.session.UserName(), s.session.Role()), nil
}
