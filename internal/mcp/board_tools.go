// ABOUTME: MCP tool implementations for browsing and editing listings.
// ABOUTME: Registers list_ads, create_ad, update_ad, and delete_ad tools over the board engine.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/adboard/internal/board"
	"github.com/2389-research/adboard/internal/models"
)

// settleTimeout bounds how long a tool waits for the board to catch up.
const settleTimeout = 30 * time.Second

func (s *Server) registerBoardTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "list_ads",
		Description: "List listings on the board. Filters persist between calls; pass an empty string to clear a text filter and clear_geo to drop the distance filter.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"search": {"type": "string", "description": "Free-text search over title and description."},
				"category": {"type": "string", "description": "Exact category filter."},
				"location": {"type": "string", "description": "Location text filter."},
				"lat": {"type": "number", "description": "Latitude of the search centre."},
				"lng": {"type": "number", "description": "Longitude of the search centre."},
				"radius_km": {"type": "number", "description": "Search radius in kilometres.", "exclusiveMinimum": 0},
				"clear_geo": {"type": "boolean", "description": "Remove the distance filter."},
				"page": {"type": "integer", "description": "1-based page number.", "minimum": 1}
			}
		}`),
	}, s.handleListAds)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "create_ad",
		Description: "Post a new listing. Requires a signed-in user.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"title": {"type": "string", "minLength": 1},
				"description": {"type": "string"},
				"category": {"type": "string"},
				"location": {"type": "string"},
				"image_url": {"type": "string"},
				"lat": {"type": "number"},
				"lng": {"type": "number"}
			},
			"required": ["title"]
		}`),
	}, s.handleCreateAd)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "update_ad",
		Description: "Change fields of a listing you own. Omitted fields stay unchanged.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "minLength": 1},
				"title": {"type": "string"},
				"description": {"type": "string"},
				"category": {"type": "string"},
				"location": {"type": "string"},
				"image_url": {"type": "string"}
			},
			"required": ["id"]
		}`),
	}, s.handleUpdateAd)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "delete_ad",
		Description: "Delete a listing you own.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "minLength": 1}
			},
			"required": ["id"]
		}`),
	}, s.handleDeleteAd)
}

func (s *Server) handleListAds(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Search   *string  `json:"search"`
		Category *string  `json:"category"`
		Location *string  `json:"location"`
		Lat      *float64 `json:"lat"`
		Lng      *float64 `json:"lng"`
		RadiusKm *float64 `json:"radius_km"`
		ClearGeo bool     `json:"clear_geo"`
		Page     int      `json:"page"`
	}
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return toolError("invalid arguments: %v", err), nil
		}
	}
	if (args.Lat == nil) != (args.Lng == nil) {
		return toolError("lat and lng must be given together"), nil
	}
	if args.RadiusKm != nil && *args.RadiusKm <= 0 {
		return toolError("radius_km must be positive"), nil
	}

	if args.Search != nil {
		s.engine.SetSearch(*args.Search)
		s.engine.FlushSearch()
	}
	if args.Category != nil {
		s.engine.SetCategory(*args.Category)
	}
	if args.Location != nil {
		s.engine.SetLocation(*args.Location)
	}
	switch {
	case args.ClearGeo:
		s.engine.ClearGeo()
	case args.Lat != nil:
		radius := args.RadiusKm
		if radius == nil && s.radius > 0 {
			radius = models.Float(s.radius)
		}
		s.engine.SetGeo(*args.Lat, *args.Lng, radius)
	}
	// Filters reset to page 1, so the page goes last.
	if args.Page > 0 {
		s.engine.SetPage(args.Page)
	}

	v, err := s.settle(ctx)
	if err != nil {
		return toolError("failed to load listings: %v", err), nil
	}
	if v.Err != nil {
		return toolError("failed to load listings (%s): %s", v.Err.Kind, v.Err.Message), nil
	}
	return toolText("%s", formatView(v)), nil
}

func (s *Server) handleCreateAd(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Category    string   `json:"category"`
		Location    string   `json:"location"`
		ImageURL    string   `json:"image_url"`
		Lat         *float64 `json:"lat"`
		Lng         *float64 `json:"lng"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if strings.TrimSpace(args.Title) == "" {
		return toolError("title is required"), nil
	}

	ad, err := s.engine.Create(ctx, models.AdCreate{
		Title:       args.Title,
		Description: args.Description,
		Category:    args.Category,
		Location:    args.Location,
		ImageURL:    args.ImageURL,
		Latitude:    args.Lat,
		Longitude:   args.Lng,
	})
	if err != nil {
		return mutationError("create", err), nil
	}
	return toolText("Created listing %s: %s", ad.ID, ad.Title), nil
}

func (s *Server) handleUpdateAd(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		ID          string  `json:"id"`
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Category    *string `json:"category"`
		Location    *string `json:"location"`
		ImageURL    *string `json:"image_url"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.ID == "" {
		return toolError("id is required"), nil
	}

	in := models.AdUpdate{
		Title:       args.Title,
		Description: args.Description,
		Category:    args.Category,
		Location:    args.Location,
		ImageURL:    args.ImageURL,
	}
	if in.Patch().IsEmpty() {
		return toolError("nothing to update"), nil
	}

	if _, err := s.engine.Update(ctx, args.ID, in); err != nil {
		return mutationError("update", err), nil
	}
	return toolText("Updated listing %s", args.ID), nil
}

func (s *Server) handleDeleteAd(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.ID == "" {
		return toolError("id is required"), nil
	}

	if err := s.engine.Delete(ctx, args.ID); err != nil {
		return mutationError("delete", err), nil
	}
	return toolText("Deleted listing %s", args.ID), nil
}

func (s *Server) settle(ctx context.Context) (board.View, error) {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	return s.engine.Settled(ctx)
}

func mutationError(verb string, err error) *gomcp.CallToolResult {
	var es *board.ErrorState
	if errors.As(err, &es) {
		switch es.Kind {
		case board.ErrUnauthorized:
			return toolError("failed to %s listing: sign in first (use the login tool)", verb)
		case board.ErrForbidden:
			return toolError("failed to %s listing: you can only change your own listings", verb)
		}
	}
	return toolError("failed to %s listing: %v", verb, err)
}

func formatView(v board.View) string {
	if len(v.Items) == 0 {
		return "No listings found"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Page %d of %d (%d listings)\n", v.Page, v.TotalPages, v.TotalCount)
	for _, ad := range v.Items {
		fmt.Fprintf(&b, "\n[%s] %s\n", ad.ID, ad.Title)
		var meta []string
		if ad.Category != "" {
			meta = append(meta, ad.Category)
		}
		if ad.Location != "" {
			meta = append(meta, ad.Location)
		}
		if ad.UserName != "" {
			meta = append(meta, "by "+ad.UserName)
		}
		if !ad.CreatedAt.IsZero() {
			meta = append(meta, ad.CreatedAt.Format("2006-01-02"))
		}
		if len(meta) > 0 {
			fmt.Fprintf(&b, "  %s\n", strings.Join(meta, " · "))
		}
		if ad.ShortDescription != "" {
			fmt.Fprintf(&b, "  %s\n", ad.ShortDescription)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
