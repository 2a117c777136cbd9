// Package mcpserver exposes the scraper as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"placereviews/internal/adapters/observability"
	"placereviews/internal/app"
)

const (
	Name    = "google-maps-reviews"
	Version = "1.0.0"

	toolReviews = "get_reviews"
	toolPlace   = "get_place_info"
)

type Tools struct{ S app.Scraper }

// New registers get_reviews and get_place_info on a fresh MCP server.
func New(s app.Scraper) *server.MCPServer {
	t := &Tools{S: s}
	srv := server.NewMCPServer(Name, Version, server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool(toolReviews,
		mcp.WithDescription("Scrape reviews from a Google Maps place URL"),
		mcp.WithString("url", mcp.Required(), mcp.Description("Google Maps place URL")),
		mcp.WithNumber("count", mcp.DefaultNumber(app.DefaultReviewCount),
			mcp.Description("Number of reviews to fetch (default: 10)")),
	), t.GetReviews)

	srv.AddTool(mcp.NewTool(toolPlace,
		mcp.WithDescription("Get basic info about a Google Maps place"),
		mcp.WithString("url", mcp.Required(), mcp.Description("Google Maps place URL")),
	), t.GetPlaceInfo)

	return srv
}

// Serve speaks MCP on in/out until ctx is done or in reaches EOF.
func Serve(ctx context.Context, srv *server.MCPServer, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(srv).Listen(ctx, in, out)
}

func (t *Tools) GetReviews(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("Error fetching reviews: " + err.Error()), nil
	}
	count := req.GetInt("count", app.DefaultReviewCount)

	reviews, err := t.S.GetReviews(ctx, url, count)
	observability.ObserveTool(toolReviews, err)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("get_reviews failed")
		return mcp.NewToolResultError("Error fetching reviews: " + err.Error()), nil
	}
	return textResult(reviews)
}

func (t *Tools) GetPlaceInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("Error fetching place info: " + err.Error()), nil
	}

	info, err := t.S.GetPlaceInfo(ctx, url)
	observability.ObserveTool(toolPlace, err)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("get_place_info failed")
		return mcp.NewToolResultError("Error fetching place info: " + err.Error()), nil
	}
	return textResult(info)
}

func textResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}
