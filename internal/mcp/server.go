// Package mcp provides a Model Context Protocol server for bidsage.
//
// It exposes the sale archive (search, stats) and the price
// recommendation engine as MCP tools over stdio, so agent frontends can
// ask "what should I bid for a shiny Gible" directly.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bidsage/internal/pricing"
	"bidsage/internal/store"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Store   store.Store
	Version string
}

// NewServer creates a configured MCP server with all bidsage tools and
// resources.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"bidsage",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	advisor := pricing.NewAdvisor(cfg.Store)

	registerRecommendTool(s, advisor)
	registerSearchTool(s, advisor)
	registerStatsTool(s, cfg.Store)
	registerStatsResource(s, cfg.Store)

	return s
}

// filterOptions attaches the shared cohort filter parameters to a tool.
func filterOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("species",
			mcp.Required(),
			mcp.Description("Species name, case-insensitive substring match"),
		),
		mcp.WithString("shiny",
			mcp.Description("Shiny filter: any, yes or no (default: any)"),
			mcp.Enum("any", "yes", "no"),
		),
		mcp.WithString("gender",
			mcp.Description("Gender, exact case-insensitive match (e.g. Male, Female)"),
		),
		mcp.WithString("nature",
			mcp.Description("Nature, exact case-insensitive match"),
		),
		mcp.WithNumber("min_iv_total",
			mcp.Description("Minimum total IV percentage (0-100)"),
		),
		mcp.WithNumber("min_level",
			mcp.Description("Minimum level"),
		),
		mcp.WithNumber("max_level",
			mcp.Description("Maximum level"),
		),
	}
}

// filterFromRequest reads the shared cohort filter parameters.
func filterFromRequest(req mcp.CallToolRequest) store.Filter {
	f := store.Filter{}

	if species, err := req.RequireString("species"); err == nil {
		f.Species = species
	}
	if shiny, err := req.RequireString("shiny"); err == nil {
		switch shiny {
		case "yes":
			t := true
			f.Shiny = &t
		case "no":
			fa := false
			f.Shiny = &fa
		}
	}
	if gender, err := req.RequireString("gender"); err == nil && gender != "" {
		f.Gender = gender
	}
	if nature, err := req.RequireString("nature"); err == nil && nature != "" {
		f.Nature = nature
	}
	if v, err := req.RequireFloat("min_iv_total"); err == nil && v > 0 {
		f.MinIVTotal = &v
	}
	if v, err := req.RequireFloat("min_level"); err == nil && v > 0 {
		lvl := int(v)
		f.MinLevel = &lvl
	}
	if v, err := req.RequireFloat("max_level"); err == nil && v > 0 {
		lvl := int(v)
		f.MaxLevel = &lvl
	}

	return f
}

func registerRecommendTool(s *server.MCPServer, advisor *pricing.Advisor) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Recommend a conservative/aggressive bid range for a cohort of past sales, with outlier rejection and trend adjustment."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	}, filterOptions()...)
	tool := mcp.NewTool("bidsage_recommend", opts...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		f := filterFromRequest(req)
		if f.Species == "" {
			return mcp.NewToolResultError("species is required"), nil
		}

		rec, err := advisor.RecommendFor(ctx, f)
		if err != nil {
			if errors.Is(err, pricing.ErrNoSamples) || errors.Is(err, pricing.ErrNotEnoughSamples) {
				return mcp.NewToolResultText(fmt.Sprintf(`{"success": false, "message": %q}`, err.Error())), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("recommendation error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(rec, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerSearchTool(s *server.MCPServer, advisor *pricing.Advisor) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List past settled sales for a cohort, highest price first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 20, max: 100)"),
		),
	}, filterOptions()...)
	tool := mcp.NewTool("bidsage_search", opts...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		f := filterFromRequest(req)
		if f.Species == "" {
			return mcp.NewToolResultError("species is required"), nil
		}

		limit := 20
		if v, err := req.RequireFloat("limit"); err == nil && v > 0 {
			limit = int(v)
			if limit > 100 {
				limit = 100
			}
		}

		sales, err := advisor.CohortSales(ctx, f, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search error: %v", err)), nil
		}

		type saleOut struct {
			AuctionID  string   `json:"auction_id"`
			Species    string   `json:"species"`
			Level      *int     `json:"level,omitempty"`
			Shiny      bool     `json:"shiny"`
			Gender     string   `json:"gender,omitempty"`
			Nature     string   `json:"nature,omitempty"`
			IVTotal    *float64 `json:"iv_total,omitempty"`
			WinningBid *int64   `json:"winning_bid,omitempty"`
			Timestamp  string   `json:"timestamp,omitempty"`
		}
		out := make([]saleOut, 0, len(sales))
		for _, rec := range sales {
			out = append(out, saleOut{
				AuctionID:  rec.AuctionID,
				Species:    rec.Species,
				Level:      rec.Level,
				Shiny:      rec.Shiny,
				Gender:     rec.Gender,
				Nature:     rec.Nature,
				IVTotal:    rec.IVTotal,
				WinningBid: rec.WinningBid,
				Timestamp:  rec.Timestamp,
			})
		}

		data, _ := json.MarshalIndent(map[string]interface{}{
			"count": len(out),
			"sales": out,
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatsTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("bidsage_stats",
		mcp.WithDescription("Show archive statistics: total sales, sales with a winning bid, shiny count, distinct species."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := st.Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats error: %v", err)), nil
		}
		data, _ := json.MarshalIndent(stats, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatsResource(s *server.MCPServer, st store.Store) {
	resource := mcp.NewResource(
		"bidsage://stats",
		"Archive Statistics",
		mcp.WithResourceDescription("Aggregate counters over the stored sale records."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		stats, err := st.Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading stats resource: %w", err)
		}
		data, _ := json.MarshalIndent(stats, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}
