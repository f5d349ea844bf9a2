package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/docvault/internal/category"
	"github.com/kalambet/docvault/internal/query"
	"github.com/kalambet/docvault/internal/storage"
)

// MCPQuerier abstracts the query service for the MCP layer.
type MCPQuerier interface {
	Ask(ctx context.Context, req query.Request) (query.Response, error)
}

// MCPStoreLister abstracts store listing for the MCP layer.
type MCPStoreLister interface {
	List() ([]storage.StoreRecord, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Query  MCPQuerier
	Stores MCPStoreLister
	Store  *storage.Store
}

// NewMCPServer creates an MCP server exposing document query tools and the
// category catalog.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"docvault",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("docvault — document store with retrieval-augmented query over indexed tender and sales documents."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("query_documents",
			mcp.WithDescription("Ask a question against an indexed document store and get a grounded answer."),
			mcp.WithString("question", mcp.Description("Question to ask"), mcp.Required()),
			mcp.WithString("store", mcp.Description("Name of the document store to query"), mcp.Required()),
			mcp.WithString("mode", mcp.Description("Response mode: tender, quick, analysis, strategy, or checklist (default quick)")),
			mcp.WithArray("categories", mcp.Description("Optional category names to scope the answer to")),
		),
		mcpQueryDocuments(deps),
	)

	s.AddTool(
		mcp.NewTool("list_stores",
			mcp.WithDescription("List the available document stores with their document counts."),
		),
		mcpListStores(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"docvault://categories",
			"Document Categories",
			mcp.WithResourceDescription("Category catalog with per-category document counts"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceCategories(deps),
	)

	return s
}

func mcpQueryDocuments(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		storeName, err := req.RequireString("store")
		if err != nil {
			return mcpError("store is required"), nil
		}

		mode := req.GetString("mode", query.DefaultMode)
		categories := req.GetStringSlice("categories", nil)

		resp, err := deps.Query.Ask(ctx, query.Request{
			Question:   question,
			StoreName:  storeName,
			Mode:       mode,
			Categories: categories,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("query failed: %v", err)), nil
		}

		return mcpText(resp.Answer), nil
	}
}

func mcpListStores(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, err := deps.Stores.List()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list stores: %v", err)), nil
		}

		type storeSummary struct {
			Name          string `json:"name"`
			DocumentCount int    `json:"document_count"`
			CreatedAt     string `json:"created_at"`
		}
		summaries := make([]storeSummary, len(list))
		for i, rec := range list {
			summaries[i] = storeSummary{
				Name:          rec.Name,
				DocumentCount: rec.DocumentCount,
				CreatedAt:     rec.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal stores: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceCategories(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		counts, err := deps.Store.CategoryCounts()
		if err != nil {
			return nil, fmt.Errorf("failed to get category counts: %w", err)
		}

		type categoryEntry struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Documents   int    `json:"documents"`
		}
		all := category.All()
		entries := make([]categoryEntry, len(all))
		for i, c := range all {
			entries[i] = categoryEntry{
				Name:        c.Name,
				Description: c.Description,
				Documents:   counts[c.Name],
			}
		}

		b, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal categories: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
