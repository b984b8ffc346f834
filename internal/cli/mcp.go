package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/render"
	"github.com/futig/knowledge-console/internal/usecase/query"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

// MCPSessionID is the registry key of the conversation behind the ask tool.
const MCPSessionID = "mcp"

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing question answering and index tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpserver.ServeStdio(newMCPServer(deps))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

type statusReader interface {
	GetStatus(ctx context.Context) (*entity.IngestStatus, error)
}

func newMCPServer(d *Deps) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("knowledge-console", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(askTool(), makeAskHandler(d.Sessions))
	s.AddTool(searchTool(), makeSearchHandler(d.Sessions))
	s.AddTool(lastSourcesTool(), makeLastSourcesHandler(d.Sessions))
	s.AddTool(indexStatusTool(), makeIndexStatusHandler(d.Ingest))
	return s
}

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func askTool() mcp.Tool {
	return mcp.NewTool("ask",
		mcp.WithDescription("Ask a question over the indexed documents. Follow-up questions share one conversation. Returns the grounded answer with numbered citations."),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{
			ReadOnlyHint:    mcp.ToBoolPtr(false),
			DestructiveHint: mcp.ToBoolPtr(false),
			IdempotentHint:  mcp.ToBoolPtr(false),
			OpenWorldHint:   mcp.ToBoolPtr(false),
		}),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Natural language question"),
		),
	)
}

func searchTool() mcp.Tool {
	return mcp.NewTool("search",
		mcp.WithDescription("Retrieve the passages most relevant to a query without generating an answer into the conversation."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language or keyword query"),
		),
	)
}

func lastSourcesTool() mcp.Tool {
	return mcp.NewTool("last_sources",
		mcp.WithDescription("Get the passages behind the most recent answer or search, with query terms in bold."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

func indexStatusTool() mcp.Tool {
	return mcp.NewTool("index_status",
		mcp.WithDescription("Get index totals and the most recently added documents."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of documents to list (default 20, 0 for all)"),
		),
	)
}

func makeAskHandler(sessions SessionRegistry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question := req.GetString("question", "")
		if strings.TrimSpace(question) == "" {
			return mcp.NewToolResultError("question is required"), nil
		}

		s := sessions.Ensure(ctx, MCPSessionID)
		result, err := s.Queries.Ask(ctx, question)
		if err != nil {
			return mcp.NewToolResultError(describe(err)), nil
		}
		return mcp.NewToolResultText(formatAnswer(result)), nil
	}
}

func makeSearchHandler(sessions SessionRegistry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q := req.GetString("query", "")
		if strings.TrimSpace(q) == "" {
			return mcp.NewToolResultError("query is required"), nil
		}

		s := sessions.Ensure(ctx, MCPSessionID)
		result, err := s.Queries.Search(ctx, q)
		if err != nil {
			return mcp.NewToolResultError(describe(err)), nil
		}
		return mcp.NewToolResultText(formatSearchResults(result)), nil
	}
}

func makeLastSourcesHandler(sessions SessionRegistry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		latest := sessions.Ensure(ctx, MCPSessionID).Queries.Latest()
		if latest == nil {
			return mcp.NewToolResultText("No answer yet. Call ask or search first."), nil
		}
		return mcp.NewToolResultText(formatSearchResults(latest)), nil
	}
}

func makeIndexStatusHandler(client statusReader) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", statusDocumentLimit)
		if limit < 0 {
			limit = statusDocumentLimit
		}

		status, err := client.GetStatus(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("index status failed: %s", describe(err))), nil
		}
		return mcp.NewToolResultText(render.StatusText(status, limit)), nil
	}
}

func formatAnswer(r *query.Result) string {
	var sb strings.Builder
	sb.WriteString(answerMarkdown(r))
	fmt.Fprintf(&sb, "\n\n_%s_", render.MetricsOf(r.Response).String())
	return sb.String()
}

func formatSearchResults(r *query.Result) string {
	if len(r.Sources) == 0 {
		return fmt.Sprintf("No results found for query: %q", r.Query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Results for %q (%d passages)\n\n", r.Query, len(r.Sources))
	sb.WriteString(sourcesMarkdown(r.Sources))
	return sb.String()
}
