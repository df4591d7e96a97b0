// Package mcptool exposes the cache engine's public operation surface as
// MCP tools, so agent clients can query the index without knowing its
// storage details. Handlers convert every failure into a structured tool
// error; nothing panics or leaks past this boundary.
package mcptool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/agentic-research/figdex/api"
	"github.com/agentic-research/figdex/internal/store"
	"github.com/agentic-research/figdex/internal/syncer"
)

// Register adds every figdex tool to the MCP server.
func Register(s *server.MCPServer, ctrl *syncer.Controller) {
	s.AddTool(ensureReadyTool(), ensureReadyHandler(ctrl))
	s.AddTool(searchTool(), searchHandler(ctrl))
	s.AddTool(getNodeTool(), getNodeHandler(ctrl))
	s.AddTool(listNodesTool(), listNodesHandler(ctrl))
	s.AddTool(getComponentTool(), getComponentHandler(ctrl))
	s.AddTool(listComponentsTool(), listComponentsHandler(ctrl))
	s.AddTool(getVariableTool(), getVariableHandler(ctrl))
	s.AddTool(statsTool(), statsHandler(ctrl))
	s.AddTool(rebuildTool(), rebuildHandler(ctrl))
	s.AddTool(setDocumentTool(), setDocumentHandler(ctrl))
	s.AddTool(listDocumentsTool(), listDocumentsHandler(ctrl))
}

// --- ensure_ready ---

func ensureReadyTool() mcp.Tool {
	return mcp.NewTool("ensure_ready",
		mcp.WithDescription("Ensure the document index is queryable, syncing from the design tool if the cache is missing, stale, or invalidated."),
	)
}

func ensureReadyHandler(ctrl *syncer.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ready, err := ctrl.EnsureReady(ctx)
		if err != nil && !ready.Ready {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("ready=%v synced=%v stale=%v: %s",
			ready.Ready, ready.Synced, ready.Stale, ready.Message)), nil
	}
}

// --- search ---

func searchTool() mcp.Tool {
	return mcp.NewTool("search",
		mcp.WithDescription("Full-text search over indexed nodes. Multi-word queries match any word, ranked by relevance."),
		mcp.WithString("query", mcp.Description("Search terms"), mcp.Required()),
		mcp.WithString("type", mcp.Description("Filter by node type (FRAME, TEXT, INSTANCE, …)")),
		mcp.WithString("page_id", mcp.Description("Filter by page id")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
	)
}

func searchHandler(ctrl *syncer.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return toolError(fmt.Errorf("query is required"))
		}
		filter := api.SearchFilter{
			Type:   req.GetString("type", ""),
			PageID: req.GetString("page_id", ""),
		}
		nodes, ready, err := ctrl.Search(ctx, query, filter, req.GetInt("limit", 0))
		if err != nil && len(nodes) == 0 {
			return toolError(err)
		}
		if !ready.Ready {
			return mcp.NewToolResultText(ready.Message), nil
		}
		if len(nodes) == 0 {
			return mcp.NewToolResultText("No matches."), nil
		}
		var sb strings.Builder
		for _, n := range nodes {
			fmt.Fprintf(&sb, "%s  [%s]  %s\n", n.FigmaID, n.Type, n.Path)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- get_node ---

func getNodeTool() mcp.Tool {
	return mcp.NewTool("get_node",
		mcp.WithDescription("Look up one indexed node by its document id."),
		mcp.WithString("id", mcp.Description("Node id, e.g. 12:34"), mcp.Required()),
	)
}

func getNodeHandler(ctrl *syncer.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetString("id", "")
		if id == "" {
			return toolError(fmt.Errorf("id is required"))
		}
		st, err := ctrl.Partitions().Active()
		if err != nil {
			return toolError(err)
		}
		n, err := st.NodeByFigmaID(id)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(formatNode(*n)), nil
	}
}

// --- list_nodes ---

func listNodesTool() mcp.Tool {
	return mcp.NewTool("list_nodes",
		mcp.WithDescription("List indexed nodes of one type, optionally scoped to a page."),
		mcp.WithString("type", mcp.Description("Node type (FRAME, TEXT, INSTANCE, …)"), mcp.Required()),
		mcp.WithString("page_id", mcp.Description("Filter by page id")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
	)
}

func listNodesHandler(ctrl *syncer.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		nodeType := req.GetString("type", "")
		if nodeType == "" {
			return toolError(fmt.Errorf("type is required"))
		}
		st, err := ctrl.Partitions().Active()
		if err != nil {
			return toolError(err)
		}
		nodes, err := st.NodesByType(nodeType, req.GetString("page_id", ""), req.GetInt("limit", 0))
		if err != nil {
			return toolError(err)
		}
		if len(nodes) == 0 {
			return mcp.NewToolResultText("No nodes."), nil
		}
		var sb strings.Builder
		for _, n := range nodes {
			fmt.Fprintf(&sb, "%s  %s\n", n.FigmaID, n.Path)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- get_component ---

func getComponentTool() mcp.Tool {
	return mcp.NewTool("get_component",
		mcp.WithDescription("Look up one component by its stable key and record the usage."),
		mcp.WithString("key", mcp.Description("Component key"), mcp.Required()),
	)
}

func getComponentHandler(ctrl *syncer.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key := req.GetString("key", "")
		if key == "" {
			return toolError(fmt.Errorf("key is required"))
		}
		st, err := ctrl.Partitions().Active()
		if err != nil {
			return toolError(err)
		}
		c, err := st.ComponentByKey(key)
		if err != nil {
			return toolError(err)
		}
		// Consumers, not ingestion, advance the usage counter.
		if err := st.TouchComponentUsage(key); err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s  %s  category=%s uses=%d",
			c.Key, c.Name, c.Category, c.UsageCount+1)), nil
	}
}

// --- list_components ---

func listComponentsTool() mcp.Tool {
	return mcp.NewTool("list_components",
		mcp.WithDescription("List components in a category."),
		mcp.WithString("category", mcp.Description("Category name"), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
	)
}

func listComponentsHandler(ctrl *syncer.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		category := req.GetString("category", "")
		if category == "" {
			return toolError(fmt.Errorf("category is required"))
		}
		st, err := ctrl.Partitions().Active()
		if err != nil {
			return toolError(err)
		}
		comps, err := st.ComponentsByCategory(category, req.GetInt("limit", 0))
		if err != nil {
			return toolError(err)
		}
		if len(comps) == 0 {
			return mcp.NewToolResultText("No components."), nil
		}
		var sb strings.Builder
		for _, c := range comps {
			fmt.Fprintf(&sb, "%s  %s\n", c.Key, c.Name)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- get_variable ---

func getVariableTool() mcp.Tool {
	return mcp.NewTool("get_variable",
		mcp.WithDescription("Look up a design token by id or by its semantic name (e.g. \"primary\")."),
		mcp.WithString("id", mcp.Description("Variable id")),
		mcp.WithString("name", mcp.Description("Semantic name assigned by the classifier")),
	)
}

func getVariableHandler(ctrl *syncer.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, err := ctrl.Partitions().Active()
		if err != nil {
			return toolError(err)
		}
		var v *store.Variable
		switch {
		case req.GetString("id", "") != "":
			v, err = st.VariableByID(req.GetString("id", ""))
		case req.GetString("name", "") != "":
			v, err = st.VariableBySemanticName(req.GetString("name", ""))
		default:
			return toolError(fmt.Errorf("id or name is required"))
		}
		if err != nil {
			return toolError(err)
		}
		out := fmt.Sprintf("%s  %s  type=%s", v.ID, v.Name, v.ResolvedType)
		if v.Hex != "" {
			out += fmt.Sprintf("  %s %s %s", v.Hex, v.RGB, v.HSL)
		}
		if v.AliasOf != "" {
			out += "  alias_of=" + v.AliasOf
		}
		return mcp.NewToolResultText(out), nil
	}
}

// --- get_stats ---

func statsTool() mcp.Tool {
	return mcp.NewTool("get_stats",
		mcp.WithDescription("Report index row counts, last sync time, and invalidation state."),
	)
}

func statsHandler(ctrl *syncer.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, err := ctrl.Stats(ctx)
		if err != nil {
			return toolError(err)
		}
		out := fmt.Sprintf("document=%q pages=%d nodes=%d components=%d variables=%d collections=%d bindings=%d last_sync=%s",
			st.DocumentName, st.Pages, st.Nodes, st.Components, st.Variables, st.Collections, st.Bindings,
			st.LastFullSync.Format("2006-01-02T15:04:05Z07:00"))
		if st.Invalidated {
			out += "\ninvalidated: " + st.InvalidationReason
		}
		return mcp.NewToolResultText(out), nil
	}
}

// --- rebuild ---

func rebuildTool() mcp.Tool {
	return mcp.NewTool("rebuild",
		mcp.WithDescription("Force a full resync of the active document, discarding the current index."),
		mcp.WithBoolean("skip_variables", mcp.Description("Skip the design-token phase")),
	)
}

func rebuildHandler(ctrl *syncer.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := ctrl.Rebuild(ctx, api.RebuildOptions{
			SkipVariables: req.GetBool("skip_variables", false),
		})
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf(
			"rebuilt %q: %d pages, %d nodes, %d components, %d variables in %s",
			stats.DocumentName, stats.PagesIndexed, stats.NodesIndexed,
			stats.ComponentsIndexed, stats.VariablesIndexed, stats.Duration.Round(time.Millisecond))), nil
	}
}

// --- set_active_document ---

func setDocumentTool() mcp.Tool {
	return mcp.NewTool("set_active_document",
		mcp.WithDescription("Switch the cache to another document's partition."),
		mcp.WithString("document_id", mcp.Description("Remote document id"), mcp.Required()),
	)
}

func setDocumentHandler(ctrl *syncer.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetString("document_id", "")
		if id == "" {
			return toolError(fmt.Errorf("document_id is required"))
		}
		if err := ctrl.SetActiveDocument(id); err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText("active document: " + store.SanitizeDocumentID(id)), nil
	}
}

// --- list_documents ---

func listDocumentsTool() mcp.Tool {
	return mcp.NewTool("list_documents",
		mcp.WithDescription("List every cached document partition with size and age."),
	)
}

func listDocumentsHandler(ctrl *syncer.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		files, err := ctrl.Partitions().List()
		if err != nil {
			return toolError(err)
		}
		if len(files) == 0 {
			return mcp.NewToolResultText("No cached documents."), nil
		}
		var sb strings.Builder
		for _, f := range files {
			id := f.DocumentID
			if id == "" {
				id = "(default)"
			}
			fmt.Fprintf(&sb, "%s  %d bytes  %s\n", id, f.Size, f.ModTime.Format("2006-01-02 15:04"))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- helpers ---

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func formatNode(n store.Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s  [%s]  %s\n", n.FigmaID, n.Type, n.Path)
	fmt.Fprintf(&sb, "page=%s depth=%d", n.PageID, n.Depth)
	if n.Width != nil && n.Height != nil {
		fmt.Fprintf(&sb, " size=%.0fx%.0f", *n.Width, *n.Height)
	}
	if n.ComponentHint != "" {
		fmt.Fprintf(&sb, " hint=%s", n.ComponentHint)
	}
	return sb.String()
}
