package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/lanequote/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"quote_lane": {
		def:     quoteLaneToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleQuoteLane },
	},
	"quote_batch": {
		def:     quoteBatchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleQuoteBatch },
	},
	"quote_terms": {
		def:     quoteTermsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleQuoteTerms },
	},
	"lane_distance": {
		def:     laneDistanceToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLaneDistance },
	},
	"client_summary": {
		def:     clientSummaryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClientSummary },
	},
	"request_log": {
		def:     requestLogToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRequestLog },
	},
	"quote_currencies": {
		def:     quoteCurrenciesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleQuoteCurrencies },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the quoting tools registered.
// Tools listed in the service config's DisabledTools are skipped.
func NewServer(svc *ops.Service, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"lanequote",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(svc)

	disabled := make(map[string]bool)
	for _, name := range svc.Config.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run serves the tools over stdio until stdin closes.
func Run(svc *ops.Service, version string) error {
	return server.ServeStdio(NewServer(svc, version))
}
