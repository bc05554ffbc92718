// Package mcp implements a Model Context Protocol server exposing testevo
// analysis capabilities as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/testevo/pkg/observability"
)

const (
	// serverName is the MCP server implementation name.
	serverName = "testevo"
	// serverVersion is the MCP server implementation version.
	serverVersion = "1.0.0"
)

// traceIDMetaKey is the metadata key for trace_id in MCP tool responses.
const traceIDMetaKey = "trace_id"

// ServerDeps carries the observability hooks the server is wired with.
// Any field may be left nil.
type ServerDeps struct {
	// Logger receives server lifecycle and per-analysis log lines.
	// Nil falls back to slog.Default.
	Logger *slog.Logger

	// Metrics records RED metrics per tool call when set.
	Metrics *observability.REDMetrics

	// Tracer opens a server span per tool call when set.
	Tracer trace.Tracer
}

// Server wraps the MCP SDK server with the testevo tool set. All tools are
// registered at construction; the server is immutable afterwards.
type Server struct {
	inner  *mcpsdk.Server
	logger *slog.Logger
	names  []string
}

// toolHandler is the typed handler shape the MCP SDK expects for a tool
// with input type Input.
type toolHandler[Input any] func(
	context.Context, *mcpsdk.CallToolRequest, Input,
) (*mcpsdk.CallToolResult, ToolOutput, error)

// NewServer creates an MCP server with the analyze, inspect, and classify
// tools registered and instrumented per deps.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	srv := &Server{
		inner: mcpsdk.NewServer(
			&mcpsdk.Implementation{Name: serverName, Version: serverVersion},
			nil,
		),
		logger: logger,
	}

	register(srv, deps, &mcpsdk.Tool{
		Name:        ToolNameAnalyze,
		Description: analyzeToolDescription,
	}, srv.handleAnalyze)

	register(srv, deps, &mcpsdk.Tool{
		Name:        ToolNameInspect,
		Description: inspectToolDescription,
	}, handleInspect)

	register(srv, deps, &mcpsdk.Tool{
		Name:        ToolNameClassify,
		Description: classifyToolDescription,
	}, handleClassify)

	return srv
}

// register adds one instrumented tool and remembers its name.
func register[Input any](srv *Server, deps ServerDeps, tool *mcpsdk.Tool, handler toolHandler[Input]) {
	wrapped := handler
	if deps.Tracer != nil {
		wrapped = traced(deps.Tracer, tool.Name, wrapped)
	}

	if deps.Metrics != nil {
		wrapped = measured(deps.Metrics, tool.Name, wrapped)
	}

	mcpsdk.AddTool(srv.inner, tool, mcpsdk.ToolHandlerFor[Input, ToolOutput](wrapped))
	srv.names = append(srv.names, tool.Name)
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	names := slices.Clone(s.names)
	slices.Sort(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting MCP server", "transport", "stdio", "tools", len(s.names))

	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport starts the MCP server on the given transport. It blocks
// until the context is canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// spanName qualifies a tool name for spans and metric attributes.
func spanName(tool string) string {
	return "mcp." + tool
}

// traced wraps a tool handler in a server span. Sampled calls get their
// trace_id appended to the response content so clients can quote it back.
func traced[Input any](tracer trace.Tracer, name string, next toolHandler[Input]) toolHandler[Input] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, spanName(name),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", name)),
		)
		defer span.End()

		result, output, err := next(ctx, req, input)

		if sc := span.SpanContext(); sc.IsSampled() && result != nil {
			result.Content = append(result.Content, &mcpsdk.TextContent{
				Text: traceIDMetaKey + "=" + sc.TraceID().String(),
			})
		}

		return result, output, err
	}
}

// measured wraps a tool handler with RED metrics. A handler error or an
// IsError result both count as failures.
func measured[Input any](metrics *observability.REDMetrics, name string, next toolHandler[Input]) toolHandler[Input] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		op := spanName(name)

		release := metrics.TrackInflight(ctx, op)
		defer release()

		start := time.Now()
		result, output, err := next(ctx, req, input)

		status := "ok"
		if err != nil || (result != nil && result.IsError) {
			status = "error"
		}

		metrics.RecordRequest(ctx, op, status, time.Since(start))

		return result, output, err
	}
}

// Tool description constants.
const (
	analyzeToolDescription = "Analyze a Git repository's test quality evolution " +
		"(test types, doubles, smells, flaky indicators, coverage, delay). " +
		"Accepts an absolute repository path and returns the full report."

	inspectToolDescription = "Inspect inline Python source with the test-quality analyzers. " +
		"Accepts code and an optional filename controlling its role."

	classifyToolDescription = "Classify repository file paths as production, test or ignored."
)
