// Package mcpserver exposes the hybrid resolver as MCP tools so agents can
// ask for validated tool calls over stdio.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/flynn-ai/hybridcall/internal/errors"
	"github.com/flynn-ai/hybridcall/internal/tools/schemas"
	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

// Tool names.
const (
	ToolResolve  = "resolve_tool_calls"
	ToolValidate = "validate_tool_calls"
)

// Generator answers a request, typically a *hybrid.Orchestrator.
type Generator interface {
	Generate(ctx context.Context, req protocol.Request) (*protocol.HybridResult, error)
}

// ResolveInput is the input of resolve_tool_calls.
type ResolveInput struct {
	Messages []protocol.Message  `json:"messages" jsonschema:"the conversation, oldest message first"`
	Tools    []protocol.ToolSpec `json:"tools" jsonschema:"the tools the returned calls may use"`
}

// ValidateInput is the input of validate_tool_calls.
type ValidateInput struct {
	Calls []protocol.Call     `json:"calls" jsonschema:"the tool calls to check"`
	Tools []protocol.ToolSpec `json:"tools" jsonschema:"the declared tools"`
}

// ValidateOutput is the output of validate_tool_calls.
type ValidateOutput struct {
	Valid         bool            `json:"valid"`
	FunctionCalls []protocol.Call `json:"function_calls" jsonschema:"the coerced calls, or the input calls when invalid"`
	Error         string          `json:"error,omitempty"`
}

// Server wraps an MCP server bound to a Generator.
type Server struct {
	gen    Generator
	server *mcp.Server
	logger zerolog.Logger
}

// New creates the MCP server and registers its tools.
func New(gen Generator, version string, logger zerolog.Logger) *Server {
	s := &Server{
		gen:    gen,
		logger: logger,
		server: mcp.NewServer(&mcp.Implementation{Name: "hybridcall", Version: version}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name: ToolResolve,
		Description: "Turn a conversation into validated tool calls. Answers on-device when the local " +
			"model is confident or its samples agree, otherwise asks the cloud model once.",
	}, s.resolve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolValidate,
		Description: "Check tool calls against tool schemas and coerce argument types.",
	}, s.validate)

	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Run serves over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info().Msg("mcp server listening on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) resolve(ctx context.Context, _ *mcp.CallToolRequest, in ResolveInput) (*mcp.CallToolResult, protocol.HybridResult, error) {
	if len(in.Messages) == 0 {
		return nil, protocol.HybridResult{}, errors.User(errors.CodeInvalidInput, "messages must not be empty")
	}

	res, err := s.gen.Generate(ctx, protocol.Request{Messages: in.Messages, Tools: in.Tools})
	if err != nil {
		s.logger.Warn().Err(err).Msg("resolve_tool_calls failed")
		return nil, protocol.HybridResult{}, fmt.Errorf("%s", errors.FormatUserMessage(err))
	}

	out := *res
	out.FunctionCalls = withArguments(out.FunctionCalls)
	return nil, out, nil
}

func (s *Server) validate(_ context.Context, _ *mcp.CallToolRequest, in ValidateInput) (*mcp.CallToolResult, ValidateOutput, error) {
	calls, err := schemas.Check(in.Calls, in.Tools)
	out := ValidateOutput{Valid: err == nil, FunctionCalls: withArguments(calls)}
	if err != nil {
		out.Error = err.Error()
	}
	return nil, out, nil
}

// withArguments copies calls so every call carries a non-nil argument map.
func withArguments(calls []protocol.Call) []protocol.Call {
	out := make([]protocol.Call, len(calls))
	for i, c := range calls {
		out[i] = c.Clone()
	}
	return out
}
