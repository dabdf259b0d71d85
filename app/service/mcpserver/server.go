// Package mcpserver exposes the relay as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"relaybot/app/model"
	"relaybot/app/service/history"
	"relaybot/app/service/reply"
	"relaybot/app/service/replycache"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
)

const instructions = "Relay chat messages to the Jarvis assistant. " +
	"Conversations are keyed by room_id and user_id."

type Service struct {
	resolver *reply.Resolver
	history  *history.Store
	server   *server.MCPServer
}

// VersionKey names the injected build version reported to MCP clients.
const VersionKey = "version"

func New(di *do.Injector) (*Service, error) {
	version, err := do.InvokeNamed[string](di, VersionKey)
	if err != nil {
		version = "dev"
	}

	return NewService(do.MustInvoke[*reply.Resolver](di), version), nil
}

func NewService(resolver *reply.Resolver, version string) *Service {
	s := &Service{
		resolver: resolver,
		history:  resolver.History(),
	}

	s.server = server.NewMCPServer(
		"relaybot",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	for _, t := range s.tools() {
		s.server.AddTool(t.definition, t.handle)
	}

	return s
}

func (s *Service) MCPServer() *server.MCPServer {
	return s.server
}

// Serve speaks MCP over the given streams until ctx is cancelled or in is closed.
func (s *Service) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.server).Listen(ctx, in, out)
}

type tool struct {
	definition mcp.Tool
	handle     server.ToolHandlerFunc
}

func conversationArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("room_id", mcp.Description("Room id, defaults to "+model.DefaultRoomID)),
		mcp.WithString("user_id", mcp.Description("User id, defaults to "+model.DefaultUserID)),
	}
}

func (s *Service) tools() []tool {
	return []tool{
		{
			definition: mcp.NewTool("chat",
				append([]mcp.ToolOption{
					mcp.WithDescription("Ask the assistant a question. Answers come from the quick replies or the language model."),
					mcp.WithString("message", mcp.Required(), mcp.Description("Message text")),
				}, conversationArgs()...)...,
			),
			handle: s.handleChat,
		},
		{
			definition: mcp.NewTool("manual_response",
				mcp.WithDescription("Look up the predefined manual reply for a message."),
				mcp.WithString("message", mcp.Required(), mcp.Description("Message text")),
			),
			handle: s.handleManual,
		},
		{
			definition: mcp.NewTool("history",
				append([]mcp.ToolOption{
					mcp.WithDescription("Return the stored exchanges of a conversation, oldest first."),
				}, conversationArgs()...)...,
			),
			handle: s.handleHistory,
		},
		{
			definition: mcp.NewTool("clear_history",
				append([]mcp.ToolOption{
					mcp.WithDescription("Forget the stored exchanges of a conversation."),
				}, conversationArgs()...)...,
			),
			handle: s.handleClear,
		},
	}
}

func conversation(request mcp.CallToolRequest) model.Conversation {
	return model.NewConversation(
		request.GetString("room_id", ""),
		request.GetString("user_id", ""),
	)
}

func (s *Service) handleChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := s.resolver.Resolve(ctx, message, conversation(request))
	if result.Err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to process message: %v", result.Err)), nil
	}

	return mcp.NewToolResultText(result.Text), nil
}

func (s *Service) handleManual(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(replycache.Manual(message)), nil
}

func (s *Service) handleHistory(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exchanges := s.history.All(conversation(request).Key())

	data, err := json.Marshal(exchanges)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}

	return mcp.NewToolResultText(string(data)), nil
}

func (s *Service) handleClear(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conv := conversation(request)
	s.history.Clear(conv.Key())

	return mcp.NewToolResultText(fmt.Sprintf("Conversation history cleared for room %s and user %s", conv.RoomID, conv.UserID)), nil
}
