// Package mcp exposes the dialog engine as an MCP server, so agent hosts can
// drive conversations and invoke skill actions as tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/parleyio/parley/pkg/domain"
)

// TurnProcessor runs one conversation turn against the engine.
type TurnProcessor interface {
	OnTurn(ctx context.Context, conversationID string, activity domain.Activity) ([]domain.Activity, error)
}

// ActionInvoker runs a skill action end to end.
type ActionInvoker interface {
	Invoke(ctx context.Context, conversationID, eventName string, value any) (*domain.ActionResult, []domain.Activity, error)
}

// ConversationResetter wipes a conversation's persisted state.
type ConversationResetter interface {
	ClearConversation(ctx context.Context, conversationID string) error
}

// TurnResponse is the structured output of the conversation tools.
type TurnResponse struct {
	Activities []domain.Activity    `json:"activities" jsonschema_description:"Activities the engine emitted this turn"`
	Result     *domain.ActionResult `json:"result,omitempty" jsonschema_description:"Action outcome, when a skill action completed"`
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	turns     TurnProcessor
	actions   ActionInvoker
	resetter  ConversationResetter
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance. actions and resetter may be
// nil; the matching tools are then not registered.
func NewServer(version string, turns TurnProcessor, actions ActionInvoker, resetter ConversationResetter) *Server {
	s := &Server{
		turns:     turns,
		actions:   actions,
		resetter:  resetter,
		mcpServer: server.NewMCPServer("parley-mcp", strings.TrimSpace(version)),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	sendTool := mcp.NewTool("send_message",
		mcp.WithDescription("Send a user message to a conversation and collect the replies."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation identifier")),
		mcp.WithString("text", mcp.Required(), mcp.Description("The user's message text")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(sendTool, mcp.NewStructuredToolHandler(s.handleSendMessage))

	if s.actions != nil {
		actionTool := mcp.NewTool("invoke_action",
			mcp.WithDescription("Invoke a named skill action with optional slot values."),
			mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation identifier")),
			mcp.WithString("event", mcp.Required(), mcp.Description("Action event name")),
			mcp.WithString("value", mcp.Description("JSON object of slot values (optional)")),
			mcp.WithOutputSchema[TurnResponse](),
		)
		s.mcpServer.AddTool(actionTool, mcp.NewStructuredToolHandler(s.handleInvokeAction))
	}

	if s.resetter != nil {
		s.mcpServer.AddTool(mcp.NewTool("reset_conversation",
			mcp.WithDescription("Discard a conversation's persisted dialog state."),
			mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation identifier")),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			conversationID := request.GetString("conversation_id", "")
			if conversationID == "" {
				return mcp.NewToolResultError("conversation_id is required"), nil
			}
			if err := s.resetter.ClearConversation(ctx, conversationID); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("reset failed: %v", err)), nil
			}
			return mcp.NewToolResultText("conversation reset"), nil
		})
	}
}

func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	conversationID, _ := args["conversation_id"].(string)
	text, _ := args["text"].(string)
	if conversationID == "" {
		return TurnResponse{}, fmt.Errorf("conversation_id is required")
	}

	out, err := s.turns.OnTurn(ctx, conversationID, domain.NewMessage(text))
	if err != nil {
		return TurnResponse{}, fmt.Errorf("turn failed: %w", err)
	}
	return TurnResponse{Activities: out}, nil
}

func (s *Server) handleInvokeAction(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	conversationID, _ := args["conversation_id"].(string)
	event, _ := args["event"].(string)
	if conversationID == "" || event == "" {
		return TurnResponse{}, fmt.Errorf("conversation_id and event are required")
	}

	var value any
	if raw, ok := args["value"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return TurnResponse{}, fmt.Errorf("value must be a JSON document: %w", err)
		}
	}

	result, out, err := s.actions.Invoke(ctx, conversationID, event, value)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("action failed: %w", err)
	}
	return TurnResponse{Activities: out, Result: result}, nil
}
