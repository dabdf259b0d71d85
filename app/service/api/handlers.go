package api

import (
	"fmt"
	"strings"
	"time"

	"relaybot/app/model"
	"relaybot/app/service/reply"
	"relaybot/app/service/replycache"

	"github.com/elliotchance/pie/v2"
	"github.com/gofiber/fiber/v2"
)

const (
	statusSuccess = "success"
	timeLayout    = "2006-01-02T15:04:05.000000"
)

func (s *Service) handleHome(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   statusSuccess,
		"service":  serviceName,
		"bot_name": "Jarvis",
		"mode":     s.resolver.Strategy(),
		"endpoints": fiber.Map{
			"POST /chat":            "Send a message to the AI bot",
			"GET /chat":             "Send a message via query parameter",
			"GET /history/:room_id": "Get conversation history for a room",
			"POST /clear/:room_id":  "Clear conversation history for a room",
			"GET /modes":            "Get available bot modes",
			"GET /health":           "Detailed health check",
			"POST /manual-response": "Get a predefined manual response",
		},
	})
}

func (s *Service) handleChatPost(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	return s.chat(c, req)
}

func (s *Service) handleChatGet(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}

	return s.chat(c, req)
}

func (s *Service) chat(c *fiber.Ctx, req ChatRequest) error {
	req.Message = strings.TrimSpace(req.Message)

	if err := s.validate.Struct(req); err != nil {
		if req.Message == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Message cannot be empty")
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	conv := model.NewConversation(req.RoomID, req.UserID)

	result := s.resolver.Resolve(c.UserContext(), req.Message, conv)
	if result.Err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Failed to process message: %v", result.Err))
	}

	return c.JSON(ChatResponse{
		Status:      statusSuccess,
		UserMessage: req.Message,
		BotResponse: result.Text,
		Mode:        string(result.Mode),
		Timestamp:   time.Now().Format(timeLayout),
	})
}

func (s *Service) handleHistory(c *fiber.Ctx) error {
	conv := model.NewConversation(c.Params("room_id"), c.Query("user_id"))
	exchanges := s.history.All(conv.Key())

	return c.JSON(HistoryResponse{
		Status:             statusSuccess,
		RoomID:             conv.RoomID,
		UserID:             conv.UserID,
		TotalConversations: len(exchanges),
		History:            exchanges,
	})
}

func (s *Service) handleClear(c *fiber.Ctx) error {
	conv := model.NewConversation(c.Params("room_id"), c.Query("user_id"))
	s.history.Clear(conv.Key())

	return c.JSON(StatusResponse{
		Status:  statusSuccess,
		Message: fmt.Sprintf("Conversation history cleared for room %s and user %s", conv.RoomID, conv.UserID),
	})
}

func (s *Service) handleModes(c *fiber.Ctx) error {
	return c.JSON(ModesResponse{
		Status:      statusSuccess,
		CurrentMode: string(s.resolver.Strategy()),
		AvailableModes: pie.Map(reply.Strategies, func(m reply.Strategy) string {
			return string(m)
		}),
	})
}

func (s *Service) handleHealth(c *fiber.Ctx) error {
	aiStatus := "connected"
	if err := s.resolver.Ping(c.UserContext()); err != nil {
		aiStatus = fmt.Sprintf("disconnected: %v", err)
	}

	stats := s.history.Stats()

	return c.JSON(HealthResponse{
		Status:  "healthy",
		Service: serviceName,
		AIModel: AIModelHealth{
			Status:  aiStatus,
			Backend: s.backend,
		},
		Conversations: ConversationsStats{
			ActiveConversations: stats.Conversations,
			TotalExchanges:      stats.Exchanges,
			MaxStored:           stats.Retention,
		},
	})
}

// handleManualResponse answers from the manual table only, with the default reply on a miss.
func (s *Service) handleManualResponse(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	return c.JSON(ChatResponse{
		Status:      statusSuccess,
		UserMessage: req.Message,
		BotResponse: replycache.Manual(req.Message),
		Mode:        string(reply.ModeManual),
		Timestamp:   time.Now().Format(timeLayout),
	})
}
