package api

import "relaybot/app/model"

type ChatRequest struct {
	Message string `json:"message" query:"q" validate:"required,max=4000"`
	UserID  string `json:"user_id" query:"user_id"`
	RoomID  string `json:"room_id" query:"room_id"`
}

type ChatResponse struct {
	Status      string `json:"status"`
	UserMessage string `json:"user_message"`
	BotResponse string `json:"bot_response"`
	Mode        string `json:"mode"`
	Timestamp   string `json:"timestamp"`
}

type HistoryResponse struct {
	Status             string           `json:"status"`
	RoomID             string           `json:"room_id"`
	UserID             string           `json:"user_id"`
	TotalConversations int              `json:"total_conversations"`
	History            []model.Exchange `json:"history"`
}

type ModesResponse struct {
	Status         string   `json:"status"`
	CurrentMode    string   `json:"current_mode"`
	AvailableModes []string `json:"available_modes"`
}

type HealthResponse struct {
	Status        string             `json:"status"`
	Service       string             `json:"service"`
	AIModel       AIModelHealth      `json:"ai_model"`
	Conversations ConversationsStats `json:"conversations"`
}

type AIModelHealth struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
}

type ConversationsStats struct {
	ActiveConversations int `json:"active_conversations"`
	TotalExchanges      int `json:"total_exchanges"`
	MaxStored           int `json:"max_stored_per_conversation"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}
