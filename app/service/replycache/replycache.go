// Package replycache holds the canned reply tables consulted before the model.
package replycache

import (
	"strings"
	"unicode/utf8"
)

// ShortMessageLimit is the length (in characters) under which a quick-table key
// may match as a substring instead of exactly.
const ShortMessageLimit = 20

// DefaultManualReply is returned by the manual table when no key matches.
const DefaultManualReply = "I understand you're in manual mode. You can ask me about common topics or type 'help' to see what I can assist with."

type Tier string

const (
	TierNone   Tier = ""
	TierQuick  Tier = "quick"
	TierManual Tier = "manual"
)

type entry struct {
	key   string
	reply string
}

// Tables are scanned in declaration order, so earlier keys win substring ties.
var quickReplies = []entry{
	{"hi", "Hi there! How can I help you?"},
	{"hello", "Hello! What can I do for you?"},
	{"hey", "Hey! How can I assist?"},
	{"help", "I'm here to help! What do you need assistance with?"},
	{"thanks", "You're welcome!"},
	{"thank you", "Happy to help!"},
	{"bye", "Goodbye! 👋"},
	{"how are you", "I'm doing well, thanks! How can I help you?"},
	{"what can you do", "I can answer questions, help with tasks, and have conversations. What do you need?"},
	{"time", "I don't have real-time access, but I can help with other questions!"},
	{"weather", "I don't have weather data access, but what else can I help with?"},
}

var manualReplies = []entry{
	{"hello", "Hello! I'm Jarvis, your AI assistant. How can I help you today?"},
	{"hi", "Hi there! I'm here to assist you. What would you like to know?"},
	{"help", "I can help you with various tasks like answering questions, providing information, or just having a conversation. What do you need assistance with?"},
	{"what can you do", "I can answer questions, help with work-related tasks, provide information on various topics, and engage in professional conversations. Just ask me anything!"},
	{"bye", "Goodbye! Feel free to reach out anytime you need assistance."},
	{"thanks", "You're welcome! I'm always here to help."},
	{"thank you", "My pleasure! Don't hesitate to ask if you need anything else."},
}

// Quick matches the normalized text exactly against the quick table, then
// by substring for short messages.
func Quick(text string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return "", false
	}

	for _, e := range quickReplies {
		if e.key == normalized {
			return e.reply, true
		}
	}

	if utf8.RuneCountInString(normalized) >= ShortMessageLimit {
		return "", false
	}

	for _, e := range quickReplies {
		if strings.Contains(normalized, e.key) {
			return e.reply, true
		}
	}

	return "", false
}

// ManualMatch returns the manual-table reply whose key occurs in the text.
func ManualMatch(text string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))

	for _, e := range manualReplies {
		if strings.Contains(normalized, e.key) {
			return e.reply, true
		}
	}

	return "", false
}

// Manual always answers, falling back to DefaultManualReply.
func Manual(text string) string {
	if reply, ok := ManualMatch(text); ok {
		return reply
	}

	return DefaultManualReply
}

// Lookup consults the quick table and, when manual is set, the manual table.
// TierNone means the caller has to ask the model.
func Lookup(text string, manual bool) (string, Tier) {
	if reply, ok := Quick(text); ok {
		return reply, TierQuick
	}

	if manual {
		return Manual(text), TierManual
	}

	return "", TierNone
}
