// Package decider decides whether an incoming chat message gets an automated reply.
//
// Rules are evaluated in a fixed order: the self filter and the allow-list are
// absolute gates checked before any mention or keyword logic.
package decider

import (
	"strings"

	"relaybot/app/config"
	"relaybot/app/model"

	"github.com/elliotchance/pie/v2"
)

type Reason string

const (
	ReasonSelf       Reason = "own message"
	ReasonNotAllowed Reason = "sender not in allowed list"
	ReasonOpen       Reason = "responding to all messages"
	ReasonMention    Reason = "bot mentioned"
	ReasonKeyword    Reason = "keyword found"
	ReasonIgnored    Reason = "no mention or keywords"
)

type Decision struct {
	Respond bool
	Reason  Reason
	// Keyword is set when Reason is ReasonKeyword.
	Keyword string
}

func Decide(msg model.Message, identity model.BotIdentity, cfg config.Eligibility) Decision {
	if msg.SenderID == identity.BotEmail {
		return Decision{Reason: ReasonSelf}
	}

	if len(cfg.AllowedSenders) > 0 && !pie.Contains(cfg.AllowedSenders, msg.SenderID) {
		return Decision{Reason: ReasonNotAllowed}
	}

	if !cfg.MentionsOnly {
		return Decision{Respond: true, Reason: ReasonOpen}
	}

	if identity.BotID != "" && pie.Contains(msg.MentionedIDs, identity.BotID) {
		return Decision{Respond: true, Reason: ReasonMention}
	}

	text := strings.ToLower(msg.Text)
	for _, keyword := range cfg.Keywords {
		if keyword != "" && strings.Contains(text, strings.ToLower(keyword)) {
			return Decision{Respond: true, Reason: ReasonKeyword, Keyword: keyword}
		}
	}

	return Decision{Reason: ReasonIgnored}
}

func ShouldRespond(msg model.Message, identity model.BotIdentity, cfg config.Eligibility) bool {
	return Decide(msg, identity, cfg).Respond
}
