package history

import (
	"strings"

	"relaybot/app/model"

	"github.com/elliotchance/pie/v2"
)

const (
	emptySummary     = "New conversation"
	summarySeparator = " | "
	ellipsis         = "..."
)

// Summary renders exchanges as a compact "Q: ... | A: ..." context line,
// keeping at most limit characters of each question and answer.
func Summary(exchanges []model.Exchange, limit int) string {
	if len(exchanges) == 0 {
		return emptySummary
	}

	parts := pie.Map(exchanges, func(e model.Exchange) string {
		return "Q: " + truncate(e.Question, limit) + ellipsis +
			summarySeparator +
			"A: " + truncate(e.Answer, limit) + ellipsis
	})

	return strings.Join(parts, summarySeparator)
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit])
}
