package mylog

import (
	"context"
	"log/slog"
	"os"

	"relaybot/app/config"

	"github.com/phsym/console-slog"
	slogmulti "github.com/samber/slog-multi"
	slogtelegram "github.com/samber/slog-telegram/v2"
)

// TelegramKey tags a record for delivery to the Telegram log chat.
const TelegramKey = "telegram"

func consoleHandler(level slog.Level) slog.Handler {
	return console.NewHandler(os.Stderr, &console.HandlerOptions{
		AddSource: level == slog.LevelDebug,
		Level:     level,
	})
}

func Preinit() {
	slog.SetDefault(slog.New(consoleHandler(slog.LevelDebug)))
}

func Init(cfg *config.Config, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	router := slogmulti.Router().Add(consoleHandler(level))

	if cfg.Log.Telegram.Token != "" {
		router = router.Add(
			slogtelegram.Option{
				Level:     slog.LevelInfo,
				Token:     cfg.Log.Telegram.Token,
				Username:  cfg.Log.Telegram.ChatID,
				AddSource: false,
			}.NewTelegramHandler(),
			routeToTelegram,
		)
	}

	slog.SetDefault(slog.New(router.Handler()))

	return nil
}

// routeToTelegram forwards errors and records explicitly tagged with TelegramKey.
func routeToTelegram(_ context.Context, r slog.Record) bool {
	if r.Level >= slog.LevelError {
		return true
	}

	tagged := false
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key == TelegramKey {
			tagged = attr.Value.Kind() != slog.KindBool || attr.Value.Bool()
			return false
		}

		return true
	})

	return tagged
}
