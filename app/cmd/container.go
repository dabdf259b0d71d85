package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"relaybot/app/client/llm"
	"relaybot/app/client/relayapi"
	"relaybot/app/client/webex"
	"relaybot/app/config"
	"relaybot/app/service/api"
	"relaybot/app/service/engine"
	"relaybot/app/service/history"
	"relaybot/app/service/mcpserver"
	"relaybot/app/service/reply"
	"relaybot/app/service/rooms"
	"relaybot/app/service/supervisor"
	"relaybot/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"github.com/samber/oops"
)

// container owns the injector and the app context of one command.
type container struct {
	di     *do.Injector
	cfg    *config.Config
	ctx    context.Context
	cancel context.CancelFunc
}

// newContainer loads config, initialises logging and registers every provider.
// prepare may adjust the config before anything is constructed.
func newContainer(prepare func(cfg *config.Config)) (*container, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, oops.Errorf("config load failed: %w", err)
	}

	if prepare != nil {
		prepare(cfg)
	}

	if err = mylog.Init(cfg, verbose); err != nil {
		return nil, oops.Errorf("logging init failed: %w", err)
	}

	appCtx, cancel := context.WithCancel(context.Background())

	di := do.New()
	do.ProvideValue(di, appCtx)
	do.ProvideValue(di, cfg)
	do.ProvideNamedValue(di, supervisor.ConfigPathKey, resolveConfigPath())
	do.ProvideNamedValue(di, mcpserver.VersionKey, Version)

	do.Provide(di, llm.NewClient)
	do.Provide(di, relayapi.NewClient)
	do.Provide(di, webex.NewClient)
	do.Provide(di, provideCompletion)
	do.Provide(di, history.New)
	do.Provide(di, reply.New)
	do.Provide(di, rooms.New)
	do.Provide(di, engine.New)
	do.Provide(di, api.New)
	do.Provide(di, mcpserver.New)
	do.Provide(di, supervisor.New)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigint:
			log.Info("Shutting down...")
			cancel()
		case <-appCtx.Done():
		}
	}()

	return &container{
		di:     di,
		cfg:    cfg,
		ctx:    appCtx,
		cancel: cancel,
	}, nil
}

func (c *container) close() {
	c.cancel()

	log.Info("Waiting for services to finish...")

	if err := c.di.Shutdown(); err != nil {
		slog.Warn("Shutdown finished with errors", "error", err)
	}
}

func provideCompletion(di *do.Injector) (reply.Completion, error) {
	cfg := do.MustInvoke[*config.Config](di)

	if cfg.Completion.Backend == "remote" {
		return do.Invoke[*relayapi.Client](di)
	}

	return do.Invoke[*llm.Client](di)
}
