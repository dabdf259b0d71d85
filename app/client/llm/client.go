package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	_ "embed"

	"relaybot/app/config"
	"relaybot/app/service/reply"

	"github.com/samber/do"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

//go:embed system_prompt.txt
var systemPromptTemplate string

var _ reply.Completion = (*Client)(nil)

type Client struct {
	model llms.Model

	temperature    float64
	maxTokens      int
	requestTimeout time.Duration
	maxRetries     int
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	model, err := createModel(cfg)
	if err != nil {
		return nil, err
	}

	return New(model, cfg.Completion.OpenAI.Temperature, cfg.Completion.OpenAI.MaxTokens,
		cfg.Completion.RequestTimeout, *cfg.Completion.MaxRetries), nil
}

func New(model llms.Model, temperature float64, maxTokens int, requestTimeout time.Duration, maxRetries int) *Client {
	return &Client{
		model:          model,
		temperature:    temperature,
		maxTokens:      maxTokens,
		requestTimeout: requestTimeout,
		maxRetries:     maxRetries,
	}
}

func createModel(cfg *config.Config) (*openai.LLM, error) {
	if err := cfg.ValidateOpenAI(); err != nil {
		return nil, err
	}

	model, err := openai.New(
		openai.WithToken(cfg.Completion.OpenAI.Token),
		openai.WithBaseURL(cfg.Completion.OpenAI.BaseURL),
		openai.WithModel(cfg.Completion.OpenAI.Model),
		openai.WithHTTPClient(&http.Client{
			Timeout: cfg.Completion.ClientTimeout,
		}),
		openai.WithCallback(LogCallbackHandler{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai model: %w", err)
	}

	return model, nil
}

func (c *Client) Complete(ctx context.Context, req reply.CompletionRequest) (string, error) {
	prompt := strings.ReplaceAll(systemPromptTemplate, "{history}", req.History)

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, prompt),
		llms.TextParts(llms.ChatMessageTypeHuman, req.Message),
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		result, err := c.generate(ctx, messages)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// A deadline on the caller's context leaves no room for another attempt.
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			break
		}

		slog.Debug("Retrying completion",
			"attempt", attempt+1,
			"room_id", req.RoomID,
			"error", err,
		)
	}

	return "", lastErr
}

func (c *Client) generate(ctx context.Context, messages []llms.MessageContent) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.model.GenerateContent(ctx, messages,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no chat completion found")
	}

	return strings.TrimSpace(resp.Choices[0].Content), nil
}
