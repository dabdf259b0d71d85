package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

type Config struct {
	Log        Log        `yaml:"log"`
	Webex      Webex      `yaml:"webex"`
	Bot        Bot        `yaml:"bot"`
	Completion Completion `yaml:"completion"`
	Reply      Reply      `yaml:"reply"`
	Server     Server     `yaml:"server"`
}

type Webex struct {
	// Bot access token
	AccessToken string `yaml:"access_token" example:"ZjUzNWFkMDYtMzk5OS00Y2Q3LThhNDctMThjMmRmNjMyNTU0MDFi" validate:"required"`
	// Email of the bot account
	BotEmail string `yaml:"bot_email" example:"jarvis127@webex.bot" validate:"required,email"`
	// REST API base url
	BaseURL string `yaml:"base_url" example:"https://webexapis.com/v1" validate:"required,url"`
	// Room to connect to without prompting, matched as a case-insensitive substring of the title
	PreferredRoom string `yaml:"preferred_room" example:"My Personal Bot Room"`
	// Client-side request rate limit
	RequestsPerSecond float64 `yaml:"requests_per_second" example:"5" validate:"gt=0"`
}

type Bot struct {
	// Only respond when mentioned or when a trigger keyword is used
	MentionsOnly *bool `yaml:"mentions_only" example:"true"`
	// Words that trigger the bot even without a mention
	Keywords []string `yaml:"keywords" example:"[jarvis, bot, ai, help]"`
	// Sender emails the bot answers, empty means everyone
	AllowedSenders []string `yaml:"allowed_senders" example:"[john.doe@company.com]"`
	// Delay between polls
	PollInterval time.Duration `yaml:"poll_interval" example:"1s" validate:"gt=0"`
	// Messages fetched per poll
	FetchSize int `yaml:"fetch_size" example:"5" validate:"min=1"`
	// Messages fetched at startup to mark as already seen
	SeedSize int `yaml:"seed_size" example:"10" validate:"min=1"`
	// Send a thinking notice before slow replies
	ThinkingNotice *bool `yaml:"thinking_notice" example:"true"`
	// Minimum message length (characters) that triggers the thinking notice
	ThinkingThreshold int `yaml:"thinking_threshold" example:"20" validate:"min=0"`
	// Message ids remembered for deduplication
	SeenCapacity int `yaml:"seen_capacity" example:"1000" validate:"min=1"`
}

type Completion struct {
	// openai calls the model directly, remote calls another relaybot server
	Backend string `yaml:"backend" example:"openai" validate:"oneof=openai remote"`
	// Base url of the remote relaybot server
	RemoteURL string `yaml:"remote_url" example:"http://localhost:8000"`
	// Timeout of a single model request
	RequestTimeout time.Duration `yaml:"request_timeout" example:"15s" validate:"gt=0"`
	// Caller-side timeout, slightly larger than request_timeout
	ClientTimeout time.Duration `yaml:"client_timeout" example:"20s" validate:"gt=0"`
	// Retries after a failed model request
	MaxRetries *int `yaml:"max_retries" example:"1" validate:"required,min=0,max=3"`

	OpenAI OpenAI `yaml:"openai"`
}

type OpenAI struct {
	// OpenAI-compatible base url
	BaseURL string `yaml:"base_url" example:"https://generativelanguage.googleapis.com/v1beta/openai" validate:"required"`
	// API token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// Model name
	Model string `yaml:"model" example:"gemini-2.0-flash" validate:"required"`
	// Sampling temperature
	Temperature float64 `yaml:"temperature" example:"0.1"`
	// Completion token limit
	MaxTokens int `yaml:"max_tokens" example:"150" validate:"min=1"`
}

type Reply struct {
	// manual, ai or hybrid
	Mode string `yaml:"mode" example:"ai" validate:"oneof=manual ai hybrid"`
	// Exchanges kept per conversation
	HistorySize int `yaml:"history_size" example:"5" validate:"min=1"`
	// Exchanges included in the model context
	ContextExchanges int `yaml:"context_exchanges" example:"2" validate:"min=0"`
	// Characters kept from each stored question and answer
	ContextChars int `yaml:"context_chars" example:"50" validate:"min=1"`
}

type Server struct {
	// Listen address of the HTTP API
	Listen string `yaml:"listen" example:":8000" validate:"required"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

// Eligibility is the read-only view of the response rules.
type Eligibility struct {
	MentionsOnly   bool
	Keywords       []string
	AllowedSenders []string
}

func (c *Config) Eligibility() Eligibility {
	keywords := make([]string, 0, len(c.Bot.Keywords))
	for _, keyword := range c.Bot.Keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" {
			keywords = append(keywords, keyword)
		}
	}

	return Eligibility{
		MentionsOnly:   *c.Bot.MentionsOnly,
		Keywords:       keywords,
		AllowedSenders: append([]string(nil), c.Bot.AllowedSenders...),
	}
}

// resolveMargin keeps a server-side completion budget under the caller's timeout.
const resolveMargin = time.Second

// ResolveTimeout bounds one whole completion call, retries included. A direct
// model call gets request_timeout per attempt, kept under client_timeout so a
// remote caller always sees the server answer first. The remote backend is
// already bounded by the relay HTTP client, which uses client_timeout.
func (c *Config) ResolveTimeout() time.Duration {
	client := c.Completion.ClientTimeout
	if c.Completion.Backend == "remote" {
		return client
	}

	budget := c.Completion.RequestTimeout * time.Duration(*c.Completion.MaxRetries+1)
	if limit := client - resolveMargin; budget > limit {
		budget = limit
	}
	if budget <= 0 {
		budget = client
	}

	return budget
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateWebex checks the chat backend section, only needed by commands that poll a room.
func (c *Config) ValidateWebex() error {
	if err := validate.Struct(c.Webex); err != nil {
		return oops.Errorf("failed to validate webex config: %w", err)
	}

	return nil
}

// ValidateOpenAI checks the model section, only needed when the model is called directly.
func (c *Config) ValidateOpenAI() error {
	if err := validate.Struct(c.Completion.OpenAI); err != nil {
		return oops.Errorf("failed to validate openai config: %w", err)
	}

	return nil
}

func Load(path string) (*Config, error) {
	var result Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	applyEnv(&result)
	applyDefaults(&result)

	if err = validate.StructExcept(result, "Webex", "Completion.OpenAI"); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	if result.Completion.Backend == "remote" && result.Completion.RemoteURL == "" {
		return nil, oops.Errorf("completion.remote_url is required for the remote backend")
	}

	return &result, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("WEBEX_ACCESS_TOKEN"); v != "" {
		cfg.Webex.AccessToken = v
	}
	if v := os.Getenv("WEBEX_BOT_EMAIL"); v != "" {
		cfg.Webex.BotEmail = v
	}
	if v := os.Getenv("OPENAI_TOKEN"); v != "" {
		cfg.Completion.OpenAI.Token = v
	}
	if v := os.Getenv("COMPLETION_URL"); v != "" {
		cfg.Completion.RemoteURL = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Webex.BaseURL == "" {
		cfg.Webex.BaseURL = "https://webexapis.com/v1"
	}
	if cfg.Webex.RequestsPerSecond == 0 {
		cfg.Webex.RequestsPerSecond = 5
	}

	if cfg.Bot.MentionsOnly == nil {
		cfg.Bot.MentionsOnly = ptr(true)
	}
	if cfg.Bot.Keywords == nil {
		cfg.Bot.Keywords = []string{"jarvis", "bot", "ai", "help"}
	}
	if cfg.Bot.PollInterval == 0 {
		cfg.Bot.PollInterval = time.Second
	}
	if cfg.Bot.FetchSize == 0 {
		cfg.Bot.FetchSize = 5
	}
	if cfg.Bot.SeedSize == 0 {
		cfg.Bot.SeedSize = 10
	}
	if cfg.Bot.ThinkingNotice == nil {
		cfg.Bot.ThinkingNotice = ptr(true)
	}
	if cfg.Bot.ThinkingThreshold == 0 {
		cfg.Bot.ThinkingThreshold = 20
	}
	if cfg.Bot.SeenCapacity == 0 {
		cfg.Bot.SeenCapacity = 1000
	}

	if cfg.Completion.Backend == "" {
		cfg.Completion.Backend = "openai"
	}
	if cfg.Completion.RequestTimeout == 0 {
		cfg.Completion.RequestTimeout = 15 * time.Second
	}
	if cfg.Completion.ClientTimeout == 0 {
		cfg.Completion.ClientTimeout = 20 * time.Second
	}
	if cfg.Completion.MaxRetries == nil {
		cfg.Completion.MaxRetries = ptr(1)
	}
	if cfg.Completion.OpenAI.BaseURL == "" {
		cfg.Completion.OpenAI.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	}
	if cfg.Completion.OpenAI.Model == "" {
		cfg.Completion.OpenAI.Model = "gemini-2.0-flash"
	}
	if cfg.Completion.OpenAI.Temperature == 0 {
		cfg.Completion.OpenAI.Temperature = 0.1
	}
	if cfg.Completion.OpenAI.MaxTokens == 0 {
		cfg.Completion.OpenAI.MaxTokens = 150
	}

	if cfg.Reply.Mode == "" {
		cfg.Reply.Mode = "ai"
	}
	if cfg.Reply.HistorySize == 0 {
		cfg.Reply.HistorySize = 5
	}
	if cfg.Reply.ContextExchanges == 0 {
		cfg.Reply.ContextExchanges = 2
	}
	if cfg.Reply.ContextChars == 0 {
		cfg.Reply.ContextChars = 50
	}

	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8000"
	}
}

func ptr[T any](v T) *T {
	return &v
}
