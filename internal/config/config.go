package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Intent backends.
const (
	BackendDialogflow = "dialogflow"
	BackendOpenAI     = "openai"
	BackendRules      = "rules"
)

type Config struct {
	Port          string
	LogLevel      string
	AllowedOrigin string
	MaxBodySize   int64
	// Background pool capacity for fire-and-forget tasks
	WorkerPoolSize  int
	UpstreamTimeout time.Duration

	// Sparkcentral Virtual Agent API
	SparkcentralClientID     string
	SparkcentralClientSecret string
	SparkcentralBaseURL      string
	// Hex encoded shared secret used to sign webhook deliveries
	WebhookSecret string

	IntentBackend string
	// Dialogflow
	DialogflowProjectID    string
	DialogflowLanguageCode string
	DialogflowBaseURL      string
	// OpenAI
	OpenAIAPIKey     string
	Model            string
	IntentPromptFile string
	// Local rules
	IntentRulesFile string

	// Giphy
	GiphyAPIKey  string
	GiphyBaseURL string
	GiphyRating  string
	GIFTrigger   string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:                     getEnvDefault("PORT", "8080"),
		LogLevel:                 getEnvDefault("LOG_LEVEL", "INFO"),
		AllowedOrigin:            getEnvDefault("ALLOWED_ORIGIN", "*"),
		MaxBodySize:              getEnvInt64Default("MAX_BODY_SIZE", 1<<20),
		WorkerPoolSize:           int(getEnvInt64Default("WORKER_POOL_SIZE", 10)),
		UpstreamTimeout:          getEnvDurationDefault("UPSTREAM_TIMEOUT", 20*time.Second),
		SparkcentralClientID:     os.Getenv("SPARKCENTRAL_CLIENT_ID"),
		SparkcentralClientSecret: os.Getenv("SPARKCENTRAL_CLIENT_SECRET"),
		SparkcentralBaseURL:      strings.TrimRight(getEnvDefault("SPARKCENTRAL_BASE_URL", "https://public-api.sparkcentral.com"), "/"),
		WebhookSecret:            os.Getenv("SPARKCENTRAL_VA_SECRET"),
		IntentBackend:            strings.ToLower(getEnvDefault("INTENT_BACKEND", BackendDialogflow)),
		DialogflowProjectID:      os.Getenv("DIALOGFLOW_PROJECT_ID"),
		DialogflowLanguageCode:   getEnvDefault("DIALOGFLOW_LANGUAGE_CODE", "en-US"),
		DialogflowBaseURL:        strings.TrimRight(getEnvDefault("DIALOGFLOW_BASE_URL", "https://dialogflow.googleapis.com"), "/"),
		OpenAIAPIKey:             os.Getenv("OPENAI_API_KEY"),
		Model:                    getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		IntentPromptFile:         getEnvDefault("INTENT_PROMPT_FILE", "./agent/intent.yaml"),
		IntentRulesFile:          getEnvDefault("INTENT_RULES_FILE", "./agent/rules.yaml"),
		GiphyAPIKey:              os.Getenv("GIPHY_API_KEY"),
		GiphyBaseURL:             strings.TrimRight(getEnvDefault("GIPHY_BASE_URL", "https://api.giphy.com"), "/"),
		GiphyRating:              getEnvDefault("GIPHY_RATING", "g"),
		GIFTrigger:               getEnvDefault("GIF_TRIGGER", "gif:"),
	}
	if cfg.GiphyAPIKey == "" {
		log.Println("warning: GIPHY_API_KEY is not set; gif: messages are handled by the bot")
	}
	return cfg
}

// Validate reports every missing or malformed setting the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.WebhookSecret == "" {
		errs = append(errs, errors.New("SPARKCENTRAL_VA_SECRET is required"))
	} else if _, err := hex.DecodeString(c.WebhookSecret); err != nil {
		errs = append(errs, fmt.Errorf("SPARKCENTRAL_VA_SECRET must be hex encoded: %w", err))
	}
	if c.SparkcentralClientID == "" || c.SparkcentralClientSecret == "" {
		errs = append(errs, errors.New("SPARKCENTRAL_CLIENT_ID and SPARKCENTRAL_CLIENT_SECRET are required"))
	}
	switch c.IntentBackend {
	case BackendDialogflow:
		if c.DialogflowProjectID == "" {
			errs = append(errs, errors.New("DIALOGFLOW_PROJECT_ID is required for the dialogflow backend"))
		}
	case BackendOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai backend"))
		}
	case BackendRules:
	default:
		errs = append(errs, fmt.Errorf("unknown INTENT_BACKEND %q", c.IntentBackend))
	}
	if c.WorkerPoolSize <= 0 {
		errs = append(errs, errors.New("WORKER_POOL_SIZE must be positive"))
	}
	if c.MaxBodySize <= 0 {
		errs = append(errs, errors.New("MAX_BODY_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt64Default(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err == nil {
			return n
		}
		log.Printf("warning: %s=%q is not a number, using %d", key, v, def)
	}
	return def
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err == nil {
			return d
		}
		log.Printf("warning: %s=%q is not a duration, using %s", key, v, def)
	}
	return def
}
