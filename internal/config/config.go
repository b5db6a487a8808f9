// Package config reads the function's settings from environment variables.
// It is consulted once at cold start.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"text-summarizer/internal/integrations/bedrock"
	"text-summarizer/internal/usecase"
)

const DefaultResultsTable = "ai-microservice-results"

// Generation providers.
const (
	ProviderBedrock = "bedrock"
	ProviderOpenAI  = "openai"
	ProviderNone    = "none"
)

type Config struct {
	ResultsTable string
	LogLevel     slog.Level

	Generation GenerationConfig
	Summary    SummaryConfig
	HTTP       HTTPConfig
}

type GenerationConfig struct {
	// Provider is bedrock, openai or none. Default: bedrock
	Provider string
	// ModelID for Bedrock. Default: amazon.titan-text-lite-v1
	ModelID string
	// MaxTokenCount caps generated output. Default: 400
	MaxTokenCount int
	// Temperature for sampling. Default: 0.7
	Temperature float64
	// ParamPrefix is the SSM path holding the OpenAI token. Required for openai.
	ParamPrefix   string
	OpenAIModel   string
	OpenAIBaseURL string
}

type SummaryConfig struct {
	// Chain lists strategy names in the order they are tried.
	Chain           []string
	SentenceCount   int
	TruncateLength  int
	FallbackMessage string
	// KeywordsParam names an SSM parameter holding a JSON object of
	// trigger -> response. Empty disables keyword responses.
	KeywordsParam string
	// MaxTextLength in characters; 0 means unlimited.
	MaxTextLength int
}

type HTTPConfig struct {
	// ResponseFormat is handed to the handler, which validates it. Empty
	// selects the handler default.
	ResponseFormat  string
	CORSEnabled     bool
	CORSAllowOrigin string
}

// Load builds a Config from getenv (normally os.Getenv).
func Load(getenv func(string) string) (Config, error) {
	if getenv == nil {
		return Config{}, errors.New("config: getenv must not be nil")
	}
	r := reader{getenv: getenv}

	cfg := Config{
		ResultsTable: r.str("RESULTS_TABLE", DefaultResultsTable),
		LogLevel:     r.level("LOG_LEVEL", slog.LevelInfo),
		Generation: GenerationConfig{
			Provider:      strings.ToLower(r.str("GENERATION_PROVIDER", ProviderBedrock)),
			ModelID:       r.str("MODEL_ID", bedrock.DefaultModelID),
			MaxTokenCount: r.intVal("MAX_TOKEN_COUNT", bedrock.DefaultMaxTokenCount),
			Temperature:   r.floatVal("TEMPERATURE", bedrock.DefaultTemperature),
			ParamPrefix:   strings.TrimRight(r.str("PARAM_PREFIX", ""), "/"),
			OpenAIModel:   r.str("OPENAI_MODEL", ""),
			OpenAIBaseURL: r.str("OPENAI_BASE_URL", ""),
		},
		Summary: SummaryConfig{
			Chain:           r.list("SUMMARY_CHAIN", usecase.DefaultChainOrder),
			SentenceCount:   r.intVal("SUMMARY_SENTENCES", usecase.DefaultSentenceCount),
			TruncateLength:  r.intVal("TRUNCATE_LENGTH", usecase.DefaultTruncateLength),
			FallbackMessage: r.str("FALLBACK_MESSAGE", usecase.DefaultFallbackMessage),
			KeywordsParam:   r.str("KEYWORD_RESPONSES_PARAM", ""),
			MaxTextLength:   r.intVal("MAX_TEXT_LENGTH", 0),
		},
		HTTP: HTTPConfig{
			ResponseFormat:  r.str("RESPONSE_FORMAT", ""),
			CORSEnabled:     r.boolVal("CORS_ENABLED", true),
			CORSAllowOrigin: r.str("CORS_ALLOW_ORIGIN", "*"),
		},
	}
	if len(r.errs) > 0 {
		return Config{}, errors.Join(r.errs...)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Generation.Provider {
	case ProviderBedrock, ProviderNone:
	case ProviderOpenAI:
		if c.Generation.ParamPrefix == "" {
			return errors.New("config: PARAM_PREFIX is required when GENERATION_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("config: unsupported GENERATION_PROVIDER %q", c.Generation.Provider)
	}
	if c.Generation.MaxTokenCount <= 0 {
		return errors.New("config: MAX_TOKEN_COUNT must be positive")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 1 {
		return errors.New("config: TEMPERATURE must be between 0 and 1")
	}
	if c.Summary.MaxTextLength < 0 {
		return errors.New("config: MAX_TEXT_LENGTH must not be negative")
	}
	return nil
}

// reader collects parse errors so Load can report every bad variable at once.
type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) str(key, def string) string {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	return v
}

func (r *reader) intVal(key string, def int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("config: %s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (r *reader) floatVal(key string, def float64) float64 {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("config: %s: invalid number %q", key, v))
		return def
	}
	return f
}

func (r *reader) boolVal(key string, def bool) bool {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("config: %s: invalid boolean %q", key, v))
		return def
	}
	return b
}

func (r *reader) list(key string, def []string) []string {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return append([]string(nil), def...)
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *reader) level(key string, def slog.Level) slog.Level {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		r.errs = append(r.errs, fmt.Errorf("config: %s: invalid level %q", key, v))
		return def
	}
	return lvl
}
