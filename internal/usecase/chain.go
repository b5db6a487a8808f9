package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// Strategy names accepted by BuildChain.
const (
	StrategyKeyword   = "keyword"
	StrategyModel     = "model"
	StrategySentences = "sentences"
	StrategyTruncate  = "truncate"
	StrategyCanned    = "canned"
)

const (
	DefaultFallbackMessage = "Thank you for your inquiry! We have received your request and will get back to you."
	DefaultSentenceCount   = 2
	DefaultTruncateLength  = 150

	truncateSuffix = "..."
)

// DefaultChainOrder is keyword match, then the model, then sentence extraction.
var DefaultChainOrder = []string{StrategyKeyword, StrategyModel, StrategySentences}

// sentenceEnd matches sentence-ending punctuation followed by whitespace.
var sentenceEnd = regexp.MustCompile(`([.!?]+)\s+`)

// Generator produces text from a hosted model.
type Generator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// Strategy produces a summary or reports that it could not. A strategy that
// returns ok=false hands the text to the next one in the chain.
type Strategy interface {
	Name() string
	Summarize(ctx context.Context, text string) (summary string, ok bool, err error)
}

// ChainConfig holds the parameters used to build strategies by name.
type ChainConfig struct {
	Order           []string
	Generator       Generator
	Keywords        map[string]string
	SentenceCount   int
	TruncateLength  int
	FallbackMessage string
}

// statusCoder is implemented by upstream errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatusCode() int
}

// Chain runs strategies in order and returns the first summary produced.
type Chain struct {
	strategies []Strategy
	fallback   string
	logger     *slog.Logger
}

// NewChain creates a Chain. fallback is returned when no strategy succeeds
// and defaults to DefaultFallbackMessage.
func NewChain(logger *slog.Logger, fallback string, strategies ...Strategy) (*Chain, error) {
	for i, s := range strategies {
		if s == nil {
			return nil, fmt.Errorf("usecase: strategy %d must not be nil", i)
		}
	}
	if strings.TrimSpace(fallback) == "" {
		fallback = DefaultFallbackMessage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{strategies: strategies, fallback: fallback, logger: logger}, nil
}

// BuildChain assembles a Chain from strategy names.
func BuildChain(logger *slog.Logger, cfg ChainConfig) (*Chain, error) {
	order := cfg.Order
	if len(order) == 0 {
		order = DefaultChainOrder
	}
	seen := make(map[string]bool, len(order))
	strategies := make([]Strategy, 0, len(order))
	for _, raw := range order {
		name := strings.ToLower(strings.TrimSpace(raw))
		if seen[name] {
			return nil, fmt.Errorf("usecase: strategy %q listed twice", name)
		}
		seen[name] = true

		var s Strategy
		switch name {
		case StrategyKeyword:
			ks, err := NewKeywordStrategy(cfg.Keywords)
			if err != nil {
				return nil, err
			}
			s = ks
		case StrategyModel:
			s = NewModelStrategy(cfg.Generator)
		case StrategySentences:
			s = NewSentenceStrategy(cfg.SentenceCount)
		case StrategyTruncate:
			s = NewTruncateStrategy(cfg.TruncateLength)
		case StrategyCanned:
			s = NewCannedStrategy(cfg.FallbackMessage)
		default:
			return nil, fmt.Errorf("usecase: unknown summary strategy %q", raw)
		}
		strategies = append(strategies, s)
	}
	return NewChain(logger, cfg.FallbackMessage, strategies...)
}

// Summarize returns a non-empty summary and the name of the strategy that
// produced it. Strategy errors are logged and never returned.
func (c *Chain) Summarize(ctx context.Context, text string) (string, string) {
	for _, s := range c.strategies {
		summary, ok, err := s.Summarize(ctx, text)
		if err != nil {
			attrs := []any{"strategy", s.Name(), "err", err}
			var sc statusCoder
			if errors.As(err, &sc) {
				attrs = append(attrs, "upstream_status", sc.HTTPStatusCode())
			}
			c.logger.WarnContext(ctx, "summary strategy failed, falling back", attrs...)
			continue
		}
		if ok && strings.TrimSpace(summary) != "" {
			return summary, s.Name()
		}
	}
	return c.fallback, StrategyCanned
}

// Names lists the configured strategies in order.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.strategies))
	for _, s := range c.strategies {
		names = append(names, s.Name())
	}
	return names
}

// ---------------------------------------------------------------------------
// keyword
// ---------------------------------------------------------------------------

type keywordRule struct {
	trigger  string
	pattern  *regexp.Regexp
	response string
}

// KeywordStrategy answers with a canned response when the text mentions a
// trigger word. Triggers match whole words, case-insensitively; longer
// triggers are checked first.
type KeywordStrategy struct {
	rules []keywordRule
}

func NewKeywordStrategy(responses map[string]string) (*KeywordStrategy, error) {
	rules := make([]keywordRule, 0, len(responses))
	for trigger, response := range responses {
		trigger = strings.TrimSpace(trigger)
		if trigger == "" {
			return nil, errors.New("usecase: keyword trigger must not be empty")
		}
		if strings.TrimSpace(response) == "" {
			return nil, fmt.Errorf("usecase: keyword %q has an empty response", trigger)
		}
		rules = append(rules, keywordRule{
			trigger:  trigger,
			pattern:  keywordPattern(trigger),
			response: response,
		})
	}
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].trigger) != len(rules[j].trigger) {
			return len(rules[i].trigger) > len(rules[j].trigger)
		}
		return rules[i].trigger < rules[j].trigger
	})
	return &KeywordStrategy{rules: rules}, nil
}

// keywordPattern guards each end of the trigger so it matches as a whole
// word. \b only holds next to a word character, so an edge that is
// punctuation (c++, .net) is bounded by a non-word character or the text edge.
func keywordPattern(trigger string) *regexp.Regexp {
	left, right := `(?:^|\W)`, `(?:\W|$)`
	if isWordByte(trigger[0]) {
		left = `\b`
	}
	if isWordByte(trigger[len(trigger)-1]) {
		right = `\b`
	}
	return regexp.MustCompile(`(?i)` + left + regexp.QuoteMeta(trigger) + right)
}

// isWordByte reports whether b is in RE2's ASCII \w class.
func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func (s *KeywordStrategy) Name() string { return StrategyKeyword }

func (s *KeywordStrategy) Summarize(_ context.Context, text string) (string, bool, error) {
	for _, r := range s.rules {
		if r.pattern.MatchString(text) {
			return r.response, true, nil
		}
	}
	return "", false, nil
}

// ---------------------------------------------------------------------------
// model
// ---------------------------------------------------------------------------

// ModelStrategy asks the generation capability for a summary. A nil
// Generator means the capability is unavailable.
type ModelStrategy struct {
	gen Generator
}

func NewModelStrategy(gen Generator) *ModelStrategy {
	return &ModelStrategy{gen: gen}
}

func (s *ModelStrategy) Name() string { return StrategyModel }

func (s *ModelStrategy) Summarize(ctx context.Context, text string) (string, bool, error) {
	if s.gen == nil {
		return "", false, nil
	}
	out, err := s.gen.Generate(ctx, text)
	if err != nil {
		return "", false, newError(ErrorUpstream, "generation_error", err)
	}
	out = strings.TrimSpace(out)
	return out, out != "", nil
}

// ---------------------------------------------------------------------------
// sentences
// ---------------------------------------------------------------------------

// SentenceStrategy keeps the first N sentences of the text.
type SentenceStrategy struct {
	count int
}

func NewSentenceStrategy(count int) *SentenceStrategy {
	if count <= 0 {
		count = DefaultSentenceCount
	}
	return &SentenceStrategy{count: count}
}

func (s *SentenceStrategy) Name() string { return StrategySentences }

func (s *SentenceStrategy) Summarize(_ context.Context, text string) (string, bool, error) {
	out := firstSentences(text, s.count)
	return out, out != "", nil
}

func firstSentences(text string, n int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	sentences := make([]string, 0, n)
	start := 0
	for _, loc := range sentenceEnd.FindAllStringSubmatchIndex(text, n) {
		// loc[3] is the end of the punctuation group.
		sentences = append(sentences, text[start:loc[3]])
		start = loc[1]
	}
	if len(sentences) < n && start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return strings.Join(sentences, " ")
}

// ---------------------------------------------------------------------------
// truncate
// ---------------------------------------------------------------------------

// TruncateStrategy keeps the first N characters, adding an ellipsis when
// anything was cut.
type TruncateStrategy struct {
	limit int
}

func NewTruncateStrategy(limit int) *TruncateStrategy {
	if limit <= 0 {
		limit = DefaultTruncateLength
	}
	return &TruncateStrategy{limit: limit}
}

func (s *TruncateStrategy) Name() string { return StrategyTruncate }

func (s *TruncateStrategy) Summarize(_ context.Context, text string) (string, bool, error) {
	out := truncate(text, s.limit)
	return out, strings.TrimSpace(out) != "", nil
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + truncateSuffix
}

// ---------------------------------------------------------------------------
// canned
// ---------------------------------------------------------------------------

// CannedStrategy always answers with a fixed acknowledgment.
type CannedStrategy struct {
	message string
}

func NewCannedStrategy(message string) *CannedStrategy {
	if strings.TrimSpace(message) == "" {
		message = DefaultFallbackMessage
	}
	return &CannedStrategy{message: message}
}

func (s *CannedStrategy) Name() string { return StrategyCanned }

func (s *CannedStrategy) Summarize(context.Context, string) (string, bool, error) {
	return s.message, true, nil
}
