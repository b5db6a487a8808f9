package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	out   string
	err   error
	calls int
	last  string
}

func (g *stubGenerator) Generate(_ context.Context, text string) (string, error) {
	g.calls++
	g.last = text
	return g.out, g.err
}

type failingStrategy struct{}

func (failingStrategy) Name() string { return "failing" }

func (failingStrategy) Summarize(context.Context, string) (string, bool, error) {
	return "", false, errors.New("strategy exploded")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustBuildChain(t *testing.T, cfg ChainConfig) *Chain {
	t.Helper()
	c, err := BuildChain(discardLogger(), cfg)
	require.NoError(t, err)
	return c
}

func TestBuildChain_DefaultOrder(t *testing.T) {
	c := mustBuildChain(t, ChainConfig{})
	require.Equal(t, []string{StrategyKeyword, StrategyModel, StrategySentences}, c.Names())
}

func TestBuildChain_CustomOrder(t *testing.T) {
	c := mustBuildChain(t, ChainConfig{Order: []string{" Truncate", "canned "}})
	require.Equal(t, []string{StrategyTruncate, StrategyCanned}, c.Names())
}

func TestBuildChain_Errors(t *testing.T) {
	cases := []struct {
		name string
		cfg  ChainConfig
		want string
	}{
		{name: "unknown", cfg: ChainConfig{Order: []string{"magic"}}, want: "unknown summary strategy"},
		{name: "duplicate", cfg: ChainConfig{Order: []string{"model", "MODEL"}}, want: "listed twice"},
		{name: "empty trigger", cfg: ChainConfig{Keywords: map[string]string{" ": "x"}}, want: "trigger must not be empty"},
		{name: "empty response", cfg: ChainConfig{Keywords: map[string]string{"vpn": ""}}, want: "empty response"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildChain(discardLogger(), tc.cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestNewChain_NilStrategy(t *testing.T) {
	_, err := NewChain(nil, "", nil)
	require.Error(t, err)
}

func TestChain_KeywordWinsBeforeModel(t *testing.T) {
	gen := &stubGenerator{out: "model summary"}
	c := mustBuildChain(t, ChainConfig{
		Generator: gen,
		Keywords:  map[string]string{"printer": "Try turning the printer off and on again."},
	})

	summary, strategy := c.Summarize(context.Background(), "My PRINTER is jammed.")
	require.Equal(t, "Try turning the printer off and on again.", summary)
	require.Equal(t, StrategyKeyword, strategy)
	require.Zero(t, gen.calls)
}

func TestChain_ModelUsedWhenNoKeyword(t *testing.T) {
	gen := &stubGenerator{out: "  model summary "}
	c := mustBuildChain(t, ChainConfig{
		Generator: gen,
		Keywords:  map[string]string{"printer": "reboot it"},
	})

	summary, strategy := c.Summarize(context.Background(), "Printers are great. Not this one.")
	require.Equal(t, "model summary", summary)
	require.Equal(t, StrategyModel, strategy)
	require.Equal(t, 1, gen.calls)
	require.Equal(t, "Printers are great. Not this one.", gen.last)
}

func TestChain_ModelFailureFallsBackToSentences(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	gen := &stubGenerator{err: errors.New("ThrottlingException")}
	c, err := BuildChain(logger, ChainConfig{Generator: gen, SentenceCount: 1})
	require.NoError(t, err)

	summary, strategy := c.Summarize(context.Background(), "First sentence. Second sentence.")
	require.Equal(t, "First sentence.", summary)
	require.Equal(t, StrategySentences, strategy)
	require.Equal(t, 1, gen.calls, "generation must not be retried")
	require.Contains(t, logs.String(), "strategy=model")
	require.Contains(t, logs.String(), "ThrottlingException")
}

type statusError struct{ code int }

func (e *statusError) Error() string       { return "unexpected status" }
func (e *statusError) HTTPStatusCode() int { return e.code }

func TestChain_LogsUpstreamStatus(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	gen := &stubGenerator{err: fmt.Errorf("openai: request failed: %w", &statusError{code: 429})}
	c, err := BuildChain(logger, ChainConfig{Generator: gen})
	require.NoError(t, err)

	_, strategy := c.Summarize(context.Background(), "First sentence.")
	require.Equal(t, StrategySentences, strategy)
	require.Contains(t, logs.String(), "upstream_status=429")
}

func TestChain_ModelEmptyOutputFallsThrough(t *testing.T) {
	gen := &stubGenerator{out: "   "}
	c := mustBuildChain(t, ChainConfig{Generator: gen})

	summary, strategy := c.Summarize(context.Background(), "Only sentence here")
	require.Equal(t, "Only sentence here", summary)
	require.Equal(t, StrategySentences, strategy)
}

func TestChain_NoGeneratorSkipsModel(t *testing.T) {
	c := mustBuildChain(t, ChainConfig{Order: []string{StrategyModel, StrategyTruncate}, TruncateLength: 5})

	summary, strategy := c.Summarize(context.Background(), "abcdefgh")
	require.Equal(t, "abcde...", summary)
	require.Equal(t, StrategyTruncate, strategy)
}

func TestChain_FallbackWhenNothingProduces(t *testing.T) {
	c, err := NewChain(discardLogger(), "", failingStrategy{}, NewSentenceStrategy(2))
	require.NoError(t, err)

	summary, strategy := c.Summarize(context.Background(), "   ")
	require.Equal(t, DefaultFallbackMessage, summary)
	require.Equal(t, StrategyCanned, strategy)
}

func TestChain_CustomFallbackMessage(t *testing.T) {
	c := mustBuildChain(t, ChainConfig{Order: []string{StrategyModel}, FallbackMessage: "Got it."})
	summary, _ := c.Summarize(context.Background(), "anything")
	require.Equal(t, "Got it.", summary)
}

func TestKeywordStrategy_WholeWordsOnly(t *testing.T) {
	s, err := NewKeywordStrategy(map[string]string{"wifi": "wifi script"})
	require.NoError(t, err)

	_, ok, err := s.Summarize(context.Background(), "The wifistation is fine")
	require.NoError(t, err)
	require.False(t, ok)

	out, ok, err := s.Summarize(context.Background(), "my WiFi keeps dropping")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "wifi script", out)
}

func TestKeywordStrategy_LongestTriggerFirst(t *testing.T) {
	s, err := NewKeywordStrategy(map[string]string{
		"password":       "generic password help",
		"reset password": "reset steps",
	})
	require.NoError(t, err)

	out, ok, err := s.Summarize(context.Background(), "How do I reset password?")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "reset steps", out)
}

func TestKeywordStrategy_PunctuatedTriggers(t *testing.T) {
	s, err := NewKeywordStrategy(map[string]string{
		"c++":  "cpp help",
		"c#":   "dotnet help",
		".net": "framework help",
	})
	require.NoError(t, err)

	cases := []struct {
		text string
		want string
	}{
		{"I write c++ code", "cpp help"},
		{"help with C++", "cpp help"},
		{"(c++)", "cpp help"},
		{"my c# build fails", "dotnet help"},
		{"my .net app crashes", "framework help"},
		{".NET", "framework help"},
		{"I write cxx code", ""},
		{"abc++ is not a language", ""},
		{"c#x", ""},
		{"my .network is down", ""},
	}
	for _, tc := range cases {
		out, ok, err := s.Summarize(context.Background(), tc.text)
		require.NoError(t, err)
		require.Equal(t, tc.want != "", ok, "text=%q", tc.text)
		require.Equal(t, tc.want, out, "text=%q", tc.text)
	}
}

func TestFirstSentences(t *testing.T) {
	cases := []struct {
		text string
		n    int
		want string
	}{
		{"Hello world.", 2, "Hello world."},
		{"One. Two. Three.", 2, "One. Two."},
		{"One!  Two?\nThree.", 2, "One! Two?"},
		{"Wait... what? Yes.", 1, "Wait..."},
		{"No punctuation at all", 3, "No punctuation at all"},
		{"One. Two", 3, "One. Two"},
		{"  padded.  ", 1, "padded."},
		{"", 2, ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, firstSentences(tc.text, tc.n), "text=%q n=%d", tc.text, tc.n)
	}
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 150))
	require.Equal(t, strings.Repeat("a", 150)+"...", truncate(strings.Repeat("a", 151), 150))
	require.Equal(t, "héll...", truncate("héllo wörld", 4))
}

func TestStrategyDefaults(t *testing.T) {
	require.Equal(t, DefaultSentenceCount, NewSentenceStrategy(0).count)
	require.Equal(t, DefaultTruncateLength, NewTruncateStrategy(-1).limit)
	require.Equal(t, DefaultFallbackMessage, NewCannedStrategy(" ").message)
}

func TestModelStrategy_WrapsUpstreamError(t *testing.T) {
	s := NewModelStrategy(&stubGenerator{err: errors.New("boom")})
	_, ok, err := s.Summarize(context.Background(), "x")
	require.False(t, ok)

	var ucErr *Error
	require.True(t, errors.As(err, &ucErr))
	require.Equal(t, ErrorUpstream, ucErr.Code)
	require.ErrorContains(t, err, "boom")
}
