package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"text-summarizer/internal/domain"
)

type mockStore struct {
	records []domain.Record
	err     error
}

func (m *mockStore) PutRecord(_ context.Context, rec domain.Record) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

type fixedChain struct {
	summary  string
	strategy string
	calls    int
}

func (c *fixedChain) Summarize(context.Context, string) (string, string) {
	c.calls++
	return c.summary, c.strategy
}

func newTestService(t *testing.T, chain SummaryChain, store RecordWriter, maxLen int) *SummarizeService {
	t.Helper()
	svc, err := NewSummarizeService(chain, store, discardLogger(), maxLen)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 123456789, time.FixedZone("X", 2*3600)) }
	return svc
}

func stubUUIDs(t *testing.T) {
	t.Helper()
	orig := newUUID
	n := 0
	newUUID = func() string {
		n++
		return fmt.Sprintf("req-%d", n)
	}
	t.Cleanup(func() { newUUID = orig })
}

func assertInvalidInput(t *testing.T, err error, reason string) {
	t.Helper()
	var ucErr *Error
	require.True(t, errors.As(err, &ucErr), "expected *usecase.Error, got %T", err)
	require.Equal(t, ErrorInvalidInput, ucErr.Code)
	require.Equal(t, reason, ucErr.Reason)
}

func TestNewSummarizeService_ValidatesDependencies(t *testing.T) {
	_, err := NewSummarizeService(nil, &mockStore{}, nil, 0)
	require.Error(t, err)
	_, err = NewSummarizeService(&fixedChain{}, nil, nil, 0)
	require.Error(t, err)
}

func TestSummarize_HappyPath(t *testing.T) {
	stubUUIDs(t)
	store := &mockStore{}
	chain := &fixedChain{summary: "Hello world.", strategy: StrategySentences}
	svc := newTestService(t, chain, store, 0)

	out, err := svc.Summarize(context.Background(), SummarizeInput{Text: "Hello world."})
	require.NoError(t, err)
	require.Equal(t, "req-1", out.RequestID)
	require.Equal(t, "Hello world.", out.Result.Summary)
	require.Equal(t, 12, out.Result.Length)
	require.Equal(t, "2024-05-01T07:30:00.123Z", out.Result.Timestamp)
	require.Equal(t, StrategySentences, out.Strategy)

	require.Len(t, store.records, 1)
	require.Equal(t, domain.Record{RequestID: "req-1", InputText: "Hello world.", Result: out.Result}, store.records[0])
}

func TestSummarize_LengthCountsCharacters(t *testing.T) {
	store := &mockStore{}
	svc := newTestService(t, &fixedChain{summary: "s"}, store, 0)

	out, err := svc.Summarize(context.Background(), SummarizeInput{Text: "héllo 世界"})
	require.NoError(t, err)
	require.Equal(t, 8, out.Result.Length)
}

func TestSummarize_MissingText(t *testing.T) {
	store := &mockStore{}
	chain := &fixedChain{summary: "s"}
	svc := newTestService(t, chain, store, 0)

	_, err := svc.Summarize(context.Background(), SummarizeInput{})
	assertInvalidInput(t, err, ReasonMissingText)
	require.Empty(t, store.records)
	require.Zero(t, chain.calls)
}

func TestSummarize_TextTooLong(t *testing.T) {
	store := &mockStore{}
	svc := newTestService(t, &fixedChain{summary: "s"}, store, 5)

	_, err := svc.Summarize(context.Background(), SummarizeInput{Text: "123456"})
	assertInvalidInput(t, err, ReasonTextTooLong)
	require.Empty(t, store.records)

	_, err = svc.Summarize(context.Background(), SummarizeInput{Text: "世界世界世"})
	require.NoError(t, err)
}

func TestSummarize_StoreError(t *testing.T) {
	store := &mockStore{err: errors.New("ResourceNotFoundException")}
	svc := newTestService(t, &fixedChain{summary: "s"}, store, 0)

	_, err := svc.Summarize(context.Background(), SummarizeInput{Text: "hi"})
	var ucErr *Error
	require.True(t, errors.As(err, &ucErr))
	require.Equal(t, ErrorInternal, ucErr.Code)
	require.Equal(t, "dynamodb_write_error", ucErr.Reason)
	require.ErrorContains(t, err, "ResourceNotFoundException")
}

func TestSummarize_NotIdempotent(t *testing.T) {
	store := &mockStore{}
	svc := newTestService(t, &fixedChain{summary: "s"}, store, 0)

	a, err := svc.Summarize(context.Background(), SummarizeInput{Text: "same"})
	require.NoError(t, err)
	b, err := svc.Summarize(context.Background(), SummarizeInput{Text: "same"})
	require.NoError(t, err)

	require.NotEqual(t, a.RequestID, b.RequestID)
	require.Len(t, store.records, 2)
}

func TestSummarize_GenerationFailureStillSucceeds(t *testing.T) {
	store := &mockStore{}
	chain := mustBuildChain(t, ChainConfig{Generator: &stubGenerator{err: errors.New("model down")}})
	svc := newTestService(t, chain, store, 0)

	out, err := svc.Summarize(context.Background(), SummarizeInput{Text: "Hello world."})
	require.NoError(t, err)
	require.Equal(t, "Hello world.", out.Result.Summary)
	require.Equal(t, StrategySentences, out.Strategy)
	require.Len(t, store.records, 1)
}
