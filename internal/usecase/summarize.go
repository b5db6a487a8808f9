package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"text-summarizer/internal/domain"
)

// TimestampLayout is the ISO-8601 UTC layout used for result timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

type SummaryChain interface {
	Summarize(ctx context.Context, text string) (summary string, strategy string)
}

type RecordWriter interface {
	PutRecord(ctx context.Context, rec domain.Record) error
}

type SummarizeService struct {
	chain      SummaryChain
	store      RecordWriter
	logger     *slog.Logger
	maxTextLen int
	now        func() time.Time
}

type SummarizeInput struct {
	Text string
}

type SummarizeOutput struct {
	RequestID string
	Result    domain.Result
	// Strategy names the chain step that produced the summary.
	Strategy string
}

// NewSummarizeService wires the summary chain and record store. maxTextLen
// limits input length in characters; zero or less disables the limit.
func NewSummarizeService(chain SummaryChain, store RecordWriter, logger *slog.Logger, maxTextLen int) (*SummarizeService, error) {
	if chain == nil {
		return nil, errors.New("usecase: summary chain must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: record store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if maxTextLen < 0 {
		maxTextLen = 0
	}
	return &SummarizeService{
		chain:      chain,
		store:      store,
		logger:     logger,
		maxTextLen: maxTextLen,
		now:        time.Now,
	}, nil
}

// Summarize validates the text, produces a summary and stores the record
// before returning. The record is written exactly once per call.
func (s *SummarizeService) Summarize(ctx context.Context, in SummarizeInput) (SummarizeOutput, error) {
	if in.Text == "" {
		return SummarizeOutput{}, newError(ErrorInvalidInput, ReasonMissingText, nil)
	}
	length := utf8.RuneCountInString(in.Text)
	if s.maxTextLen > 0 && length > s.maxTextLen {
		return SummarizeOutput{}, newError(ErrorInvalidInput, ReasonTextTooLong, nil)
	}

	requestID := newUUID()
	summary, strategy := s.chain.Summarize(ctx, in.Text)

	result := domain.Result{
		Summary:   summary,
		Length:    length,
		Timestamp: s.now().UTC().Format(TimestampLayout),
	}
	if err := s.store.PutRecord(ctx, domain.Record{
		RequestID: requestID,
		InputText: in.Text,
		Result:    result,
	}); err != nil {
		return SummarizeOutput{}, newError(ErrorInternal, "dynamodb_write_error", err)
	}

	s.logger.InfoContext(ctx, "summary stored",
		"request_id", requestID,
		"strategy", strategy,
		"length", length,
	)
	return SummarizeOutput{RequestID: requestID, Result: result, Strategy: strategy}, nil
}

var newUUID = func() string {
	return uuid.NewString()
}
