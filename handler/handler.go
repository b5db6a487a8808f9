package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"

	"text-summarizer/internal/domain"
	"text-summarizer/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"

	msgMissingText = "Missing text"
	msgTextTooLong = "Text too long"
	msgInvalidJSON = "Invalid JSON body"
	msgNotString   = "text must be a string"
	msgInternal    = "Internal server error"
)

// Format selects how response bodies are rendered.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

type UseCase interface {
	Summarize(ctx context.Context, in usecase.SummarizeInput) (usecase.SummarizeOutput, error)
}

type Handler struct {
	uc          UseCase
	logger      *slog.Logger
	format      Format
	corsEnabled bool
	allowOrigin string
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithFormat sets the response format; empty keeps FormatJSON.
func WithFormat(f Format) Option {
	return func(h *Handler) {
		if f != "" {
			h.format = Format(strings.ToLower(string(f)))
		}
	}
}

// WithCORS sets the allowed origin; an empty origin disables CORS headers.
func WithCORS(origin string) Option {
	return func(h *Handler) {
		origin = strings.TrimSpace(origin)
		h.corsEnabled = origin != ""
		h.allowOrigin = origin
	}
}

func NewHandler(uc UseCase, opts ...Option) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	h := &Handler{
		uc:          uc,
		logger:      slog.Default(),
		format:      FormatJSON,
		corsEnabled: true,
		allowOrigin: "*",
	}
	for _, opt := range opts {
		opt(h)
	}
	switch h.format {
	case FormatJSON, FormatText:
	default:
		return nil, fmt.Errorf("handler: unsupported format %q", h.format)
	}
	return h, nil
}

type summarizeResponse struct {
	RequestID string        `json:"requestId"`
	Result    domain.Result `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handle processes one invocation. It never returns a non-nil error: every
// failure is rendered as an HTTP-shaped response.
func (h *Handler) Handle(ctx context.Context, raw json.RawMessage) (events.APIGatewayProxyResponse, error) {
	ev, err := decodeEvent(raw)
	if err != nil {
		h.logger.WarnContext(ctx, "malformed event", "err", err)
		return h.errorResponse(http.StatusBadRequest, msgInvalidJSON, correlationID(ctx, nil)), nil
	}
	cid := correlationID(ctx, ev.Headers)
	log := h.logger.With("correlation_id", cid)
	if ev.metaErr != nil {
		log.DebugContext(ctx, "ignored malformed event metadata", "err", ev.metaErr)
	}

	if strings.EqualFold(ev.method(), http.MethodOptions) {
		return h.preflight(cid), nil
	}

	req, status, msg := parseRequest(ev)
	if status != 0 {
		log.WarnContext(ctx, "rejected request", "status", status, "reason", msg)
		return h.errorResponse(status, msg, cid), nil
	}

	out, err := h.uc.Summarize(ctx, usecase.SummarizeInput{Text: req.Text})
	if err != nil {
		status, msg := mapError(err)
		if status >= http.StatusInternalServerError {
			log.ErrorContext(ctx, "summarize failed", "err", err)
		} else {
			log.WarnContext(ctx, "rejected request", "status", status, "err", err)
		}
		return h.errorResponse(status, msg, cid), nil
	}

	log.InfoContext(ctx, "request summarized", "request_id", out.RequestID, "strategy", out.Strategy)
	return h.success(out, cid), nil
}

// preflight always carries the CORS header set, even when CORS is disabled
// for regular responses.
func (h *Handler) preflight(cid string) events.APIGatewayProxyResponse {
	headers := corsHeaders(h.allowOrigin)
	headers[correlationHeader] = cid
	return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: headers, Body: ""}
}

func (h *Handler) success(out usecase.SummarizeOutput, cid string) events.APIGatewayProxyResponse {
	if h.format == FormatText {
		return h.respond(http.StatusOK, fmt.Sprintf("Request %s: %s", out.RequestID, out.Result.Summary), cid)
	}
	return h.respondJSON(http.StatusOK, summarizeResponse{RequestID: out.RequestID, Result: out.Result}, cid)
}

func (h *Handler) errorResponse(status int, msg, cid string) events.APIGatewayProxyResponse {
	if h.format == FormatText {
		if status >= http.StatusInternalServerError {
			msg = "Error: " + msg
		}
		return h.respond(status, msg, cid)
	}
	return h.respondJSON(status, errorResponse{Error: msg}, cid)
}

func (h *Handler) respondJSON(status int, v any, cid string) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("failed to marshal response", "err", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + msgInternal + `"}`)
	}
	return h.respond(status, string(body), cid)
}

func (h *Handler) respond(status int, body, cid string) events.APIGatewayProxyResponse {
	headers := map[string]string{}
	if h.corsEnabled {
		headers = corsHeaders(h.allowOrigin)
	}
	if h.format == FormatText {
		headers["Content-Type"] = "text/plain"
	} else {
		headers["Content-Type"] = "application/json"
	}
	headers[correlationHeader] = cid
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: body}
}

func corsHeaders(origin string) map[string]string {
	if origin == "" {
		origin = "*"
	}
	return map[string]string{
		"Access-Control-Allow-Origin":  origin,
		"Access-Control-Allow-Methods": "POST,OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type",
		"Access-Control-Max-Age":       "86400",
	}
}

func mapError(err error) (int, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, msgInternal
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		if ucErr.Reason == usecase.ReasonTextTooLong {
			return http.StatusBadRequest, msgTextTooLong
		}
		return http.StatusBadRequest, msgMissingText
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func correlationID(ctx context.Context, headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}
