package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// event covers the fields shared by API Gateway REST (v1), HTTP API (v2) and
// function URL payloads. A direct invocation is the request body itself.
type event struct {
	HTTPMethod      string            `json:"httpMethod"`
	Headers         map[string]string `json:"headers"`
	IsBase64Encoded bool              `json:"isBase64Encoded"`
	RequestContext  struct {
		HTTP struct {
			Method string `json:"method"`
		} `json:"http"`
	} `json:"requestContext"`

	fields map[string]json.RawMessage
	// metaErr reports gateway fields that were present but had the wrong shape.
	metaErr error
}

type summarizeRequest struct {
	Text string
}

func decodeEvent(raw json.RawMessage) (event, error) {
	var ev event
	if err := json.Unmarshal(raw, &ev.fields); err != nil {
		return event{}, fmt.Errorf("decode event: %w", err)
	}
	// Gateway metadata is best effort; a direct invocation may reuse these
	// keys with other shapes.
	ev.metaErr = errors.Join(
		decodeField(ev.fields, "httpMethod", &ev.HTTPMethod),
		decodeField(ev.fields, "headers", &ev.Headers),
		decodeField(ev.fields, "isBase64Encoded", &ev.IsBase64Encoded),
		decodeField(ev.fields, "requestContext", &ev.RequestContext),
	)
	return ev, nil
}

func decodeField(fields map[string]json.RawMessage, key string, dst any) error {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (e event) method() string {
	if e.HTTPMethod != "" {
		return e.HTTPMethod
	}
	return e.RequestContext.HTTP.Method
}

// payload returns the body mapping: the parsed "body" field when present,
// otherwise the event itself.
func (e event) payload() (map[string]json.RawMessage, error) {
	raw, ok := e.fields["body"]
	if !ok {
		return e.fields, nil
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var body []byte
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode body string: %w", err)
		}
		body = []byte(s)
		if e.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, fmt.Errorf("decode base64 body: %w", err)
			}
			body = decoded
		}
	case '{':
		body = raw
	default:
		return nil, errors.New("body must be a JSON object or string")
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return out, nil
}

// parseRequest extracts the text field. Absent and null text yield an empty
// string; the use case decides whether that is acceptable.
func parseRequest(e event) (summarizeRequest, int, string) {
	payload, err := e.payload()
	if err != nil {
		return summarizeRequest{}, http.StatusBadRequest, msgInvalidJSON
	}
	raw, ok := payload["text"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return summarizeRequest{}, 0, ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return summarizeRequest{}, http.StatusBadRequest, msgNotString
	}
	return summarizeRequest{Text: text}, 0, ""
}
