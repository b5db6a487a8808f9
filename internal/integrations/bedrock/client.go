// Package bedrock invokes Amazon Titan text models through Bedrock Runtime.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const (
	DefaultModelID       = "amazon.titan-text-lite-v1"
	DefaultMaxTokenCount = 400
	DefaultTemperature   = 0.7

	contentTypeJSON = "application/json"
)

// ErrNoCandidates is returned when the model responds without any usable output text.
var ErrNoCandidates = errors.New("bedrock: no output returned from model")

// runtimeAPI is the minimal Bedrock Runtime interface required by Client.
// *bedrockruntime.Client satisfies this interface.
type runtimeAPI interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// titanRequest is the request body for Titan text models.
type titanRequest struct {
	InputText            string               `json:"inputText"`
	TextGenerationConfig textGenerationConfig `json:"textGenerationConfig"`
}

type textGenerationConfig struct {
	MaxTokenCount int     `json:"maxTokenCount"`
	Temperature   float64 `json:"temperature"`
}

// titanResponse is the minimal response shape returned by Titan text models.
type titanResponse struct {
	InputTextTokenCount int `json:"inputTextTokenCount"`
	Results             []struct {
		TokenCount       int    `json:"tokenCount"`
		OutputText       string `json:"outputText"`
		CompletionReason string `json:"completionReason"`
	} `json:"results"`
}

// Client generates text with a single InvokeModel call. It performs no retries.
type Client struct {
	api           runtimeAPI
	modelID       string
	maxTokenCount int
	temperature   float64
}

type Option func(*Client)

func WithModelID(id string) Option {
	return func(c *Client) {
		if id = strings.TrimSpace(id); id != "" {
			c.modelID = id
		}
	}
}

func WithMaxTokenCount(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokenCount = n
		}
	}
}

func WithTemperature(t float64) Option {
	return func(c *Client) {
		if t >= 0 {
			c.temperature = t
		}
	}
}

// NewClient creates a Client for the given Bedrock Runtime API.
func NewClient(api runtimeAPI, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("bedrock: api must not be nil")
	}
	c := &Client{
		api:           api,
		modelID:       DefaultModelID,
		maxTokenCount: DefaultMaxTokenCount,
		temperature:   DefaultTemperature,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ModelID reports the model the client invokes.
func (c *Client) ModelID() string { return c.modelID }

// Generate sends text to the model and returns the first candidate's output.
func (c *Client) Generate(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(titanRequest{
		InputText: text,
		TextGenerationConfig: textGenerationConfig{
			MaxTokenCount: c.maxTokenCount,
			Temperature:   c.temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String(contentTypeJSON),
		Accept:      aws.String(contentTypeJSON),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: invoke model %q: %w", c.modelID, err)
	}
	if out == nil {
		return "", ErrNoCandidates
	}

	var payload titanResponse
	if err := json.Unmarshal(out.Body, &payload); err != nil {
		return "", fmt.Errorf("bedrock: decode response: %w", err)
	}
	if len(payload.Results) == 0 {
		return "", ErrNoCandidates
	}
	text = strings.TrimSpace(payload.Results[0].OutputText)
	if text == "" {
		return "", ErrNoCandidates
	}
	return text, nil
}
