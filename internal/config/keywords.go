package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// LoadKeywords fetches the keyword response table stored as a JSON object in
// the named parameter. An empty name yields an empty table.
func LoadKeywords(ctx context.Context, params ParamGetter, name string) (map[string]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return map[string]string{}, nil
	}
	if params == nil {
		return nil, errors.New("config: param getter must not be nil")
	}
	raw, err := params.GetParameter(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("config: load keyword responses: %w", err)
	}
	keywords, err := ParseKeywords(raw)
	if err != nil {
		return nil, fmt.Errorf("config: parameter %q: %w", name, err)
	}
	return keywords, nil
}

// ParseKeywords decodes a JSON object of trigger -> response.
func ParseKeywords(raw string) (map[string]string, error) {
	keywords := map[string]string{}
	if strings.TrimSpace(raw) == "" {
		return keywords, nil
	}
	if err := json.Unmarshal([]byte(raw), &keywords); err != nil {
		return nil, fmt.Errorf("decode keyword responses: %w", err)
	}
	return keywords, nil
}
