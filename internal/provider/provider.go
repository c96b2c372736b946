// Package provider builds the remote.Runtime the assistant runs against.
package provider

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"

	"github.com/ejseo87/openai-assistants-2025/internal/config"
	"github.com/ejseo87/openai-assistants-2025/internal/remote"
	"github.com/ejseo87/openai-assistants-2025/internal/threadstore"
)

var ErrMissingAPIKey = errors.New("missing API key")

// New returns the runtime selected by cfg.Provider. httpClient may be nil.
func New(cfg config.Config, httpClient *http.Client, logger *slog.Logger) (remote.Runtime, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if httpClient == nil {
		// streams outlive any whole-request timeout; bound only the wait for headers
		httpClient = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: cfg.HTTPTimeout,
		}}
	}
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(NewOpenAIClient(cfg.APIKey, cfg.BaseURL, httpClient)), nil
	case config.ProviderAnthropic:
		return NewAnthropic(NewAnthropicClient(cfg.APIKey, cfg.BaseURL, httpClient), threadstore.New(), AnthropicOptions{
			Model:           cfg.Model,
			MaxOutputTokens: cfg.MaxOutputTokens,
			TokenBudget:     cfg.TokenBudget,
			Logger:          logger,
		}), nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

func NewOpenAIClient(apiKey, baseURL string, httpClient *http.Client) openai.Client {
	opts := []ooption.RequestOption{ooption.WithAPIKey(apiKey), ooption.WithHTTPClient(httpClient)}
	if baseURL != "" {
		opts = append(opts, ooption.WithBaseURL(baseURL))
	}
	return openai.NewClient(opts...)
}

func NewAnthropicClient(apiKey, baseURL string, httpClient *http.Client) anthropic.Client {
	opts := []aoption.RequestOption{aoption.WithAPIKey(apiKey), aoption.WithHTTPClient(httpClient)}
	if baseURL != "" {
		opts = append(opts, aoption.WithBaseURL(baseURL))
	}
	return anthropic.NewClient(opts...)
}
