package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAI streams chat completions from any OpenAI-compatible endpoint.
type OpenAI struct {
	BaseURL      string
	KeyName      string // e.g., "openai" or "openrouter"
	Token        string
	Client       *http.Client
	ExtraHeaders map[string]string
}

func NewOpenAI(baseURL, keyName, token string) *OpenAI {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if strings.TrimSpace(keyName) == "" {
		keyName = "openai"
	}
	return &OpenAI{
		BaseURL: strings.TrimRight(baseURL, "/"),
		KeyName: keyName,
		Token:   token,
		Client:  &http.Client{},
	}
}

func (p *OpenAI) Name() string {
	return p.KeyName
}

func (p *OpenAI) getKey() (string, error) {
	key, err := ResolveCredential(p.KeyName, p.Token)
	if err != nil || key == "" {
		msg := fmt.Sprintf("%s API key not found. Use --token or run `hedgehog auth set %s`.", p.KeyName, p.KeyName)
		if env := CredentialEnvVar(p.KeyName); env != "" {
			msg = fmt.Sprintf("%s API key not found. Use --token, set %s, or run `hedgehog auth set %s`.", p.KeyName, env, p.KeyName)
		}
		return "", &ProviderAuthError{ProviderName: p.KeyName, Msg: msg}
	}
	return key, nil
}

func (p *OpenAI) newClient(key string) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithBaseURL(p.BaseURL),
		// failures are reported, never retried
		option.WithMaxRetries(0),
	}
	if p.Client != nil {
		opts = append(opts, option.WithHTTPClient(p.Client))
	}
	for k, v := range p.ExtraHeaders {
		opts = append(opts, option.WithHeader(k, v))
	}
	return openai.NewClient(opts...)
}

func (p *OpenAI) Ping(ctx context.Context) error {
	_, err := p.getKey()
	return err
}

func (p *OpenAI) ListModels(ctx context.Context) ([]string, error) {
	key, err := p.getKey()
	if err != nil {
		return nil, err
	}
	client := p.newClient(key)

	var models []string
	iter := client.Models.ListAutoPaging(ctx)
	for iter.Next() {
		models = append(models, iter.Current().ID)
	}
	if err := iter.Err(); err != nil {
		return nil, p.wrapErr(err)
	}
	return models, nil
}

func (p *OpenAI) Stream(ctx context.Context, sr StreamRequest, onToken TokenCallback) error {
	key, err := p.getKey()
	if err != nil {
		return err
	}
	client := p.newClient(key)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(sr.SystemPrompt) != "" {
		messages = append(messages, openai.SystemMessage(sr.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(sr.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    sr.Model,
		Messages: messages,
	}
	if sr.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(sr.MaxTokens))
	}

	stream := client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" && onToken != nil {
				onToken(choice.Delta.Content)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return p.wrapErr(err)
	}
	return nil
}

func (p *OpenAI) wrapErr(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return &ProviderAuthError{ProviderName: p.KeyName, Msg: "Unauthorized: Invalid API key"}
		}
		return &StatusError{ProviderName: p.KeyName, StatusCode: apiErr.StatusCode, Body: apiErr.Message}
	}
	return fmt.Errorf("%s stream: %w", p.KeyName, err)
}
