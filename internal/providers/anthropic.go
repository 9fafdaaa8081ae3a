package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultAnthropicBaseURL = "https://api.anthropic.com/v1"

type Anthropic struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewAnthropic(baseURL, token string) *Anthropic {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &Anthropic{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{},
	}
}

func (p *Anthropic) Name() string {
	return "anthropic"
}

func (p *Anthropic) getKey() (string, error) {
	key, err := ResolveCredential("anthropic", p.Token)
	if err != nil || strings.TrimSpace(key) == "" {
		return "", &ProviderAuthError{ProviderName: "anthropic", Msg: "Anthropic API key not found. Use --token, set ANTHROPIC_API_KEY, or run `hedgehog auth set anthropic`."}
	}
	return key, nil
}

func (p *Anthropic) Ping(ctx context.Context) error {
	_, err := p.getKey()
	return err
}

func (p *Anthropic) ListModels(ctx context.Context) ([]string, error) {
	key, err := p.getKey()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", key)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, anthropicStatusError(resp)
	}

	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	models := make([]string, 0, len(result.Data))
	for _, item := range result.Data {
		if strings.TrimSpace(item.ID) == "" {
			continue
		}
		models = append(models, item.ID)
	}
	return models, nil
}

func (p *Anthropic) Stream(ctx context.Context, sr StreamRequest, onToken TokenCallback) error {
	key, err := p.getKey()
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"model":      sr.Model,
		"max_tokens": sr.MaxTokens,
		"stream":     true,
		"messages": []map[string]interface{}{
			{"role": "user", "content": sr.Prompt},
		},
	}
	if system := strings.TrimSpace(sr.SystemPrompt); system != "" {
		payload["system"] = system
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/messages", bytes.NewBuffer(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", key)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "text/event-stream")

	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return anthropicStatusError(resp)
	}
	return readAnthropicStream(resp.Body, onToken)
}

func anthropicStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &ProviderAuthError{ProviderName: "anthropic", Msg: "Unauthorized: Invalid API key"}
	}
	return &StatusError{ProviderName: "anthropic", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func readAnthropicStream(body io.Reader, onToken TokenCallback) error {
	err := readSSE(body, func(ev sseEvent) error {
		var chunk struct {
			Type  string `json:"type"`
			Delta struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
			ContentBlock struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content_block"`
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			return nil
		}

		switch chunk.Type {
		case "error":
			return fmt.Errorf("anthropic stream error: %s: %s", chunk.Error.Type, chunk.Error.Message)
		case "message_stop":
			return errStopStream
		}

		token := chunk.Delta.Text
		if token == "" {
			token = chunk.ContentBlock.Text
		}
		if token != "" && onToken != nil {
			onToken(token)
		}
		return nil
	})
	return streamErr("anthropic", err)
}
