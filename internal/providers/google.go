package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const defaultGoogleBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type Google struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewGoogle(baseURL, token string) *Google {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultGoogleBaseURL
	}
	return &Google{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{},
	}
}

func (p *Google) Name() string {
	return "google"
}

func (p *Google) getKey() (string, error) {
	key, err := ResolveCredential("google", p.Token)
	if err != nil || key == "" {
		return "", &ProviderAuthError{ProviderName: "google", Msg: "Gemini API key not found. Use --token, set GEMINI_API_KEY, or run `hedgehog auth set google`."}
	}
	return key, nil
}

func (p *Google) Ping(ctx context.Context) error {
	_, err := p.getKey()
	return err
}

func (p *Google) ListModels(ctx context.Context) ([]string, error) {
	return []string{"gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.0-flash"}, nil
}

func (p *Google) Stream(ctx context.Context, sr StreamRequest, onToken TokenCallback) error {
	key, err := p.getKey()
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"role": "user", "parts": []map[string]string{{"text": sr.Prompt}}},
		},
	}
	if strings.TrimSpace(sr.SystemPrompt) != "" {
		payload["system_instruction"] = map[string]interface{}{
			"parts": []map[string]string{{"text": sr.SystemPrompt}},
		}
	}
	if sr.MaxTokens > 0 {
		payload["generationConfig"] = map[string]interface{}{"maxOutputTokens": sr.MaxTokens}
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", p.BaseURL, url.PathEscape(sr.Model), url.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest && bytes.Contains(body, []byte("API key not valid")) {
			return &ProviderAuthError{ProviderName: "google", Msg: "Unauthorized: Invalid API key"}
		}
		return &StatusError{ProviderName: "google", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	err = readSSE(resp.Body, func(ev sseEvent) error {
		var chunk struct {
			Candidates []struct {
				FinishReason string `json:"finishReason"`
				Content      struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"content"`
			} `json:"candidates"`
		}
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			return nil
		}
		finished := false
		for _, c := range chunk.Candidates {
			for _, part := range c.Content.Parts {
				if part.Text != "" && onToken != nil {
					onToken(part.Text)
				}
			}
			if c.FinishReason != "" {
				finished = true
			}
		}
		// the last chunk carries finishReason
		if finished {
			return errStopStream
		}
		return nil
	})
	return streamErr("google", err)
}
