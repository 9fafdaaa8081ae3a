package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultReplicateBaseURL = "https://api.replicate.com/v1"

// Replicate runs a model as a streaming prediction: it creates the
// prediction and then follows the server-sent event stream the API hands
// back.
type Replicate struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewReplicate(baseURL, token string) *Replicate {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultReplicateBaseURL
	}
	return &Replicate{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{},
	}
}

func (p *Replicate) Name() string {
	return "replicate"
}

func (p *Replicate) getKey() (string, error) {
	key, err := ResolveCredential("replicate", p.Token)
	if err != nil || key == "" {
		return "", &ProviderAuthError{
			ProviderName: "replicate",
			Msg:          "Replicate API token is required. Provide it with --token or set REPLICATE_API_TOKEN. Get a token at https://replicate.com/account/api-tokens",
		}
	}
	return key, nil
}

func (p *Replicate) Ping(ctx context.Context) error {
	_, err := p.getKey()
	return err
}

func (p *Replicate) ListModels(ctx context.Context) ([]string, error) {
	key, err := p.getKey()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/collections/language-models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := p.checkStatus(resp); err != nil {
		return nil, err
	}

	var result struct {
		Models []struct {
			Owner string `json:"owner"`
			Name  string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	models := make([]string, 0, len(result.Models))
	for _, m := range result.Models {
		if m.Owner == "" || m.Name == "" {
			continue
		}
		models = append(models, m.Owner+"/"+m.Name)
	}
	return models, nil
}

func (p *Replicate) Stream(ctx context.Context, sr StreamRequest, onToken TokenCallback) error {
	key, err := p.getKey()
	if err != nil {
		return err
	}

	streamURL, err := p.createPrediction(ctx, key, sr)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := p.checkStatus(resp); err != nil {
		return err
	}

	err = readSSE(resp.Body, func(ev sseEvent) error {
		switch ev.Name {
		case "output", "":
			if ev.Data != "" && onToken != nil {
				onToken(ev.Data)
			}
			return nil
		case "error":
			return fmt.Errorf("replicate prediction failed: %s", replicateErrorDetail(ev.Data))
		case "done":
			var done struct {
				Reason string `json:"reason"`
			}
			_ = json.Unmarshal([]byte(ev.Data), &done)
			if done.Reason == "canceled" {
				return errors.New("replicate prediction was canceled")
			}
			return errStopStream
		default:
			return nil
		}
	})
	return streamErr("replicate", err)
}

// createPrediction starts the prediction and returns its stream URL. Model
// identifiers of the form owner/name:version pin a version.
func (p *Replicate) createPrediction(ctx context.Context, key string, sr StreamRequest) (string, error) {
	input := map[string]interface{}{
		"prompt":     sr.Prompt,
		"max_tokens": sr.MaxTokens,
	}
	if strings.TrimSpace(sr.SystemPrompt) != "" {
		input["system_prompt"] = sr.SystemPrompt
	}
	payload := map[string]interface{}{
		"input":  input,
		"stream": true,
	}

	endpoint := p.BaseURL + "/models/" + strings.Trim(sr.Model, "/") + "/predictions"
	if _, version, ok := strings.Cut(sr.Model, ":"); ok {
		payload["version"] = version
		endpoint = p.BaseURL + "/predictions"
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if err := p.checkStatus(resp); err != nil {
		return "", err
	}

	var prediction struct {
		ID     string          `json:"id"`
		Status string          `json:"status"`
		Error  json.RawMessage `json:"error"`
		URLs   struct {
			Stream string `json:"stream"`
		} `json:"urls"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return "", fmt.Errorf("replicate decode error: %w", err)
	}
	if prediction.Status == "failed" {
		return "", fmt.Errorf("replicate prediction %s failed: %s", prediction.ID, replicateErrorDetail(string(prediction.Error)))
	}
	if prediction.URLs.Stream == "" {
		return "", fmt.Errorf("replicate model %s does not support streaming", sr.Model)
	}
	return prediction.URLs.Stream, nil
}

func (p *Replicate) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &ProviderAuthError{ProviderName: "replicate", Msg: "Unauthorized: invalid Replicate API token"}
	}
	return &StatusError{ProviderName: "replicate", StatusCode: resp.StatusCode, Body: replicateErrorDetail(string(body))}
}

func replicateErrorDetail(raw string) string {
	raw = strings.TrimSpace(raw)
	var detail struct {
		Detail string `json:"detail"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal([]byte(raw), &detail); err == nil {
		if detail.Detail != "" {
			return detail.Detail
		}
		if detail.Title != "" {
			return detail.Title
		}
	}
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err == nil && s != "" {
		return s
	}
	if raw == "" || raw == "null" {
		return "unknown error"
	}
	return raw
}
