// Package llm implements the text-generation collaborator behind note
// extraction, speaking the Gemini generateContent wire format.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smarttask/backend/domain"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel      = "gemini-1.5-pro"
	defaultMaxRetries = 3
	initialRetryDelay = time.Second
)

type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// Client is a single-shot generateContent caller. No streaming: one prompt
// in, one complete text out.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Generate sends the prompt and returns the model's text completion. Rate
// limits and server errors are retried with exponential backoff; anything
// still failing afterwards surfaces as domain.ErrEndpointUnavailable.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", domain.WrapError(domain.ErrCodeUnavailable, "model endpoint unavailable",
			fmt.Errorf("api key not configured"))
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * initialRetryDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", domain.WrapError(domain.ErrCodeUnavailable, "model call cancelled", ctx.Err())
			}
		}

		text, retryable, err := c.call(ctx, url, body)
		if err == nil {
			return text, nil
		}
		if errors.Is(err, domain.ErrEmptyCompletion) {
			return "", err
		}
		lastErr = err
		if !retryable {
			break
		}
		c.logger.Warn("model call failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
	}

	return "", domain.WrapError(domain.ErrCodeUnavailable, "model endpoint unavailable", lastErr)
}

func (c *Client) call(ctx context.Context, url string, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", true, err
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", retryable, fmt.Errorf("model API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", retryable, fmt.Errorf("model API error (%d)", resp.StatusCode)
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}

	text := flatten(genResp)
	if strings.TrimSpace(text) == "" {
		return "", false, domain.ErrEmptyCompletion
	}
	return text, false, nil
}

func flatten(resp generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}
