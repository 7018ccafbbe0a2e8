package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smartapplypro/backend/internal/pkg/env"
)

const (
	defaultGeminiBaseURL         = "https://generativelanguage.googleapis.com/v1"
	defaultGeminiFallbackBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel           = "gemini-2.5-flash"
	defaultGeminiFallbackModel   = "gemini-1.5-flash"
)

// APIError carries the upstream HTTP status for non-2xx Gemini responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini api error: status=%d message=%s", e.StatusCode, e.Message)
}

// GeminiClient calls the Gemini generateContent endpoint with bounded retry.
// Transient failures (network, 5xx, 429) are retried up to MaxAttempts with
// exponential backoff; 429 backs off three times longer. Other 4xx fail
// immediately. A 404 from the primary model falls back once to the fallback
// model on the v1beta endpoint.
type GeminiClient struct {
	APIKey        string
	Model         string
	FallbackModel string

	BaseURL         string
	FallbackBaseURL string

	MaxAttempts int
	BackoffBase time.Duration

	HTTPClient *http.Client
}

func NewGeminiClientFromEnv() *GeminiClient {
	return &GeminiClient{
		APIKey:          strings.TrimSpace(env.GetEnv("GEMINI_API_KEY", "")),
		Model:           strings.TrimSpace(env.GetEnv("GEMINI_MODEL", defaultGeminiModel)),
		FallbackModel:   strings.TrimSpace(env.GetEnv("GEMINI_FALLBACK_MODEL", defaultGeminiFallbackModel)),
		BaseURL:         strings.TrimSpace(env.GetEnv("GEMINI_BASE_URL", defaultGeminiBaseURL)),
		FallbackBaseURL: strings.TrimSpace(env.GetEnv("GEMINI_FALLBACK_BASE_URL", defaultGeminiFallbackBaseURL)),
		MaxAttempts:     3,
		BackoffBase:     time.Second,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   15 * time.Second,
				ResponseHeaderTimeout: 60 * time.Second,
			},
		},
	}
}

type generateRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
		TopP            float64 `json:"topP"`
		TopK            int     `json:"topK"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateContent sends a single user prompt and returns the model's text.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return "", errors.New("GEMINI_API_KEY is not configured")
	}

	payload := buildPayload(prompt)

	text, err := c.callWithRetry(ctx, c.endpointURL(c.BaseURL, c.Model), payload)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			// Primary model unknown on this API version, try the fallback once.
			return c.callWithRetry(ctx, c.endpointURL(c.FallbackBaseURL, c.FallbackModel), payload)
		}
		return "", err
	}
	return text, nil
}

func (c *GeminiClient) endpointURL(base, model string) string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", strings.TrimRight(base, "/"), model, c.APIKey)
}

func buildPayload(prompt string) []byte {
	var req generateRequest
	req.Contents = make([]struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	}, 1)
	req.Contents[0].Role = "user"
	req.Contents[0].Parts = make([]struct {
		Text string `json:"text"`
	}, 1)
	req.Contents[0].Parts[0].Text = prompt
	req.GenerationConfig.Temperature = 0.3
	req.GenerationConfig.MaxOutputTokens = 1500
	req.GenerationConfig.TopP = 0.8
	req.GenerationConfig.TopK = 40

	body, _ := json.Marshal(req)
	return body
}

func (c *GeminiClient) callWithRetry(ctx context.Context, url string, payload []byte) (string, error) {
	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := c.call(ctx, url, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			switch {
			case apiErr.StatusCode == http.StatusTooManyRequests:
				if attempt < attempts {
					if err := sleepCtx(ctx, c.backoff(attempt)*3); err != nil {
						return "", err
					}
					continue
				}
			case apiErr.StatusCode >= 500:
				if attempt < attempts {
					if err := sleepCtx(ctx, c.backoff(attempt)); err != nil {
						return "", err
					}
					continue
				}
			default:
				// 4xx other than 429 will not get better on retry.
				return "", err
			}
			return "", err
		}

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// Network-level failure, retry.
		if attempt < attempts {
			if err := sleepCtx(ctx, c.backoff(attempt)); err != nil {
				return "", err
			}
		}
	}
	return "", lastErr
}

func (c *GeminiClient) backoff(attempt int) time.Duration {
	base := c.BackoffBase
	if base <= 0 {
		base = time.Second
	}
	return base * time.Duration(1<<attempt)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *GeminiClient) call(ctx context.Context, url string, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		var parsed generateResponse
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("invalid gemini response: %w", err)
	}
	if out.Error != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: out.Error.Message}
	}

	var parts []string
	if len(out.Candidates) > 0 {
		for _, p := range out.Candidates[0].Content.Parts {
			if p.Text != "" {
				parts = append(parts, p.Text)
			}
		}
	}
	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return "", errors.New("gemini response contained no text")
	}
	return text, nil
}
