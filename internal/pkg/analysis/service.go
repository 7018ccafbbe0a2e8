package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/smartapplypro/backend/app/models"
	"github.com/smartapplypro/backend/app/repository"
	"github.com/smartapplypro/backend/internal/pkg/apperr"
	"github.com/smartapplypro/backend/internal/pkg/cache"
)

const (
	endpointName    = "cover-letter-analysis"
	rateLimitMax    = 10
	rateLimitWindow = 5 * time.Minute
)

var codeFencePattern = regexp.MustCompile("(?i)```(?:json)?")

// ContentGenerator produces model output for a prompt.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// LicenseChecker gates analysis on an active license.
type LicenseChecker interface {
	CheckActive(ctx context.Context, licenseKey string) (bool, error)
}

// RateLimiter enforces the per-license request quota.
type RateLimiter interface {
	Allow(licenseKey string) (bool, error)
}

// RedisRateLimiter counts requests per license in a sliding window backed by
// the shared Redis cache.
type RedisRateLimiter struct {
	Max    int64
	Window time.Duration
}

func NewRedisRateLimiter() *RedisRateLimiter {
	return &RedisRateLimiter{Max: rateLimitMax, Window: rateLimitWindow}
}

func (r *RedisRateLimiter) Allow(licenseKey string) (bool, error) {
	count, err := cache.Increment("analysis:rate:"+licenseKey, r.Window)
	if err != nil {
		return false, err
	}
	return count <= r.Max, nil
}

// NewRepository creates the usage log store backing the audit trail and the
// quota fallback.
func NewRepository(db *gorm.DB) repository.UsageRepository {
	return repository.NewUsageRepository(db)
}

// Input is a cover letter analysis request.
type Input struct {
	LicenseKey     string `json:"licenseKey" validate:"required"`
	JobTitle       string `json:"jobTitle" validate:"required,max=200"`
	JobDescription string `json:"jobDescription" validate:"required,max=5000"`
	CoverLetter    string `json:"coverLetter" validate:"required,max=5000"`
}

// Result is the normalized analysis. Scores are clamped to 0..10 and every
// feedback field is non-empty.
type Result struct {
	GrammarScore           int      `json:"grammarScore"`
	GrammarFeedback        string   `json:"grammarFeedback"`
	SentenceLengthScore    int      `json:"sentenceLengthScore"`
	SentenceLengthFeedback string   `json:"sentenceLengthFeedback"`
	ToneScore              int      `json:"toneScore"`
	ToneFeedback           string   `json:"toneFeedback"`
	HookScore              int      `json:"hookScore"`
	HookFeedback           string   `json:"hookFeedback"`
	OverallFeedback        string   `json:"overallFeedback"`
	Recommendations        []string `json:"recommendations"`
}

// Service proxies cover letter analysis to the model, gated by an active
// license and a per-license request quota.
type Service struct {
	generator ContentGenerator
	licenses  LicenseChecker
	limiter   RateLimiter
	usage     repository.UsageRepository
}

func NewService(generator ContentGenerator, licenses LicenseChecker, limiter RateLimiter, usage repository.UsageRepository) *Service {
	return &Service{generator: generator, licenses: licenses, limiter: limiter, usage: usage}
}

// Analyze validates the request, checks license and quota, then asks the
// model for scored feedback. Usage logging is best-effort and never blocks
// the analysis.
func (s *Service) Analyze(ctx context.Context, in Input, clientIP string) (*Result, error) {
	v := validator.New()
	if err := v.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			if verrs[0].Tag() == "max" {
				return nil, apperr.Validation("Input exceeds maximum length")
			}
		}
		return nil, apperr.Validation("Missing required fields")
	}

	key := strings.TrimSpace(in.LicenseKey)
	active, err := s.licenses.CheckActive(ctx, key)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperr.Forbidden("Invalid or expired license key")
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(key)
		if err != nil {
			log.Printf("analysis rate limit check failed for %s: %v", key, err)
			allowed = s.allowFromUsageLog(key)
		}
		if !allowed {
			return nil, apperr.RateLimited("Rate limit exceeded. Please try again later.")
		}
	}

	if s.usage != nil {
		if err := s.usage.Append(&models.UsageLog{
			LicenseKey: key,
			IPAddress:  clientIP,
			Endpoint:   endpointName,
		}); err != nil {
			log.Printf("failed to log analysis usage for %s: %v", key, err)
		}
	}

	text, err := s.generator.GenerateContent(ctx, buildPrompt(in))
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			return nil, apperr.Validation("Invalid request format")
		}
		return nil, apperr.Upstream(err)
	}

	result, err := parseResult(text)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	return result, nil
}

// allowFromUsageLog answers the quota from the usage audit trail when the
// Redis counter is unavailable. Only when the store is down too does the
// check fail open; quota backend trouble must not take the endpoint down.
func (s *Service) allowFromUsageLog(key string) bool {
	if s.usage == nil {
		return true
	}
	count, err := s.usage.CountByKeySince(key, endpointName, time.Now().Add(-rateLimitWindow))
	if err != nil {
		log.Printf("analysis quota fallback failed for %s: %v", key, err)
		return true
	}
	return count < rateLimitMax
}

const promptSchema = `You are an expert cover letter analyst. Your ONLY job is to output a valid JSON object that matches the schema below.

RULES:
- Output raw JSON only. No explanations, no prose, no markdown or code fences.
- Keep feedback concise and actionable.

SCHEMA:
{
  "grammarScore": <number 0-10>,
  "grammarFeedback": "<brief feedback>",
  "sentenceLengthScore": <number 0-10>,
  "sentenceLengthFeedback": "<brief feedback>",
  "toneScore": <number 0-10>,
  "toneFeedback": "<brief feedback>",
  "hookScore": <number 0-10>,
  "hookFeedback": "<brief feedback>",
  "overallFeedback": "<overall assessment>",
  "recommendations": ["<rec1>", "<rec2>", "<rec3>"]
}`

func buildPrompt(in Input) string {
	return fmt.Sprintf("%s\n\nJob Title: %s\n\nJob Description:\n%s\n\nCover Letter:\n%s\n\nProvide detailed scoring and feedback. Output raw JSON ONLY matching the schema.",
		promptSchema, in.JobTitle, in.JobDescription, in.CoverLetter)
}

// parseResult tolerates models that wrap their JSON in code fences or prose:
// fences are stripped and the first balanced JSON object is extracted.
func parseResult(text string) (*Result, error) {
	cleaned := strings.TrimSpace(codeFencePattern.ReplaceAllString(text, ""))

	raw := struct {
		GrammarScore           *float64 `json:"grammarScore"`
		GrammarFeedback        string   `json:"grammarFeedback"`
		SentenceLengthScore    *float64 `json:"sentenceLengthScore"`
		SentenceLengthFeedback string   `json:"sentenceLengthFeedback"`
		ToneScore              *float64 `json:"toneScore"`
		ToneFeedback           string   `json:"toneFeedback"`
		HookScore              *float64 `json:"hookScore"`
		HookFeedback           string   `json:"hookFeedback"`
		OverallFeedback        string   `json:"overallFeedback"`
		Recommendations        []string `json:"recommendations"`
	}{}

	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		extracted, ok := extractJSONObject(cleaned)
		if !ok {
			return nil, fmt.Errorf("no JSON object in analysis output")
		}
		if err := json.Unmarshal([]byte(extracted), &raw); err != nil {
			return nil, fmt.Errorf("failed to parse analysis results: %w", err)
		}
	}

	result := &Result{
		GrammarScore:           clampScore(raw.GrammarScore),
		GrammarFeedback:        defaultText(raw.GrammarFeedback, "No feedback provided"),
		SentenceLengthScore:    clampScore(raw.SentenceLengthScore),
		SentenceLengthFeedback: defaultText(raw.SentenceLengthFeedback, "No feedback provided"),
		ToneScore:              clampScore(raw.ToneScore),
		ToneFeedback:           defaultText(raw.ToneFeedback, "No feedback provided"),
		HookScore:              clampScore(raw.HookScore),
		HookFeedback:           defaultText(raw.HookFeedback, "No feedback provided"),
		OverallFeedback:        defaultText(raw.OverallFeedback, "Analysis completed"),
		Recommendations:        raw.Recommendations,
	}
	if len(result.Recommendations) == 0 {
		result.Recommendations = []string{
			"Consider reviewing your cover letter",
			"Ensure it matches the job requirements",
			"Proofread for any errors",
		}
	}
	return result, nil
}

// extractJSONObject returns the first balanced {...} span in s.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func clampScore(v *float64) int {
	if v == nil {
		return 0
	}
	n := int(*v)
	if n < 0 {
		return 0
	}
	if n > 10 {
		return 10
	}
	return n
}

func defaultText(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
