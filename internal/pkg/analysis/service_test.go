package analysis

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartapplypro/backend/app/models"
	"github.com/smartapplypro/backend/internal/pkg/apperr"
)

const modelJSON = `{
	"grammarScore": 8,
	"grammarFeedback": "Solid grammar overall",
	"sentenceLengthScore": 7,
	"sentenceLengthFeedback": "A few sentences run long",
	"toneScore": 9,
	"toneFeedback": "Confident and professional",
	"hookScore": 6,
	"hookFeedback": "Opening could be stronger",
	"overallFeedback": "Good letter with room to tighten",
	"recommendations": ["Shorten the second paragraph", "Lead with impact"]
}`

type fakeGenerator struct {
	text string
	err  error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, _ string) (string, error) {
	return f.text, f.err
}

type fakeChecker struct {
	active bool
	err    error
}

func (f *fakeChecker) CheckActive(_ context.Context, _ string) (bool, error) {
	return f.active, f.err
}

type fakeLimiter struct {
	allowed bool
	err     error
}

func (f *fakeLimiter) Allow(_ string) (bool, error) {
	return f.allowed, f.err
}

type fakeUsageRepo struct {
	entries  []models.UsageLog
	err      error
	count    int64
	countErr error
}

func (f *fakeUsageRepo) Append(entry *models.UsageLog) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeUsageRepo) CountByKeySince(_, _ string, _ time.Time) (int64, error) {
	return f.count, f.countErr
}

func validInput() Input {
	return Input{
		LicenseKey:     "SMARTAPPLY-PRO-ABCD-EFGH-JKLM-NPQR-STUV",
		JobTitle:       "Backend Engineer",
		JobDescription: "Build and operate Go services.",
		CoverLetter:    "Dear hiring manager, I build Go services.",
	}
}

func TestAnalyzeHappyPath(t *testing.T) {
	repo := &fakeUsageRepo{}
	svc := NewService(&fakeGenerator{text: modelJSON}, &fakeChecker{active: true}, &fakeLimiter{allowed: true}, repo)

	result, err := svc.Analyze(context.Background(), validInput(), "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 8, result.GrammarScore)
	assert.Equal(t, "Confident and professional", result.ToneFeedback)
	assert.Len(t, result.Recommendations, 2)

	require.Len(t, repo.entries, 1)
	assert.Equal(t, "cover-letter-analysis", repo.entries[0].Endpoint)
	assert.Equal(t, "1.2.3.4", repo.entries[0].IPAddress)
}

func TestAnalyzeValidation(t *testing.T) {
	svc := NewService(&fakeGenerator{text: modelJSON}, &fakeChecker{active: true}, &fakeLimiter{allowed: true}, &fakeUsageRepo{})

	in := validInput()
	in.CoverLetter = ""
	_, err := svc.Analyze(context.Background(), in, "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	in = validInput()
	in.JobTitle = string(make([]byte, 201))
	_, err = svc.Analyze(context.Background(), in, "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestAnalyzeRequiresActiveLicense(t *testing.T) {
	repo := &fakeUsageRepo{}
	svc := NewService(&fakeGenerator{text: modelJSON}, &fakeChecker{active: false}, &fakeLimiter{allowed: true}, repo)

	_, err := svc.Analyze(context.Background(), validInput(), "")
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	assert.Empty(t, repo.entries, "gated requests are not logged as usage")
}

func TestAnalyzeRateLimit(t *testing.T) {
	svc := NewService(&fakeGenerator{text: modelJSON}, &fakeChecker{active: true}, &fakeLimiter{allowed: false}, &fakeUsageRepo{})

	_, err := svc.Analyze(context.Background(), validInput(), "")
	assert.True(t, apperr.IsKind(err, apperr.KindRateLimited))
}

func TestAnalyzeLimiterFailureFallsBackToUsageLog(t *testing.T) {
	repo := &fakeUsageRepo{count: 3}
	svc := NewService(&fakeGenerator{text: modelJSON}, &fakeChecker{active: true}, &fakeLimiter{err: errors.New("redis down")}, repo)

	_, err := svc.Analyze(context.Background(), validInput(), "")
	assert.NoError(t, err, "under-quota callers pass on the usage log fallback")

	repo = &fakeUsageRepo{count: 10}
	svc = NewService(&fakeGenerator{text: modelJSON}, &fakeChecker{active: true}, &fakeLimiter{err: errors.New("redis down")}, repo)

	_, err = svc.Analyze(context.Background(), validInput(), "")
	assert.True(t, apperr.IsKind(err, apperr.KindRateLimited), "the quota still holds while Redis is down")
}

func TestAnalyzeLimiterAndStoreFailureIsOpen(t *testing.T) {
	repo := &fakeUsageRepo{countErr: errors.New("db down")}
	svc := NewService(&fakeGenerator{text: modelJSON}, &fakeChecker{active: true}, &fakeLimiter{err: errors.New("redis down")}, repo)

	_, err := svc.Analyze(context.Background(), validInput(), "")
	assert.NoError(t, err, "quota backend failure must not block analysis")
}

func TestAnalyzeUpstreamFailure(t *testing.T) {
	svc := NewService(&fakeGenerator{err: errors.New("boom")}, &fakeChecker{active: true}, &fakeLimiter{allowed: true}, &fakeUsageRepo{})

	_, err := svc.Analyze(context.Background(), validInput(), "")
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))
}

func TestAnalyzeBadRequestFromModelAPI(t *testing.T) {
	gen := &fakeGenerator{err: &APIError{StatusCode: http.StatusBadRequest, Message: "bad payload"}}
	svc := NewService(gen, &fakeChecker{active: true}, &fakeLimiter{allowed: true}, &fakeUsageRepo{})

	_, err := svc.Analyze(context.Background(), validInput(), "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestParseResultToleratesCodeFences(t *testing.T) {
	result, err := parseResult("```json\n" + modelJSON + "\n```")
	require.NoError(t, err)
	assert.Equal(t, 7, result.SentenceLengthScore)
}

func TestParseResultExtractsEmbeddedObject(t *testing.T) {
	result, err := parseResult("Here is the analysis you asked for:\n" + modelJSON + "\nHope that helps!")
	require.NoError(t, err)
	assert.Equal(t, 9, result.ToneScore)
}

func TestParseResultNormalizes(t *testing.T) {
	result, err := parseResult(`{"grammarScore": 15, "toneScore": -3}`)
	require.NoError(t, err)
	assert.Equal(t, 10, result.GrammarScore)
	assert.Equal(t, 0, result.ToneScore)
	assert.Equal(t, "No feedback provided", result.GrammarFeedback)
	assert.Equal(t, "Analysis completed", result.OverallFeedback)
	assert.Len(t, result.Recommendations, 3)
}

func TestParseResultRejectsGarbage(t *testing.T) {
	_, err := parseResult("I could not analyze this letter.")
	assert.Error(t, err)
}

func newTestClient(url string) *GeminiClient {
	return &GeminiClient{
		APIKey:          "test-key",
		Model:           "gemini-2.5-flash",
		FallbackModel:   "gemini-1.5-flash",
		BaseURL:         url + "/v1",
		FallbackBaseURL: url + "/v1beta",
		MaxAttempts:     3,
		BackoffBase:     time.Millisecond,
		HTTPClient:      &http.Client{Timeout: 5 * time.Second},
	}
}

func geminiBody(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":` + jsonString(text) + `}]}}]}`
}

func jsonString(s string) string {
	out := `"`
	for _, r := range s {
		switch r {
		case '"':
			out += `\"`
		case '\\':
			out += `\\`
		case '\n':
			out += `\n`
		default:
			out += string(r)
		}
	}
	return out + `"`
}

func TestGeminiClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(geminiBody("hello")))
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).GenerateContent(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGeminiClientRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(geminiBody("ok")))
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).GenerateContent(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestGeminiClientFailsFastOnBadRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"invalid payload"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GenerateContent(context.Background(), "prompt")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "invalid payload", apiErr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx other than 429 must not retry")
}

func TestGeminiClientFallsBackOnNotFound(t *testing.T) {
	var primaryCalls, fallbackCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/models/gemini-2.5-flash:generateContent" {
			atomic.AddInt32(&primaryCalls, 1)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Path == "/v1beta/models/gemini-1.5-flash:generateContent" {
			atomic.AddInt32(&fallbackCalls, 1)
			w.Write([]byte(geminiBody("from fallback")))
			return
		}
		t.Errorf("unexpected path %s", r.URL.Path)
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).GenerateContent(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "from fallback", text)
	assert.Equal(t, int32(1), atomic.LoadInt32(&primaryCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&fallbackCalls))
}

func TestGeminiClientEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GenerateContent(context.Background(), "prompt")
	assert.Error(t, err)
}
