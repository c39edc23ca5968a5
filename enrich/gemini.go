package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"emarknews/config"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// ErrQuotaExhausted marks a daily quota error. It is never retried.
var ErrQuotaExhausted = errors.New("gemini quota exhausted")

// textModel is the single call GeminiService needs from the SDK.
type textModel interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type genaiModel struct {
	client *genai.Client
	model  string
}

func (m *genaiModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GeminiService implements TextService on the Gemini API.
type GeminiService struct {
	model       textModel
	timeout     time.Duration
	maxAttempts int
	initialWait time.Duration
	quotaPause  time.Duration
	logger      *zap.Logger
	now         func() time.Time

	// Unix nanoseconds until which calls are skipped after a daily quota error.
	pausedUntil atomic.Int64
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

func NewGeminiService(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newGeminiService(&genaiModel{client: client, model: cfg.Model}, logger), nil
}

func newGeminiService(m textModel, logger *zap.Logger) *GeminiService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiService{
		model:       m,
		timeout:     config.EnrichCallTimeout,
		maxAttempts: config.EnrichMaxAttempts,
		initialWait: 500 * time.Millisecond,
		quotaPause:  time.Hour,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *GeminiService) Translate(ctx context.Context, text, locale string) TranslateResult {
	if strings.TrimSpace(text) == "" {
		return TranslateResult{}
	}
	prompt := fmt.Sprintf(
		"Translate the following news text into the language with code %q. "+
			"Reply with the translation only, no notes or quotes.\n\n%s", locale, text)

	out, err := s.generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("translation failed", zap.String("locale", locale), zap.Error(err))
		return TranslateResult{}
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return TranslateResult{}
	}
	return TranslateResult{Success: true, Text: out}
}

func (s *GeminiService) Summarize(ctx context.Context, text string, opts SummaryOptions) SummaryResult {
	if strings.TrimSpace(text) == "" {
		return SummaryResult{}
	}
	limit := opts.MaxPoints
	if limit <= 0 {
		limit = config.SummaryMaxPoints
	}
	style := "short"
	if opts.Detailed {
		style = "informative"
	}
	prompt := fmt.Sprintf(
		"Summarize the following news text in at most %d %s bullet points, "+
			"one per line, each starting with \"- \".\n\n%s", limit, style, text)

	out, err := s.generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("summary failed", zap.Error(err))
		return SummaryResult{}
	}
	points := parsePoints(out, limit)
	if len(points) == 0 {
		return SummaryResult{}
	}
	return SummaryResult{Success: true, Points: points}
}

// generate runs one prompt under the hard call timeout, retrying only
// throttling and server errors.
func (s *GeminiService) generate(ctx context.Context, prompt string) (string, error) {
	if s.now().UnixNano() < s.pausedUntil.Load() {
		return "", ErrQuotaExhausted
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.initialWait
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(max(s.maxAttempts-1, 0))), ctx)

	op := func() (string, error) {
		out, err := s.model.GenerateText(ctx, prompt)
		if err == nil {
			return out, nil
		}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && isDailyQuota(apiErr) {
			s.pausedUntil.Store(s.now().Add(s.quotaPause).UnixNano())
			return "", backoff.Permanent(fmt.Errorf("%w: %s", ErrQuotaExhausted, apiErr.Message))
		}
		if isRetryable(err) {
			return "", err
		}
		return "", backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Debug("retrying gemini call", zap.Duration("wait", wait), zap.Error(err))
	}
	return backoff.RetryNotifyWithData(op, policy, notify)
}

// isRetryable reports whether err is a throttling or server-side error.
func isRetryable(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
}

// isDailyQuota separates a spent daily quota from per-minute throttling.
// Both arrive as 429 RESOURCE_EXHAUSTED; only the latter clears in time.
func isDailyQuota(e genai.APIError) bool {
	if e.Status != "RESOURCE_EXHAUSTED" && e.Code != http.StatusTooManyRequests {
		return false
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "per day") ||
		strings.Contains(msg, "perday") ||
		strings.Contains(msg, "daily")
}

// bulletMarker matches one list marker. Numbers only count as markers
// when followed by "." or ")".
var bulletMarker = regexp.MustCompile(`^\s*(?:[-*•·]|\d+[.)])\s+`)

func parsePoints(out string, limit int) []string {
	var points []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(bulletMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		points = append(points, line)
		if len(points) == limit {
			break
		}
	}
	return points
}
