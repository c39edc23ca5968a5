package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"emarknews/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// The genai SDK starts an opencensus view worker on import.
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type fakeService struct {
	delay     time.Duration
	failAll   bool
	failTitle string

	inFlight atomic.Int32
	peak     atomic.Int32

	mu        sync.Mutex
	summaries []string
}

func (f *fakeService) enter() func() {
	n := f.inFlight.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeService) Translate(ctx context.Context, text, locale string) TranslateResult {
	defer f.enter()()
	if f.failAll || text == f.failTitle {
		return TranslateResult{}
	}
	return TranslateResult{Success: true, Text: "[" + locale + "] " + text}
}

func (f *fakeService) Summarize(ctx context.Context, text string, opts SummaryOptions) SummaryResult {
	defer f.enter()()
	f.mu.Lock()
	f.summaries = append(f.summaries, text)
	f.mu.Unlock()
	if f.failAll {
		return SummaryResult{}
	}
	return SummaryResult{Success: true, Points: []string{"point: " + text}}
}

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Extract(ctx context.Context, url string) (string, error) {
	return f.text, f.err
}

func batchOf(n int, lang string) []types.Article {
	out := make([]types.Article, n)
	for i := range out {
		out[i] = types.Article{
			ID:          fmt.Sprintf("a%d", i),
			Title:       fmt.Sprintf("Title %d", i),
			Description: fmt.Sprintf("Description %d", i),
			Link:        fmt.Sprintf("https://example.com/%d", i),
			Language:    lang,
		}
	}
	return out
}

func TestEnrichTranslatesAndSummarizes(t *testing.T) {
	svc := &fakeService{}
	p := NewPipeline(svc, "ko")

	in := batchOf(3, "en")
	out := p.Enrich(context.Background(), "world", in)

	require.Len(t, out, 3)
	for i, a := range out {
		assert.Equal(t, "[ko] "+in[i].Title, a.TranslatedTitle)
		assert.Equal(t, "[ko] "+in[i].Description, a.TranslatedDescription)
		assert.Equal(t, []string{"point: " + in[i].Description}, a.SummaryPoints)
		assert.Equal(t, in[i].Title, a.Title)
	}
	assert.Empty(t, in[0].TranslatedTitle, "input must not be mutated")
}

func TestEnrichSkipsTranslationForTargetLocale(t *testing.T) {
	p := NewPipeline(&fakeService{}, "ko")

	in := batchOf(1, "ko")
	out := p.Enrich(context.Background(), "korea", in)
	assert.Empty(t, out[0].TranslatedTitle)
	assert.NotEmpty(t, out[0].SummaryPoints)

	in[0].NeedsTranslation = true
	out = p.Enrich(context.Background(), "korea", in)
	assert.Equal(t, "[ko] Title 0", out[0].TranslatedTitle)
}

func TestEnrichFailureLeavesFieldsUntouched(t *testing.T) {
	p := NewPipeline(&fakeService{failAll: true}, "ko")

	in := batchOf(4, "en")
	in[2].TranslatedTitle = "기존 번역"
	out := p.Enrich(context.Background(), "world", in)

	for i := range in {
		assert.Equal(t, in[i].Title, out[i].Title)
		assert.Equal(t, in[i].Description, out[i].Description)
		assert.Equal(t, in[i].TranslatedTitle, out[i].TranslatedTitle)
		assert.Empty(t, out[i].TranslatedDescription)
		assert.Empty(t, out[i].SummaryPoints)
	}
}

func TestEnrichPartialFailure(t *testing.T) {
	p := NewPipeline(&fakeService{failTitle: "Title 1"}, "ko")
	out := p.Enrich(context.Background(), "world", batchOf(2, "en"))

	assert.Equal(t, "[ko] Title 0", out[0].TranslatedTitle)
	assert.Empty(t, out[1].TranslatedTitle)
	assert.Equal(t, "[ko] Description 1", out[1].TranslatedDescription)
}

func TestEnrichConcurrencyBound(t *testing.T) {
	svc := &fakeService{delay: 5 * time.Millisecond}
	p := NewPipeline(svc, "ko", WithConcurrency(3))

	p.Enrich(context.Background(), "world", batchOf(20, "en"))
	assert.LessOrEqual(t, svc.peak.Load(), int32(3))
	assert.GreaterOrEqual(t, svc.peak.Load(), int32(2))
}

func TestEnrichExtractsMissingDescription(t *testing.T) {
	svc := &fakeService{}
	p := NewPipeline(svc, "ko", WithExtractor(fakeExtractor{text: "Body text from the page"}))

	in := batchOf(1, "ko")
	in[0].Description = ""
	out := p.Enrich(context.Background(), "korea", in)

	assert.Equal(t, []string{"point: Body text from the page"}, out[0].SummaryPoints)
	assert.Empty(t, out[0].Description)
}

func TestEnrichExtractionFailure(t *testing.T) {
	svc := &fakeService{}
	p := NewPipeline(svc, "ko", WithExtractor(fakeExtractor{err: errors.New("boom")}))

	in := batchOf(1, "ko")
	in[0].Description = ""
	out := p.Enrich(context.Background(), "korea", in)

	assert.Empty(t, out[0].SummaryPoints)
	assert.Empty(t, svc.summaries)
}

func TestEnrichKeepsExistingEnrichment(t *testing.T) {
	svc := &fakeService{}
	p := NewPipeline(svc, "ko")

	in := batchOf(1, "en")
	in[0].TranslatedTitle = "이미 번역됨"
	in[0].SummaryPoints = []string{"existing"}
	out := p.Enrich(context.Background(), "world", in)

	assert.Equal(t, "이미 번역됨", out[0].TranslatedTitle)
	assert.Equal(t, []string{"existing"}, out[0].SummaryPoints)
	assert.Zero(t, svc.peak.Load())
}

func TestEnrichNilService(t *testing.T) {
	p := NewPipeline(nil, "ko")
	in := batchOf(2, "en")
	out := p.Enrich(context.Background(), "world", in)
	assert.Equal(t, in, out)
}

func TestEnrichCancelledContext(t *testing.T) {
	svc := &fakeService{}
	p := NewPipeline(svc, "ko")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := p.Enrich(ctx, "world", batchOf(3, "en"))
	for _, a := range out {
		assert.Empty(t, a.TranslatedTitle)
	}
	assert.True(t, strings.HasPrefix(out[0].Title, "Title"))
}
