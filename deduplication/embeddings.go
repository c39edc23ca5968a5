package deduplication

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"emarknews/types"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"go.uber.org/zap"
)

// EmbeddingsProvider abstracts a text->embedding generator.
// Implementations return one vector per input text.
type EmbeddingsProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// MaxEmbedBatch is the most texts one Cohere embed request accepts.
const MaxEmbedBatch = 96

// embedInBatches calls embed once per run of at most size texts and
// concatenates the vectors in input order.
func embedInBatches(ctx context.Context, texts []string, size int,
	embed func(context.Context, []string) ([][]float32, error)) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		vectors, err := embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(vectors), end-start)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// NewCohereEmbeddings returns a Cohere-backed provider, or nil when no key is set.
func NewCohereEmbeddings(apiKey, model string) EmbeddingsProvider {
	if apiKey == "" {
		return nil
	}
	if model == "" || !strings.HasPrefix(model, "embed-") {
		model = "embed-english-v3.0"
	}
	// HTTP/1.1 only; the embed endpoint has been flaky over HTTP/2.
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereEmbeddings{client: client, model: model}
}

// CohereEmbeddings implements EmbeddingsProvider using the Cohere Embed API (v2)
type CohereEmbeddings struct {
	client *cohereclient.Client
	model  string
}

func (c *CohereEmbeddings) ModelName() string { return c.model }

func (c *CohereEmbeddings) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return embedInBatches(ctx, texts, MaxEmbedBatch, c.embed)
}

func (c *CohereEmbeddings) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.V2.Embed(
		ctx,
		&cohere.V2EmbedRequest{
			Texts:          texts,
			Model:          c.model,
			InputType:      cohere.EmbedInputTypeSearchDocument,
			EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("cohere embed error: %w", err)
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, errors.New("cohere embed returned no float embeddings")
	}

	floats := resp.Embeddings.Float
	if len(floats) != len(texts) {
		return nil, errors.New("embedding count mismatch")
	}

	out := make([][]float32, len(floats))
	for i, vec := range floats {
		fv := make([]float32, len(vec))
		for j, v := range vec {
			fv[j] = float32(v)
		}
		out[i] = fv
	}
	return out, nil
}

// DefaultSimilarityThreshold is the cosine similarity above which two
// headlines are treated as the same story.
const DefaultSimilarityThreshold = 0.85

// EmbeddingClusterer groups articles whose title embeddings are close.
// Any provider failure falls back to title signatures.
type EmbeddingClusterer struct {
	provider  EmbeddingsProvider
	threshold float32
	timeout   time.Duration
	logger    *zap.Logger
}

func NewEmbeddingClusterer(provider EmbeddingsProvider, logger *zap.Logger) *EmbeddingClusterer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbeddingClusterer{
		provider:  provider,
		threshold: DefaultSimilarityThreshold,
		timeout:   5 * time.Second,
		logger:    logger,
	}
}

func (e *EmbeddingClusterer) Assign(ctx context.Context, batch []types.Article) []types.Article {
	out := TitleClusterer{}.Assign(ctx, batch)
	if len(out) < 2 || e.provider == nil {
		return out
	}

	texts := make([]string, len(out))
	for i := range out {
		texts[i] = out[i].Title
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	vectors, err := embedInBatches(ctx, texts, MaxEmbedBatch, e.provider.EmbedTexts)
	if err != nil {
		e.logger.Warn("embedding clustering failed, keeping title signatures",
			zap.String("model", e.provider.ModelName()),
			zap.Error(err))
		return out
	}

	// Greedy single pass: each article joins the first earlier article
	// it is similar enough to.
	for i := 1; i < len(out); i++ {
		for j := 0; j < i; j++ {
			if cosine(vectors[i], vectors[j]) >= e.threshold {
				out[i].ClusterID = out[j].ClusterID
				break
			}
		}
	}
	return out
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
