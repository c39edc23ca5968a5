package deduplication

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"emarknews/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleSignature(t *testing.T) {
	assert.Equal(t,
		TitleSignature("Senate passes the budget bill"),
		TitleSignature("Budget bill passes Senate!"))
	assert.NotEqual(t,
		TitleSignature("Senate passes the budget bill"),
		TitleSignature("Senate rejects the budget bill"))
	assert.Empty(t, TitleSignature("the a of"))
}

type fakeEmbeddings struct {
	vectors [][]float32
	err     error
}

func (f *fakeEmbeddings) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[:len(texts)], nil
}

func (f *fakeEmbeddings) ModelName() string { return "fake" }

func TestEmbeddingClustererMergesSimilarTitles(t *testing.T) {
	batch := []types.Article{
		{Title: "Quake strikes northern region"},
		{Title: "Powerful earthquake hits the north"},
		{Title: "Local team wins cup"},
	}
	provider := &fakeEmbeddings{vectors: [][]float32{{1, 0, 0}, {0.95, 0.05, 0}, {0, 0, 1}}}

	out := NewEmbeddingClusterer(provider, nil).Assign(context.Background(), batch)
	require.Len(t, out, 3)
	assert.Equal(t, out[0].ClusterID, out[1].ClusterID)
	assert.NotEqual(t, out[0].ClusterID, out[2].ClusterID)
}

func TestEmbeddingClustererFallsBackOnError(t *testing.T) {
	batch := []types.Article{{Title: "Quake strikes northern region"}, {Title: "Local team wins cup"}}
	provider := &fakeEmbeddings{err: errors.New("quota")}

	out := NewEmbeddingClusterer(provider, nil).Assign(context.Background(), batch)
	assert.Equal(t, TitleSignature(batch[0].Title), out[0].ClusterID)
	assert.Equal(t, TitleSignature(batch[1].Title), out[1].ClusterID)
}

type batchLimitedEmbeddings struct {
	vectors map[string][]float32
	sizes   []int
}

func (b *batchLimitedEmbeddings) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	b.sizes = append(b.sizes, len(texts))
	if len(texts) > MaxEmbedBatch {
		return nil, fmt.Errorf("too many texts: %d", len(texts))
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = b.vectors[text]
	}
	return out, nil
}

func (b *batchLimitedEmbeddings) ModelName() string { return "batch-limited" }

func TestEmbeddingClustererSplitsLargeBatches(t *testing.T) {
	const n = 200
	batch := make([]types.Article, n)
	provider := &batchLimitedEmbeddings{vectors: map[string][]float32{}}
	for i := range batch {
		batch[i].Title = fmt.Sprintf("headline %03d", i)
		vec := make([]float32, n)
		vec[i] = 1
		provider.vectors[batch[i].Title] = vec
	}
	// The last article repeats the first story from another batch.
	provider.vectors[batch[n-1].Title] = provider.vectors[batch[0].Title]

	out := NewEmbeddingClusterer(provider, nil).Assign(context.Background(), batch)
	require.Len(t, out, n)
	assert.Equal(t, []int{96, 96, 8}, provider.sizes)
	assert.Equal(t, out[0].ClusterID, out[n-1].ClusterID)
	assert.NotEqual(t, out[0].ClusterID, out[1].ClusterID)
	assert.Equal(t, TitleSignature(batch[100].Title), out[100].ClusterID)
}
