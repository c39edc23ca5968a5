package deduplication

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"

	"emarknews/types"
)

// Clusterer assigns content-cluster ids so the ranker can count stories
// across sources.
type Clusterer interface {
	Assign(ctx context.Context, batch []types.Article) []types.Article
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"on": {}, "for": {}, "with": {}, "at": {}, "by": {}, "from": {}, "as": {}, "is": {},
	"are": {}, "was": {}, "were": {}, "be": {}, "after": {}, "over": {}, "into": {},
	"its": {}, "it": {}, "this": {}, "that": {}, "new": {}, "says": {}, "say": {},
}

// signatureTokens is how many significant tokens make up a signature.
const signatureTokens = 6

// TitleSignature hashes the sorted set of significant title tokens, so
// headlines that differ only in word order, punctuation or filler words
// land in the same cluster.
func TitleSignature(title string) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, stop := stopwords[w]; stop {
			continue
		}
		if len([]rune(w)) < 2 {
			continue
		}
		set[w] = struct{}{}
	}
	if len(set) == 0 {
		return ""
	}

	tokens := make([]string, 0, len(set))
	for w := range set {
		tokens = append(tokens, w)
	}
	// Longest tokens carry the most signal.
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})
	if len(tokens) > signatureTokens {
		tokens = tokens[:signatureTokens]
	}
	sort.Strings(tokens)

	h := sha256.Sum256([]byte(strings.Join(tokens, " ")))
	return hex.EncodeToString(h[:])[:12]
}

// TitleClusterer is the default Clusterer.
type TitleClusterer struct{}

func (TitleClusterer) Assign(_ context.Context, batch []types.Article) []types.Article {
	out := types.CloneAll(batch)
	for i := range out {
		out[i].ClusterID = TitleSignature(out[i].Title)
	}
	return out
}
