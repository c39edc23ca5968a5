package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Article is the canonical content unit every source adapter normalizes into.
type Article struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Link            string    `json:"link"`
	SourceName      string    `json:"sourceName"`
	Domain          string    `json:"domain"`
	SourceDomain    string    `json:"sourceDomain,omitempty"`
	Description     string    `json:"description"`
	PublishedAt     time.Time `json:"publishedAt"`
	AgeMinutes      float64   `json:"ageMinutes"`
	EngagementCount int64     `json:"engagementCount"`
	FollowerCount   int64     `json:"followerCount"`
	Language        string    `json:"language,omitempty"`
	ClusterID       string    `json:"clusterId,omitempty"`
	Score           float64   `json:"score"`
	Rating          float64   `json:"rating"`
	Tags            []string  `json:"tags"`

	TranslatedTitle       string   `json:"translatedTitle,omitempty"`
	TranslatedDescription string   `json:"translatedDescription,omitempty"`
	SummaryPoints         []string `json:"summaryPoints,omitempty"`

	NeedsTranslation bool `json:"-"`
}

// TrustDomain is the key for source trust: the configured source's
// domain when it differs from the publisher's.
func (a *Article) TrustDomain() string {
	if a.SourceDomain != "" {
		return a.SourceDomain
	}
	return a.Domain
}

// ArticleID derives the stable id of an article from its source and URL.
func ArticleID(source, url string) string {
	hash := sha256.Sum256([]byte(source + "\x00" + url))
	return hex.EncodeToString(hash[:])[:16]
}

// HasTimestamp reports whether the publish time was parsed.
func (a *Article) HasTimestamp() bool {
	return !a.PublishedAt.IsZero()
}

// Clone returns a deep copy so rankers and enrichers never share slices
// with the batch they were given.
func (a Article) Clone() Article {
	if a.Tags != nil {
		a.Tags = append([]string(nil), a.Tags...)
	}
	if a.SummaryPoints != nil {
		a.SummaryPoints = append([]string(nil), a.SummaryPoints...)
	}
	return a
}

// CloneAll copies a batch.
func CloneAll(in []Article) []Article {
	out := make([]Article, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
