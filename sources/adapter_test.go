package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"emarknews/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRecoversPanics(t *testing.T) {
	r := NewRegistry(nil).Register(types.KindRSS, AdapterFunc(func(context.Context, types.Descriptor) []types.Article {
		panic("boom")
	}))
	got := r.Fetch(context.Background(), types.Descriptor{Kind: types.KindRSS})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRegistryUnknownKind(t *testing.T) {
	got := NewRegistry(nil).Fetch(context.Background(), types.Descriptor{Kind: "gopher"})
	assert.Empty(t, got)
}

const redditBody = `{"data":{"children":[
 {"data":{"title":"Pinned rules","stickied":true,"url":"https://reddit.com/x","created_utc":1772445600}},
 {"data":{"title":"Big launch today","url":"https://example.org/launch","permalink":"/r/technology/1","created_utc":1772445600,"score":900,"num_comments":100,"subreddit_subscribers":15000000}},
 {"data":{"title":"Ask anything","is_self":true,"selftext":"body","permalink":"/r/technology/2","created_utc":1772445600,"score":5}}
]}}`

func TestParseReddit(t *testing.T) {
	d := types.Descriptor{Name: "r/technology", Domain: "reddit.com"}
	got, err := parseReddit(d, []byte(redditBody))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "https://example.org/launch", got[0].Link)
	assert.Equal(t, int64(1000), got[0].EngagementCount)
	assert.Equal(t, int64(15000000), got[0].FollowerCount)
	assert.Equal(t, time.Unix(1772445600, 0).UTC(), got[0].PublishedAt)
	assert.Equal(t, "https://www.reddit.com/r/technology/2", got[1].Link)
}

const newsAPIBody = `{"status":"ok","articles":[
 {"source":{"name":"Wire"},"title":"Markets close higher","description":"Stocks rose.","url":"https://wire.example/markets","publishedAt":"2026-03-02T09:30:00Z"},
 {"source":{"name":"Wire"},"title":"[Removed]","url":"https://removed.example"},
 {"source":{"name":"Wire"},"title":"Bad date","url":"https://wire.example/bad","publishedAt":"yesterday"}
]}`

func TestParseNewsAPI(t *testing.T) {
	d := types.Descriptor{Name: "NewsAPI Business", Domain: "newsapi.org"}
	got, err := parseNewsAPI(d, []byte(newsAPIBody))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Wire", got[0].SourceName)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), got[0].PublishedAt)
	assert.False(t, got[1].HasTimestamp())

	_, err = parseNewsAPI(d, []byte(`{"status":"error","code":"apiKeyInvalid","message":"bad key"}`))
	assert.Error(t, err)
}

func TestAggregatorArticlesUsePublisherDomain(t *testing.T) {
	tests := []struct {
		name       string
		kind       types.SourceKind
		domain     string
		link       string
		wantDomain string
		wantSource string
	}{
		{"newsapi publisher", types.KindNewsAPI, "newsapi.org", "https://www.Wire.example/markets", "wire.example", "newsapi.org"},
		{"reddit external link", types.KindReddit, "reddit.com", "https://example.org/launch", "example.org", "reddit.com"},
		{"reddit self post", types.KindReddit, "reddit.com", "https://www.reddit.com/r/technology/2", "reddit.com", ""},
		{"unparseable link", types.KindNewsAPI, "newsapi.org", "://bad", "newsapi.org", ""},
		{"rss keeps descriptor", types.KindRSS, "bbc.co.uk", "https://feeds.bbci.co.uk/news/1", "bbc.co.uk", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := types.Descriptor{Name: "src", Kind: tt.kind, Domain: tt.domain}
			a := newArticle(d, "Headline", tt.link, "", time.Now())
			assert.Equal(t, tt.wantDomain, a.Domain)
			assert.Equal(t, tt.wantSource, a.SourceDomain)
			assert.Equal(t, tt.domain, a.TrustDomain())
		})
	}
}

func TestNewsAPIAdapterSendsKeyAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "business", r.URL.Query().Get("category"))
		_, _ = w.Write([]byte(newsAPIBody))
	}))
	defer srv.Close()

	d := types.Descriptor{Name: "n", Kind: types.KindNewsAPI, URL: srv.URL + "/v2/top-headlines", Query: "category=business", Domain: "newsapi.org"}
	got := NewNewsAPIAdapter(testFetcher(), "secret", nil).Fetch(context.Background(), d)
	assert.Len(t, got, 2)

	assert.Empty(t, NewNewsAPIAdapter(testFetcher(), "", nil).Fetch(context.Background(), d))
}

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Markets rally on rate cut", "en"},
		{"한국은행 기준금리 동결", "ko"},
		{"東京で地震が発生しました", "ja"},
		{"中国经济增长放缓", "zh"},
		{"Новости дня", "ru"},
		{"1234 !!", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DetectLanguage(c.text), c.text)
	}
}
