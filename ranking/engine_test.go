package ranking

import (
	"fmt"
	"math"
	"testing"
	"time"

	"emarknews/config"
	"emarknews/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A Wednesday, so no weekend boosts apply.
var rankNow = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

func never() float64 { return 1 }

func newTestEngine(t *testing.T, cfg Config, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return rankNow }), WithRandom(never)}, opts...)
	e, err := NewEngine(cfg, opts...)
	require.NoError(t, err)
	return e
}

func item(id, domain, title string, age time.Duration) types.Article {
	return types.Article{
		ID:          id,
		Title:       title,
		Link:        "https://" + domain + "/" + id,
		Domain:      domain,
		Language:    "en",
		PublishedAt: rankNow.Add(-age),
		ClusterID:   "c-" + id,
	}
}

func TestFreshnessStrictlyDecreasesWithAge(t *testing.T) {
	prev := math.Inf(1)
	for age := 0.0; age <= 2000; age += 10 {
		f := freshness(age, 180)
		assert.Less(t, f, prev)
		prev = f
	}
}

func TestYoungerArticleNeverScoresLower(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	for _, ages := range [][2]time.Duration{{time.Minute, 2 * time.Minute}, {time.Hour, 3 * time.Hour}, {10 * time.Hour, 30 * time.Hour}} {
		young := item("young", "a.example", "Same story", ages[0])
		old := item("old", "b.example", "Same story", ages[1])
		young.EngagementCount, old.EngagementCount = 40, 40

		out := e.Recompute("world", []types.Article{young, old})
		byID := map[string]types.Article{}
		for _, a := range out {
			byID[a.ID] = a
		}
		assert.GreaterOrEqual(t, byID["young"].Score, byID["old"].Score, "ages %v", ages)
	}
}

func TestRatingRangeAndSteps(t *testing.T) {
	r := DefaultConfig().Rating
	for score := -3.0; score <= 3.0; score += 0.013 {
		rating := r.project(score)
		assert.GreaterOrEqual(t, rating, 1.0)
		assert.LessOrEqual(t, rating, 5.0)
		assert.Equal(t, 0.0, math.Mod(rating*2, 1), "rating %v not a half step", rating)
	}
	assert.Equal(t, 1.0, r.project(math.NaN()))
	assert.Equal(t, 3.0, r.project(0.5))
}

func TestRankedRatingsAreHalfSteps(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	var batch []types.Article
	for i := 0; i < 40; i++ {
		a := item(fmt.Sprintf("a%02d", i), fmt.Sprintf("d%d.example", i%7), fmt.Sprintf("Story %d", i), time.Duration(i*17)*time.Minute)
		a.EngagementCount = int64(i * 31)
		batch = append(batch, a)
	}
	for _, a := range e.Rank("world", batch) {
		assert.GreaterOrEqual(t, a.Rating, 1.0)
		assert.LessOrEqual(t, a.Rating, 5.0)
		assert.Equal(t, 0.0, math.Mod(a.Rating*2, 1))
		assert.LessOrEqual(t, len(a.Tags), 2)
	}
}

func TestDiversityCapsDomains(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Default.TopK = 9
	cfg.Trust = map[string]float64{"big.example": 0.95}
	e := newTestEngine(t, cfg, WithRandom(func() float64 { return 0 }))

	var batch []types.Article
	// One dominant, very fresh, trusted domain and three weaker ones.
	for i := 0; i < 12; i++ {
		batch = append(batch, item(fmt.Sprintf("big%02d", i), "big.example", fmt.Sprintf("Big %d", i), time.Duration(i)*time.Minute))
	}
	for _, d := range []string{"x.example", "y.example", "z.example"} {
		for i := 0; i < 5; i++ {
			batch = append(batch, item(fmt.Sprintf("%s-%d", d, i), d, fmt.Sprintf("%s %d", d, i), time.Duration(300+i*60)*time.Minute))
		}
	}

	out := e.Rank("world", batch)
	require.Len(t, out, 9)

	counts := map[string]int{}
	for _, a := range out {
		counts[a.Domain]++
	}
	threshold := cfg.DomainThreshold
	for d, n := range counts {
		assert.LessOrEqual(t, n, threshold+1, d)
	}
	assert.GreaterOrEqual(t, len(counts), 9/(threshold+1))
}

func TestDiversityCapsClusters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Default.TopK = 4
	e := newTestEngine(t, cfg)

	var batch []types.Article
	for i := 0; i < 5; i++ {
		a := item(fmt.Sprintf("s%d", i), fmt.Sprintf("d%d.example", i), "Same story", time.Duration(i)*time.Minute)
		a.ClusterID = "story"
		batch = append(batch, a)
	}
	other := item("other", "o.example", "Other story", 8*time.Hour)
	batch = append(batch, other)

	out := e.Rank("world", batch)
	ids := []string{}
	for _, a := range out {
		ids = append(ids, a.ID)
	}
	assert.Contains(t, ids, "other")
}

func TestTrustBeatsSmallRecencyGap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trust = map[string]float64{"trusted.example": 0.95, "blog.example": 0.1}
	e := newTestEngine(t, cfg)

	high := item("high", "trusted.example", "Central bank raises rates", 5*time.Minute)
	low := item("low", "blog.example", "Central bank raises rates", 2*time.Minute)
	high.ClusterID, low.ClusterID = "rates", "rates"

	out := e.Rank("world", []types.Article{low, high})
	require.Len(t, out, 2)
	assert.Equal(t, "high", out[0].ID)
	assert.Greater(t, out[0].Score, out[1].Score)
}

func TestTrustFollowsSourceDomain(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trust = map[string]float64{"trusted.example": 0.95, "blog.example": 0.1}
	e := newTestEngine(t, cfg)

	high := item("high", "wire.example", "Central bank raises rates", 5*time.Minute)
	high.SourceDomain = "trusted.example"
	low := item("low", "wire.example", "Central bank holds rates", 5*time.Minute)
	low.SourceDomain = "blog.example"

	out := e.Rank("world", []types.Article{low, high})
	require.Len(t, out, 2)
	assert.Equal(t, "high", out[0].ID)
	assert.Greater(t, out[0].Score, out[1].Score)
	assert.Equal(t, "wire.example", out[0].Domain)
}

func TestCrossConfirmationBoostsTrust(t *testing.T) {
	cfg := DefaultConfig()
	assert.InDelta(t, 0.6, cfg.trust("unknown.example", false), 1e-9)
	assert.InDelta(t, 0.65, cfg.trust("unknown.example", true), 1e-9)

	cfg.Trust["low.example"] = 0.01
	cfg.Trust["high.example"] = 0.99
	assert.InDelta(t, 0.3, cfg.trust("low.example", false), 1e-9)
	assert.InDelta(t, 0.95, cfg.trust("high.example", false), 1e-9)
}

func TestFatiguePenalizesRecentlySurfacedClusters(t *testing.T) {
	now := rankNow
	cfg := DefaultConfig()
	e := newTestEngine(t, cfg, WithClock(func() time.Time { return now }))

	a := item("a", "a.example", "Story A", 10*time.Minute)
	first := e.Rank("world", []types.Article{a})[0].Score

	now = now.Add(10 * time.Minute)
	a.PublishedAt = a.PublishedAt.Add(10 * time.Minute) // same age as before
	second := e.Rank("world", []types.Article{a})[0].Score
	assert.InDelta(t, first-cfg.FatigueHigh, second, 1e-3)

	now = now.Add(60 * time.Minute)
	a.PublishedAt = a.PublishedAt.Add(60 * time.Minute)
	third := e.Rank("world", []types.Article{a})[0].Score
	assert.InDelta(t, first-cfg.FatigueLow, third, 1e-3)

	now = now.Add(3 * time.Hour)
	a.PublishedAt = a.PublishedAt.Add(3 * time.Hour)
	fourth := e.Rank("world", []types.Article{a})[0].Score
	assert.InDelta(t, first, fourth, 1e-3)
}

func TestFatigueStampsOnlyTopPortion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FatigueStampTop = 3
	e := newTestEngine(t, cfg)

	var batch []types.Article
	for i := 0; i < 8; i++ {
		batch = append(batch, item(fmt.Sprintf("i%d", i), fmt.Sprintf("d%d.example", i), fmt.Sprintf("Story %d", i), time.Duration(i)*time.Minute))
	}
	e.Rank("world", batch)
	assert.Equal(t, 3, e.fatigue.Len())
}

func TestFeedbackBiasIsClamped(t *testing.T) {
	cfg := DefaultConfig()
	e := newTestEngine(t, cfg)

	base := e.Recompute("world", []types.Article{item("a", "a.example", "Quiet story", time.Hour)})[0].Score

	for i := 0; i < 10; i++ {
		e.RecordFeedback(types.Feedback{Domain: "a.example", Delta: 0.05})
		e.RecordFeedback(types.Feedback{Topic: string(TopicGeneral), Delta: 0.05})
	}
	boosted := e.Recompute("world", []types.Article{item("a", "a.example", "Quiet story", time.Hour)})[0].Score
	assert.InDelta(t, base+cfg.FeedbackClamp, boosted, 1e-3)

	for i := 0; i < 10; i++ {
		e.RecordFeedback(types.Feedback{Domain: "a.example", Delta: -0.1})
		e.RecordFeedback(types.Feedback{Topic: string(TopicGeneral), Delta: -0.1})
	}
	lowered := e.Recompute("world", []types.Article{item("a", "a.example", "Quiet story", time.Hour)})[0].Score
	assert.InDelta(t, base-cfg.FeedbackClamp, lowered, 1e-3)
}

func TestDayOfWeekTopicAdjustments(t *testing.T) {
	cfg := DefaultConfig()
	weekday := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	saturday := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, cfg.DayTopicBoost, cfg.dayTopicAdjustment(TopicBusiness, weekday))
	assert.Zero(t, cfg.dayTopicAdjustment(TopicBusiness, saturday))
	assert.Equal(t, cfg.DayTopicBoost, cfg.dayTopicAdjustment(TopicEntertainment, saturday))
	assert.Equal(t, -cfg.SportsPenalty, cfg.dayTopicAdjustment(TopicSports, weekday))
	assert.Equal(t, -cfg.SportsPenalty, cfg.dayTopicAdjustment(TopicSports, saturday))
}

func TestExplorationBonus(t *testing.T) {
	cfg := DefaultConfig()
	e := newTestEngine(t, cfg, WithRandom(func() float64 { return 0 }))

	lead := item("lead", "lead.example", "Lead", 0)
	close1 := item("near", "lead.example", "Near", 0)
	rival := item("rival", "rival.example", "Rival", 0)
	lead.EngagementCount = 10
	close1.EngagementCount = 9
	rival.EngagementCount = 8

	// With the bonus always applied the unseen rival overtakes the second
	// item from the leading domain.
	out := e.Rank("world", []types.Article{lead, close1, rival})
	assert.Equal(t, []string{"lead", "rival", "near"}, []string{out[0].ID, out[1].ID, out[2].ID})

	noExplore := newTestEngine(t, cfg)
	out = noExplore.Rank("world", []types.Article{lead, close1, rival})
	assert.Equal(t, "near", out[1].ID)
}

func TestTags(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		title string
		age   float64
		want  []string
	}{
		{"Breaking: official results announced", 10, []string{"urgent", "important"}},
		{"Breaking: storm nears coast", 10, []string{"urgent", "hot"}},
		{"Stocks hit record high", 200, []string{"trending"}},
		{"Stocks hit record high", 500, []string{}},
		{"속보 대통령 발표", 300, []string{"urgent"}},
	}
	for _, c := range cases {
		a := types.Article{Title: c.title, AgeMinutes: c.age}
		assert.Equal(t, c.want, cfg.Tags(&a), c.title)
	}
}

func TestRecomputeKeepsEnrichmentAndChangesRatings(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	var cached []types.Article
	for i := 0; i < 10; i++ {
		a := item(fmt.Sprintf("a%d", i), fmt.Sprintf("d%d.example", i), fmt.Sprintf("Story %d", i), time.Duration(i*30)*time.Minute)
		a.Rating = 0 // produced under a retired rating baseline
		a.TranslatedTitle = fmt.Sprintf("번역 %d", i)
		a.SummaryPoints = []string{"one", "two"}
		cached = append([]types.Article{a}, cached...) // stored in reverse order
	}

	out := e.Recompute("world", cached)
	require.Len(t, out, 10)
	assert.NotEqual(t, cached[0].ID, out[0].ID)
	for i, a := range out {
		assert.NotZero(t, a.Rating, i)
		assert.Equal(t, "번역 "+a.ID[1:], a.TranslatedTitle)
		assert.Equal(t, []string{"one", "two"}, a.SummaryPoints)
	}
	assert.Equal(t, 0.0, cached[0].Rating, "input must not be mutated")
	assert.Zero(t, e.fatigue.Len(), "recompute must not stamp fatigue")
}

func TestReconfigure(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	bad := DefaultConfig()
	bad.Default.HalfLifeMinutes = 0
	assert.Error(t, e.Reconfigure(bad))
	assert.Equal(t, 180.0, e.Config().Default.HalfLifeMinutes)

	good := DefaultConfig()
	good.Default.TopK = 2
	good.FatigueCapacity = 8
	require.NoError(t, e.Reconfigure(good))

	batch := []types.Article{
		item("a", "a.example", "A", time.Minute),
		item("b", "b.example", "B", time.Minute),
		item("c", "c.example", "C", time.Minute),
	}
	assert.Len(t, e.Rank("world", batch), 2)
}

func TestFromCatalog(t *testing.T) {
	cat, err := config.LoadCatalog("")
	require.NoError(t, err)

	cfg, err := FromCatalog(cat)
	require.NoError(t, err)
	assert.Equal(t, 90.0, cfg.Profile("entertainment").HalfLifeMinutes)
	assert.Equal(t, cfg.Default, cfg.Profile("nope"))
	assert.Equal(t, 0.4, cfg.Trust["reddit.com"])
	assert.Equal(t, 0.15, cfg.ExploreChance)
}

func TestRankEmpty(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	out := e.Rank("world", nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestPreviewDoesNotStamp(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	batch := []types.Article{item("a", "a.example", "Story A", time.Minute)}

	first := e.Preview("world", batch)[0].Score
	assert.Zero(t, e.fatigue.Len())
	assert.Equal(t, first, e.Preview("world", batch)[0].Score)
	assert.Equal(t, first, e.Rank("world", batch)[0].Score)
	assert.Equal(t, 1, e.fatigue.Len())
}
