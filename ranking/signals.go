package ranking

import (
	"math"
	"time"

	"emarknews/types"
)

// Topic is the coarse subject used for day-of-week boosts and feedback.
type Topic string

const (
	TopicGeneral       Topic = "general"
	TopicBusiness      Topic = "business"
	TopicEntertainment Topic = "entertainment"
	TopicSports        Topic = "sports"
)

// Signals are the normalized inputs of the composite score.
type Signals struct {
	Freshness   float64
	Velocity    float64
	Engagement  float64
	Trust       float64
	Urgency     float64
	LocaleMatch float64
}

func freshness(ageMinutes, halfLife float64) float64 {
	return math.Exp(-math.Max(ageMinutes, 0) / halfLife)
}

func velocity(engagement int64, ageMinutes, k float64) float64 {
	hours := math.Max(1, ageMinutes/60)
	return clamp01(float64(engagement) / hours / k)
}

func engagementRatio(engagement, followers int64, damping float64) float64 {
	denom := float64(followers) + damping
	if denom <= 0 {
		return 0
	}
	return clamp01(float64(engagement) / denom)
}

func (c *Config) trust(domain string, crossConfirmed bool) float64 {
	t, ok := c.Trust[domain]
	if !ok {
		t = c.DefaultTrust
	}
	t = math.Min(math.Max(t, c.MinTrust), c.MaxTrust)
	if crossConfirmed {
		t += c.CrossConfirmBoost
	}
	return clamp01(t)
}

func (c *Config) topic(a *types.Article) Topic {
	text := a.Title + " " + a.Description
	switch {
	case c.Sports.Match(text):
		return TopicSports
	case c.Business.Match(text):
		return TopicBusiness
	case c.Entertainment.Match(text):
		return TopicEntertainment
	default:
		return TopicGeneral
	}
}

// dayTopicAdjustment boosts business on weekdays, entertainment on
// weekends and always penalizes sports.
func (c *Config) dayTopicAdjustment(topic Topic, now time.Time) float64 {
	weekend := now.Weekday() == time.Saturday || now.Weekday() == time.Sunday
	switch {
	case topic == TopicSports:
		return -c.SportsPenalty
	case topic == TopicBusiness && !weekend:
		return c.DayTopicBoost
	case topic == TopicEntertainment && weekend:
		return c.DayTopicBoost
	}
	return 0
}

// projectRating maps a composite score onto [1,5] in half steps.
func (r RatingConfig) project(score float64) float64 {
	raw := r.Baseline + (score-r.Midpoint)*r.Scale
	if math.IsNaN(raw) {
		return 1
	}
	return math.Min(5, math.Max(1, math.Round(raw*2)/2))
}

// Tags derives at most two display tags from text and age alone.
func (c *Config) Tags(a *types.Article) []string {
	text := a.Title + " " + a.Description
	tags := make([]string, 0, 2)
	add := func(tag string, ok bool) {
		if ok && len(tags) < 2 {
			tags = append(tags, tag)
		}
	}
	add("urgent", c.Urgent.Match(text))
	add("important", c.Important.Match(text))
	add("hot", a.AgeMinutes <= c.HotMinutes)
	add("trending", a.AgeMinutes <= c.TrendingMinutes && c.Trend.Match(text))
	return tags
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func clamp(v, lim float64) float64 {
	return math.Min(lim, math.Max(-lim, v))
}
