package ranking

import (
	"errors"
	"fmt"
	"time"

	"emarknews/config"
)

// Weights is one category's weight vector over the normalized signals.
type Weights struct {
	Freshness  float64
	Velocity   float64
	Engagement float64
	Trust      float64
	Urgency    float64
	Locale     float64
}

func (w Weights) sum() float64 {
	return w.Freshness + w.Velocity + w.Engagement + w.Trust + w.Urgency + w.Locale
}

// normalized scales the vector to sum to 1 so the weighted sum stays in [0,1].
func (w Weights) normalized() Weights {
	s := w.sum()
	if s <= 0 {
		return w
	}
	return Weights{
		Freshness:  w.Freshness / s,
		Velocity:   w.Velocity / s,
		Engagement: w.Engagement / s,
		Trust:      w.Trust / s,
		Urgency:    w.Urgency / s,
		Locale:     w.Locale / s,
	}
}

// Profile is the per-category part of the configuration.
type Profile struct {
	HalfLifeMinutes float64
	TopK            int
	Languages       []string
	Weights         Weights
}

func (p Profile) allowsLanguage(lang string) bool {
	for _, l := range p.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// RatingConfig maps a composite score onto the 1 to 5 display scale.
type RatingConfig struct {
	Baseline float64
	Midpoint float64
	Scale    float64
}

// Config is immutable once handed to an Engine; replace it with
// Engine.Reconfigure.
type Config struct {
	Profiles map[string]Profile
	Default  Profile

	Trust             map[string]float64
	DefaultTrust      float64
	MinTrust          float64
	MaxTrust          float64
	CrossConfirmBoost float64

	VelocityK         float64
	EngagementDamping float64

	Urgent        Keywords
	Important     Keywords
	Trend         Keywords
	Business      Keywords
	Entertainment Keywords
	Sports        Keywords

	DayTopicBoost float64
	SportsPenalty float64
	FeedbackClamp float64

	FatigueShort    time.Duration
	FatigueMedium   time.Duration
	FatigueHigh     float64
	FatigueLow      float64
	FatigueCapacity int
	FatigueStampTop int

	DomainThreshold  int
	ClusterThreshold int
	DiversityPenalty float64
	ExploreChance    float64
	ExploreBonus     float64

	HotMinutes      float64
	TrendingMinutes float64

	Rating RatingConfig
}

// DefaultConfig returns a complete configuration with a single generic profile.
func DefaultConfig() Config {
	return Config{
		Profiles: map[string]Profile{},
		Default: Profile{
			HalfLifeMinutes: 180,
			TopK:            30,
			Languages:       []string{"en", "ko"},
			Weights:         Weights{Freshness: 0.35, Velocity: 0.10, Engagement: 0.10, Trust: 0.30, Urgency: 0.10, Locale: 0.05},
		},
		Trust:             map[string]float64{},
		DefaultTrust:      0.6,
		MinTrust:          0.3,
		MaxTrust:          0.95,
		CrossConfirmBoost: 0.05,
		VelocityK:         50,
		EngagementDamping: 1000,

		Urgent:        NewKeywords("breaking", "urgent", "just in", "alert", "emergency", "evacuation", "속보", "긴급"),
		Important:     NewKeywords("exclusive", "official", "confirmed", "announces", "president", "election", "단독", "공식"),
		Trend:         NewKeywords("viral", "record", "surge", "soars", "trending", "first ever", "화제", "급등"),
		Business:      NewKeywords("market", "markets", "stocks", "economy", "earnings", "shares", "inflation", "bank", "경제", "증시", "주가"),
		Entertainment: NewKeywords("film", "movie", "music", "celebrity", "album", "drama", "k-pop", "연예", "드라마", "아이돌"),
		Sports:        NewKeywords("football", "soccer", "baseball", "nba", "league", "match", "olympic", "축구", "야구"),

		DayTopicBoost: 0.05,
		SportsPenalty: 0.05,
		FeedbackClamp: 0.1,

		FatigueShort:    30 * time.Minute,
		FatigueMedium:   120 * time.Minute,
		FatigueHigh:     0.3,
		FatigueLow:      0.1,
		FatigueCapacity: 2048,
		FatigueStampTop: 10,

		DomainThreshold:  2,
		ClusterThreshold: 2,
		// Larger than the whole composite range, so a penalized candidate
		// sorts below every unpenalized one.
		DiversityPenalty: 2.0,
		ExploreChance:    0.15,
		ExploreBonus:     0.05,

		HotMinutes:      60,
		TrendingMinutes: 360,

		Rating: RatingConfig{Baseline: 3.0, Midpoint: 0.5, Scale: 4.0},
	}
}

// Profile returns the profile for category, or the default one.
func (c *Config) Profile(category string) Profile {
	if p, ok := c.Profiles[category]; ok {
		return p
	}
	return c.Default
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	check := func(name string, p Profile) error {
		if p.HalfLifeMinutes <= 0 {
			return fmt.Errorf("profile %s: half-life must be positive", name)
		}
		if p.TopK <= 0 {
			return fmt.Errorf("profile %s: top-k must be positive", name)
		}
		if p.Weights.Freshness <= 0 || p.Weights.sum() <= 0 {
			return fmt.Errorf("profile %s: freshness weight must be positive", name)
		}
		return nil
	}
	if err := check("default", c.Default); err != nil {
		return err
	}
	for name, p := range c.Profiles {
		if err := check(name, p); err != nil {
			return err
		}
	}
	switch {
	case c.MinTrust > c.MaxTrust:
		return errors.New("trust bounds inverted")
	case c.VelocityK <= 0:
		return errors.New("velocity constant must be positive")
	case c.EngagementDamping < 0:
		return errors.New("engagement damping must not be negative")
	case c.ExploreChance < 0 || c.ExploreChance > 1:
		return errors.New("explore chance must be a probability")
	case c.DomainThreshold <= 0 || c.ClusterThreshold <= 0:
		return errors.New("diversity thresholds must be positive")
	case c.Rating.Scale <= 0:
		return errors.New("rating scale must be positive")
	case c.FatigueCapacity <= 0:
		return errors.New("fatigue capacity must be positive")
	}
	return nil
}

// FromCatalog overlays a catalog onto DefaultConfig. Zero values in the
// catalog keep the defaults.
func FromCatalog(cat config.Catalog) (Config, error) {
	c := DefaultConfig()

	for name, spec := range cat.Categories {
		p := c.Default
		p.HalfLifeMinutes = spec.HalfLifeMinutes
		if spec.TopK > 0 {
			p.TopK = spec.TopK
		}
		if len(spec.Languages) > 0 {
			p.Languages = append([]string(nil), spec.Languages...)
		}
		w := Weights(spec.Weights)
		if w.sum() > 0 {
			p.Weights = w
		}
		c.Profiles[name] = p
	}
	for domain, t := range cat.Trust {
		c.Trust[domain] = t
	}

	r := cat.Ranking
	setFloat(&c.DefaultTrust, r.DefaultTrust)
	setFloat(&c.CrossConfirmBoost, r.CrossConfirmBoost)
	setFloat(&c.VelocityK, r.VelocityK)
	setFloat(&c.EngagementDamping, r.EngagementDamping)
	setFloat(&c.DiversityPenalty, r.DiversityPenalty)
	setFloat(&c.ExploreChance, r.ExploreChance)
	setFloat(&c.ExploreBonus, r.ExploreBonus)
	setFloat(&c.Rating.Baseline, r.RatingBaseline)
	setFloat(&c.Rating.Midpoint, r.RatingMidpoint)
	setFloat(&c.Rating.Scale, r.RatingScale)
	setInt(&c.DomainThreshold, r.DomainThreshold)
	setInt(&c.ClusterThreshold, r.ClusterThreshold)
	setInt(&c.FatigueCapacity, r.FatigueCapacity)
	setInt(&c.FatigueStampTop, r.FatigueStampTop)
	setKeywords(&c.Urgent, r.UrgentKeywords)
	setKeywords(&c.Important, r.ImportantKeywords)
	setKeywords(&c.Trend, r.TrendKeywords)
	setKeywords(&c.Business, r.BusinessKeywords)
	setKeywords(&c.Entertainment, r.EntertainKeywords)
	setKeywords(&c.Sports, r.SportsKeywords)

	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("failed to build ranking config: %w", err)
	}
	return c, nil
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setKeywords(dst *Keywords, words []string) {
	if len(words) > 0 {
		*dst = NewKeywords(words...)
	}
}
