package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"emarknews/types"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var defaultCatalog []byte

// ErrInvalid marks a catalog that parsed but cannot be used.
var ErrInvalid = errors.New("invalid catalog")

type (
	// Catalog is the tunable data behind every category: sources, trust
	// table, weight vectors and ranking knobs.
	Catalog struct {
		Categories map[string]CategorySpec `yaml:"categories"`
		Trust      map[string]float64      `yaml:"trust"`
		Ranking    RankingSpec             `yaml:"ranking"`
	}

	CategorySpec struct {
		HalfLifeMinutes float64            `yaml:"half_life_minutes"`
		TopK            int                `yaml:"top_k"`
		Languages       []string           `yaml:"languages"`
		Weights         Weights            `yaml:"weights"`
		Sources         []types.Descriptor `yaml:"sources"`
	}

	Weights struct {
		Freshness  float64 `yaml:"freshness"`
		Velocity   float64 `yaml:"velocity"`
		Engagement float64 `yaml:"engagement"`
		Trust      float64 `yaml:"trust"`
		Urgency    float64 `yaml:"urgency"`
		Locale     float64 `yaml:"locale"`
	}

	// RankingSpec holds optional overrides. Zero values mean "use the default".
	RankingSpec struct {
		DefaultTrust      float64  `yaml:"default_trust"`
		CrossConfirmBoost float64  `yaml:"cross_confirm_boost"`
		VelocityK         float64  `yaml:"velocity_k"`
		EngagementDamping float64  `yaml:"engagement_damping"`
		UrgentKeywords    []string `yaml:"urgent_keywords"`
		ImportantKeywords []string `yaml:"important_keywords"`
		TrendKeywords     []string `yaml:"trend_keywords"`
		BusinessKeywords  []string `yaml:"business_keywords"`
		EntertainKeywords []string `yaml:"entertainment_keywords"`
		SportsKeywords    []string `yaml:"sports_keywords"`
		DomainThreshold   int      `yaml:"domain_threshold"`
		ClusterThreshold  int      `yaml:"cluster_threshold"`
		DiversityPenalty  float64  `yaml:"diversity_penalty"`
		ExploreChance     float64  `yaml:"explore_chance"`
		ExploreBonus      float64  `yaml:"explore_bonus"`
		RatingBaseline    float64  `yaml:"rating_baseline"`
		RatingMidpoint    float64  `yaml:"rating_midpoint"`
		RatingScale       float64  `yaml:"rating_scale"`
		FatigueCapacity   int      `yaml:"fatigue_capacity"`
		FatigueStampTop   int      `yaml:"fatigue_stamp_top"`
	}
)

// LoadCatalog reads the catalog at path, or the embedded default when
// path is empty.
func LoadCatalog(path string) (Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return Catalog{}, fmt.Errorf("failed to read catalog %s: %w", path, err)
		}
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates catalog YAML.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Validate checks the invariants the pipeline relies on.
func (c Catalog) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("%w: no categories", ErrInvalid)
	}
	for name, cat := range c.Categories {
		if cat.HalfLifeMinutes <= 0 {
			return fmt.Errorf("%w: category %s has no half-life", ErrInvalid, name)
		}
		for _, src := range cat.Sources {
			if src.URL == "" {
				return fmt.Errorf("%w: source %q in %s has no url", ErrInvalid, src.Name, name)
			}
			if src.Phase != 1 && src.Phase != 2 {
				return fmt.Errorf("%w: source %q in %s has phase %d", ErrInvalid, src.Name, name, src.Phase)
			}
		}
	}
	for domain, t := range c.Trust {
		if t < 0 || t > 1 {
			return fmt.Errorf("%w: trust for %s out of range", ErrInvalid, domain)
		}
	}
	return nil
}

// CategoryNames returns the configured categories in stable order.
func (c Catalog) CategoryNames() []string {
	names := make([]string, 0, len(c.Categories))
	for name := range c.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SourcesForPhase returns a category's sources for one race.
func (c Catalog) SourcesForPhase(category string, phase int) []types.Descriptor {
	var out []types.Descriptor
	for _, src := range c.Categories[category].Sources {
		if src.Phase == phase {
			out = append(out, src)
		}
	}
	return out
}
