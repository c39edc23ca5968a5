package types

// SourceKind selects the adapter that understands a source's wire format.
type SourceKind string

const (
	KindRSS     SourceKind = "rss"
	KindNewsAPI SourceKind = "newsapi"
	KindReddit  SourceKind = "reddit"
)

// Descriptor names one external provider for one category.
type Descriptor struct {
	Name     string     `yaml:"name" json:"name"`
	Kind     SourceKind `yaml:"kind" json:"kind"`
	URL      string     `yaml:"url" json:"url"`
	Query    string     `yaml:"query,omitempty" json:"query,omitempty"`
	Domain   string     `yaml:"domain" json:"domain"`
	Language string     `yaml:"language,omitempty" json:"language,omitempty"`
	// Translate marks sources whose text should go through enrichment translation.
	Translate bool `yaml:"translate,omitempty" json:"translate,omitempty"`
	// Phase is 1 for the fast race and 2 for the background race.
	Phase int `yaml:"phase" json:"phase"`
}
