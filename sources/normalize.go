package sources

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"emarknews/types"
)

const maxDescriptionRunes = 600

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// newArticle builds the canonical form of one upstream item.
func newArticle(d types.Descriptor, title, link, description string, published time.Time) types.Article {
	title = cleanText(title)
	description = truncateRunes(cleanText(description), maxDescriptionRunes)

	lang := d.Language
	if lang == "" {
		lang = DetectLanguage(title + " " + description)
	}

	link = strings.TrimSpace(link)
	domain, sourceDomain := d.Domain, ""
	if aggregator(d.Kind) {
		if host := publisherHost(link); host != "" && host != d.Domain {
			domain, sourceDomain = host, d.Domain
		}
	}

	return types.Article{
		ID:               types.ArticleID(d.Name, link),
		Title:            title,
		Link:             link,
		SourceName:       d.Name,
		Domain:           domain,
		SourceDomain:     sourceDomain,
		Description:      description,
		PublishedAt:      published.UTC(),
		Language:         lang,
		Tags:             []string{},
		NeedsTranslation: d.Translate,
	}
}

// aggregator reports whether a kind relays many publishers.
func aggregator(kind types.SourceKind) bool {
	return kind == types.KindNewsAPI || kind == types.KindReddit
}

// publisherHost is the lower-cased host of link without a leading "www.".
func publisherHost(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// cleanText strips markup and collapses whitespace.
func cleanText(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

// DetectLanguage guesses an ISO 639-1 code from the dominant script.
func DetectLanguage(text string) string {
	var hangul, kana, han, cyrillic, letters int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r):
			kana++
		case unicode.Is(unicode.Han, r):
			han++
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters == 0 {
		return ""
	}
	switch {
	case hangul*5 >= letters:
		return "ko"
	case kana > 0 && (kana+han)*5 >= letters:
		return "ja"
	case han*5 >= letters:
		return "zh"
	case cyrillic*2 >= letters:
		return "ru"
	default:
		return "en"
	}
}
