package deduplication

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"emarknews/types"
)

// ContentHash normalizes the article's URL and title and returns a SHA-256 hex hash.
// - URL: lowercase scheme/host, drop fragment, drop utm_*, fbclid and gclid, trim trailing slash
// - Title: collapse whitespace and lowercase
// The result is sha256(normalizedURL + "|" + normalizedTitle)
func ContentHash(article *types.Article) string {
	combined := normalizeURL(article.Link) + "|" + normalizeTitle(article.Title)
	h := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(h[:])
}

func normalizeTitle(t string) string {
	return strings.Join(strings.Fields(strings.ToLower(t)), " ")
}

func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	return strings.TrimRight(u.String(), "/")
}
