package resolver

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	reCanonicalPath = regexp.MustCompile(`/video/\d+`)
	reNumericID     = regexp.MustCompile(`^\d{5,}$`)
)

// Query parameters that carry the numeric video id on share links.
var idParams = []string{"video_id", "item_id", "aweme_id"}

// NormalizeURL rewrites share and embed links to the canonical
// /video/<id> shape. Best effort: input that cannot be normalized is
// passed through unchanged, never rejected.
func NormalizeURL(raw string) string {
	if reCanonicalPath.MatchString(raw) {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	q := u.Query()
	for _, param := range idParams {
		if id := q.Get(param); reNumericID.MatchString(id) {
			return canonicalURL(id)
		}
	}

	for _, seg := range strings.Split(u.Path, "/") {
		if reNumericID.MatchString(seg) {
			return canonicalURL(seg)
		}
	}

	return raw
}

func canonicalURL(id string) string {
	return "https://www.tiktok.com/@_/video/" + id
}
