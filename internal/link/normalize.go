package link

import (
	"net/url"
	"strings"
)

// Normalize canonicalizes an article URL so the same page always dedupes to the same key.
// The fragment and an empty query are dropped and trailing slashes are trimmed from the path.
// Escaped slashes (%2F) are part of the path and stay. Anything that is not an absolute URL
// comes back untouched.
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}

	u.Fragment = ""
	u.RawFragment = ""

	if u.RawQuery == "" {
		u.ForceQuery = false
	}

	// Trimming works on the escaped form, where only literal slashes are "/".
	escaped := trimPath(u.EscapedPath())
	path, err := url.PathUnescape(escaped)
	if err != nil {
		return raw
	}
	u.Path = path
	u.RawPath = escaped

	return u.String()
}

func trimPath(path string) string {
	if trimmed := strings.TrimRight(path, "/"); trimmed != "" {
		return trimmed
	}
	return "/"
}
