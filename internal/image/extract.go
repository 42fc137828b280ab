package image

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// IsValidImageURL accepts absolute http(s) URLs that do not point at an SVG.
func IsValidImageURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return !strings.HasSuffix(strings.ToLower(u.Path), ".svg")
}

// ExtractFromHTML finds the most representative image in an HTML document or fragment.
// Candidates in priority order: og:image, twitter:image, JSON-LD image, link rel=image_src, first img.
// Relative URLs are resolved against baseURL. Returns "" when nothing usable is found.
func ExtractFromHTML(html, baseURL string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	base, _ := url.Parse(baseURL)

	check := func(candidate string) string {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			return ""
		}
		resolved := resolve(candidate, base)
		if !IsValidImageURL(resolved) {
			return ""
		}
		return resolved
	}

	if img := check(attr(doc, `meta[property="og:image"]`, "content")); img != "" {
		return img
	}

	twitter := attr(doc, `meta[name="twitter:image"]`, "content")
	if twitter == "" {
		twitter = attr(doc, `meta[property="twitter:image"]`, "content")
	}
	if img := check(twitter); img != "" {
		return img
	}

	var fromJSONLD string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, candidate := range jsonLDImages(s.Text()) {
			if img := check(candidate); img != "" {
				fromJSONLD = img
				return false
			}
		}
		return true
	})
	if fromJSONLD != "" {
		return fromJSONLD
	}

	if img := check(attr(doc, `link[rel="image_src"]`, "href")); img != "" {
		return img
	}

	var first string
	doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if img := check(src); img != "" {
			first = img
			return false
		}
		return true
	})

	return first
}

func attr(doc *goquery.Document, selector, name string) string {
	value, _ := doc.Find(selector).First().Attr(name)
	return value
}

func resolve(candidate string, base *url.URL) string {
	ref, err := url.Parse(candidate)
	if err != nil {
		return candidate
	}
	if base == nil || base.Host == "" {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// jsonLDImages lists image candidates from a JSON-LD block. The image property may be a
// string, an ImageObject with url, or an array of either; blocks may be arrays or use @graph.
func jsonLDImages(raw string) []string {
	var data any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &data); err != nil {
		return nil
	}

	var nodes []any
	switch v := data.(type) {
	case []any:
		nodes = v
	case map[string]any:
		nodes = []any{v}
		if graph, ok := v["@graph"].([]any); ok {
			nodes = append(nodes, graph...)
		}
	}

	var images []string
	for _, node := range nodes {
		obj, ok := node.(map[string]any)
		if !ok {
			continue
		}
		images = append(images, imageValues(obj["image"])...)
	}

	return images
}

func imageValues(v any) []string {
	switch image := v.(type) {
	case string:
		return []string{image}
	case map[string]any:
		if u, ok := image["url"].(string); ok {
			return []string{u}
		}
	case []any:
		var out []string
		for _, item := range image {
			out = append(out, imageValues(item)...)
		}
		return out
	}
	return nil
}
