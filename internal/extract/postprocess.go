package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractCategories gathers topical tags from JSON-LD articleSection/keywords,
// BreadcrumbList schemas, and the keywords/section meta tags (spec §4.5:
// "category extraction from JSON-LD articleSection/keywords, breadcrumb
// schemas, and meta tags").
func ExtractCategories(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	var categories []string
	add := func(raw string) {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			categories = append(categories, part)
		}
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		for _, key := range []string{`"articleSection"`, `"keywords"`} {
			if idx := strings.Index(text, key); idx >= 0 {
				if value := jsonStringValueAfter(text, idx+len(key)); value != "" {
					add(value)
				}
			}
		}
		if strings.Contains(text, `"BreadcrumbList"`) {
			for _, name := range jsonListItemNames(text) {
				add(name)
			}
		}
	})

	doc.Find(`meta[name="keywords"]`).Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok {
			add(content)
		}
	})
	doc.Find(`meta[property="article:section"]`).Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok {
			add(content)
		}
	})
	doc.Find(`nav.breadcrumb a, .breadcrumbs a, [itemtype*="BreadcrumbList"] [itemprop="name"]`).Each(func(_ int, s *goquery.Selection) {
		add(strings.TrimSpace(s.Text()))
	})

	return categories
}

// jsonStringValueAfter extracts the string or array-of-strings value that
// follows a `"key":` occurrence at byte offset idx in a JSON-LD blob,
// without a full JSON parse (the surrounding document is frequently
// malformed enough that encoding/json rejects it outright).
func jsonStringValueAfter(text string, idx int) string {
	rest := text[idx:]
	colon := strings.Index(rest, ":")
	if colon < 0 {
		return ""
	}
	rest = strings.TrimSpace(rest[colon+1:])
	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return ""
		}
		inner := rest[1:end]
		inner = strings.ReplaceAll(inner, `"`, "")
		return inner
	}
	if strings.HasPrefix(rest, `"`) {
		rest = rest[1:]
		end := strings.Index(rest, `"`)
		if end < 0 {
			return ""
		}
		return rest[:end]
	}
	end := strings.IndexAny(rest, `,}`)
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// jsonListItemNames pulls "name" values out of a BreadcrumbList's itemListElement
// array using the same lightweight scan as jsonStringValueAfter.
func jsonListItemNames(text string) []string {
	var names []string
	const key = `"name"`
	offset := 0
	for {
		idx := strings.Index(text[offset:], key)
		if idx < 0 {
			break
		}
		abs := offset + idx
		if value := jsonStringValueAfter(text, abs+len(key)); value != "" {
			names = append(names, value)
		}
		offset = abs + len(key)
	}
	return names
}
