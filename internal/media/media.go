// Package media resolves link and media assets discovered during extraction
// to absolute URLs (spec §4.11).
package media

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/riptide-engine/riptide/internal/models"
	"github.com/riptide-engine/riptide/pkg/urlnorm"
)

// ExtractLinks gathers every outbound <a> link with its attributes (spec
// §4.5 postprocessing: "link extraction with attributes (rel, hreflang, text)").
func ExtractLinks(doc *goquery.Document, base *url.URL) []models.Link {
	var links []models.Link
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved := urlnorm.Resolve(base, href)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, models.Link{
			URL:      resolved,
			Text:     strings.TrimSpace(s.Text()),
			Rel:      attrOr(s, "rel", ""),
			HrefLang: attrOr(s, "hreflang", ""),
		})
	})
	return links
}

func attrOr(s *goquery.Selection, name, fallback string) string {
	if v, ok := s.Attr(name); ok {
		return v
	}
	return fallback
}

// srcsetPattern matches one "url W|Nx" candidate (spec §4.11).
var srcsetPattern = regexp.MustCompile(`\s*([^\s,]+)\s*(\d+[wx])?\s*,?`)

// ExtractMedia resolves every candidate media asset: img[src|srcset],
// picture source[srcset], video/audio[src] and nested source[src], Open
// Graph images, and icons/touch-icons (spec §4.11).
func ExtractMedia(doc *goquery.Document, base *url.URL) []models.Media {
	var out []models.Media
	seen := make(map[string]bool)
	add := func(raw string, kind models.MediaKind, rel string) {
		resolved := urlnorm.Resolve(base, raw)
		if resolved == "" {
			return
		}
		key := resolved + "|" + string(kind)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, models.Media{URL: resolved, Kind: kind, Rel: rel})
	}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			add(src, models.MediaImage, "")
		}
		if srcset, ok := s.Attr("srcset"); ok {
			for _, u := range parseSrcset(srcset) {
				add(u, models.MediaImage, "")
			}
		}
	})

	doc.Find("picture source").Each(func(_ int, s *goquery.Selection) {
		if srcset, ok := s.Attr("srcset"); ok {
			for _, u := range parseSrcset(srcset) {
				add(u, models.MediaImage, "")
			}
		}
	})

	doc.Find("video").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			add(src, models.MediaVideo, "")
		}
	})
	doc.Find("video source").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			add(src, models.MediaVideo, "")
		}
	})

	doc.Find("audio").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			add(src, models.MediaAudio, "")
		}
	})
	doc.Find("audio source").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			add(src, models.MediaAudio, "")
		}
	})

	doc.Find(`meta[property="og:image"]`).Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok {
			add(content, models.MediaOGImage, "")
		}
	})

	doc.Find(`link[rel="icon"], link[rel="shortcut icon"], link[rel="apple-touch-icon"]`).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			rel, _ := s.Attr("rel")
			add(href, models.MediaIcon, rel)
		}
	})

	return out
}

// parseSrcset parses the "url W|Nx" comma-separated syntax, returning just
// the URL candidates (descriptor values aren't currently consumed further).
func parseSrcset(srcset string) []string {
	var urls []string
	for _, part := range strings.Split(srcset, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		urls = append(urls, fields[0])
	}
	return urls
}

// parseDescriptor is unused by ExtractMedia directly today but documents the
// "Nx"/"Ww" descriptor shape for callers that need relative quality ranking.
func parseDescriptor(d string) (width int, density float64, ok bool) {
	d = strings.TrimSpace(d)
	if d == "" {
		return 0, 0, false
	}
	if strings.HasSuffix(d, "w") {
		if n, err := strconv.Atoi(strings.TrimSuffix(d, "w")); err == nil {
			return n, 0, true
		}
	}
	if strings.HasSuffix(d, "x") {
		if f, err := strconv.ParseFloat(strings.TrimSuffix(d, "x"), 64); err == nil {
			return 0, f, true
		}
	}
	return 0, 0, false
}
