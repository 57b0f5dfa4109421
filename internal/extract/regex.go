package extract

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/riptide-engine/riptide/internal/lang"
	"github.com/riptide-engine/riptide/internal/media"
	"github.com/riptide-engine/riptide/internal/models"
)

// NamedPattern is one field's regex against the raw HTML, with a flag for
// whether failing to match counts against confidence (spec §4.5: "patterns
// can be flagged required or optional").
type NamedPattern struct {
	Field    string
	Pattern  *regexp.Regexp
	Required bool
}

// stripTagsPattern matches script/style elements with their contents, which
// Extract removes before pattern matching so regexes don't pick up JS string
// literals or CSS (spec §4.5: "HTML is pre-stripped
// of script/style before matching").
var stripTagsPattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)

// DefaultPatterns covers the same fields as the CSS strategy, expressed as
// regexes for documents too malformed for goquery's parser to navigate
// reliably.
func DefaultPatterns() []NamedPattern {
	return []NamedPattern{
		{Field: "title", Pattern: regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`), Required: true},
		{Field: "author", Pattern: regexp.MustCompile(`(?is)<meta[^>]+name=["']author["'][^>]+content=["']([^"']+)["']`), Required: false},
		{Field: "published", Pattern: regexp.MustCompile(`(?is)<time[^>]+datetime=["']([^"']+)["']`), Required: false},
		{Field: "description", Pattern: regexp.MustCompile(`(?is)<meta[^>]+name=["']description["'][^>]+content=["']([^"']+)["']`), Required: false},
	}
}

// RegexStrategy is the pattern-matching fallback used when CSS selectors
// fail to find structure (spec §4.5).
type RegexStrategy struct {
	Patterns []NamedPattern
}

func NewRegexStrategy(patterns []NamedPattern) *RegexStrategy {
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	return &RegexStrategy{Patterns: patterns}
}

func (r *RegexStrategy) Name() string { return "regex" }

func (r *RegexStrategy) Extract(ctx context.Context, htmlBytes []byte, baseURL string) (models.ExtractedDocument, error) {
	stripped := stripTagsPattern.ReplaceAll(htmlBytes, nil)

	fields := make(map[string]string)
	var requiredTotal, requiredMatched int
	var optionalTotal, optionalMatched int
	for _, np := range r.Patterns {
		if np.Required {
			requiredTotal++
		} else {
			optionalTotal++
		}
		m := np.Pattern.FindSubmatch(stripped)
		if len(m) < 2 {
			continue
		}
		value := strings.TrimSpace(string(m[1]))
		if value == "" {
			continue
		}
		fields[np.Field] = value
		if np.Required {
			requiredMatched++
		} else {
			optionalMatched++
		}
	}

	if requiredTotal > 0 && requiredMatched == 0 {
		return models.ExtractedDocument{}, fmt.Errorf("regex strategy: no required pattern matched")
	}

	// Confidence weighs required matches twice as heavily as optional ones
	// (spec §4.5 confidence formula for the regex strategy).
	var confidence float64
	weightTotal := float64(requiredTotal*2 + optionalTotal)
	if weightTotal > 0 {
		confidence = float64(requiredMatched*2+optionalMatched) / weightTotal
	}

	base, _ := url.Parse(baseURL)
	if base == nil {
		base = &url.URL{}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(htmlBytes)))
	var links []models.Link
	var mediaAssets []models.Media
	var language string
	var text string
	var categories []string
	if err == nil {
		links = media.ExtractLinks(doc, base)
		mediaAssets = media.ExtractMedia(doc, base)
		language = lang.Detect(doc)
		text = doc.Find("body").Text()
		categories = ExtractCategories(doc)
	}
	markdown, _ := htmltomarkdown.ConvertString(string(stripped))

	return models.ExtractedDocument{
		URL:          baseURL,
		Title:        fields["title"],
		Byline:       fields["author"],
		PublishedISO: fields["published"],
		Markdown:     markdown,
		Text:         text,
		Links:        links,
		Media:        mediaAssets,
		Language:     language,
		Categories:   categories,
		Confidence:   confidence,
		Strategy:     r.Name(),
	}, nil
}
