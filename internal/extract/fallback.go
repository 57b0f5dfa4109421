package extract

import (
	"context"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/riptide-engine/riptide/internal/lang"
	"github.com/riptide-engine/riptide/internal/media"
	"github.com/riptide-engine/riptide/internal/models"
)

// unwantedTags are stripped before scoring candidate content blocks; none of
// these ever hold article prose (spec §4.5 native fallback).
var unwantedTags = []string{"script", "style", "nav", "header", "footer", "aside", "form", "noscript"}

// FallbackStrategy is the pure-Go, dependency-free last resort used when
// the sandboxed extractor is unavailable and neither CSS nor regex reached
// acceptable confidence (spec §4.3, §4.5). It scores block-level elements by
// text density (text length vs. tag count) and keeps the densest one, the
// same approach readability-style extractors use, implemented directly here
// since no pack library offers it (see DESIGN.md).
type FallbackStrategy struct{}

func NewFallbackStrategy() *FallbackStrategy { return &FallbackStrategy{} }

func (f *FallbackStrategy) Name() string { return "fallback" }

func (f *FallbackStrategy) Extract(ctx context.Context, htmlBytes []byte, baseURL string) (models.ExtractedDocument, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(htmlBytes)))
	if err != nil {
		return models.ExtractedDocument{}, err
	}
	for _, tag := range unwantedTags {
		doc.Find(tag).Remove()
	}

	base, _ := url.Parse(baseURL)
	if base == nil {
		base = &url.URL{}
	}

	best := doc.Selection
	bestScore := -1.0
	doc.Find("div, article, section, main, td").Each(func(_ int, s *goquery.Selection) {
		score := densityScore(s)
		if score > bestScore {
			bestScore = score
			best = s
		}
	})

	text := strings.TrimSpace(best.Text())
	contentHTML, _ := best.Html()
	markdown, _ := htmltomarkdown.ConvertString(contentHTML)

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	confidence := confidenceFromText(text)

	return models.ExtractedDocument{
		URL:        baseURL,
		Title:      title,
		Markdown:   markdown,
		Text:       text,
		Links:      media.ExtractLinks(doc, base),
		Media:      media.ExtractMedia(doc, base),
		Language:   lang.Detect(doc),
		Categories: ExtractCategories(doc),
		Confidence: confidence,
		Strategy:   f.Name(),
	}, nil
}

// densityScore approximates readability's "text-to-markup ratio" by
// dividing the selection's text length by the number of direct child
// elements plus one, then adding 50 per descendant <p>, so a div full of
// nested nav links scores low and a div full of unbroken prose scores high.
func densityScore(s *goquery.Selection) float64 {
	text := strings.TrimSpace(s.Text())
	if len(text) < 100 {
		return 0
	}
	childCount := s.Children().Length() + 1
	paragraphBonus := float64(s.Find("p").Length()) * 50
	return float64(len(text))/float64(childCount) + paragraphBonus
}

// confidenceFromText scales with sample length since the fallback has no
// structural signal to lean on, capping out at 0.6 so a better strategy
// earlier in the chain is always preferred when it clears the threshold.
func confidenceFromText(text string) float64 {
	n := len(text)
	switch {
	case n == 0:
		return 0
	case n < 200:
		return 0.2
	case n < 500:
		return 0.4
	default:
		return 0.6
	}
}
