package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/riptide-engine/riptide/internal/lang"
	"github.com/riptide-engine/riptide/internal/media"
	"github.com/riptide-engine/riptide/internal/models"
)

// FieldSelectors maps a document field to an ordered list of CSS selectors
// tried in order until one matches (spec §4.5 CSS strategy).
type FieldSelectors map[string][]string

// DefaultSelectors matches spec §4.5's enumerated defaults.
func DefaultSelectors() FieldSelectors {
	return FieldSelectors{
		"title":       {"h1", `meta[property="og:title"]`, "title"},
		"author":      {`meta[name="author"]`, `[rel="author"]`, ".byline"},
		"published":   {"time[datetime]", `meta[property="article:published_time"]`},
		"content":     {"article", "main", ".content"},
		"description": {`meta[name="description"]`, `meta[property="og:description"]`},
	}
}

// fieldWeight weighs each field's contribution to CSS confidence; content
// and title matter most for article extraction.
var fieldWeight = map[string]float64{
	"title":       0.3,
	"content":     0.35,
	"author":      0.1,
	"published":   0.1,
	"description": 0.15,
}

// CSSStrategy applies a field->selector map, optionally user-supplied.
type CSSStrategy struct {
	Selectors FieldSelectors
}

func NewCSSStrategy(selectors FieldSelectors) *CSSStrategy {
	if selectors == nil {
		selectors = DefaultSelectors()
	}
	return &CSSStrategy{Selectors: selectors}
}

func (c *CSSStrategy) Name() string { return "css" }

func (c *CSSStrategy) Extract(ctx context.Context, html []byte, baseURL string) (models.ExtractedDocument, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return models.ExtractedDocument{}, fmt.Errorf("css strategy: parsing html: %w", err)
	}
	base, _ := url.Parse(baseURL)
	if base == nil {
		base = &url.URL{}
	}

	fields := make(map[string]string)
	var populated float64
	var totalWeight float64
	for field, selectors := range c.Selectors {
		totalWeight += fieldWeight[field]
		value := firstMatch(doc, selectors)
		if value != "" {
			fields[field] = value
			populated += fieldWeight[field]
		}
	}

	confidence := 0.0
	if totalWeight > 0 {
		confidence = populated / totalWeight
	}

	contentHTML, _ := doc.Find(strings.Join(c.Selectors["content"], ", ")).First().Html()
	markdown, _ := htmltomarkdown.ConvertString(contentHTML)

	result := models.ExtractedDocument{
		URL:        baseURL,
		Title:      fields["title"],
		Byline:     fields["author"],
		PublishedISO: fields["published"],
		Markdown:   markdown,
		Text:       doc.Find(strings.Join(c.Selectors["content"], ", ")).First().Text(),
		Links:      media.ExtractLinks(doc, base),
		Media:      media.ExtractMedia(doc, base),
		Language:   lang.Detect(doc),
		Categories: ExtractCategories(doc),
		Confidence: confidence,
		Strategy:   c.Name(),
	}
	return result, nil
}

func firstMatch(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		if content, ok := s.Attr("content"); ok && content != "" {
			return strings.TrimSpace(content)
		}
		if datetime, ok := s.Attr("datetime"); ok && datetime != "" {
			return strings.TrimSpace(datetime)
		}
		if href, ok := s.Attr("href"); ok && href != "" {
			return strings.TrimSpace(href)
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			return text
		}
	}
	return ""
}
