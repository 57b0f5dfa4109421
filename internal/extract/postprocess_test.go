package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractCategories_FromKeywordsMetaTag(t *testing.T) {
	doc := parseDoc(t, `<html><head><meta name="keywords" content="go, testing, web"></head><body></body></html>`)
	categories := ExtractCategories(doc)
	assert.Equal(t, []string{"go", "testing", "web"}, categories)
}

func TestExtractCategories_FromArticleSectionMetaTag(t *testing.T) {
	doc := parseDoc(t, `<html><head><meta property="article:section" content="Technology"></head><body></body></html>`)
	categories := ExtractCategories(doc)
	assert.Contains(t, categories, "Technology")
}

func TestExtractCategories_FromBreadcrumbNavLinks(t *testing.T) {
	doc := parseDoc(t, `<html><body><nav class="breadcrumb"><a>Home</a><a>Section</a></nav></body></html>`)
	categories := ExtractCategories(doc)
	assert.Equal(t, []string{"Home", "Section"}, categories)
}

func TestExtractCategories_FromJSONLDKeywords(t *testing.T) {
	doc := parseDoc(t, `<html><head><script type="application/ld+json">{"keywords": "alpha, beta"}</script></head><body></body></html>`)
	categories := ExtractCategories(doc)
	assert.Equal(t, []string{"alpha", "beta"}, categories)
}

func TestExtractCategories_FromJSONLDBreadcrumbList(t *testing.T) {
	doc := parseDoc(t, `<html><head><script type="application/ld+json">
		{"@type": "BreadcrumbList", "itemListElement": [{"name": "Home"}, {"name": "News"}]}
	</script></head><body></body></html>`)
	categories := ExtractCategories(doc)
	assert.Equal(t, []string{"Home", "News"}, categories)
}

func TestExtractCategories_DedupesAcrossSources(t *testing.T) {
	doc := parseDoc(t, `<html><head>
		<meta name="keywords" content="go">
		<meta property="article:section" content="go">
	</head><body></body></html>`)
	categories := ExtractCategories(doc)
	assert.Equal(t, []string{"go"}, categories)
}

func TestExtractCategories_NoSignalsReturnsEmpty(t *testing.T) {
	doc := parseDoc(t, `<html><body><p>No category signals here.</p></body></html>`)
	assert.Empty(t, ExtractCategories(doc))
}

func TestJSONStringValueAfter_ParsesArrayValue(t *testing.T) {
	text := `"keywords": ["a", "b"]`
	value := jsonStringValueAfter(text, len(`"keywords"`))
	assert.Equal(t, "a, b", value)
}

func TestJSONStringValueAfter_ParsesPlainStringValue(t *testing.T) {
	text := `"inLanguage": "en"`
	value := jsonStringValueAfter(text, len(`"inLanguage"`))
	assert.Equal(t, "en", value)
}

func TestJSONStringValueAfter_MissingColonReturnsEmpty(t *testing.T) {
	value := jsonStringValueAfter("no colon here", 5)
	assert.Equal(t, "", value)
}
