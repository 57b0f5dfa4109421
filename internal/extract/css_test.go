package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const richArticleHTML = `<html lang="en"><head>
	<title>Fallback Title</title>
	<meta property="og:title" content="OG Title">
	<meta name="author" content="Jane Doe">
	<meta name="description" content="A rich article about testing.">
	<meta name="keywords" content="go, testing, extraction">
</head><body>
	<h1>Headline Title</h1>
	<time datetime="2026-01-02T00:00:00Z"></time>
	<article><p>This is the main article body with plenty of text content.</p></article>
</body></html>`

func TestCSSStrategy_PopulatesAllFieldsFromDefaultSelectors(t *testing.T) {
	c := NewCSSStrategy(nil)
	doc, err := c.Extract(context.Background(), []byte(richArticleHTML), "https://example.com/post")
	require.NoError(t, err)

	assert.Equal(t, "Headline Title", doc.Title)
	assert.Equal(t, "Jane Doe", doc.Byline)
	assert.Equal(t, "2026-01-02T00:00:00Z", doc.PublishedISO)
	assert.Contains(t, doc.Text, "main article body")
	assert.Equal(t, "css", doc.Strategy)
	assert.Equal(t, "en", doc.Language)
}

func TestCSSStrategy_ConfidenceReflectsPopulatedFieldWeights(t *testing.T) {
	c := NewCSSStrategy(nil)
	doc, err := c.Extract(context.Background(), []byte(richArticleHTML), "https://example.com/post")
	require.NoError(t, err)
	assert.Greater(t, doc.Confidence, 0.9)
}

func TestCSSStrategy_MissingFieldsLowerConfidence(t *testing.T) {
	c := NewCSSStrategy(nil)
	sparse := `<html><body><p>No structure here at all.</p></body></html>`
	doc, err := c.Extract(context.Background(), []byte(sparse), "https://example.com/post")
	require.NoError(t, err)
	assert.Equal(t, 0.0, doc.Confidence)
	assert.Empty(t, doc.Title)
}

func TestCSSStrategy_CustomSelectorsOverrideDefaults(t *testing.T) {
	custom := FieldSelectors{
		"title":       {".headline"},
		"content":     {".body"},
		"author":      {".byline"},
		"published":   {".date"},
		"description": {".desc"},
	}
	c := NewCSSStrategy(custom)
	html := `<html><body>
		<div class="headline">Custom Headline</div>
		<div class="body">Body text that is long enough to matter here.</div>
	</body></html>`
	doc, err := c.Extract(context.Background(), []byte(html), "https://example.com/post")
	require.NoError(t, err)
	assert.Equal(t, "Custom Headline", doc.Title)
	assert.Contains(t, doc.Text, "Body text")
}

func TestCSSStrategy_Name(t *testing.T) {
	assert.Equal(t, "css", NewCSSStrategy(nil).Name())
}

func TestCSSStrategy_MetaContentAttributeCountsTowardConfidence(t *testing.T) {
	html := `<html><head><meta name="description" content="attr value"></head><body></body></html>`
	c := NewCSSStrategy(nil)
	doc, err := c.Extract(context.Background(), []byte(html), "https://example.com/post")
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Confidence)
}
