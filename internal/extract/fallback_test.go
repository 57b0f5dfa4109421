package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFallbackTestDoc(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func TestFallbackStrategy_PicksDensestBlockAsContent(t *testing.T) {
	html := `<html><head><title>Page Title</title></head><body>
		<nav><a href="/1">one</a><a href="/2">two</a><a href="/3">three</a></nav>
		<article>` + strings.Repeat("Long form prose sentence. ", 30) + `</article>
	</body></html>`

	f := NewFallbackStrategy()
	doc, err := f.Extract(context.Background(), []byte(html), "https://example.com/post")
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Long form prose")
	assert.Equal(t, "Page Title", doc.Title)
	assert.Equal(t, "fallback", doc.Strategy)
}

func TestFallbackStrategy_FallsBackToH1WhenNoTitleTag(t *testing.T) {
	html := `<html><body><h1>Heading Only</h1><article>` + strings.Repeat("text ", 50) + `</article></body></html>`
	f := NewFallbackStrategy()
	doc, err := f.Extract(context.Background(), []byte(html), "https://example.com/post")
	require.NoError(t, err)
	assert.Equal(t, "Heading Only", doc.Title)
}

func TestFallbackStrategy_StripsUnwantedTagsBeforeScoring(t *testing.T) {
	html := `<html><body>
		<footer>` + strings.Repeat("footer noise ", 50) + `</footer>
		<main>` + strings.Repeat("real article prose " , 50) + `</main>
	</body></html>`
	f := NewFallbackStrategy()
	doc, err := f.Extract(context.Background(), []byte(html), "https://example.com/post")
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "real article prose")
	assert.NotContains(t, doc.Text, "footer noise")
}

func TestFallbackStrategy_ConfidenceScalesWithSampleLength(t *testing.T) {
	f := NewFallbackStrategy()

	short := `<html><body><div>` + strings.Repeat("x", 150) + `</div></body></html>`
	doc, err := f.Extract(context.Background(), []byte(short), "https://example.com/post")
	require.NoError(t, err)
	assert.Equal(t, 0.2, doc.Confidence)

	long := `<html><body><div>` + strings.Repeat("x", 600) + `</div></body></html>`
	doc, err = f.Extract(context.Background(), []byte(long), "https://example.com/post")
	require.NoError(t, err)
	assert.Equal(t, 0.6, doc.Confidence)
}

func TestFallbackStrategy_EmptyDocumentHasZeroConfidence(t *testing.T) {
	f := NewFallbackStrategy()
	doc, err := f.Extract(context.Background(), []byte(`<html><body></body></html>`), "https://example.com/post")
	require.NoError(t, err)
	assert.Equal(t, 0.0, doc.Confidence)
}

func TestFallbackStrategy_Name(t *testing.T) {
	assert.Equal(t, "fallback", NewFallbackStrategy().Name())
}

func TestDensityScore_ShortTextScoresZero(t *testing.T) {
	doc, err := newFallbackTestDoc(`<div>too short</div>`)
	require.NoError(t, err)
	s := doc.Find("div").First()
	assert.Equal(t, 0.0, densityScore(s))
}

func TestDensityScore_ParagraphsAddBonus(t *testing.T) {
	withP, err := newFallbackTestDoc(`<div><p>` + strings.Repeat("word ", 30) + `</p></div>`)
	require.NoError(t, err)
	withoutP, err := newFallbackTestDoc(`<div>` + strings.Repeat("word ", 30) + `</div>`)
	require.NoError(t, err)

	scoreWithP := densityScore(withP.Find("div").First())
	scoreWithoutP := densityScore(withoutP.Find("div").First())
	assert.Greater(t, scoreWithP, scoreWithoutP)
}
