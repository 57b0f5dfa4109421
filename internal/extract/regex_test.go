package extract

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexStrategy_MatchesAllDefaultPatterns(t *testing.T) {
	html := `<html><head>
		<title>Regex Title</title>
		<meta name="author" content="Regex Author">
		<meta name="description" content="Regex description text.">
	</head><body>
		<time datetime="2026-03-04T00:00:00Z"></time>
	</body></html>`

	r := NewRegexStrategy(nil)
	doc, err := r.Extract(context.Background(), []byte(html), "https://example.com/post")
	require.NoError(t, err)
	assert.Equal(t, "Regex Title", doc.Title)
	assert.Equal(t, "Regex Author", doc.Byline)
	assert.Equal(t, "2026-03-04T00:00:00Z", doc.PublishedISO)
	assert.Equal(t, "regex", doc.Strategy)
}

func TestRegexStrategy_ConfidenceWeighsRequiredPatternsDouble(t *testing.T) {
	r := NewRegexStrategy(nil)
	titleOnly := `<html><head><title>Only Title</title></head><body></body></html>`
	doc, err := r.Extract(context.Background(), []byte(titleOnly), "https://example.com/post")
	require.NoError(t, err)
	// required (title) matched, 3 optional missed: weight = 2/(2+3) = 0.4
	assert.InDelta(t, 0.4, doc.Confidence, 0.001)
}

func TestRegexStrategy_MissingRequiredPatternReturnsError(t *testing.T) {
	r := NewRegexStrategy(nil)
	noTitle := `<html><body><p>No title tag anywhere in here.</p></body></html>`
	_, err := r.Extract(context.Background(), []byte(noTitle), "https://example.com/post")
	require.Error(t, err)
}

func TestRegexStrategy_StripsScriptAndStyleBeforeMatching(t *testing.T) {
	html := `<html><head><title>Real</title><script>var title = "<title>fake</title>";</script></head><body></body></html>`
	r := NewRegexStrategy(nil)
	doc, err := r.Extract(context.Background(), []byte(html), "https://example.com/post")
	require.NoError(t, err)
	assert.Equal(t, "Real", doc.Title)
}

func TestRegexStrategy_CustomPatternsOverrideDefaults(t *testing.T) {
	patterns := []NamedPattern{
		{Field: "title", Pattern: regexp.MustCompile(`(?is)<h1>(.*?)</h1>`), Required: true},
	}
	r := NewRegexStrategy(patterns)
	html := `<html><body><h1>Custom Heading</h1></body></html>`
	doc, err := r.Extract(context.Background(), []byte(html), "https://example.com/post")
	require.NoError(t, err)
	assert.Equal(t, "Custom Heading", doc.Title)
	assert.Equal(t, 1.0, doc.Confidence)
}

func TestRegexStrategy_Name(t *testing.T) {
	assert.Equal(t, "regex", NewRegexStrategy(nil).Name())
}

func TestDefaultPatterns_MarksTitleAsTheOnlyRequiredField(t *testing.T) {
	var requiredCount int
	for _, p := range DefaultPatterns() {
		if p.Required {
			requiredCount++
			assert.Equal(t, "title", p.Field)
		}
	}
	assert.Equal(t, 1, requiredCount)
}
