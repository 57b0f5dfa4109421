package lang

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestDetect_PrefersHTMLLangAttribute(t *testing.T) {
	doc := parse(t, `<html lang="fr-CA"><head><meta property="og:locale" content="en_US"></head><body></body></html>`)
	assert.Equal(t, "fr", Detect(doc))
}

func TestDetect_FallsBackToOGLocale(t *testing.T) {
	doc := parse(t, `<html><head><meta property="og:locale" content="de_DE"></head><body></body></html>`)
	assert.Equal(t, "de", Detect(doc))
}

func TestDetect_FallsBackToJSONLDInLanguage(t *testing.T) {
	doc := parse(t, `<html><head><script type="application/ld+json">{"inLanguage": "es"}</script></head><body></body></html>`)
	assert.Equal(t, "es", Detect(doc))
}

func TestDetect_FallsBackToContentLanguageMeta(t *testing.T) {
	doc := parse(t, `<html><head><meta http-equiv="Content-Language" content="it"></head><body></body></html>`)
	assert.Equal(t, "it", Detect(doc))
}

func TestDetect_FallsBackToTextDetectionWhenNoSignals(t *testing.T) {
	doc := parse(t, `<html><body><p>Hello there, this is plain English text content.</p></body></html>`)
	assert.Equal(t, "en", Detect(doc))
}

func TestNormalize_LowercasesAndStripsRegionSubtag(t *testing.T) {
	assert.Equal(t, "en", Normalize("EN-US"))
	assert.Equal(t, "pt", Normalize("pt_BR"))
	assert.Equal(t, "fr", Normalize(" fr "))
}

func TestDetectFromText_EmptySampleReturnsEmpty(t *testing.T) {
	doc := parse(t, `<html><body></body></html>`)
	assert.Equal(t, "", Detect(doc))
}

func TestDetectFromText_DetectsCyrillicScript(t *testing.T) {
	doc := parse(t, `<html><body><p>Привет, это русский текст для примера обнаружения языка.</p></body></html>`)
	assert.Equal(t, "ru", Detect(doc))
}

func TestDetectFromText_DetectsHanScript(t *testing.T) {
	doc := parse(t, `<html><body><p>你好，这是一个中文文本示例，用于语言检测测试。</p></body></html>`)
	assert.Equal(t, "zh", Detect(doc))
}
