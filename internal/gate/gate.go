// Package gate implements the quality classifier that decides whether raw
// HTML is usable directly, needs a raw-then-escalate probe, or requires
// headless rendering (spec §4.1 step 5).
package gate

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/riptide-engine/riptide/internal/models"
)

// Thresholds parameterizes the raw/probes_first/headless boundaries.
type Thresholds struct {
	RawMinScore         float64
	ProbesFirstMinScore float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{RawMinScore: 0.6, ProbesFirstMinScore: 0.3}
}

// Signals are the raw-HTML features spec §4.1 names: "presence of article
// containers, text density, noscript content ratio, meta description
// presence".
type Signals struct {
	HasArticleContainer bool
	TextDensity         float64
	NoscriptRatio       float64
	HasMetaDescription  bool
}

// Inspect computes Signals from raw HTML without running the full
// extraction chain, so the gate stays cheap relative to the strategies it
// gatekeeps.
func Inspect(html []byte) Signals {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return Signals{}
	}

	hasArticle := doc.Find("article, main, .content, .post, [itemprop=\"articleBody\"]").Length() > 0

	bodyText := strings.TrimSpace(doc.Find("body").Text())
	bodyHTMLLen := len(html)
	textDensity := 0.0
	if bodyHTMLLen > 0 {
		textDensity = float64(len(bodyText)) / float64(bodyHTMLLen)
	}

	noscriptLen := 0
	doc.Find("noscript").Each(func(_ int, s *goquery.Selection) {
		noscriptLen += len(s.Text())
	})
	// bodyText already includes the noscript text; subtract it to get the
	// visible text length.
	visibleLen := len(bodyText) - noscriptLen
	if visibleLen < 0 {
		visibleLen = 0
	}
	noscriptRatio := 0.0
	if visibleLen > 0 {
		noscriptRatio = float64(noscriptLen) / float64(visibleLen+noscriptLen)
	} else if noscriptLen > 0 {
		noscriptRatio = 1.0
	}

	hasDescription := doc.Find(`meta[name="description"], meta[property="og:description"]`).Length() > 0

	return Signals{
		HasArticleContainer: hasArticle,
		TextDensity:         textDensity,
		NoscriptRatio:       noscriptRatio,
		HasMetaDescription:  hasDescription,
	}
}

// Score combines the signals into a single [0,1] quality estimate: article
// containers and a populated description are strong positive signals, a
// high noscript ratio (content only rendered via JS) is a strong negative
// one, and text density fills the remainder.
func (s Signals) Score() float64 {
	score := 0.0
	if s.HasArticleContainer {
		score += 0.35
	}
	if s.HasMetaDescription {
		score += 0.15
	}
	score += clamp(s.TextDensity*2, 0, 0.3) // dense HTML rarely exceeds ~0.15 density
	score -= clamp(s.NoscriptRatio, 0, 1) * 0.4
	return clamp(score, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Classify decides the gate decision per spec §4.1 step 5's three
// thresholds, given html's computed Signals.
func Classify(html []byte, thresholds Thresholds) (models.GateDecision, float64) {
	signals := Inspect(html)
	score := signals.Score()

	switch {
	case score >= thresholds.RawMinScore:
		return models.GateRaw, score
	case score >= thresholds.ProbesFirstMinScore:
		return models.GateProbesFirst, score
	default:
		return models.GateHeadless, score
	}
}
