package browserpool

import (
	"context"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/riptide-engine/riptide/internal/models"
)

// StealthPreset bundles the flags and script injections spec's glossary
// describes as reducing automation fingerprinting.
type StealthPreset struct {
	Name           string
	InjectScripts  []string
	ExtraHeaders   map[string]string
}

// NoStealth is the zero-value preset: no extra injection.
var NoStealth = StealthPreset{Name: "none"}

// DefaultStealth patches the common navigator.webdriver tell.
var DefaultStealth = StealthPreset{
	Name: "default",
	InjectScripts: []string{
		`Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`,
	},
}

// PageSession is the convenience session returned by WithPage: checking it
// out already opened a page with the requested stealth preset applied; its
// Close both closes the page and returns the underlying browser handle.
type PageSession struct {
	Page   *rod.Page
	handle *Handle
	once   sync.Once
}

// Close closes the page and releases the browser back to the pool. Safe to
// call multiple times or via defer on every exit path (spec §4.2 with_page).
func (s *PageSession) Close() {
	s.once.Do(func() {
		if s.Page != nil {
			_ = s.Page.Close()
		}
		s.handle.Release()
	})
}

// WithPage checks out a browser, opens a page at url, applies stealth, and
// returns a session. Callers must defer session.Close().
func (p *Pool) WithPage(ctx context.Context, url string, preset StealthPreset) (*PageSession, error) {
	handle, err := p.Checkout(ctx)
	if err != nil {
		return nil, err
	}

	page, err := handle.Browser().Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		handle.Release()
		return nil, models.Wrapf(models.KindBrowserUnavailable, err, "opening page")
	}

	for _, script := range preset.InjectScripts {
		if _, err := page.EvalOnNewDocument(script); err != nil {
			_ = page.Close()
			handle.Release()
			return nil, models.Wrapf(models.KindBrowserUnavailable, err, "applying stealth preset %q", preset.Name)
		}
	}

	handle.instance.mu.Lock()
	handle.instance.PagesCreated++
	handle.instance.mu.Unlock()

	return &PageSession{Page: page, handle: handle}, nil
}
