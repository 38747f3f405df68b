package search

import (
	"context"
	"runtime/debug"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"pagefind/internal/dom"
)

// Dispatcher routes a classified query to its strategy. Strategy failures
// never escape: they are logged and produce an empty result.
type Dispatcher struct {
	Engine      SelectorEngine
	Aria        AriaBinding
	AriaMatcher AriaMatcher
	Config      Config
	Logger      *zerolog.Logger
}

// Run executes the strategy for c against the body of doc.
func (d *Dispatcher) Run(ctx context.Context, doc *dom.Document, c Classification) (matches []*html.Node) {
	defer func() {
		if r := recover(); r != nil {
			d.Logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Str("mode", c.Mode.String()).
				Msg("search strategy panicked")
			matches = nil
		}
	}()

	switch c.Mode {
	case ModeLocator:
		return d.locator(doc, c.Query)
	case ModeAria:
		return d.aria(ctx, doc, c.Query)
	case ModeText:
		return d.text(doc, c.Query)
	default:
		if found := d.locator(doc, c.Query); len(found) > 0 {
			return found
		}
		return d.text(doc, c.Query)
	}
}

// selectorFor turns locator code into a selector, or passes the query
// through as a selector when it is not locator code.
func (d *Dispatcher) selectorFor(query string) string {
	selector, err := d.Engine.LocatorSyntaxToSelector(d.Config.Language, query, d.Config.TestIDAttribute)
	if err != nil {
		return query
	}
	return selector
}

func (d *Dispatcher) locator(doc *dom.Document, query string) []*html.Node {
	if d.Engine == nil {
		return nil
	}
	selector := d.selectorFor(query)
	sel, err := d.Engine.Parse(selector)
	if err != nil {
		d.Logger.Debug().Err(err).Str("selector", selector).Msg("selector did not parse")
		return nil
	}
	var found []*html.Node
	doc.Read(func(root *html.Node) {
		if body := dom.Body(root); body != nil {
			found = d.Engine.Query(sel, body)
		}
	})
	return found
}

func (d *Dispatcher) aria(ctx context.Context, doc *dom.Document, query string) []*html.Node {
	if d.Aria == nil || d.AriaMatcher == nil {
		return nil
	}
	res, err := d.Aria.ParseAriaTemplate(ctx, query)
	if err != nil {
		d.Logger.Debug().Err(err).Msg("aria binding failed")
		return nil
	}
	if res.Error != "" || res.Fragment == nil {
		d.Logger.Debug().Str("error", res.Error).Msg("aria template rejected")
		return nil
	}
	var found []*html.Node
	doc.Read(func(root *html.Node) {
		if body := dom.Body(root); body != nil {
			found = d.AriaMatcher.MatchAll(body, res.Fragment)
		}
	})
	return found
}

// text runs with a fresh matcher so concurrent invocations never share a
// cache.
func (d *Dispatcher) text(doc *dom.Document, query string) []*html.Node {
	var found []*html.Node
	doc.Read(func(root *html.Node) {
		if body := dom.Body(root); body != nil {
			found = NewTextMatcher().Match(body, query)
		}
	})
	return found
}
