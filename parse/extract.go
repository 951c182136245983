package parse

import (
	"bytes"
	"context"
	"net/url"

	"github.com/Ezekail/rostercrawl/collect"
	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Extractor turns a roster page into faculty records.
type Extractor struct {
	fetcher collect.Fetcher // profile pages
	logger  *zap.Logger
}

func NewExtractor(fetcher collect.Fetcher, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{fetcher: fetcher, logger: logger}
}

// extraction is the state of a single Extract call.
type extraction struct {
	ctx         context.Context
	doc         *goquery.Document
	base        *url.URL
	institution string
	page        int
	fetcher     collect.Fetcher
	logger      *zap.Logger
	seen        map[*html.Node]bool
	result      Result
}

// Extract applies rule to doc, which was fetched from pageURL. Matches that
// cannot be resolved to a name end up in Result.Skipped. The returned error is
// only set for an unusable page URL or a cancelled context.
func (e *Extractor) Extract(ctx context.Context, doc *goquery.Document, pageURL string, rule Rule, institution string, page int) (*Result, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, eris.Wrapf(err, "parse page url %q", pageURL)
	}

	x := &extraction{
		ctx:         ctx,
		doc:         doc,
		base:        base,
		institution: institution,
		page:        page,
		fetcher:     e.fetcher,
		logger:      e.logger.With(zap.String("institution", institution), zap.Int("page", page)),
		seen:        make(map[*html.Node]bool),
	}
	if err := rule.apply(x); err != nil {
		return nil, err
	}

	x.result.Next = rule.Pagination().NextURL(doc, base)
	if x.result.Next != "" {
		x.logger.Info("next page", zap.String("url", x.result.Next))
	} else {
		x.logger.Info("reached last page")
	}
	x.logger.Debug("junior faculty", zap.Strings("names", Names(x.result.Records)))
	return &x.result, nil
}

func (x *extraction) add(src *html.Node, name string) {
	if x.seen[src] {
		return
	}
	x.seen[src] = true

	name = normalize(name)
	if !validName(name) {
		x.skip(name, "name filtered", nil)
		return
	}
	x.result.Records = append(x.result.Records, FacultyRecord{
		Institution: x.institution,
		Name:        name,
		Page:        x.page,
	})
}

func (x *extraction) skip(match, reason string, err error) {
	pe := &ParseError{
		Institution: x.institution,
		Page:        x.page,
		Match:       normalize(match),
		Reason:      reason,
		Err:         err,
	}
	x.logger.Debug("skipped match", zap.Error(pe))
	x.result.Skipped = append(x.result.Skipped, pe)
}

// matches returns the title text nodes within scope. If within is set, only
// text under an element it matches is kept.
func (x *extraction) matches(scope string, within func(*html.Node) bool) (roots []*html.Node, texts [][]*html.Node) {
	for _, root := range x.doc.Find(scopeOf(scope)).Nodes {
		var hits []*html.Node
		for _, t := range textNodes(root) {
			if !MatchTitle(t.Data) {
				continue
			}
			if within != nil && !insideMatch(t, root, within) {
				continue
			}
			hits = append(hits, t)
		}
		roots = append(roots, root)
		texts = append(texts, hits)
	}
	return roots, texts
}

func insideMatch(n, root *html.Node, match func(*html.Node) bool) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && match(p) {
			return true
		}
		if p == root {
			break
		}
	}
	return false
}

func (r HeadingRule) apply(x *extraction) error {
	var within func(*html.Node) bool
	if r.MatchTag != nil {
		within = r.MatchTag.Match
	}
	tag := r.tag()
	roots, texts := x.matches(r.Scope, within)
	for i, root := range roots {
		for _, t := range texts[i] {
			h := preceding(t, root, func(n *html.Node) bool { return tag.MatchString(n.Data) })
			if h == nil {
				x.skip(t.Data, "no heading before title", nil)
				continue
			}
			x.add(h, textOf(h))
		}
	}
	return nil
}

func (r AnchorRule) apply(x *extraction) error {
	roots, texts := x.matches(r.Scope, nil)
	for i, root := range roots {
		for _, t := range texts[i] {
			a := preceding(t, root, tagMatcher("a"))
			if a == nil {
				x.skip(t.Data, "no link before title", nil)
				continue
			}
			x.add(a, textOf(a))
		}
	}
	return nil
}

func (r TableRule) apply(x *extraction) error {
	_, texts := x.matches(r.Scope, nil)
	for _, hits := range texts {
		for _, t := range hits {
			tr := ancestor(t, "tr")
			if tr == nil {
				x.skip(t.Data, "title outside table row", nil)
				continue
			}
			cells := childElements(tr, "td")
			if r.Column < 0 || r.Column >= len(cells) {
				x.skip(t.Data, "row has no name column", nil)
				continue
			}
			cell := cells[r.Column]
			if r.Anchor {
				a := firstElement(cell, "a")
				if a == nil {
					x.skip(t.Data, "name cell has no link", nil)
					continue
				}
				cell = a
			}
			x.add(cell, textOf(cell))
		}
	}
	return nil
}

func (r ProfileRule) apply(x *extraction) error {
	base := x.base
	if r.BaseURL != "" {
		u, err := url.Parse(r.BaseURL)
		if err != nil {
			return eris.Wrapf(err, "parse profile base url %q", r.BaseURL)
		}
		base = u
	}

	var links []*goquery.Selection
	x.doc.Find(r.Listing).Each(func(_ int, s *goquery.Selection) {
		if !s.Is("a") {
			s = s.Find("a[href]").First()
		}
		if s.Length() > 0 {
			links = append(links, s)
		}
	})

	for _, a := range links {
		if err := x.ctx.Err(); err != nil {
			return eris.Wrap(err, "profile listing")
		}
		href, _ := a.Attr("href")
		ref, err := url.Parse(href)
		if err != nil || href == "" {
			x.skip(href, "bad profile link", err)
			continue
		}
		profileURL := base.ResolveReference(ref).String()

		title, ok, err := r.jobTitle(x, profileURL)
		if err != nil {
			x.skip(profileURL, "profile unavailable", err)
			continue
		}
		if !ok {
			x.skip(profileURL, "profile has no job title", nil)
			continue
		}
		x.logger.Debug("profile title", zap.String("url", profileURL), zap.String("title", title))
		if MatchTitle(title) {
			x.add(a.Get(0), a.Text())
		}
	}
	return nil
}

func (r ProfileRule) jobTitle(x *extraction, profileURL string) (string, bool, error) {
	if x.fetcher == nil {
		return "", false, eris.New("no fetcher for profile pages")
	}
	page, err := x.fetcher.Fetch(x.ctx, profileURL)
	if err != nil {
		return "", false, err
	}
	root, err := htmlquery.Parse(bytes.NewReader(page.Body))
	if err != nil {
		return "", false, eris.Wrap(err, "parse profile")
	}
	node := htmlquery.QuerySelector(root, r.Title)
	if node == nil {
		return "", false, nil
	}
	if r.FirstText {
		c := node.FirstChild
		if c == nil || c.Type != html.TextNode {
			return "", false, nil
		}
		return normalize(c.Data), true, nil
	}
	return normalize(htmlquery.InnerText(node)), true, nil
}
