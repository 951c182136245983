package parse

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/xpath"
)

type Kind string

const (
	KindHeading Kind = "heading"
	KindAnchor  Kind = "anchor"
	KindTable   Kind = "table"
	KindProfile Kind = "profile"
)

const defaultScope = "body"

var defaultHeadingTag = regexp.MustCompile(`^h[1-6]$`)

// Rule is an institution's selector strategy. The set of implementations is
// closed: HeadingRule, AnchorRule, TableRule and ProfileRule.
type Rule interface {
	Kind() Kind
	Pagination() Pagination
	apply(x *extraction) error
}

// HeadingRule names each title match after the nearest preceding element
// whose tag matches Tag.
type HeadingRule struct {
	Scope    string            // CSS selector bounding the search, default "body"
	Tag      *regexp.Regexp    // element names that hold the name, default h1-h6
	MatchTag cascadia.Selector // when set, only title text inside a matching element counts
	Next     Pagination
}

func (r HeadingRule) Kind() Kind             { return KindHeading }
func (r HeadingRule) Pagination() Pagination { return orNone(r.Next) }

func (r HeadingRule) tag() *regexp.Regexp {
	if r.Tag == nil {
		return defaultHeadingTag
	}
	return r.Tag
}

// AnchorRule names each title match after the nearest preceding <a>.
type AnchorRule struct {
	Scope string
	Next  Pagination
}

func (r AnchorRule) Kind() Kind             { return KindAnchor }
func (r AnchorRule) Pagination() Pagination { return orNone(r.Next) }

// TableRule reads the name from a fixed cell of the row holding the match.
type TableRule struct {
	Scope  string
	Column int  // 0-based <td> index
	Anchor bool // read the cell's first <a> instead of the whole cell
	Next   Pagination
}

func (r TableRule) Kind() Kind             { return KindTable }
func (r TableRule) Pagination() Pagination { return orNone(r.Next) }

// ProfileRule lists people from the roster page and tests the job title on
// each person's profile page.
type ProfileRule struct {
	Listing   string // CSS selector for the person links
	BaseURL   string // profile links resolve against this, or the page URL when empty
	Title     *xpath.Expr
	FirstText bool // only the first text child of the title node counts
	Next      Pagination
}

func (r ProfileRule) Kind() Kind             { return KindProfile }
func (r ProfileRule) Pagination() Pagination { return orNone(r.Next) }

// Pagination finds the link to the following roster page.
type Pagination interface {
	NextURL(doc *goquery.Document, base *url.URL) string
}

// NoPagination marks single-page rosters.
type NoPagination struct{}

func (NoPagination) NextURL(*goquery.Document, *url.URL) string { return "" }

// NextLink follows the first anchor matched by Selector. The selector may
// point at the anchor itself or at a container holding it.
type NextLink struct {
	Selector string
}

// NextURL resolves the href against base, so relative, root-relative and
// absolute links all come back absolute.
func (p NextLink) NextURL(doc *goquery.Document, base *url.URL) string {
	s := doc.Find(p.Selector).First()
	if s.Length() == 0 {
		return ""
	}
	if !s.Is("a") {
		s = s.Find("a[href]").First()
	}
	href, ok := s.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func orNone(p Pagination) Pagination {
	if p == nil {
		return NoPagination{}
	}
	return p
}

func scopeOf(s string) string {
	if s == "" {
		return defaultScope
	}
	return s
}
