package parse

import (
	_ "embed"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/xpath"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

// Entry is one row of the rule table.
type Entry struct {
	Name        string
	Aliases     []string
	Unsupported bool
	Rule        Rule // nil when Unsupported
}

// Registry maps canonical institution names to extraction rules. It is
// read-only after loading.
type Registry struct {
	entries map[string]Entry
	keys    map[string]string // normalised name or alias -> canonical name
}

var defaultRegistry = sync.OnceValues(func() (*Registry, error) {
	return LoadRegistry(rulesYAML)
})

// DefaultRegistry returns the registry built from the embedded rule table.
func DefaultRegistry() (*Registry, error) {
	return defaultRegistry()
}

// LoadRegistry compiles a YAML rule table. Every selector, regexp and XPath
// is compiled up front so a broken table fails at startup.
func LoadRegistry(data []byte) (*Registry, error) {
	var m ruleSetModel
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "decode rule table")
	}

	r := &Registry{
		entries: make(map[string]Entry, len(m.Institutions)),
		keys:    make(map[string]string),
	}
	for _, im := range m.Institutions {
		name := CanonicalName(im.Name)
		if name == "" {
			return nil, eris.New("rule table entry without a name")
		}
		if _, dup := r.entries[name]; dup {
			return nil, eris.Errorf("duplicate rule for %s", name)
		}

		e := Entry{Name: name, Unsupported: im.Unsupported}
		if !im.Unsupported {
			rule, err := compileRule(im.Rule, im.Pagination)
			if err != nil {
				return nil, eris.Wrapf(err, "rule for %s", name)
			}
			e.Rule = rule
		}
		r.keys[name] = name
		for _, alias := range im.Aliases {
			alias = CanonicalName(alias)
			e.Aliases = append(e.Aliases, alias)
			r.keys[alias] = name
		}
		r.entries[name] = e
	}
	return r, nil
}

// Lookup returns the rule for an institution. Names are matched after
// trimming and upper-casing; aliases resolve to their canonical entry.
func (r *Registry) Lookup(institution string) (Rule, error) {
	e, ok := r.Entry(institution)
	if !ok {
		return nil, eris.Wrapf(ErrUnsupportedInstitution, "%s: no rule", CanonicalName(institution))
	}
	if e.Unsupported {
		return nil, eris.Wrapf(ErrUnsupportedInstitution, "%s: page layout not parseable", e.Name)
	}
	return e.Rule, nil
}

// Entry returns a copy of the table row for institution.
func (r *Registry) Entry(institution string) (Entry, bool) {
	name, ok := r.keys[CanonicalName(institution)]
	if !ok {
		return Entry{}, false
	}
	e := r.entries[name]
	e.Aliases = append([]string(nil), e.Aliases...)
	return e, true
}

// Entries lists every row sorted by name.
func (r *Registry) Entries() []Entry {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Entry, 0, len(names))
	for _, name := range names {
		e, _ := r.Entry(name)
		out = append(out, e)
	}
	return out
}

// CanonicalName is the registry key for an institution name.
func CanonicalName(s string) string {
	return strings.ToUpper(normalize(s))
}

func compileRule(m ruleModel, pm *paginationModel) (Rule, error) {
	var next Pagination = NoPagination{}
	if pm != nil && pm.Next != "" {
		if _, err := cascadia.Compile(pm.Next); err != nil {
			return nil, eris.Wrapf(err, "pagination selector %q", pm.Next)
		}
		next = NextLink{Selector: pm.Next}
	}
	if m.Scope != "" {
		if _, err := cascadia.Compile(m.Scope); err != nil {
			return nil, eris.Wrapf(err, "scope selector %q", m.Scope)
		}
	}

	switch m.Kind {
	case KindHeading:
		rule := HeadingRule{Scope: m.Scope, Next: next}
		if m.HeadingTag != "" {
			re, err := regexp.Compile(m.HeadingTag)
			if err != nil {
				return nil, eris.Wrapf(err, "heading tag %q", m.HeadingTag)
			}
			rule.Tag = re
		}
		if m.MatchTag != "" {
			sel, err := cascadia.Compile(m.MatchTag)
			if err != nil {
				return nil, eris.Wrapf(err, "match tag %q", m.MatchTag)
			}
			rule.MatchTag = sel
		}
		return rule, nil
	case KindAnchor:
		return AnchorRule{Scope: m.Scope, Next: next}, nil
	case KindTable:
		if m.Column < 0 {
			return nil, eris.Errorf("negative column %d", m.Column)
		}
		return TableRule{Scope: m.Scope, Column: m.Column, Anchor: m.Anchor, Next: next}, nil
	case KindProfile:
		if m.Listing == "" || m.TitleXPath == "" {
			return nil, eris.New("profile rule needs listing and title_xpath")
		}
		if _, err := cascadia.Compile(m.Listing); err != nil {
			return nil, eris.Wrapf(err, "listing selector %q", m.Listing)
		}
		expr, err := xpath.Compile(m.TitleXPath)
		if err != nil {
			return nil, eris.Wrapf(err, "title xpath %q", m.TitleXPath)
		}
		return ProfileRule{
			Listing:   m.Listing,
			BaseURL:   m.BaseURL,
			Title:     expr,
			FirstText: m.FirstText,
			Next:      next,
		}, nil
	default:
		return nil, eris.Errorf("unknown rule kind %q", m.Kind)
	}
}
