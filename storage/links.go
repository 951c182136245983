package storage

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Link is an institution and the first page of its faculty roster.
type Link struct {
	Name string
	URL  string
}

// LoadLinks reads the faculty page links document, a JSON object mapping
// institution name to a URL or a list of URLs (the first one is used).
// Links are returned sorted by name so runs are reproducible.
func LoadLinks(path string) ([]Link, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read links %s", path)
	}
	return ParseLinks(data)
}

func ParseLinks(data []byte) ([]Link, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "decode links")
	}

	links := make([]Link, 0, len(raw))
	for name, v := range raw {
		url, err := firstURL(v)
		if err != nil {
			return nil, eris.Wrapf(err, "link for %s", name)
		}
		links = append(links, Link{Name: strings.TrimSpace(name), URL: url})
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Name < links[j].Name })
	return links, nil
}

func firstURL(v json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if s = strings.TrimSpace(s); s == "" {
			return "", eris.New("empty url")
		}
		return s, nil
	}
	var list []string
	if err := json.Unmarshal(v, &list); err != nil {
		return "", eris.New("want a url or a list of urls")
	}
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			return s, nil
		}
	}
	return "", eris.New("empty url list")
}
