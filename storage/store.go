package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ezekail/rostercrawl/collect"
	"github.com/rotisserie/eris"
)

// Store writes crawl artifacts under two directories: raw pages with their
// fetch metadata, and the parsed rosters.
type Store struct {
	pageDir  string
	parseDir string
}

// New creates both directories if needed.
func New(pageDir, parseDir string) (*Store, error) {
	for _, dir := range []string{pageDir, parseDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "create output dir %s", dir)
		}
	}
	return &Store{pageDir: pageDir, parseDir: parseDir}, nil
}

// FileStem derives a file name from an institution name: spaces become
// underscores, case is kept.
func FileStem(institution string) string {
	r := strings.NewReplacer(" ", "_", "/", "_", string(filepath.Separator), "_")
	return r.Replace(strings.TrimSpace(institution))
}

// PagePath is the raw HTML path of page seq. The metadata sits next to it
// with a .json extension.
func (s *Store) PagePath(institution string, seq int) string {
	return filepath.Join(s.pageDir, fmt.Sprintf("%s_faculty_page%d.html", FileStem(institution), seq))
}

func (s *Store) RosterPath(institution string) string {
	return filepath.Join(s.parseDir, FileStem(institution)+".json")
}

// SavePage writes the page body and its metadata.
func (s *Store) SavePage(institution string, seq int, page *collect.Page) error {
	if s.pageDir == "" {
		return nil
	}
	htmlPath := s.PagePath(institution, seq)
	if err := writeFile(htmlPath, page.Body); err != nil {
		return err
	}
	meta, err := json.MarshalIndent(page.Meta, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encode page meta")
	}
	return writeFile(strings.TrimSuffix(htmlPath, ".html")+".json", append(meta, '\n'))
}

// SaveRoster writes names as a JSON array and returns the file path.
func (s *Store) SaveRoster(institution string, names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	data, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "encode roster")
	}
	path := s.RosterPath(institution)
	return path, writeFile(path, append(data, '\n'))
}

// writeFile replaces path through a temp file so a failed run never leaves a
// truncated document behind.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "write %s", path)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}
