package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/Ezekail/rostercrawl/collect"
	"github.com/Ezekail/rostercrawl/parse"
	"github.com/Ezekail/rostercrawl/storage"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRules = `
institutions:
  - name: PAGED UNIVERSITY
    rule:
      kind: heading
    pagination:
      next: "li.pager-next"
  - name: FLAT UNIVERSITY
    aliases:
      - FLAT U
    rule:
      kind: anchor
  - name: ENDLESS UNIVERSITY
    rule:
      kind: anchor
    pagination:
      next: "a.next"
  - name: LOOP UNIVERSITY
    rule:
      kind: anchor
    pagination:
      next: "a.next"
  - name: BROKEN UNIVERSITY
    rule:
      kind: anchor
  - name: ODD UNIVERSITY
    unsupported: true
`

func fixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/paged", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, `<body><h3>Carol White</h3><p>Associate Professor</p>
				<ul class="pager"><li class="pager-next"></li></ul></body>`)
			return
		}
		fmt.Fprint(w, `<body>
			<h3>Alice Smith</h3><p>Assistant Professor</p>
			<h3>Bob Jones</h3><p>Professor</p>
			<ul class="pager"><li class="pager-next"><a href="?page=1">next</a></li></ul></body>`)
	})
	mux.HandleFunc("/flat", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<body><a href="/d">Dan Green</a> <span>Assistant Professor</span></body>`)
	})
	mux.HandleFunc("/endless", func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("page"))
		fmt.Fprintf(w, `<body><a href="/p%d">Person %d</a> <span>Assistant Professor</span>
			<a class="next" href="?page=%d">next</a></body>`, n, n, n+1)
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<body><a href="/e">Eve Black</a> <span>Assistant Professor</span>
			<a class="next" href="/loop">next</a></body>`)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestDriver(t *testing.T, dir string, opts ...Option) *Driver {
	t.Helper()
	reg, err := parse.LoadRegistry([]byte(testRules))
	require.NoError(t, err)
	store, err := storage.New(filepath.Join(dir, "pages"), filepath.Join(dir, "names"))
	require.NoError(t, err)

	base := []Option{
		WithFetcher(collect.NewBrowserFetch()),
		WithRegistry(reg),
		WithStore(store),
	}
	d, err := NewDriver(append(base, opts...)...)
	require.NoError(t, err)
	return d
}

func TestDriver_TwoPagesMerged(t *testing.T) {
	srv := fixtureServer(t)
	dir := t.TempDir()
	d := newTestDriver(t, dir)

	outcomes, err := d.Run(context.Background(), []storage.Link{{Name: "Paged University", URL: srv.URL + "/paged"}})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	out := outcomes[0]
	assert.Equal(t, StatusDone, out.Status)
	assert.Equal(t, 2, out.Pages)
	require.Len(t, out.Records, 2)
	assert.Equal(t, parse.FacultyRecord{Institution: "PAGED UNIVERSITY", Name: "Alice Smith", Page: 0}, out.Records[0])
	assert.Equal(t, parse.FacultyRecord{Institution: "PAGED UNIVERSITY", Name: "Carol White", Page: 1}, out.Records[1])

	data, err := os.ReadFile(filepath.Join(dir, "names", "PAGED_UNIVERSITY.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `["Alice Smith", "Carol White"]`, string(data))

	for _, f := range []string{"PAGED_UNIVERSITY_faculty_page0.html", "PAGED_UNIVERSITY_faculty_page0.json", "PAGED_UNIVERSITY_faculty_page1.html"} {
		assert.FileExists(t, filepath.Join(dir, "pages", f))
	}
}

func TestDriver_Idempotent(t *testing.T) {
	srv := fixtureServer(t)
	dir := t.TempDir()
	links := []storage.Link{
		{Name: "PAGED UNIVERSITY", URL: srv.URL + "/paged"},
		{Name: "FLAT UNIVERSITY", URL: srv.URL + "/flat"},
	}

	read := func() map[string]string {
		out := map[string]string{}
		entries, err := os.ReadDir(filepath.Join(dir, "names"))
		require.NoError(t, err)
		for _, e := range entries {
			b, err := os.ReadFile(filepath.Join(dir, "names", e.Name()))
			require.NoError(t, err)
			out[e.Name()] = string(b)
		}
		return out
	}

	_, err := newTestDriver(t, dir).Run(context.Background(), links)
	require.NoError(t, err)
	first := read()

	_, err = newTestDriver(t, dir).Run(context.Background(), links)
	require.NoError(t, err)
	assert.Equal(t, first, read())
	assert.Len(t, first, 2)
}

func TestDriver_PageCeiling(t *testing.T) {
	srv := fixtureServer(t)
	d := newTestDriver(t, t.TempDir(), WithMaxPages(3))

	outcomes, err := d.Run(context.Background(), []storage.Link{{Name: "ENDLESS UNIVERSITY", URL: srv.URL + "/endless"}})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusTruncated, outcomes[0].Status)
	assert.Equal(t, 3, outcomes[0].Pages)
	assert.Equal(t, []string{"Person 0", "Person 1", "Person 2"}, parse.Names(outcomes[0].Records))
	assert.NotEmpty(t, outcomes[0].RosterPath)
}

func TestDriver_SelfLinkStops(t *testing.T) {
	srv := fixtureServer(t)
	d := newTestDriver(t, t.TempDir())

	outcomes, err := d.Run(context.Background(), []storage.Link{{Name: "LOOP UNIVERSITY", URL: srv.URL + "/loop"}})
	require.NoError(t, err)
	assert.Equal(t, StatusTruncated, outcomes[0].Status)
	assert.Equal(t, 1, outcomes[0].Pages)
	assert.Equal(t, []string{"Eve Black"}, parse.Names(outcomes[0].Records))
}

func TestDriver_NetworkErrorIsPerInstitution(t *testing.T) {
	srv := fixtureServer(t)
	dir := t.TempDir()
	d := newTestDriver(t, dir)

	outcomes, err := d.Run(context.Background(), []storage.Link{
		{Name: "BROKEN UNIVERSITY", URL: srv.URL + "/broken"},
		{Name: "FLAT UNIVERSITY", URL: srv.URL + "/flat"},
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	failures := Failures(outcomes)
	require.Error(t, failures)
	assert.True(t, collect.IsNetworkError(failures))

	assert.Equal(t, StatusFailed, outcomes[0].Status)
	assert.NoFileExists(t, filepath.Join(dir, "names", "BROKEN_UNIVERSITY.json"))

	assert.Equal(t, StatusDone, outcomes[1].Status)
	assert.Equal(t, []string{"Dan Green"}, parse.Names(outcomes[1].Records))
}

func TestDriver_UnsupportedSkipped(t *testing.T) {
	srv := fixtureServer(t)
	d := newTestDriver(t, t.TempDir())

	outcomes, err := d.Run(context.Background(), []storage.Link{
		{Name: "ODD UNIVERSITY", URL: srv.URL + "/flat"},
		{Name: "NOWHERE COLLEGE", URL: srv.URL + "/flat"},
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.NoError(t, Failures(outcomes))
	for _, out := range outcomes {
		assert.Equal(t, StatusUnsupported, out.Status)
		assert.ErrorIs(t, out.Err, parse.ErrUnsupportedInstitution)
		assert.Zero(t, out.Pages)
	}
}

func TestDriver_School(t *testing.T) {
	srv := fixtureServer(t)
	links := []storage.Link{
		{Name: "PAGED UNIVERSITY", URL: srv.URL + "/paged"},
		{Name: "FLAT UNIVERSITY", URL: srv.URL + "/flat"},
	}

	d := newTestDriver(t, t.TempDir(), WithSchool("flat university"))
	outcomes, err := d.Run(context.Background(), links)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "FLAT UNIVERSITY", outcomes[0].Institution)

	d = newTestDriver(t, t.TempDir(), WithSchool("Flat U"))
	outcomes, err = d.Run(context.Background(), links)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "FLAT UNIVERSITY", outcomes[0].Institution)

	d = newTestDriver(t, t.TempDir(), WithSchool("flat university"))
	outcomes, err = d.Run(context.Background(), []storage.Link{{Name: "FLAT U", URL: srv.URL + "/flat"}})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "FLAT UNIVERSITY", outcomes[0].Institution)
	assert.Equal(t, []string{"Dan Green"}, parse.Names(outcomes[0].Records))

	d = newTestDriver(t, t.TempDir(), WithSchool("MISSING"))
	_, err = d.Run(context.Background(), links)
	assert.ErrorContains(t, err, "no faculty page link for MISSING")
}

type failingStore struct{}

func (failingStore) SavePage(string, int, *collect.Page) error { return eris.New("disk full") }
func (failingStore) SaveRoster(string, []string) (string, error) {
	return "", eris.New("disk full")
}

func TestDriver_StorageErrorStopsBatch(t *testing.T) {
	srv := fixtureServer(t)
	reg, err := parse.LoadRegistry([]byte(testRules))
	require.NoError(t, err)
	d, err := NewDriver(WithFetcher(collect.NewBrowserFetch()), WithRegistry(reg), WithStore(failingStore{}))
	require.NoError(t, err)

	outcomes, err := d.Run(context.Background(), []storage.Link{
		{Name: "FLAT UNIVERSITY", URL: srv.URL + "/flat"},
		{Name: "PAGED UNIVERSITY", URL: srv.URL + "/paged"},
	})
	assert.ErrorContains(t, err, "disk full")
	assert.Len(t, outcomes, 1)
}

func TestDriver_FetchPages(t *testing.T) {
	srv := fixtureServer(t)
	dir := t.TempDir()
	d := newTestDriver(t, dir)

	outcomes, err := d.FetchPages(context.Background(), []storage.Link{
		{Name: "FLAT UNIVERSITY", URL: srv.URL + "/flat"},
		{Name: "BROKEN UNIVERSITY", URL: srv.URL + "/broken"},
	})
	require.NoError(t, err)
	assert.Error(t, Failures(outcomes))
	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusDone, outcomes[0].Status)
	assert.Equal(t, StatusFailed, outcomes[1].Status)
	assert.FileExists(t, filepath.Join(dir, "pages", "FLAT_UNIVERSITY_faculty_page0.html"))
	assert.NoFileExists(t, filepath.Join(dir, "names", "FLAT_UNIVERSITY.json"))
}

func TestNewDriver_RequiresFetcherAndStore(t *testing.T) {
	_, err := NewDriver()
	assert.Error(t, err)

	_, err = NewDriver(WithFetcher(collect.NewBrowserFetch()))
	assert.Error(t, err)
}
