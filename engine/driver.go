package engine

import (
	"bytes"
	"context"
	"errors"

	"github.com/Ezekail/rostercrawl/collect"
	"github.com/Ezekail/rostercrawl/parse"
	"github.com/Ezekail/rostercrawl/storage"
	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Store persists crawl artifacts. Any error it returns stops the batch.
type Store interface {
	SavePage(institution string, seq int, page *collect.Page) error
	SaveRoster(institution string, names []string) (string, error)
}

type Status string

const (
	StatusDone        Status = "done"
	StatusTruncated   Status = "truncated"   // stopped at the page ceiling or a revisited page
	StatusUnsupported Status = "unsupported" // no usable rule
	StatusFailed      Status = "failed"      // fetch failed, nothing written
)

// Outcome is the result of one institution's crawl.
type Outcome struct {
	Institution string
	Status      Status
	Pages       int
	Records     []parse.FacultyRecord
	Skipped     int
	RosterPath  string
	Err         error
}

// Driver crawls institutions one at a time: fetch a page, extract records,
// follow the next link until there is none, then persist the roster.
type Driver struct {
	options
	extractor *parse.Extractor
}

func NewDriver(opts ...Option) (*Driver, error) {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.Fetcher == nil {
		return nil, eris.New("driver: fetcher is required")
	}
	if o.Store == nil {
		return nil, eris.New("driver: store is required")
	}
	if o.Registry == nil {
		r, err := parse.DefaultRegistry()
		if err != nil {
			return nil, eris.Wrap(err, "driver: load rules")
		}
		o.Registry = r
	}
	return &Driver{
		options:   o,
		extractor: parse.NewExtractor(o.Fetcher, o.Logger),
	}, nil
}

// Run crawls every link (or only the configured school). Per-institution
// failures are logged and kept in the outcomes; see Failures. The returned
// error is set only when the batch had to stop: a storage error or a
// cancelled context.
func (d *Driver) Run(ctx context.Context, links []storage.Link) ([]Outcome, error) {
	links, err := d.selected(links)
	if err != nil {
		return nil, err
	}

	var outcomes []Outcome
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return outcomes, eris.Wrap(err, "run cancelled")
		}
		out, err := d.crawl(ctx, link)
		outcomes = append(outcomes, out)
		if err != nil {
			return outcomes, err
		}
	}
	return outcomes, nil
}

// FetchPages downloads and stores the first roster page of every link
// without parsing it.
func (d *Driver) FetchPages(ctx context.Context, links []storage.Link) ([]Outcome, error) {
	links, err := d.selected(links)
	if err != nil {
		return nil, err
	}

	var outcomes []Outcome
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return outcomes, eris.Wrap(err, "run cancelled")
		}
		name := d.institutionKey(link.Name)
		page, err := d.Fetcher.Fetch(ctx, link.URL)
		if err != nil {
			d.Logger.Error("can't fetch", zap.String("institution", name), zap.Error(err))
			outcomes = append(outcomes, Outcome{Institution: name, Status: StatusFailed, Err: err})
			continue
		}
		if err := d.Store.SavePage(name, 0, page); err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, Outcome{Institution: name, Status: StatusDone, Pages: 1})
	}
	return outcomes, nil
}

// Failures combines the errors of failed institutions. Unsupported
// institutions are not failures.
func Failures(outcomes []Outcome) error {
	var errs error
	for _, out := range outcomes {
		if out.Status == StatusFailed {
			errs = multierr.Append(errs, out.Err)
		}
	}
	return errs
}

// selected applies the school filter. Both sides resolve through the
// registry so an alias matches its canonical entry.
func (d *Driver) selected(links []storage.Link) ([]storage.Link, error) {
	if d.School == "" {
		return links, nil
	}
	want := d.institutionKey(d.School)
	for _, l := range links {
		if d.institutionKey(l.Name) == want {
			return []storage.Link{l}, nil
		}
	}
	return nil, eris.Errorf("no faculty page link for %s", want)
}

func (d *Driver) institutionKey(name string) string {
	if e, ok := d.Registry.Entry(name); ok {
		return e.Name
	}
	return parse.CanonicalName(name)
}

// crawl runs the page loop for one institution. The error return is reserved
// for failures that must stop the whole batch.
func (d *Driver) crawl(ctx context.Context, link storage.Link) (Outcome, error) {
	name := d.institutionKey(link.Name)
	out := Outcome{Institution: name, Status: StatusDone}
	logger := d.Logger.With(zap.String("institution", name))

	rule, err := d.Registry.Lookup(name)
	if err != nil {
		logger.Error("unable to parse html", zap.Error(err))
		out.Status = StatusUnsupported
		out.Err = err
		return out, nil
	}

	task := collect.NewTask(name, link.URL, d.MaxPages)
	for req := task.RootReq(); req != nil; {
		if err := req.Check(); err != nil {
			logger.Warn("page ceiling reached", zap.String("next", req.Url), zap.Error(err))
			out.Status = StatusTruncated
			break
		}
		if req.MarkVisited() {
			logger.Warn("next page already visited", zap.String("url", req.Url))
			out.Status = StatusTruncated
			break
		}

		page, err := d.Fetcher.Fetch(ctx, req.Url)
		if err != nil {
			logger.Error("can't fetch", zap.Int("page", req.Seq), zap.Error(err))
			out.Status = StatusFailed
			out.Err = err
			return out, nil
		}
		out.Pages++
		if err := d.Store.SavePage(name, req.Seq, page); err != nil {
			return out, err
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
		if err != nil {
			logger.Error("can't parse page", zap.Int("page", req.Seq), zap.Error(err))
			out.Status = StatusFailed
			out.Err = eris.Wrapf(err, "%s page %d", name, req.Seq)
			return out, nil
		}
		res, err := d.extractor.Extract(ctx, doc, req.Url, rule, name, req.Seq)
		if err != nil {
			out.Status = StatusFailed
			out.Err = err
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return out, err
			}
			return out, nil
		}
		out.Records = append(out.Records, res.Records...)
		out.Skipped += len(res.Skipped)

		if res.Next == "" {
			break
		}
		req = req.Next(res.Next)
	}

	path, err := d.Store.SaveRoster(name, parse.Names(out.Records))
	if err != nil {
		return out, err
	}
	out.RosterPath = path
	logger.Info("roster saved",
		zap.String("path", path),
		zap.Int("pages", out.Pages),
		zap.Int("names", len(out.Records)),
		zap.Int("skipped", out.Skipped),
	)
	return out, nil
}
