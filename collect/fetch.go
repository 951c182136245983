package collect

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/Ezekail/rostercrawl/proxy"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_14_3) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/72.0.3626.109 Safari/537.36"

	DefaultMaxBodySize = 8 << 20
)

// Fetcher downloads a single page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

type Option func(*BrowserFetch)

func WithTimeout(d time.Duration) Option {
	return func(b *BrowserFetch) {
		if d > 0 {
			b.timeout = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(b *BrowserFetch) {
		if ua != "" {
			b.userAgent = ua
		}
	}
}

// WithProxy routes every request through the given proxy selector.
func WithProxy(p proxy.ProxyFunc) Option {
	return func(b *BrowserFetch) {
		b.proxy = p
	}
}

// WithRateLimit caps the request rate. A non-positive rate disables limiting.
func WithRateLimit(perSec float64) Option {
	return func(b *BrowserFetch) {
		if perSec > 0 {
			b.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}

// WithMaxBodySize caps the response body. Larger bodies fail the fetch.
func WithMaxBodySize(n int64) Option {
	return func(b *BrowserFetch) {
		if n > 0 {
			b.maxBody = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(b *BrowserFetch) {
		if l != nil {
			b.logger = l
		}
	}
}

// BrowserFetch issues GET requests the way a desktop browser would: it sends
// a browser User-Agent and decodes the body to UTF-8.
type BrowserFetch struct {
	timeout   time.Duration
	userAgent string
	proxy     proxy.ProxyFunc
	limiter   *rate.Limiter
	maxBody   int64
	logger    *zap.Logger
	client    *http.Client
}

func NewBrowserFetch(opts ...Option) *BrowserFetch {
	b := &BrowserFetch{
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		maxBody:   DefaultMaxBodySize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if b.proxy != nil {
		transport.Proxy = b.proxy
	}
	b.client = &http.Client{
		Timeout:   b.timeout,
		Transport: transport,
	}
	return b
}

// Fetch downloads url. Transport failures, timeouts and non-2xx responses are
// reported as *NetworkError.
func (b *BrowserFetch) Fetch(ctx context.Context, url string) (*Page, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, &NetworkError{URL: url, Err: eris.Wrap(err, "rate limit wait")}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: eris.Wrap(err, "create request")}
	}
	req.Header.Set("User-Agent", b.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: eris.Wrap(err, "do request")}
	}
	defer func() { _ = resp.Body.Close() }()

	b.logger.Debug("server response",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{URL: url, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	limited := &io.LimitedReader{R: resp.Body, N: b.maxBody}
	bodyReader := bufio.NewReader(limited)
	e := DetermineEncoding(bodyReader, contentType)
	body, err := io.ReadAll(transform.NewReader(bodyReader, e.NewDecoder()))
	if err != nil {
		return nil, &NetworkError{URL: url, Err: eris.Wrap(err, "read body")}
	}
	if limited.N == 0 {
		var one [1]byte
		if n, _ := io.ReadFull(resp.Body, one[:]); n > 0 {
			b.logger.Warn("body too large", zap.String("url", url), zap.Int64("limit", b.maxBody))
			return nil, &NetworkError{URL: url, Err: eris.Errorf("body exceeds %d bytes", b.maxBody)}
		}
	}

	return &Page{
		URL:  url,
		Body: body,
		Meta: NewPageMeta(url, resp),
	}, nil
}

// DetermineEncoding sniffs the first KB of r (and the Content-Type header)
// for the document's character set. Falls back to UTF-8.
func DetermineEncoding(r *bufio.Reader, contentType string) encoding.Encoding {
	peek, err := r.Peek(1024)
	if err != nil && len(peek) == 0 {
		return unicode.UTF8
	}
	e, _, _ := charset.DetermineEncoding(peek, contentType)
	return e
}
