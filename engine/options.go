package engine

import (
	"github.com/Ezekail/rostercrawl/collect"
	"github.com/Ezekail/rostercrawl/parse"
	"go.uber.org/zap"
)

// DefaultMaxPages bounds the pages followed per institution. A roster whose
// "next" control never disappears would otherwise be crawled forever.
const DefaultMaxPages = 25

type Option func(opts *options)

type options struct {
	MaxPages int
	School   string // when set, only this institution runs
	Fetcher  collect.Fetcher
	Registry *parse.Registry
	Store    Store
	Logger   *zap.Logger
}

var defaultOptions = options{
	MaxPages: DefaultMaxPages,
	Logger:   zap.NewNop(),
}

func WithMaxPages(n int) Option {
	return func(opts *options) {
		if n > 0 {
			opts.MaxPages = n
		}
	}
}

func WithSchool(name string) Option {
	return func(opts *options) {
		opts.School = name
	}
}

func WithFetcher(f collect.Fetcher) Option {
	return func(opts *options) {
		opts.Fetcher = f
	}
}

func WithRegistry(r *parse.Registry) Option {
	return func(opts *options) {
		opts.Registry = r
	}
}

func WithStore(s Store) Option {
	return func(opts *options) {
		opts.Store = s
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		if logger != nil {
			opts.Logger = logger
		}
	}
}
