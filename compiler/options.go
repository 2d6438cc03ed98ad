package compiler

import lru "github.com/hashicorp/golang-lru/v2"

// DefaultRecursionLimit bounds nested CompositeCard depth; exceeding it
// during lowering yields RecursionLimitReached.
const DefaultRecursionLimit = 64

// defaultResolveCacheSize caps the import-resolution memoization cache; a
// cao-lang module graph rarely has more than a few hundred distinct
// dotted import paths in flight during a single compile.
const defaultResolveCacheSize = 512

// CompilerOption configures a Compiler, composed the way gothird composes
// VMOption: each option knows how to apply itself to a *config, and
// Compile applies them in order.
type CompilerOption interface{ apply(c *config) }

type config struct {
	recursionLimit int
	breadcrumbs    bool
	logf           func(mess string, args ...interface{})
	resolveCache   *lru.Cache[string, resolution]
}

func newConfig(opts ...CompilerOption) (*config, error) {
	c := &config{recursionLimit: DefaultRecursionLimit, breadcrumbs: true}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(c)
		}
	}
	if c.resolveCache == nil {
		cache, err := lru.New[string, resolution](defaultResolveCacheSize)
		if err != nil {
			return nil, err
		}
		c.resolveCache = cache
	}
	return c, nil
}

type recursionLimitOption int

// WithRecursionLimit bounds nested CompositeCard depth (default
// DefaultRecursionLimit).
func WithRecursionLimit(limit int) CompilerOption { return recursionLimitOption(limit) }

func (o recursionLimitOption) apply(c *config) { c.recursionLimit = int(o) }

type breadcrumbsOption bool

// WithBreadcrumbs toggles per-card label emission (default true).
// Disabling it shrinks the program and disables precise runtime traces.
func WithBreadcrumbs(on bool) CompilerOption { return breadcrumbsOption(on) }

func (o breadcrumbsOption) apply(c *config) { c.breadcrumbs = bool(o) }

type logfOption func(mess string, args ...interface{})

// WithLogf installs a logf-style diagnostic hook, invoked during lowering
// on each import-resolution cache hit.
func WithLogf(logf func(mess string, args ...interface{})) CompilerOption {
	return logfOption(logf)
}

func (o logfOption) apply(c *config) { c.logf = o }

type resolveCacheSizeOption int

// WithResolveCacheSize overrides the import-resolution LRU cache's
// capacity (default defaultResolveCacheSize).
func WithResolveCacheSize(size int) CompilerOption { return resolveCacheSizeOption(size) }

func (o resolveCacheSizeOption) apply(c *config) {
	cache, err := lru.New[string, resolution](int(o))
	if err == nil {
		c.resolveCache = cache
	}
}

func (c *config) log(mess string, args ...interface{}) {
	if c.logf != nil {
		c.logf(mess, args...)
	}
}
