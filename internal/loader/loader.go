package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/storefront/internal/cache"
	"github.com/nao1215/storefront/internal/commerce"
	"github.com/nao1215/storefront/internal/content"
	"github.com/nao1215/storefront/internal/i18n"
	"github.com/nao1215/storefront/internal/request"
)

// Debug labels of the page queries.
const (
	PageQueryName = "query Page"
	PageQueryTag  = "page"
)

// CriticalData is the data a page cannot render without.
type CriticalData struct {
	Page     *commerce.Page
	Content  content.Document
	Language string
	Locale   i18n.Locale
}

// DeferredQuery is a best-effort query started before the critical phase.
type DeferredQuery struct {
	Key   string
	Fetch func(ctx context.Context, rc *request.Context) (any, error)
}

// Deferred holds the pending results of the deferred phase by key.
type Deferred map[string]*Future[any]

// Get returns the future for key, or nil when no such query ran.
func (d Deferred) Get(key string) *Future[any] {
	return d[key]
}

// Wait blocks until every deferred query has finished.
func (d Deferred) Wait() {
	for _, f := range d {
		f.Wait()
	}
}

// Observer receives loader measurements.
type Observer interface {
	ObserveCritical(outcome string, elapsed time.Duration)
	ObserveDeferredFailure(key string)
}

type nopObserver struct{}

func (nopObserver) ObserveCritical(string, time.Duration) {}
func (nopObserver) ObserveDeferredFailure(string)         {}

// Loader runs the critical and deferred phases for a page request.
type Loader struct {
	deferred []DeferredQuery
	logger   *slog.Logger
	observer Observer
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for load diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithObserver sets the measurement sink.
func WithObserver(o Observer) Option {
	return func(l *Loader) {
		if o != nil {
			l.observer = o
		}
	}
}

// WithDeferred registers deferred queries. Later registrations with the same
// key replace earlier ones.
func WithDeferred(queries ...DeferredQuery) Option {
	return func(l *Loader) {
		l.deferred = append(l.deferred, queries...)
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{observer: nopObserver{}}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.deferred = dedupe(l.deferred)
	return l
}

func dedupe(queries []DeferredQuery) []DeferredQuery {
	last := make(map[string]int, len(queries))
	for i, q := range queries {
		last[q.Key] = i
	}
	out := make([]DeferredQuery, 0, len(last))
	for i, q := range queries {
		if last[q.Key] == i && q.Fetch != nil {
			out = append(out, q)
		}
	}
	return out
}

// LoadDeferred starts every registered deferred query and returns without
// waiting. Failures are logged and resolve to absent.
func (l *Loader) LoadDeferred(ctx context.Context, rc *request.Context) Deferred {
	d := make(Deferred, len(l.deferred))
	for _, q := range l.deferred {
		fetch := q.Fetch
		key := q.Key
		d[key] = Go(ctx, func(ctx context.Context) (any, error) {
			return fetch(ctx, rc)
		}, func(err error) {
			l.observer.ObserveDeferredFailure(key)
			l.logger.Warn("deferred query failed", "key", key, "handle", rc.Handle(), "error", err)
		})
	}
	return d
}

// LoadCritical fetches the commerce page and the content document for the
// requested handle concurrently.
//
// It returns ErrNotFound when either source has no record and a
// *RedirectError when the commerce handle is a localized form of the
// requested one.
func (l *Loader) LoadCritical(ctx context.Context, rc *request.Context) (*CriticalData, error) {
	start := time.Now()
	data, err := l.loadCritical(ctx, rc)
	l.observer.ObserveCritical(criticalOutcome(err), time.Since(start))
	return data, err
}

func (l *Loader) loadCritical(ctx context.Context, rc *request.Context) (*CriticalData, error) {
	handle := rc.Handle()
	if handle == "" {
		return nil, ErrMissingHandle
	}
	locale := rc.Locale()

	commercePurpose := cache.PurposeCommercePage
	if rc.Preview() {
		commercePurpose = cache.PurposePreview
	}

	var (
		page *commerce.Page
		doc  content.Document
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := rc.Commerce().Page(gctx, commerce.PageVariables{
			Language: locale.Language,
			Country:  locale.Country,
			Handle:   handle,
		}, cache.Annotate(commercePurpose, PageQueryName, PageQueryTag))
		if err != nil {
			return fmt.Errorf("commerce page %q: %w", handle, err)
		}
		page = p
		return nil
	})
	g.Go(func() error {
		d, err := rc.Content().Page(gctx, content.PageParams{
			Slug:     handle,
			Language: locale.ContentLanguage(),
		}, content.QueryOptions{
			Annotation: cache.Annotate(cache.PurposeContentPage, PageQueryName, PageQueryTag),
			Preview:    rc.Preview(),
		})
		if err != nil {
			return fmt.Errorf("content page %q: %w", handle, err)
		}
		doc = d
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if page == nil || doc == nil {
		l.logger.Debug("page not found", "handle", handle,
			"commerce", page != nil, "content", doc != nil)
		return nil, ErrNotFound
	}

	if err := RedirectIfHandleIsLocalized(rc, page.Handle); err != nil {
		return nil, err
	}

	return &CriticalData{
		Page:     page,
		Content:  doc,
		Language: locale.ContentLanguage(),
		Locale:   locale,
	}, nil
}

// RedirectIfHandleIsLocalized returns a *RedirectError pointing at the
// localized handle when it differs from the requested one. An empty
// localized handle never redirects.
func RedirectIfHandleIsLocalized(rc *request.Context, localized string) error {
	requested := rc.Handle()
	if localized == "" || localized == requested {
		return nil
	}

	u := rc.URL()
	path := u.Path
	if i := strings.LastIndex(path, "/"+requested); i >= 0 {
		path = path[:i] + "/" + localized + path[i+len(requested)+1:]
	} else {
		path = strings.TrimSuffix(path, "/") + "/" + localized
	}

	return newRedirect((&url.URL{Path: path, RawQuery: u.RawQuery}).String())
}

func criticalOutcome(err error) string {
	var re *RedirectError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrMissingHandle):
		return "missing_handle"
	case errors.As(err, &re):
		return "redirect"
	default:
		return "error"
	}
}
