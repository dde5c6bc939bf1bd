package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/nao1215/storefront/internal/backend"
	"github.com/nao1215/storefront/internal/cache"
)

const (
	// BackendName labels this client in logs, errors and metrics.
	BackendName = "content"

	// DefaultAPIVersion is the query API version used when none is set.
	DefaultAPIVersion = "2023-03-20"

	perspectiveDrafts    = "drafts"
	perspectivePublished = "published"
)

// Options configures a Client.
type Options struct {
	ProjectID  string
	Dataset    string
	APIVersion string

	// Token authorizes preview queries.
	Token string

	// UseCDN reads published documents from the API CDN.
	UseCDN bool

	// BaseURL overrides the host derived from ProjectID, mostly for tests.
	BaseURL string

	HTTPClient *retryablehttp.Client
	Store      *cache.Store
	Observer   backend.Observer
	Logger     *slog.Logger
}

// Client runs GROQ queries against one dataset.
type Client struct {
	projectID  string
	dataset    string
	apiVersion string
	token      string
	useCDN     bool
	baseURL    string

	http     *retryablehttp.Client
	store    *cache.Store
	observer backend.Observer
	logger   *slog.Logger
}

// PageParams are the parameters of PageQuery.
type PageParams struct {
	Slug     string
	Language string
}

func (p PageParams) toMap() map[string]any {
	return map[string]any{"slug": p.Slug, "language": p.Language}
}

// QueryOptions are per-query settings.
type QueryOptions struct {
	Annotation cache.Annotation

	// Preview reads drafts with the API token, bypassing CDN and store.
	Preview bool
}

// NewClient creates a Client from opts.
func NewClient(opts Options) (*Client, error) {
	if opts.ProjectID == "" && opts.BaseURL == "" {
		return nil, ErrMissingProject
	}
	if opts.Dataset == "" {
		return nil, ErrMissingDataset
	}
	c := &Client{
		projectID:  opts.ProjectID,
		dataset:    opts.Dataset,
		apiVersion: strings.TrimPrefix(opts.APIVersion, "v"),
		token:      opts.Token,
		useCDN:     opts.UseCDN,
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		http:       opts.HTTPClient,
		store:      opts.Store,
		observer:   opts.Observer,
		logger:     opts.Logger,
	}
	if c.apiVersion == "" {
		c.apiVersion = DefaultAPIVersion
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.http == nil {
		c.http = backend.NewHTTPClient(backend.HTTPOptions{RetryMax: backend.DefaultRetryMax, Logger: c.logger})
	}
	if c.observer == nil {
		c.observer = backend.NopObserver{}
	}
	return c, nil
}

// QueryURL returns the request URL for query and params.
func (c *Client) QueryURL(query string, params map[string]any, preview bool) (string, error) {
	host := c.baseURL
	if host == "" {
		api := "api"
		if c.useCDN && !preview {
			api = "apicdn"
		}
		host = fmt.Sprintf("https://%s.%s.sanity.io", c.projectID, api)
	}

	q := url.Values{}
	q.Set("query", query)
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := json.Marshal(params[k])
		if err != nil {
			return "", fmt.Errorf("encode parameter %s: %w", k, err)
		}
		q.Set("$"+k, string(v))
	}
	if preview {
		q.Set("perspective", perspectiveDrafts)
	} else {
		q.Set("perspective", perspectivePublished)
	}
	return fmt.Sprintf("%s/v%s/data/query/%s?%s", host, c.apiVersion, url.PathEscape(c.dataset), q.Encode()), nil
}

type queryResponse struct {
	Result json.RawMessage `json:"result"`
}

// Query runs a GROQ query and decodes its result into out.
// A null result leaves out untouched.
func (c *Client) Query(ctx context.Context, query string, params map[string]any, opts QueryOptions, out any) error {
	if opts.Preview && c.token == "" {
		return ErrPreviewToken
	}
	ann := opts.Annotation
	rawURL, err := c.QueryURL(query, params, opts.Preview)
	if err != nil {
		return err
	}

	cacheable := ann.Policy.Cacheable() && !opts.Preview
	key := cache.Key(BackendName, rawURL)
	if cacheable {
		data, ok := c.store.Get(key)
		c.observer.ObserveCache(BackendName, ok)
		if ok {
			return decodeResult(data, out)
		}
	}

	start := time.Now()
	data, err := c.do(ctx, rawURL, opts.Preview)
	c.observer.ObserveRequest(BackendName, backend.Outcome(err), time.Since(start))
	if err != nil {
		return fmt.Errorf("%s: %w", ann.DisplayName, err)
	}
	if err := decodeResult(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", ann.DisplayName, err)
	}
	if cacheable {
		c.store.Put(key, data, ann.Policy)
	}
	c.logger.Debug("content query", "query", ann.DisplayName, "tag", ann.Tag,
		"cache", ann.Policy.String(), "preview", opts.Preview, "elapsed", time.Since(start))
	return nil
}

func decodeResult(data json.RawMessage, out any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *Client) do(ctx context.Context, rawURL string, preview bool) (json.RawMessage, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if preview {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, backend.NewStatusError(BackendName, resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return qr.Result, nil
}

// Page fetches the page document for params. No match yields (nil, nil).
func (c *Client) Page(ctx context.Context, params PageParams, opts QueryOptions) (Document, error) {
	var doc Document
	if err := c.Query(ctx, PageQuery, params.toMap(), opts, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
