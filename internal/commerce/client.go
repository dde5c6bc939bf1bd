package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/nao1215/storefront/internal/backend"
	"github.com/nao1215/storefront/internal/cache"
)

const (
	// BackendName labels this client in logs, errors and metrics.
	BackendName = "commerce"

	// DefaultAPIVersion is the Storefront API version used when none is set.
	DefaultAPIVersion = "2024-10"

	tokenHeader = "X-Shopify-Storefront-Access-Token" //nolint:gosec // header name, not a credential
)

// Options configures a Client.
type Options struct {
	// StoreDomain is the shop domain, e.g. "example.myshopify.com".
	StoreDomain string

	// APIVersion defaults to DefaultAPIVersion.
	APIVersion string

	// AccessToken is the public Storefront API token.
	AccessToken string

	// Endpoint overrides the URL derived from StoreDomain and APIVersion.
	Endpoint string

	HTTPClient *retryablehttp.Client
	Store      *cache.Store
	Observer   backend.Observer
	Logger     *slog.Logger
}

// Client issues Storefront API queries.
type Client struct {
	endpoint string
	token    string
	http     *retryablehttp.Client
	store    *cache.Store
	observer backend.Observer
	logger   *slog.Logger
}

// NewClient creates a Client from opts.
func NewClient(opts Options) (*Client, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		if opts.StoreDomain == "" {
			return nil, ErrMissingEndpoint
		}
		version := opts.APIVersion
		if version == "" {
			version = DefaultAPIVersion
		}
		endpoint = fmt.Sprintf("https://%s/api/%s/graphql.json", strings.TrimPrefix(opts.StoreDomain, "https://"), version)
	}

	c := &Client{
		endpoint: endpoint,
		token:    opts.AccessToken,
		http:     opts.HTTPClient,
		store:    opts.Store,
		observer: opts.Observer,
		logger:   opts.Logger,
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

// Endpoint returns the GraphQL endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Query runs a GraphQL query and decodes its data member into out.
// Cacheable results are served from and saved to the client's store.
func (c *Client) Query(ctx context.Context, query string, variables map[string]any, ann cache.Annotation, out any) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encode %s: %w", ann.DisplayName, err)
	}

	key := cache.Key(BackendName, c.endpoint, string(payload))
	if ann.Policy.Cacheable() {
		data, ok := c.store.Get(key)
		c.observer.ObserveCache(BackendName, ok)
		if ok {
			c.logger.Debug("commerce cache hit", "query", ann.DisplayName, "tag", ann.Tag)
			return json.Unmarshal(data, out)
		}
	}

	start := time.Now()
	data, err := c.do(ctx, payload)
	c.observer.ObserveRequest(BackendName, backend.Outcome(err), time.Since(start))
	if err != nil {
		return fmt.Errorf("%s: %w", ann.DisplayName, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", ann.DisplayName, err)
	}

	c.store.Put(key, data, ann.Policy)
	c.logger.Debug("commerce query", "query", ann.DisplayName, "tag", ann.Tag,
		"cache", ann.Policy.String(), "elapsed", time.Since(start))
	return nil
}

func (c *Client) do(ctx context.Context, payload []byte) (json.RawMessage, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set(tokenHeader, c.token)
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
	var gr graphQLResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(gr.Errors) > 0 {
		ge := &GraphQLError{}
		for _, e := range gr.Errors {
			ge.Messages = append(ge.Messages, e.Message)
		}
		return nil, ge
	}
	return gr.Data, nil
}

// Page fetches a page by handle. A missing page yields (nil, nil).
func (c *Client) Page(ctx context.Context, vars PageVariables, ann cache.Annotation) (*Page, error) {
	var data struct {
		Page *Page `json:"page"`
	}
	if err := c.Query(ctx, PageQuery, vars.toMap(), ann, &data); err != nil {
		return nil, err
	}
	return data.Page, nil
}

// Menu fetches a navigation menu by handle. A missing menu yields (nil, nil).
func (c *Client) Menu(ctx context.Context, vars MenuVariables, ann cache.Annotation) (*Menu, error) {
	var data struct {
		Menu *Menu `json:"menu"`
	}
	if err := c.Query(ctx, FooterQuery, vars.toMap(), ann, &data); err != nil {
		return nil, err
	}
	return data.Menu, nil
}
