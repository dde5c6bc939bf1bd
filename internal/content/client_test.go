package content

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/nao1215/storefront/internal/backend"
	"github.com/nao1215/storefront/internal/cache"
)

func newTestClient(t *testing.T, baseURL, token string) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := NewClient(Options{
		ProjectID:  "abc123",
		Dataset:    "production",
		APIVersion: "v2023-03-20",
		Token:      token,
		BaseURL:    baseURL,
		HTTPClient: backend.NewHTTPClient(backend.HTTPOptions{Logger: logger}),
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
		want error
	}{
		{name: "missing project", opts: Options{Dataset: "production"}, want: ErrMissingProject},
		{name: "missing dataset", opts: Options{ProjectID: "abc"}, want: ErrMissingDataset},
		{name: "valid", opts: Options{ProjectID: "abc", Dataset: "production"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewClient(tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewClient() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestQueryURL(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Options{ProjectID: "abc123", Dataset: "production", UseCDN: true})
	if err != nil {
		t.Fatal(err)
	}
	params := PageParams{Slug: "about-us", Language: "en"}.toMap()

	t.Run("published reads use the cdn", func(t *testing.T) {
		t.Parallel()
		raw, err := c.QueryURL("*[0]", params, false)
		if err != nil {
			t.Fatal(err)
		}
		u, err := url.Parse(raw)
		if err != nil {
			t.Fatal(err)
		}
		if u.Host != "abc123.apicdn.sanity.io" {
			t.Errorf("host = %q", u.Host)
		}
		if u.Path != "/v"+DefaultAPIVersion+"/data/query/production" {
			t.Errorf("path = %q", u.Path)
		}
		q := u.Query()
		if q.Get("$slug") != `"about-us"` || q.Get("$language") != `"en"` {
			t.Errorf("params = %v", q)
		}
		if q.Get("perspective") != perspectivePublished {
			t.Errorf("perspective = %q", q.Get("perspective"))
		}
	})

	t.Run("preview reads bypass the cdn", func(t *testing.T) {
		t.Parallel()
		raw, err := c.QueryURL("*[0]", params, true)
		if err != nil {
			t.Fatal(err)
		}
		u, err := url.Parse(raw)
		if err != nil {
			t.Fatal(err)
		}
		if u.Host != "abc123.api.sanity.io" {
			t.Errorf("host = %q", u.Host)
		}
		if u.Query().Get("perspective") != perspectiveDrafts {
			t.Errorf("perspective = %q", u.Query().Get("perspective"))
		}
	})
}

func TestClientPage(t *testing.T) {
	t.Parallel()

	ann := cache.Annotate(cache.PurposeContentPage, "query Page", "page")

	t.Run("decodes the result document", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "/data/query/production") {
				t.Errorf("path = %q", r.URL.Path)
			}
			if r.Header.Get("Authorization") != "" {
				t.Error("published query sent an authorization header")
			}
			_, _ = io.WriteString(w, `{"result":{"title":"About","liveStory":{"id":"ls0","type":"carousel","title":"Top"},"body":[{"_type":"module.livestory","id":"ls1","type":"wall","title":"Wall"},{"_type":"block","children":[{"text":"Hello "},{"text":"world"}]}]}}`)
		}))
		defer srv.Close()

		doc, err := newTestClient(t, srv.URL, "").Page(context.Background(), PageParams{Slug: "about", Language: "en"}, QueryOptions{Annotation: ann})
		if err != nil {
			t.Fatalf("Page() error = %v", err)
		}
		if doc.Title() != "About" {
			t.Errorf("Title() = %q", doc.Title())
		}
		if st, ok := doc.LiveStory(); !ok || st != (LiveStory{ID: "ls0", Type: "carousel", Title: "Top"}) {
			t.Errorf("LiveStory() = %+v, %v", st, ok)
		}
		stories := doc.LiveStories()
		if len(stories) != 1 || stories[0].ID != "ls1" || stories[0].Type != "wall" {
			t.Errorf("LiveStories() = %+v", stories)
		}
		body := doc.Body()
		if len(body) != 2 || body[1].Text() != "Hello world" {
			t.Errorf("Body() = %+v", body)
		}
	})

	t.Run("null result is nil", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"result":null}`)
		}))
		defer srv.Close()

		doc, err := newTestClient(t, srv.URL, "").Page(context.Background(), PageParams{Slug: "missing"}, QueryOptions{Annotation: ann})
		if err != nil {
			t.Fatalf("Page() error = %v", err)
		}
		if doc != nil {
			t.Errorf("Page() = %v, want nil", doc)
		}
	})

	t.Run("preview sends the token", func(t *testing.T) {
		t.Parallel()

		var auth, perspective string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			perspective = r.URL.Query().Get("perspective")
			_, _ = io.WriteString(w, `{"result":{"title":"Draft"}}`)
		}))
		defer srv.Close()

		doc, err := newTestClient(t, srv.URL, "secret-token").Page(context.Background(), PageParams{Slug: "about"}, QueryOptions{Annotation: ann, Preview: true})
		if err != nil {
			t.Fatalf("Page() error = %v", err)
		}
		if doc.Title() != "Draft" {
			t.Errorf("Title() = %q", doc.Title())
		}
		if auth != "Bearer secret-token" {
			t.Errorf("Authorization = %q", auth)
		}
		if perspective != perspectiveDrafts {
			t.Errorf("perspective = %q", perspective)
		}
	})

	t.Run("preview without token fails", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, "http://127.0.0.1:1", "")
		_, err := c.Page(context.Background(), PageParams{Slug: "about"}, QueryOptions{Preview: true})
		if !errors.Is(err, ErrPreviewToken) {
			t.Errorf("Page() error = %v, want ErrPreviewToken", err)
		}
	})

	t.Run("server error is a status error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "bad query", http.StatusBadRequest)
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv.URL, "").Page(context.Background(), PageParams{Slug: "about"}, QueryOptions{Annotation: ann})
		var se *backend.StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
			t.Errorf("Page() error = %v, want 400 StatusError", err)
		}
	})
}
