package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/internal/commerce"
	"github.com/nao1215/storefront/internal/content"
	"github.com/nao1215/storefront/internal/i18n"
	"github.com/nao1215/storefront/internal/loader"
	"github.com/nao1215/storefront/internal/log"
	"github.com/nao1215/storefront/internal/render"
	"github.com/nao1215/storefront/internal/request"
)

const liveStoryScript = "https://assets.livestory.io/dist/livestory.min.js"

func (s *Server) handlePage(c *gin.Context) {
	logger := log.FromContext(c.Request.Context())

	locale := s.locale
	if seg := c.Param("locale"); seg != "" {
		l, ok := i18n.FromPathSegment(seg)
		if !ok {
			c.String(http.StatusNotFound, "Not Found")
			return
		}
		locale = l
	}
	preview := s.preview.Enabled(c.Request, s.now())

	rc, err := request.New(request.Params{
		Env: request.Env{
			StoreDomain:    s.cfg.StoreDomain,
			CheckoutDomain: s.cfg.CheckoutDomain,
			StudioOrigin:   s.cfg.StudioOrigin,
		},
		Handle:   c.Param("handle"),
		Locale:   locale,
		Preview:  preview,
		URL:      c.Request.URL,
		Commerce: s.deps.Commerce,
		Content:  s.deps.Content,
	})
	if err != nil {
		logger.Error("request context", "error", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	policy, err := s.policies.Build(preview)
	if err != nil {
		logger.Error("content security policy", "error", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	deferred := s.loader.LoadDeferred(ctx, rc)
	defer func() {
		cancel()
		deferred.Wait()
	}()

	data, err := s.loader.LoadCritical(ctx, rc)
	if err != nil {
		var redirect *loader.RedirectError
		switch {
		case errors.Is(err, loader.ErrNotFound), errors.Is(err, loader.ErrMissingHandle):
			c.String(http.StatusNotFound, "Not Found")
		case errors.As(err, &redirect):
			c.Redirect(redirect.Status, redirect.Location)
		default:
			logger.Error("critical load failed", "handle", rc.Handle(), "error", err)
			c.String(http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}

	if preview {
		c.Header("Cache-Control", "no-store")
	}
	resp := s.respond.Handle(c.Request.WithContext(ctx), s.pageDocument(data, deferred), policy)
	if err := resp.WriteTo(c.Writer); err != nil {
		logger.Debug("response aborted", "error", err)
	}
}

type pageView struct {
	Title      string
	Stories    []storyView
	Paragraphs []string
}

type storyView struct {
	ID    string
	Type  string
	Title string
	Lang  string
}

type footerView struct {
	Items []footerItem
}

type footerItem struct {
	Title    string
	URL      string
	External bool
}

func (s *Server) pageDocument(data *loader.CriticalData, deferred loader.Deferred) render.Document {
	title := data.Page.Title

	view := pageView{Title: title}
	addStory := func(st content.LiveStory) {
		view.Stories = append(view.Stories, storyView{ID: st.ID, Type: st.Type, Title: st.Title, Lang: data.Language})
	}
	top, hasTop := data.Content.LiveStory()
	if hasTop {
		addStory(top)
	}
	for _, st := range data.Content.LiveStories() {
		if hasTop && st.ID == top.ID {
			continue
		}
		addStory(st)
	}
	for _, b := range data.Content.Body() {
		if b.Type() == "block" {
			if text := b.Text(); text != "" {
				view.Paragraphs = append(view.Paragraphs, text)
			}
		}
	}

	doc := render.Document{
		Lang:  data.Locale.Tag().String(),
		Title: s.cfg.SiteName + " | " + title,
		Body: render.Fragment(
			render.Raw(`<main class="page">`),
			render.Template(views, "page-header", view),
			render.Raw(`<section class="page-body">`),
			render.SafeHTML(data.Page.Body),
			render.Raw(`</section></main><footer>`),
			render.Suspense(render.Template(views, "footer-fallback", nil), s.footer(deferred)),
			render.Raw(`</footer>`),
		),
	}
	if d := data.Page.SEO.Description; d != "" {
		doc.Meta = append(doc.Meta, render.Meta{Name: "description", Content: d})
	}
	if len(view.Stories) > 0 {
		doc.Head = render.ScriptSrc(liveStoryScript)
	}
	return doc
}

// footer resolves the deferred footer menu. An absent menu renders nothing.
func (s *Server) footer(deferred loader.Deferred) render.Resolver {
	return func(ctx context.Context) (render.Node, error) {
		v, ok := deferred.Get(loader.FooterKey).Await(ctx)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		menu, _ := v.(*commerce.Menu)
		if !ok || menu == nil {
			return nil, nil
		}

		view := footerView{}
		for _, item := range menu.Items {
			u := item.RelativeURL(s.cfg.StoreDomain, s.cfg.CheckoutDomain)
			view.Items = append(view.Items, footerItem{
				Title:    item.Title,
				URL:      u,
				External: u == item.URL && item.URL != "" && item.URL[0] != '/',
			})
		}
		return render.Template(views, "footer", view), nil
	}
}
