package render

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"io"
	"strings"
)

// Context is the render state shared by the nodes of one document.
type Context struct {
	ctx   context.Context
	nonce string

	// pending collects boundaries registered during the current pass. A nil
	// pending resolves boundaries inline.
	pending *[]boundary
	ids     *idSource
}

// Nonce returns the CSP nonce bound to this render.
func (c *Context) Nonce() string { return c.nonce }

// Context returns the render's cancellation context.
func (c *Context) Context() context.Context { return c.ctx }

// Node is a piece of a document.
type Node interface {
	Render(rc *Context, w io.Writer) error
}

// NodeFunc adapts a function to Node.
type NodeFunc func(rc *Context, w io.Writer) error

// Render implements Node.
func (f NodeFunc) Render(rc *Context, w io.Writer) error { return f(rc, w) }

// Text renders s escaped.
func Text(s string) Node {
	return NodeFunc(func(_ *Context, w io.Writer) error {
		_, err := io.WriteString(w, html.EscapeString(s))
		return err
	})
}

// Raw renders trusted markup unchanged.
func Raw(s string) Node {
	return NodeFunc(func(_ *Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

// SafeHTML renders untrusted markup after Sanitize.
func SafeHTML(s string) Node {
	return NodeFunc(func(_ *Context, w io.Writer) error {
		_, err := io.WriteString(w, Sanitize(s))
		return err
	})
}

// Fragment renders nodes in order. Nil nodes are skipped.
func Fragment(nodes ...Node) Node {
	return NodeFunc(func(rc *Context, w io.Writer) error {
		for _, n := range nodes {
			if n == nil {
				continue
			}
			if err := n.Render(rc, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// View is the data passed to templates.
type View struct {
	Nonce string
	Data  any
}

// Template executes the named template with a View of data.
func Template(t *template.Template, name string, data any) Node {
	return NodeFunc(func(rc *Context, w io.Writer) error {
		if err := t.ExecuteTemplate(w, name, View{Nonce: rc.nonce, Data: data}); err != nil {
			return fmt.Errorf("template %s: %w", name, err)
		}
		return nil
	})
}

// Script renders an inline script carrying the nonce.
func Script(code string) Node {
	return NodeFunc(func(rc *Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<script nonce="%s">%s</script>`, html.EscapeString(rc.nonce), escapeScript(code))
		return err
	})
}

// ScriptSrc renders an external script carrying the nonce.
func ScriptSrc(src string) Node {
	return NodeFunc(func(rc *Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<script nonce="%s" src="%s"></script>`, html.EscapeString(rc.nonce), html.EscapeString(src))
		return err
	})
}

// Style renders an inline stylesheet carrying the nonce.
func Style(css string) Node {
	return NodeFunc(func(rc *Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<style nonce="%s">%s</style>`, html.EscapeString(rc.nonce), strings.ReplaceAll(css, "</", `<\/`))
		return err
	})
}

func escapeScript(code string) string {
	return strings.ReplaceAll(code, "</script", `<\/script`)
}

// Meta is a <meta name content> tag.
type Meta struct {
	Name    string
	Content string
}

// Document is a full HTML page.
type Document struct {
	Lang  string
	Title string
	Meta  []Meta
	Head  Node
	Body  Node
}
