package render

import (
	"context"
	"errors"
	"html/template"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/net/html"
)

func collect(t *testing.T, s *Stream) []string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var chunks []string
	for {
		c, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			return chunks
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		chunks = append(chunks, string(c))
	}
}

// scriptAndStyleNonces returns the nonce attribute of every script and style element.
func scriptAndStyleNonces(t *testing.T, markup string) []string {
	t.Helper()
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("html.Parse() error = %v", err)
	}
	var nonces []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			var nonce string
			for _, a := range n.Attr {
				if a.Key == "nonce" {
					nonce = a.Val
				}
			}
			nonces = append(nonces, nonce)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return nonces
}

func TestStreamShellOnly(t *testing.T) {
	t.Parallel()

	tmpl := template.Must(template.New("page").Parse(`<h1>{{.Data}}</h1><script nonce="{{.Nonce}}">window.x=1</script>`))
	s := Start(context.Background(), Document{
		Lang:  "fr",
		Title: "Shop <About>",
		Meta:  []Meta{{Name: "description", Content: "desc"}},
		Head:  Style("body{margin:0}"),
		Body:  Fragment(Template(tmpl, "page", "About"), nil, Text("a<b")),
	}, Options{Nonce: "abc123"})

	chunks := collect(t, s)
	<-s.AllReady()
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2: %q", len(chunks), chunks)
	}
	body := strings.Join(chunks, "")
	for _, want := range []string{
		`<html lang="fr">`,
		`<title>Shop &lt;About&gt;</title>`,
		`<meta name="description" content="desc">`,
		`<h1>About</h1>`,
		`a&lt;b`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
	if !strings.HasSuffix(body, closingMarkup) {
		t.Errorf("body does not end with closing markup: %q", body)
	}
	for _, n := range scriptAndStyleNonces(t, body) {
		if n != "abc123" {
			t.Errorf("nonce = %q, want abc123", n)
		}
	}
}

func TestStreamSuspenseCompletionOrder(t *testing.T) {
	t.Parallel()

	slow := make(chan struct{})
	s := Start(context.Background(), Document{
		Title: "t",
		Body: Fragment(
			Suspense(Text("loading slow"), func(ctx context.Context) (Node, error) {
				select {
				case <-slow:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				return Text("slow content"), nil
			}),
			Suspense(Text("loading fast"), func(context.Context) (Node, error) {
				return Text("fast content"), nil
			}),
			Suspense(nil, func(context.Context) (Node, error) {
				return nil, nil
			}),
		),
	}, Options{Nonce: "n0nce"})

	<-s.ShellReady()
	select {
	case <-s.AllReady():
		t.Fatal("AllReady closed before the slow boundary resolved")
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shell, err := s.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(shell), `<div id="sf-b-0">loading slow</div>`) ||
		!strings.Contains(string(shell), `<div id="sf-b-1">loading fast</div>`) {
		t.Errorf("shell = %s", shell)
	}

	close(slow)
	body := string(shell) + strings.Join(collect(t, s), "")

	fast := strings.Index(body, "fast content")
	slowAt := strings.Index(body, "slow content")
	if fast < 0 || slowAt < 0 {
		t.Fatalf("missing boundary content:\n%s", body)
	}
	if strings.Count(body, "function $RC") != 1 {
		t.Errorf("swap helper emitted %d times", strings.Count(body, "function $RC"))
	}
	if !strings.Contains(body, `$RC("sf-b-1","sf-s-1")`) || !strings.Contains(body, `$RC("sf-b-0","sf-s-0")`) {
		t.Errorf("missing swap calls:\n%s", body)
	}
	if !strings.HasSuffix(body, closingMarkup) {
		t.Error("body does not end with closing markup")
	}
	for _, n := range scriptAndStyleNonces(t, body) {
		if n != "n0nce" {
			t.Errorf("nonce = %q, want n0nce", n)
		}
	}
}

func TestStreamShellError(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var errs []error
	shellErr := errors.New("shell exploded")
	s := Start(context.Background(), Document{
		Body: NodeFunc(func(*Context, io.Writer) error { return shellErr }),
	}, Options{OnError: func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	}})

	body := strings.Join(collect(t, s), "")
	s.Wait()
	if !strings.Contains(body, "Internal Server Error") || !strings.HasSuffix(body, closingMarkup) {
		t.Errorf("body = %q", body)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(errs) != 1 || !errors.Is(errs[0], shellErr) {
		t.Errorf("OnError calls = %v", errs)
	}
}

func TestStreamShellPanic(t *testing.T) {
	t.Parallel()

	var called bool
	s := Start(context.Background(), Document{
		Body: NodeFunc(func(*Context, io.Writer) error { panic("bad node") }),
	}, Options{OnError: func(error) { called = true }})

	body := strings.Join(collect(t, s), "")
	s.Wait()
	if !called {
		t.Error("OnError was not called for a panic")
	}
	if !strings.HasSuffix(body, closingMarkup) {
		t.Errorf("body = %q", body)
	}
}

func TestStreamBoundaryErrorKeepsFallback(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var count int
	s := Start(context.Background(), Document{
		Body: Suspense(Text("fallback"), func(context.Context) (Node, error) {
			return nil, errors.New("boundary failed")
		}),
	}, Options{OnError: func(error) {
		mu.Lock()
		count++
		mu.Unlock()
	}})

	body := strings.Join(collect(t, s), "")
	s.Wait()
	if !strings.Contains(body, "fallback") || strings.Contains(body, "sf-s-0") {
		t.Errorf("body = %s", body)
	}
	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("OnError calls = %d, want 1", count)
	}
}

func TestStreamNestedBoundary(t *testing.T) {
	t.Parallel()

	s := Start(context.Background(), Document{
		Body: Suspense(Text("outer loading"), func(context.Context) (Node, error) {
			return Fragment(Text("outer"), Suspense(Text("inner loading"), func(context.Context) (Node, error) {
				return Text("inner"), nil
			})), nil
		}),
	}, Options{Nonce: "n"})

	body := strings.Join(collect(t, s), "")
	outer := strings.Index(body, `$RC("sf-b-0","sf-s-0")`)
	inner := strings.Index(body, `$RC("sf-b-1","sf-s-1")`)
	if outer < 0 || inner < 0 || inner < outer {
		t.Errorf("nested boundary out of order:\n%s", body)
	}
}

func TestStreamCloseCancelsBoundaries(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	s := Start(context.Background(), Document{
		Body: Suspense(Text("waiting"), func(ctx context.Context) (Node, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}),
	}, Options{OnError: func(err error) {
		t.Errorf("unexpected OnError: %v", err)
	}})

	<-started
	s.Close()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after Close")
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Next() after Close error = %v, want io.EOF", err)
	}
}

func TestRenderString(t *testing.T) {
	t.Parallel()

	got, err := RenderString(context.Background(), "xyz", Fragment(
		Script("if(a</script>b){}"),
		ScriptSrc("/app.js"),
		Suspense(Text("never"), func(context.Context) (Node, error) {
			return Raw("<p>inline</p>"), nil
		}),
	))
	if err != nil {
		t.Fatal(err)
	}
	want := `<script nonce="xyz">if(a<\/script>b){}</script><script nonce="xyz" src="/app.js"></script><p>inline</p>`
	if got != want {
		t.Errorf("RenderString() = %q, want %q", got, want)
	}
}
