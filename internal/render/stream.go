package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"sync"
)

// closingMarkup terminates every document.
const closingMarkup = "</body></html>"

// errorShell replaces a shell that failed to render.
const errorShell = `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Internal Server Error</title></head>` +
	`<body><h1>Internal Server Error</h1>`

// Options configures Start.
type Options struct {
	// Nonce is bound to every inline script and style.
	Nonce string

	// OnError is called for each render failure. It may be called from
	// several goroutines.
	OnError func(error)
}

// Stream is a document being rendered. Chunks are read with Next.
type Stream struct {
	ctx    context.Context
	cancel context.CancelFunc
	nonce  string
	onErr  func(error)
	ids    idSource

	mu       sync.Mutex
	queue    [][]byte
	finished bool
	closed   bool
	notify   chan struct{}
	revealed bool

	boundaries sync.WaitGroup
	shellReady chan struct{}
	allReady   chan struct{}
}

// Start renders doc in the background. Cancelling ctx or calling Close stops
// pending boundaries; the stream is still terminated with closing markup.
func Start(ctx context.Context, doc Document, opts Options) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		ctx:        ctx,
		cancel:     cancel,
		nonce:      opts.Nonce,
		onErr:      opts.OnError,
		notify:     make(chan struct{}, 1),
		shellReady: make(chan struct{}),
		allReady:   make(chan struct{}),
	}
	if s.onErr == nil {
		s.onErr = func(error) {}
	}
	go s.run(doc)
	return s
}

// Nonce returns the nonce bound to the stream.
func (s *Stream) Nonce() string { return s.nonce }

// ShellReady is closed once the first chunk is available.
func (s *Stream) ShellReady() <-chan struct{} { return s.shellReady }

// AllReady is closed once every chunk is available.
func (s *Stream) AllReady() <-chan struct{} { return s.allReady }

// Next returns the next chunk, or io.EOF after the last one.
func (s *Stream) Next(ctx context.Context) ([]byte, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			chunk := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return chunk, nil
		}
		if s.finished {
			s.mu.Unlock()
			return nil, io.EOF
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close cancels rendering and discards unread chunks.
func (s *Stream) Close() {
	s.cancel()
	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.mu.Unlock()
}

// Wait blocks until rendering has fully stopped.
func (s *Stream) Wait() {
	<-s.allReady
}

func (s *Stream) push(chunk []byte) {
	s.mu.Lock()
	if !s.closed {
		s.queue = append(s.queue, chunk)
	}
	s.mu.Unlock()
	s.wake()
}

func (s *Stream) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Stream) finish() {
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()
	s.wake()
}

func (s *Stream) run(doc Document) {
	defer close(s.allReady)
	defer s.finish()

	var pending []boundary
	shell, err := s.renderPass(func(rc *Context, w io.Writer) error {
		return writeShell(rc, w, doc)
	}, &pending)
	if err != nil {
		s.onErr(err)
		s.push([]byte(errorShell + closingMarkup))
		close(s.shellReady)
		s.cancel()
		return
	}

	s.push(shell)
	close(s.shellReady)
	s.launch(pending)
	s.boundaries.Wait()
	s.push([]byte(closingMarkup))
	s.cancel()
}

// renderPass renders fn into a buffer, collecting boundaries into pending.
func (s *Stream) renderPass(fn func(rc *Context, w io.Writer) error, pending *[]boundary) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()
	var buf bytes.Buffer
	rc := &Context{ctx: s.ctx, nonce: s.nonce, pending: pending, ids: &s.ids}
	if err := fn(rc, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Stream) launch(bs []boundary) {
	for _, b := range bs {
		s.boundaries.Add(1)
		go s.resolve(b)
	}
}

func (s *Stream) resolve(b boundary) {
	defer s.boundaries.Done()

	var pending []boundary
	seg, err := s.renderPass(func(rc *Context, w io.Writer) error {
		n, err := b.resolve(rc.ctx)
		if err != nil {
			return err
		}
		if s.ctx.Err() != nil {
			return nil
		}
		return writeSegment(rc, w, b.id, n)
	}, &pending)
	switch {
	case err != nil && !errors.Is(err, context.Canceled):
		s.onErr(fmt.Errorf("boundary %d: %w", b.id, err))
		return
	case err != nil || len(seg) == 0:
		return
	}

	s.pushSegment(seg)
	s.launch(pending)
}

// pushSegment queues seg, preceded by the swap helper the first time.
func (s *Stream) pushSegment(seg []byte) {
	s.mu.Lock()
	if !s.closed {
		if !s.revealed {
			s.revealed = true
			s.queue = append(s.queue, []byte(fmt.Sprintf(`<script nonce="%s">%s</script>`, html.EscapeString(s.nonce), revealScript)))
		}
		s.queue = append(s.queue, seg)
	}
	s.mu.Unlock()
	s.wake()
}

func writeShell(rc *Context, w io.Writer, doc Document) error {
	lang := doc.Lang
	if lang == "" {
		lang = "en"
	}
	if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="%s"><head><meta charset="utf-8">`+
		`<meta name="viewport" content="width=device-width,initial-scale=1">`, html.EscapeString(lang)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, `<title>%s</title>`, html.EscapeString(doc.Title)); err != nil {
		return err
	}
	for _, m := range doc.Meta {
		if _, err := fmt.Fprintf(w, `<meta name="%s" content="%s">`, html.EscapeString(m.Name), html.EscapeString(m.Content)); err != nil {
			return err
		}
	}
	if doc.Head != nil {
		if err := doc.Head.Render(rc, w); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, `</head><body>`); err != nil {
		return err
	}
	if doc.Body != nil {
		return doc.Body.Render(rc, w)
	}
	return nil
}

func writeSegment(rc *Context, w io.Writer, id int, n Node) error {
	if _, err := fmt.Fprintf(w, `<div hidden id="%s%d">`, segmentPrefix, id); err != nil {
		return err
	}
	if n != nil {
		if err := n.Render(rc, w); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, `</div>`); err != nil {
		return err
	}
	return Script(fmt.Sprintf(`$RC("%s%d","%s%d")`, boundaryPrefix, id, segmentPrefix, id)).Render(rc, w)
}

// RenderString renders n synchronously, resolving boundaries inline.
func RenderString(ctx context.Context, nonce string, n Node) (string, error) {
	var buf bytes.Buffer
	rc := &Context{ctx: ctx, nonce: nonce, ids: &idSource{}}
	if err := n.Render(rc, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
