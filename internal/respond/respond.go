package respond

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/nao1215/storefront/internal/bot"
	"github.com/nao1215/storefront/internal/csp"
	"github.com/nao1215/storefront/internal/render"
)

// ContentType is the Content-Type of every page response.
const ContentType = "text/html"

// Observer receives orchestrator measurements.
type Observer interface {
	ObserveRenderError()
	ObserveResponse(bot bool, status int)
}

type nopObserver struct{}

func (nopObserver) ObserveRenderError()       {}
func (nopObserver) ObserveResponse(bool, int) {}

// Orchestrator starts renders and decides when a response is ready.
type Orchestrator struct {
	classifier *bot.Classifier
	logger     *slog.Logger
	observer   Observer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger for render errors.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithObserver sets the measurement sink.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// New creates an Orchestrator. A nil classifier treats every client as human.
func New(classifier *bot.Classifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{classifier: classifier, observer: nopObserver{}}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Response is a page response whose body may still be rendering.
type Response struct {
	Status int
	Header http.Header
	Bot    bool

	ctx    context.Context
	stream *render.Stream
}

// Handle renders doc for r under policy. Bots get a response once the whole
// document is rendered; other clients as soon as the shell is ready. A render
// error before that point turns the status into 500.
func (o *Orchestrator) Handle(r *http.Request, doc render.Document, policy csp.Policy) *Response {
	var failed atomic.Bool
	logger := o.logger.With("path", r.URL.Path)

	stream := render.Start(r.Context(), doc, render.Options{
		Nonce: policy.Nonce,
		OnError: func(err error) {
			failed.Store(true)
			o.observer.ObserveRenderError()
			logger.Error("render failed", "error", err)
		},
	})

	isBot := o.classifier.IsBot(r.UserAgent())
	if isBot {
		<-stream.AllReady()
	} else {
		<-stream.ShellReady()
	}

	status := http.StatusOK
	if failed.Load() {
		status = http.StatusInternalServerError
	}

	header := make(http.Header)
	header.Set("Content-Type", ContentType)
	header.Set("Content-Security-Policy", policy.Header)

	o.observer.ObserveResponse(isBot, status)
	return &Response{
		Status: status,
		Header: header,
		Bot:    isBot,
		ctx:    r.Context(),
		stream: stream,
	}
}

// WriteTo sends the status, headers and every chunk to w, flushing after each
// chunk. The render is stopped and joined before WriteTo returns.
func (resp *Response) WriteTo(w http.ResponseWriter) error {
	defer func() {
		resp.stream.Close()
		resp.stream.Wait()
	}()

	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.Status)
	flusher, _ := w.(http.Flusher)

	for {
		chunk, err := resp.stream.Next(resp.ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if _, err := w.Write(chunk); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// Close stops the render without writing it.
func (resp *Response) Close() {
	resp.stream.Close()
	resp.stream.Wait()
}
