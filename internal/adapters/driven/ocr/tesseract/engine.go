// Package tesseract implements OCR with Tesseract through gosseract.
//
// A gosseract client is not safe for concurrent use, so the engine keeps
// a fixed pool of clients and lends one to each Recognise call.
package tesseract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/custodia-labs/ragingest/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.OCREngine = (*Engine)(nil)

// ErrClosed is returned by Recognise after Close.
var ErrClosed = errors.New("ocr engine closed")

// client is the subset of *gosseract.Client the engine uses.
type client interface {
	SetLanguage(langs ...string) error
	SetImageFromBytes(data []byte) error
	Text() (string, error)
	Close() error
}

// pooled is a client together with the languages it was last initialised
// with. gosseract reloads traineddata on every SetLanguage call.
type pooled struct {
	client client
	langs  string
}

// Engine recognises text in page images.
type Engine struct {
	pool      chan *pooled
	mu        sync.Mutex
	clients   []client
	closed    bool
	newClient func() client
}

// Option configures an Engine.
type Option func(*Engine)

// withClientFactory replaces the gosseract client constructor.
func withClientFactory(fn func() client) Option {
	return func(e *Engine) {
		e.newClient = fn
	}
}

// New creates an engine with size pooled clients. Clients are created
// lazily, so an engine that is never used never loads Tesseract.
func New(size int, opts ...Option) *Engine {
	e := &Engine{
		pool:      make(chan *pooled, max(size, 1)),
		newClient: func() client { return gosseract.NewClient() },
	}
	for _, opt := range opts {
		opt(e)
	}
	for i := 0; i < cap(e.pool); i++ {
		e.pool <- &pooled{}
	}
	return e
}

// Recognise returns the text Tesseract finds in image.
func (e *Engine) Recognise(ctx context.Context, image []byte, languages []string) (string, error) {
	var slot *pooled
	select {
	case slot = <-e.pool:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { e.pool <- slot }()

	if e.isClosed() {
		return "", ErrClosed
	}
	if slot.client == nil {
		created, err := e.create()
		if err != nil {
			return "", err
		}
		slot.client = created
	}
	c := slot.client

	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	if langs := strings.Join(languages, "+"); langs != slot.langs {
		if err := c.SetLanguage(languages...); err != nil {
			slot.langs = ""
			return "", fmt.Errorf("set language %s: %w", langs, err)
		}
		slot.langs = langs
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognise: %w", err)
	}
	return text, nil
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Engine) create() (client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	c := e.newClient()
	e.clients = append(e.clients, c)
	return c, nil
}

// Close releases every Tesseract client the engine created.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	for _, c := range e.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.clients = nil
	return errors.Join(errs...)
}
