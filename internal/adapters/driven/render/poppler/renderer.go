// Package poppler rasterises PDF pages with poppler's pdftoppm and counts
// pages with pdfcpu.
package poppler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/custodia-labs/ragingest/internal/core/domain"
	"github.com/custodia-labs/ragingest/internal/core/ports/driven"
)

// Ensure Renderer implements the interface.
var _ driven.PageRenderer = (*Renderer)(nil)

// Binary is the poppler tool used to render pages.
const Binary = "pdftoppm"

// CommandRunner runs an external program and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Renderer renders PDF pages to PNG images.
type Renderer struct {
	binDir string
	runner CommandRunner
	conf   *model.Configuration
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithBinDir looks for pdftoppm in dir instead of on PATH.
func WithBinDir(dir string) Option {
	return func(r *Renderer) {
		r.binDir = dir
	}
}

// WithRunner replaces the command runner.
func WithRunner(runner CommandRunner) Option {
	return func(r *Renderer) {
		if runner != nil {
			r.runner = runner
		}
	}
}

// New creates a Renderer. Page counting tolerates the minor PDF format
// violations common in scanner output.
func New(opts ...Option) *Renderer {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	r := &Renderer{
		runner: execRunner{},
		conf:   conf,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// binary returns the pdftoppm path to execute.
func (r *Renderer) binary() string {
	if r.binDir == "" {
		return Binary
	}
	return filepath.Join(r.binDir, Binary)
}

// CheckAvailable reports ErrRendererNotFound when pdftoppm cannot be found.
func (r *Renderer) CheckAvailable() error {
	if _, err := exec.LookPath(r.binary()); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrRendererNotFound, r.binary(), err)
	}
	return nil
}

// PageCount returns the number of pages in the PDF at path.
func (r *Renderer) PageCount(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := api.PageCount(f, r.conf)
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	return n, nil
}

// RenderPage renders page (1-based) of the PDF at path to a PNG at dpi.
func (r *Renderer) RenderPage(ctx context.Context, path string, page, dpi int) ([]byte, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: page %d", domain.ErrInvalidInput, page)
	}

	dir, err := os.MkdirTemp("", "ragingest-render-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	root := filepath.Join(dir, "page")
	args := []string{
		"-r", strconv.Itoa(dpi),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-png",
		"-singlefile",
		path,
		root,
	}

	out, err := r.runner.Run(ctx, r.binary(), args...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRendererNotFound, r.binary())
		}
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", Binary, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", Binary, err)
	}

	image, err := os.ReadFile(root + ".png")
	if err != nil {
		return nil, fmt.Errorf("%s produced no image: %w", Binary, err)
	}
	if !bytes.HasPrefix(image, pngSignature) {
		return nil, fmt.Errorf("%s produced an invalid image", Binary)
	}
	return image, nil
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// InstallInstructions returns platform-specific guidance for installing poppler.
func InstallInstructions(goos string) string {
	switch goos {
	case "darwin":
		return "brew install poppler"
	case "windows":
		return "download poppler for Windows and pass its bin directory with --poppler-path"
	default:
		return "apt install poppler-utils (or your distribution's poppler package)"
	}
}
