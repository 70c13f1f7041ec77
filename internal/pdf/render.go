// AngelaMos | 2026
// render.go

package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/fortune-api/internal/config"
	"github.com/carterperez-dev/fortune-api/internal/core"
)

const (
	ModeSinglePage = "single"
	ModeA4         = "a4"

	cssPixelsPerInch = 96.0
	a4WidthInches    = 8.27
	a4HeightInches   = 11.69
	pageMarginInches = 0.4
)

var ErrDocumentTooTall = errors.New("document exceeds single page height")

type PrintOptions struct {
	WidthInches  float64
	HeightInches float64
	MarginInches float64
}

// Page is one loaded document in a browser tab.
type Page interface {
	Height(ctx context.Context) (int, error)
	Print(ctx context.Context, opts PrintOptions) ([]byte, error)
}

// Browser opens a page for an HTML document and releases every browser
// resource when the returned close func runs.
type Browser interface {
	Open(ctx context.Context, html string, widthPx int) (Page, func(), error)
}

type Result struct {
	Data     []byte
	Mode     string
	HeightPx int
}

type Renderer struct {
	browser Browser
	cfg     config.PDFConfig
}

func NewRenderer(browser Browser, cfg config.PDFConfig) *Renderer {
	return &Renderer{browser: browser, cfg: cfg}
}

// Render prints doc as one tall page when it fits under the configured
// ceiling and falls back to A4 pagination otherwise.
func (r *Renderer) Render(ctx context.Context, title, body string) (*Result, error) {
	ctx, span := core.StartSpan(ctx, "pdf.render")
	defer span.End()

	result, err := withTimeout(ctx, r.cfg.Timeout, func(ctx context.Context) (*Result, error) {
		page, closePage, err := r.browser.Open(ctx, Document(title, body, r.cfg.PageWidthPx), r.cfg.PageWidthPx)
		if err != nil {
			return nil, fmt.Errorf("open pdf page: %w", err)
		}
		defer closePage()

		return r.render(ctx, page)
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("pdf.mode", result.Mode),
		attribute.Int("pdf.height_px", result.HeightPx),
		attribute.Int("pdf.bytes", len(result.Data)),
	)
	return result, nil
}

func (r *Renderer) render(ctx context.Context, page Page) (*Result, error) {
	height, err := page.Height(ctx)
	if err != nil {
		return nil, fmt.Errorf("measure document: %w", err)
	}

	data, err := r.singlePage(ctx, page, height)
	if err == nil {
		return &Result{Data: data, Mode: ModeSinglePage, HeightPx: height}, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("render pdf: %w", ctx.Err())
	}

	slog.Info("single page pdf unavailable, paginating",
		"height_px", height,
		"reason", err,
	)

	data, err = page.Print(ctx, PrintOptions{
		WidthInches:  a4WidthInches,
		HeightInches: a4HeightInches,
		MarginInches: pageMarginInches,
	})
	if err != nil {
		return nil, fmt.Errorf("render a4 pdf: %w", err)
	}

	return &Result{Data: data, Mode: ModeA4, HeightPx: height}, nil
}

func (r *Renderer) singlePage(ctx context.Context, page Page, height int) ([]byte, error) {
	if height <= 0 || height > r.cfg.MaxHeightPx {
		return nil, ErrDocumentTooTall
	}

	return page.Print(ctx, PrintOptions{
		WidthInches:  float64(r.cfg.PageWidthPx) / cssPixelsPerInch,
		HeightInches: float64(height+1) / cssPixelsPerInch,
	})
}

// withTimeout returns when fn finishes or d elapses, whichever is first.
// fn keeps running after a timeout until it observes the cancelled context.
func withTimeout[T any](
	ctx context.Context,
	d time.Duration,
	fn func(context.Context) (T, error),
) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		done <- outcome{v, err}
	}()

	select {
	case o := <-done:
		return o.v, o.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("pdf render timed out: %w", ctx.Err())
	}
}
