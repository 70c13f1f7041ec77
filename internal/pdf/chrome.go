// AngelaMos | 2026
// chrome.go

package pdf

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/carterperez-dev/fortune-api/internal/config"
)

const measureScript = `() => Math.ceil(Math.max(
	document.body.scrollHeight,
	document.documentElement.scrollHeight,
	document.body.getBoundingClientRect().height
))`

// Chrome launches a fresh headless browser for every document.
type Chrome struct {
	bin       string
	noSandbox bool
}

func NewChrome(cfg config.PDFConfig) *Chrome {
	return &Chrome{bin: cfg.ChromeBin, noSandbox: cfg.NoSandbox}
}

func (c *Chrome) Open(ctx context.Context, doc string, widthPx int) (Page, func(), error) {
	l := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(c.noSandbox).
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	if c.bin != "" {
		l = l.Bin(c.bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	cleanup := func() {
		if err := browser.Close(); err != nil {
			slog.Debug("close browser", "error", err)
		}
		l.Kill()
		l.Cleanup()
	}

	if err := browser.Connect(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("connect chrome: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("create page: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             widthPx,
		Height:            1024,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("set viewport: %w", err)
	}

	if err := page.SetDocumentContent(doc); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("load document: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wait for document: %w", err)
	}

	return &chromePage{page: page}, cleanup, nil
}

type chromePage struct {
	page *rod.Page
}

func (p *chromePage) Height(ctx context.Context) (int, error) {
	res, err := p.page.Context(ctx).Eval(measureScript)
	if err != nil {
		return 0, fmt.Errorf("evaluate height: %w", err)
	}
	return res.Value.Int(), nil
}

func (p *chromePage) Print(ctx context.Context, opts PrintOptions) ([]byte, error) {
	margin := opts.MarginInches

	stream, err := p.page.Context(ctx).PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
		PaperWidth:      &opts.WidthInches,
		PaperHeight:     &opts.HeightInches,
		MarginTop:       &margin,
		MarginBottom:    &margin,
		MarginLeft:      &margin,
		MarginRight:     &margin,
	})
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	return data, nil
}
