package chrome

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"html2pdf-api/internal/config"
	"html2pdf-api/internal/domain"
	"html2pdf-api/internal/infra/logging"
)

// ChromedpRenderer starts a fresh headless Chrome through chromedp for every
// call and shuts it down before returning.
type ChromedpRenderer struct {
	cfg   config.Config
	stats *counters
}

// NewChromedpRenderer creates a ChromedpRenderer.
func NewChromedpRenderer(cfg config.Config) *ChromedpRenderer {
	return &ChromedpRenderer{cfg: cfg, stats: &counters{engine: "chromedp"}}
}

// Stats returns the browser lifecycle counters.
func (r *ChromedpRenderer) Stats() Stats { return r.stats.snapshot() }

func (r *ChromedpRenderer) allocatorOptions(profileDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profileDir),
		// Software rendering only; minimal containers have no usable GPU stack.
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.cfg.PDF.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.cfg.PDF.ChromePath))
	}
	if r.cfg.PDF.ChromeNoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	return opts
}

// RenderHTMLToPDF loads html into an isolated browser, waits for the network
// to go idle and prints the page.
func (r *ChromedpRenderer) RenderHTMLToPDF(ctx context.Context, html string) (pdf []byte, err error) {
	if err := (domain.ConversionRequest{HTML: html}).Validate(); err != nil {
		return nil, err
	}

	profileDir, err := createProfileDir(r.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBrowserLaunch, err)
	}
	defer os.RemoveAll(profileDir)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, r.allocatorOptions(profileDir)...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	release := r.stats.launch()
	defer func() {
		if cerr := chromedp.Cancel(browserCtx); cerr != nil {
			logging.Debug("Chrome close returned error", "error", cerr)
		}
		browserCancel()
		release(err)
	}()

	// An empty Run starts the browser and opens the first tab.
	if err = chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBrowserLaunch, err)
	}

	runCtx := browserCtx
	if timeout := r.cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(browserCtx, timeout)
		defer cancel()
	}

	pdf, err = renderInTab(runCtx, html, r.cfg.Paper(), r.cfg.PDF.MarginInches, r.cfg.NetworkIdle())
	if err != nil {
		return nil, err
	}
	return checkPDF(pdf)
}

// renderInTab replaces the document of the current tab with html and prints it.
func renderInTab(ctx context.Context, html string, paper config.PaperSize, margin float64, idle time.Duration) ([]byte, error) {
	watcher := newIdleWatcher()
	chromedp.ListenTarget(ctx, watcher.handle)

	err := chromedp.Run(ctx,
		network.Enable(),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frame, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			watcher.touch()
			return page.SetDocumentContent(frame.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return watcher.wait(ctx, idle)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPageLoad, err)
	}

	var buf []byte
	err = chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, _, err = printParams(paper, margin).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPDFRender, err)
	}
	return buf, nil
}

func printParams(paper config.PaperSize, margin float64) *page.PrintToPDFParams {
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithPreferCSSPageSize(true).
		WithPaperWidth(paper.Width).
		WithPaperHeight(paper.Height).
		WithMarginTop(margin).
		WithMarginBottom(margin).
		WithMarginLeft(margin).
		WithMarginRight(margin)
}
