package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Error reports a document conversion failure.
type Error struct {
	Format string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("convert to %s: %v", e.Format, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Chrome converts rendered HTML into a paginated PDF and a single-page
// preview image using a headless browser.
type Chrome struct {
	// ExecPath overrides the browser binary location when set.
	ExecPath string
}

func NewChrome(execPath string) *Chrome {
	return &Chrome{ExecPath: execPath}
}

// RenderPDF prints the document to an A4 PDF.
func (c *Chrome) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	var pdf []byte
	err := c.run(ctx, html, chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			// A4: 210mm x 297mm -> inches: 8.27 x 11.69
			pdf, _, err = page.PrintToPDF().WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	})
	if err != nil {
		return nil, &Error{Format: "pdf", Err: err}
	}
	return pdf, nil
}

// RenderImage captures a full-page PNG preview of the document.
func (c *Chrome) RenderImage(ctx context.Context, html string) ([]byte, error) {
	var png []byte
	err := c.run(ctx, html, chromedp.Tasks{
		// A4 page at 96dpi
		chromedp.EmulateViewport(794, 1123),
		chromedp.FullScreenshot(&png, 100),
	})
	if err != nil {
		return nil, &Error{Format: "png", Err: err}
	}
	return png, nil
}

func (c *Chrome) run(ctx context.Context, html string, tasks chromedp.Tasks) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	cctx, cancelCtx := chromedp.NewContext(allocCtx)
	defer cancelCtx()

	ctx2, cancel2 := context.WithTimeout(cctx, 60*time.Second)
	defer cancel2()

	// Serve the document from a temp file so relative asset references
	// resolve the same way for PDF and screenshot capture.
	tmpDir, err := os.MkdirTemp("", "resume-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	htmlPath := filepath.Join(tmpDir, "index.html")
	if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
		return err
	}

	return chromedp.Run(ctx2,
		chromedp.Navigate("file://"+htmlPath),
		chromedp.WaitReady("body", chromedp.ByQuery),
		tasks,
	)
}
