// internal/browser/session.go

// Package browser implements the page automation collaborator on top of
// chromedp. A Session is an explicit handle for one Chrome tab; it is the
// only thing in the repository that talks CDP.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/d3vnull/restitch/api/schemas"
	"github.com/d3vnull/restitch/internal/config"
)

// Session drives a single Chrome tab and implements schemas.PageAgent.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	cfg         config.BrowserConfig
	logger      *zap.Logger
	limiter     *rate.Limiter
}

// compile time interface check
var _ schemas.PageAgent = (*Session)(nil)

// NewSession launches a browser and opens a fresh tab. The caller owns the
// session and must Close it.
func NewSession(parent context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// Start the browser now so failures surface here, not on first action.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	ops := cfg.MaxOpsPerSecond
	if ops <= 0 {
		ops = 25
	}

	return &Session{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		cfg:         cfg,
		logger:      logger.Named("browser"),
		limiter:     rate.NewLimiter(rate.Limit(ops), 1),
	}, nil
}

// Close tears down the tab and the browser process.
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
}

// run executes chromedp actions under both the session lifetime and the
// caller's context, pacing CDP traffic through the session rate limiter.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	opCtx, opCancel := combineContext(s.ctx, ctx)
	defer opCancel()
	return chromedp.Run(opCtx, actions...)
}

// combineContext derives a context from base that is also cancelled when
// other ends, so caller deadlines apply to session scoped work.
func combineContext(base, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(base)
	stop := context.AfterFunc(other, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Navigate loads the URL and waits for the page to stabilize.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating to URL", zap.String("url", url))

	navTimeout := s.cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 90 * time.Second
	}
	navCtx, navCancel := context.WithTimeout(ctx, navTimeout)
	defer navCancel()

	if err := s.run(navCtx, chromedp.Navigate(url)); err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation timed out after %s: %w", navTimeout, err)
		}
		return fmt.Errorf("navigation failed: %w", err)
	}

	// Quiet period: let late resources and reflows settle.
	if wait := s.cfg.PostLoadWait; wait > 0 {
		if err := s.run(ctx, chromedp.Sleep(wait)); err != nil {
			return err
		}
	}
	return nil
}

// Click clicks the first element matching the selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	s.logger.Debug("Clicking element", zap.String("selector", selector))
	err := s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("click failed for selector %q: %w", selector, err)
	}
	return nil
}

// ClickAt clicks at viewport pixel coordinates via raw CDP mouse events.
func (s *Session) ClickAt(ctx context.Context, x, y float64) error {
	s.logger.Debug("Clicking at coordinates", zap.Float64("x", x), zap.Float64("y", y))
	if err := s.run(ctx, chromedp.MouseClickXY(x, y)); err != nil {
		return fmt.Errorf("click failed at (%.1f, %.1f): %w", x, y, err)
	}
	return nil
}

// Hover moves the pointer over the element matching the selector.
func (s *Session) Hover(ctx context.Context, selector string) error {
	center, err := s.elementCenter(ctx, selector)
	if err != nil {
		return fmt.Errorf("hover failed for selector %q: %w", selector, err)
	}
	return s.HoverAt(ctx, center[0], center[1])
}

// HoverAt dispatches a mouse move to the given viewport coordinates.
func (s *Session) HoverAt(ctx context.Context, x, y float64) error {
	s.logger.Debug("Hovering at coordinates", zap.Float64("x", x), zap.Float64("y", y))
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("hover failed at (%.1f, %.1f): %w", x, y, err)
	}
	return nil
}

// Type focuses the element matching the selector and sends the text.
func (s *Session) Type(ctx context.Context, selector, text string) error {
	s.logger.Debug("Typing into element",
		zap.String("selector", selector), zap.Int("text_length", len(text)))
	err := s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("type failed for selector %q: %w", selector, err)
	}
	return nil
}

// TypeActive inserts text into whichever element currently holds focus.
func (s *Session) TypeActive(ctx context.Context, text string) error {
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.InsertText(text).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("type into focused element failed: %w", err)
	}
	return nil
}

// Scroll scrolls the page in the given direction.
func (s *Session) Scroll(ctx context.Context, direction string) error {
	s.logger.Debug("Scrolling page", zap.String("direction", direction))

	var script string
	switch direction {
	case "down":
		script = `window.scrollBy({top: window.innerHeight * 0.8, behavior: 'instant'});`
	case "up":
		script = `window.scrollBy({top: -window.innerHeight * 0.8, behavior: 'instant'});`
	case "bottom":
		script = `window.scrollTo({top: document.body.scrollHeight, behavior: 'instant'});`
	case "top":
		script = `window.scrollTo({top: 0, behavior: 'instant'});`
	default:
		return fmt.Errorf("invalid scroll direction: %s (supported: up, down, top, bottom)", direction)
	}

	if err := s.run(ctx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

// ScrollIntoView brings the matching element into the viewport.
func (s *Session) ScrollIntoView(ctx context.Context, selector string) error {
	err := s.run(ctx, chromedp.ScrollIntoView(selector, chromedp.ByQuery))
	if err != nil {
		return fmt.Errorf("scroll into view failed for selector %q: %w", selector, err)
	}
	return nil
}

// Evaluate runs a script in the page and returns its JSON encoded result.
func (s *Session) Evaluate(ctx context.Context, script string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := s.run(ctx, chromedp.Evaluate(script, &raw)); err != nil {
		return nil, fmt.Errorf("script evaluation failed: %w", err)
	}
	return raw, nil
}

// IsVisible reports whether the selector matches a rendered, visible
// element. The check is a single cheap evaluation bounded by the timeout.
func (s *Session) IsVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	quoted, err := json.Marshal(selector)
	if err != nil {
		return false, err
	}
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		const rect = el.getBoundingClientRect();
		if (rect.width <= 0 || rect.height <= 0) return false;
		const style = window.getComputedStyle(el);
		return style.display !== 'none' && style.visibility !== 'hidden';
	})()`, quoted)

	var visible bool
	if err := s.run(probeCtx, chromedp.Evaluate(script, &visible)); err != nil {
		return false, err
	}
	return visible, nil
}

// Screenshot captures the current viewport as a PNG.
func (s *Session) Screenshot(ctx context.Context) (*schemas.Screenshot, error) {
	var buf []byte
	var dims []int
	err := s.run(ctx,
		chromedp.CaptureScreenshot(&buf),
		chromedp.Evaluate(`[window.innerWidth, window.innerHeight]`, &dims),
	)
	if err != nil {
		return nil, fmt.Errorf("screenshot capture failed: %w", err)
	}
	shot := &schemas.Screenshot{Data: buf, Format: "png"}
	if len(dims) == 2 {
		shot.Width = dims[0]
		shot.Height = dims[1]
	}
	return shot, nil
}

// elementCenter returns the viewport pixel center of the matching element.
func (s *Session) elementCenter(ctx context.Context, selector string) ([2]float64, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return [2]float64{}, err
	}
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return null;
		const rect = el.getBoundingClientRect();
		return [rect.left + rect.width / 2, rect.top + rect.height / 2];
	})()`, quoted)

	var center []float64
	if err := s.run(ctx, chromedp.Evaluate(script, &center)); err != nil {
		return [2]float64{}, err
	}
	if len(center) != 2 {
		return [2]float64{}, fmt.Errorf("element not found: %q", selector)
	}
	return [2]float64{center[0], center[1]}, nil
}
