package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/css"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/surfview/pkg/cookies"
	"github.com/Sriram-PR/surfview/pkg/links"
	"github.com/Sriram-PR/surfview/pkg/log"
	"github.com/Sriram-PR/surfview/pkg/models"
	"github.com/Sriram-PR/surfview/pkg/policy"
	"github.com/Sriram-PR/surfview/pkg/sanitize"
	"github.com/Sriram-PR/surfview/pkg/utils"
)

// UserAgent is the single spoofed identity used by every code path that talks to a site,
// including the live-mode collaborator outside this module
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const DefaultCaptureTimeout = 20 * time.Second

// Viewport is the emulated device
type Viewport struct {
	Width  int64
	Height int64
	Scale  float64
}

// DefaultViewport is a standard desktop at 2x
var DefaultViewport = Viewport{Width: 1280, Height: 900, Scale: 2}

// Options configures every session a Launcher starts
type Options struct {
	ExecPath        string
	UserAgent       string
	Viewport        Viewport
	HarvestTimeout  time.Duration
	CaptureTimeout  time.Duration
	IdleWindow      time.Duration
	IdleMaxInflight int
	CookieScope     cookies.Scope
	OnBlocked       func(policy.Category) // Called for every request a policy aborts; may be nil
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = UserAgent
	}
	if o.Viewport.Width <= 0 || o.Viewport.Height <= 0 {
		o.Viewport.Width, o.Viewport.Height = DefaultViewport.Width, DefaultViewport.Height
	}
	if o.Viewport.Scale <= 0 {
		o.Viewport.Scale = DefaultViewport.Scale
	}
	if o.HarvestTimeout <= 0 {
		o.HarvestTimeout = cookies.DefaultTimeout
	}
	if o.CaptureTimeout <= 0 {
		o.CaptureTimeout = DefaultCaptureTimeout
	}
	if o.IdleWindow <= 0 {
		o.IdleWindow = DefaultIdleWindow
	}
	if o.IdleMaxInflight < 0 {
		o.IdleMaxInflight = DefaultIdleMaxInflight
	}
	if o.CookieScope == "" {
		o.CookieScope = cookies.ScopeNaive
	}
	return o
}

// Launcher starts isolated browser sessions
type Launcher struct {
	opts Options
	log  *logrus.Entry
}

// NewLauncher creates a Launcher; opts.ExecPath should come from ResolveExecPath
func NewLauncher(opts Options, log *logrus.Entry) *Launcher {
	return &Launcher{opts: opts.withDefaults(), log: log}
}

// allocatorOptions builds the process flags for a non-persistent, sandboxed engine
func (l *Launcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("incognito", true),
		chromedp.Flag("disk-cache-size", "0"),
		chromedp.Flag("media-cache-size", "0"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", false), // The process sandbox stays on
		chromedp.Flag("disable-setuid-sandbox", false),
		chromedp.UserAgent(l.opts.UserAgent),
		chromedp.WindowSize(int(l.opts.Viewport.Width), int(l.opts.Viewport.Height)),
	)
	if l.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ExecPath))
	}
	return opts
}

// Launch starts a fresh engine process with a throwaway profile
// The process lives until Close or until ctx ends
func (l *Launcher) Launch(ctx context.Context) (*Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, l.allocatorOptions()...)
	adapter := log.NewChromedpAdapter(l.log.WithField("component", "chromedp"))
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, adapter.ContextOptions()...)

	// The first Run starts the process and attaches the initial tab, which becomes the capture tab
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %v", utils.ErrSessionLaunch, err)
	}

	s := &Session{
		opts:          l.opts,
		log:           l.log,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		harvester:     cookies.NewHarvester(l.log.WithField("component", "harvester"), l.opts.CookieScope, l.opts.HarvestTimeout),
	}
	if c := chromedp.FromContext(browserCtx); c != nil && c.Browser != nil {
		if proc := c.Browser.Process(); proc != nil {
			s.pid = proc.Pid
		}
	}
	l.log.WithField("pid", s.pid).Debug("Render session launched")
	return s, nil
}

// Session is one engine process with two tabs, the harvest tab and the capture tab, used one after the other
// It is owned by exactly one request and must be closed on every exit path
type Session struct {
	opts      Options
	log       *logrus.Entry
	harvester *cookies.Harvester
	pid       int

	allocCancel   context.CancelFunc
	browserCtx    context.Context // Also the capture tab
	browserCancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// PID returns the engine's process id, or 0 if unknown
func (s *Session) PID() int { return s.pid }

// HarvestCookies runs the cookie preflight on a dedicated tab that is closed before returning
// Failures are logged and yield no cookies
func (s *Session) HarvestCookies(ctx context.Context, u sanitize.URL) []models.CookieRecord {
	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	defer tabCancel()

	interceptRequests(tabCtx, policy.Harvest, s.log, s.opts.OnBlocked)

	setupCtx, setupCancel := bindContext(tabCtx, ctx)
	err := chromedp.Run(setupCtx,
		fetch.Enable(),
		emulation.SetScriptExecutionDisabled(true),
		emulation.SetUserAgentOverride(s.opts.UserAgent),
	)
	setupCancel()
	if err != nil {
		s.log.Debugf("Harvest tab setup failed: %v", fmt.Errorf("%w: %v", utils.ErrHarvestFailure, err))
		return []models.CookieRecord{}
	}

	records := s.harvester.Harvest(ctx, tabPage{ctx: tabCtx}, u)

	if err := chromedp.Cancel(tabCtx); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Debugf("Harvest tab close failed: %v", err)
	}
	return records
}

// Capture navigates the capture tab to u with cookies replayed and returns the screenshot and DOM-derived data
// Errors wrap utils.ErrNavigationTimeout when the capture bound is hit and utils.ErrNavigationFailure otherwise
func (s *Session) Capture(ctx context.Context, u sanitize.URL, cookieSet []models.CookieRecord) (*models.Capture, error) {
	tracker := newIdleTracker(s.opts.IdleWindow, s.opts.IdleMaxInflight, nil)
	chromedp.ListenTarget(s.browserCtx, tracker.Observe)
	interceptRequests(s.browserCtx, policy.Capture, s.log, s.opts.OnBlocked)

	setupCtx, setupCancel := bindContext(s.browserCtx, ctx)
	setup := []chromedp.Action{
		network.Enable(),
		fetch.Enable(),
		emulation.SetScriptExecutionDisabled(true),
		emulation.SetDeviceMetricsOverride(s.opts.Viewport.Width, s.opts.Viewport.Height, s.opts.Viewport.Scale, false),
		emulation.SetUserAgentOverride(s.opts.UserAgent),
	}
	if len(cookieSet) > 0 {
		setup = append(setup, network.SetCookies(cookies.ToParams(cookieSet)))
	}
	err := chromedp.Run(setupCtx, setup...)
	setupCancel()
	if err != nil {
		return nil, s.navigationError(ctx, nil, fmt.Errorf("prepare capture tab: %w", err))
	}

	captureCtx, captureCancel := context.WithTimeout(s.browserCtx, s.opts.CaptureTimeout)
	defer captureCancel()
	stop := context.AfterFunc(ctx, captureCancel)
	defer stop()

	var (
		image    []byte
		html     string
		finalURL string
		elapsed  time.Duration
	)
	tracker.Reset()
	start := time.Now()
	err = chromedp.Run(captureCtx,
		chromedp.Navigate(u.String()),
		chromedp.ActionFunc(tracker.Wait),
		chromedp.ActionFunc(s.hideConsentOverlays),
		fullPageScreenshot(&image),
		chromedp.ActionFunc(func(context.Context) error {
			elapsed = time.Since(start)
			return nil
		}),
		domSnapshot(&html),
		currentURL(&finalURL),
	)
	if err != nil {
		return nil, s.navigationError(ctx, captureCtx, err)
	}

	if mt := mimetype.Detect(image); !mt.Is("image/png") {
		return nil, fmt.Errorf("%w: screenshot is %s, not image/png", utils.ErrCapture, mt.String())
	}

	base := u.URL()
	if parsed, parseErr := url.Parse(finalURL); parseErr == nil && parsed.IsAbs() {
		base = parsed
	}
	title, raw, err := links.Extract(html, base)
	if err != nil {
		s.log.Debugf("DOM snapshot unreadable, returning no links: %v", err)
		raw = []models.RawLink{}
	}

	return &models.Capture{
		Image:    image,
		RawLinks: raw,
		Title:    title,
		FinalURL: finalURL,
		Elapsed:  elapsed,
	}, nil
}

// navigationError classifies a capture failure; captureCtx may be nil during setup
func (s *Session) navigationError(ctx, captureCtx context.Context, err error) error {
	if ctx.Err() == nil && captureCtx != nil && errors.Is(captureCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s exceeded: %v", utils.ErrNavigationTimeout, s.opts.CaptureTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", utils.ErrNavigationTimeout, err)
	}
	return fmt.Errorf("%w: %v", utils.ErrNavigationFailure, err)
}

// hideConsentOverlays injects the consent stylesheet into the main frame through the CSS domain
// Best-effort: any failure is logged and the capture continues
func (s *Session) hideConsentOverlays(ctx context.Context) error {
	err := func() error {
		if err := dom.Enable().Do(ctx); err != nil {
			return err
		}
		if err := css.Enable().Do(ctx); err != nil {
			return err
		}
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		if tree == nil || tree.Frame == nil {
			return errors.New("no main frame")
		}
		sheetID, err := css.CreateStyleSheet(tree.Frame.ID).Do(ctx)
		if err != nil {
			return err
		}
		_, err = css.SetStyleSheetText(sheetID, policy.ConsentStylesheet()).Do(ctx)
		return err
	}()
	if err != nil && ctx.Err() == nil {
		s.log.Debugf("Consent overlay stylesheet not applied: %v", err)
	}
	return nil
}

// fullPageScreenshot captures the whole document at the emulated device scale
func fullPageScreenshot(dst *[]byte) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, _, _, _, contentSize, err := page.GetLayoutMetrics().Do(ctx)
		if err != nil {
			return err
		}
		if contentSize == nil || contentSize.Width <= 0 || contentSize.Height <= 0 {
			return errors.New("page has no content size")
		}
		buf, err := page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithCaptureBeyondViewport(true).
			WithFromSurface(true).
			WithClip(&page.Viewport{
				X:      0,
				Y:      0,
				Width:  contentSize.Width,
				Height: contentSize.Height,
				Scale:  1,
			}).
			Do(ctx)
		if err != nil {
			return err
		}
		*dst = buf
		return nil
	})
}

// domSnapshot serializes the current document through the DOM domain
func domSnapshot(dst *string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		root, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		html, err := dom.GetOuterHTML().WithNodeID(root.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		*dst = html
		return nil
	})
}

// Close tears down both tabs and the engine process and removes the temporary profile
// It is safe to call more than once; errors wrap utils.ErrTeardown
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if err := chromedp.Cancel(s.browserCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("%w: close browser: %v", utils.ErrTeardown, err)
		}
		s.browserCancel()
		s.allocCancel() // Waits for the process to exit
		s.log.WithField("pid", s.pid).Debug("Render session closed")
	})
	return s.closeErr
}
