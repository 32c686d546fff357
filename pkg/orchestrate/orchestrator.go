package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/Sriram-PR/surfview/pkg/links"
	"github.com/Sriram-PR/surfview/pkg/metrics"
	"github.com/Sriram-PR/surfview/pkg/models"
	"github.com/Sriram-PR/surfview/pkg/sanitize"
	"github.com/Sriram-PR/surfview/pkg/utils"
)

// Messages for failures that have no user-visible error of their own
const (
	internalErrorMessage = "Internal error while rendering."
	renderFailedMessage  = "Render failed."
)

// errSlotWait marks a render that gave up before any browser was started; its details stay in the logs
var errSlotWait = errors.New("gave up waiting to start")

// Options bounds how many sessions run and how quickly they start
type Options struct {
	MaxConcurrentSessions int
	LaunchesPerSecond     float64
	LaunchBurst           int
	MaxRendersPerSite     int           // Per registrable domain
	RequestTimeout        time.Duration // Whole call; 0 = no bound beyond the session's own timeouts
}

// Orchestrator runs the render pipeline: sanitize, launch, harvest, capture, classify, teardown
type Orchestrator struct {
	launcher Launcher
	log      *logrus.Entry
	metrics  *metrics.Metrics

	sessions       *semaphore.Weighted // One slot per live browser process
	sites          *SiteSlots
	launches       *rate.Limiter
	requestTimeout time.Duration
	inflight       *Tracker

	openURL func(string) error // OS default handler
}

// NewOrchestrator creates an Orchestrator; m may be nil
func NewOrchestrator(launcher Launcher, opts Options, m *metrics.Metrics, log *logrus.Entry) *Orchestrator {
	if opts.MaxConcurrentSessions <= 0 {
		opts.MaxConcurrentSessions = 2
	}
	limit := rate.Inf
	if opts.LaunchesPerSecond > 0 {
		limit = rate.Limit(opts.LaunchesPerSecond)
	}
	if opts.LaunchBurst <= 0 {
		opts.LaunchBurst = 1
	}
	return &Orchestrator{
		launcher:       launcher,
		log:            log,
		metrics:        m,
		sessions:       semaphore.NewWeighted(int64(opts.MaxConcurrentSessions)),
		launches:       rate.NewLimiter(limit, opts.LaunchBurst),
		sites:          NewSiteSlots(opts.MaxRendersPerSite, log),
		requestTimeout: opts.RequestTimeout,
		inflight:       NewTracker(),
		openURL:        openWithSystemHandler,
	}
}

// RenderURL renders raw into a static screenshot and classified links
// It never panics and never returns a partially populated result
func (o *Orchestrator) RenderURL(ctx context.Context, raw string) (result models.RenderResult) {
	start := time.Now()

	// The boundary always re-sanitizes, whatever the caller did
	u, err := sanitize.Parse(raw)
	if err != nil {
		o.log.WithField("input", utils.LogSafe(raw)).Infof("Rejected render request (%d bytes): %v", len(raw), err)
		o.metrics.ObserveRender(metrics.OutcomeRejected, utils.CategorizeError(err), time.Since(start))
		return models.Failure(utils.InvalidURLMessage)
	}

	render, ctx := o.inflight.Start(ctx, u.Hostname())
	rlog := o.log.WithFields(logrus.Fields{"request_id": render.ID, "host": u.Hostname()})

	var renderErr error
	defer func() {
		if r := recover(); r != nil {
			rlog.Errorf("Render panicked: %v\n%s", r, debug.Stack())
			renderErr = fmt.Errorf("panic: %v", r)
			result = models.Failure(internalErrorMessage)
		}
		o.inflight.Finish(render.ID)

		outcome := metrics.OutcomeOK
		if !result.OK {
			outcome = metrics.OutcomeFailed
		}
		o.metrics.ObserveRender(outcome, utils.CategorizeError(renderErr), time.Since(start))
		rlog.WithFields(logrus.Fields{"ok": result.OK, "links": len(result.Links), "duration": time.Since(start)}).Info("Render finished")
	}()

	rlog.Info("Render started")
	result, renderErr = o.render(ctx, rlog, render.ID, u)
	return result
}

// render runs the stages sequentially; the session is closed on every path, including panics
func (o *Orchestrator) render(ctx context.Context, rlog *logrus.Entry, id string, u sanitize.URL) (models.RenderResult, error) {
	if o.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.requestTimeout)
		defer cancel()
	}

	site := sanitize.RegistrableDomain(u.Hostname())
	if err := o.sites.Acquire(ctx, site); err != nil {
		err = fmt.Errorf("%w: %w: waiting for another render of %s: %v", utils.ErrSessionLaunch, errSlotWait, site, err)
		rlog.Warn(err)
		return models.Failure(failureMessage(err)), err
	}
	defer o.sites.Release(site)

	if err := o.sessions.Acquire(ctx, 1); err != nil {
		err = fmt.Errorf("%w: %w: waiting for a session slot: %v", utils.ErrSessionLaunch, errSlotWait, err)
		rlog.Warn(err)
		return models.Failure(failureMessage(err)), err
	}
	defer o.sessions.Release(1)

	if err := o.launches.Wait(ctx); err != nil {
		err = fmt.Errorf("%w: %w: launch rate limit: %v", utils.ErrSessionLaunch, errSlotWait, err)
		rlog.Warn(err)
		return models.Failure(failureMessage(err)), err
	}

	o.inflight.MarkRunning(id)
	sess, err := o.launcher.Launch(ctx)
	if err != nil {
		if !errors.Is(err, utils.ErrSessionLaunch) {
			err = fmt.Errorf("%w: %v", utils.ErrSessionLaunch, err)
		}
		rlog.Errorf("Failed to launch browser session: %v", err)
		return models.Failure(failureMessage(err)), err
	}
	o.metrics.SessionStarted()
	defer func() {
		// Teardown errors never replace the outcome already decided
		if cerr := sess.Close(); cerr != nil {
			rlog.WithField("category", utils.CategorizeError(cerr)).Warnf("Session teardown failed: %v", cerr)
		}
		o.metrics.SessionEnded()
	}()

	cookies := sess.HarvestCookies(ctx, u)
	o.metrics.ObserveCookies(len(cookies))
	rlog.Debugf("Replaying %d harvested cookies", len(cookies))

	capture, err := sess.Capture(ctx, u, cookies)
	if err != nil {
		rlog.WithField("category", utils.CategorizeError(err)).Warnf("Capture failed: %v", err)
		return models.Failure(failureMessage(err)), err
	}
	if capture == nil {
		err = fmt.Errorf("%w: session returned no capture", utils.ErrCapture)
		return models.Failure(failureMessage(err)), err
	}

	// The final address comes from the page and is re-sanitized like any other page-supplied URL
	page := u
	if capture.FinalURL != "" {
		if final, err := sanitize.Parse(capture.FinalURL); err == nil {
			page = final
		} else {
			rlog.WithField("final_url", utils.LogSafe(capture.FinalURL)).Warn("Final URL failed sanitization, reporting the requested URL")
		}
	}

	records, dropped := links.Classify(capture.RawLinks, page)
	if dropped > 0 {
		rlog.WithField("category", utils.CategorizeError(utils.ErrMalformedLink)).Debugf("Dropped %d links", dropped)
	}

	return models.Success(capture.Image, records, capture.Title, page, capture.Elapsed), nil
}

// failureMessage picks the text a caller sees; it is never empty
func failureMessage(err error) string {
	switch {
	case err == nil:
		return renderFailedMessage
	case errors.Is(err, utils.ErrInvalidURL):
		return utils.InvalidURLMessage
	case errors.Is(err, errSlotWait):
		return renderFailedMessage
	case utils.IsUserVisible(err):
		return err.Error()
	default:
		return renderFailedMessage
	}
}

// OpenExternal hands raw to the operating system's default handler if it sanitizes, otherwise does nothing
// Handler errors are logged and swallowed
func (o *Orchestrator) OpenExternal(raw string) {
	u, err := sanitize.Parse(raw)
	if err != nil {
		o.log.WithField("input", utils.LogSafe(raw)).Debugf("Ignoring openExternal for unsafe input: %v", err)
		o.metrics.ObserveOpenExternal(metrics.OutcomeRejected)
		return
	}
	if err := o.openURL(u.String()); err != nil {
		o.log.WithField("host", u.Hostname()).Debugf("System handler failed: %v", err)
		o.metrics.ObserveOpenExternal(metrics.OutcomeFailed)
		return
	}
	o.metrics.ObserveOpenExternal(metrics.OutcomeOK)
}

// Inflight lists renders currently in progress
func (o *Orchestrator) Inflight() []Render {
	return o.inflight.List()
}

// Cancel aborts one in-flight render by id
func (o *Orchestrator) Cancel(id string) bool {
	return o.inflight.Cancel(id)
}

// Shutdown aborts every in-flight render; each owning call still tears its session down
func (o *Orchestrator) Shutdown() {
	if n := o.inflight.CancelAll(); n > 0 {
		o.log.Infof("Cancelling %d in-flight renders", n)
	}
}

var quietBrowserOnce sync.Once

// openWithSystemHandler launches the OS default handler for u
// The helper's own output is discarded so it cannot corrupt a stdio transport
func openWithSystemHandler(u string) error {
	quietBrowserOnce.Do(func() {
		browser.Stdout = io.Discard
		browser.Stderr = io.Discard
	})
	return browser.OpenURL(u)
}
