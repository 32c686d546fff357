package session

import (
	"context"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/surfview/pkg/policy"
	"github.com/Sriram-PR/surfview/pkg/sanitize"
)

// decide applies a resource policy to one paused request
// Document requests (top-level, frames and every redirect hop) are also re-sanitized
func decide(p policy.Policy, rt network.ResourceType, rawURL string) (allow bool, category policy.Category) {
	category = policy.CategoryOf(rt)
	if !p.Allows(category) {
		return false, category
	}
	if category == policy.CategoryDocument {
		if _, err := sanitize.Parse(rawURL); err != nil {
			return false, category
		}
	}
	return true, category
}

// interceptRequests answers every Fetch.requestPaused on the tab in ctx according to p
// Fetch must be enabled separately; onBlocked may be nil
func interceptRequests(ctx context.Context, p policy.Policy, log *logrus.Entry, onBlocked func(policy.Category)) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		e, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		// Handlers must not block the event loop; CDP commands run on their own goroutine
		go func() {
			c := chromedp.FromContext(ctx)
			if c == nil || c.Target == nil {
				return
			}
			execCtx := cdp.WithExecutor(ctx, c.Target)

			rawURL := ""
			if e.Request != nil {
				rawURL = e.Request.URL
			}
			allow, category := decide(p, e.ResourceType, rawURL)

			var err error
			if allow {
				err = fetch.ContinueRequest(e.RequestID).Do(execCtx)
			} else {
				if onBlocked != nil {
					onBlocked(category)
				}
				err = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
			}
			if err != nil && ctx.Err() == nil {
				log.WithFields(logrus.Fields{"policy": p.Name, "category": category}).Debugf("Failed to resolve paused request: %v", err)
			}
		}()
	})
}
