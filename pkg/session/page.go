package session

import (
	"context"
	"errors"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// tabPage drives one chromedp tab; it satisfies cookies.Page
type tabPage struct {
	ctx context.Context // chromedp tab context
}

// bind runs actions on the tab while honouring the caller's deadline and cancellation
func (p tabPage) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	return bindContext(p.ctx, ctx)
}

// bindContext derives a context from a chromedp context that also ends when caller ends
func bindContext(tab, caller context.Context) (context.Context, context.CancelFunc) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if deadline, ok := caller.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(tab, deadline)
	} else {
		runCtx, cancel = context.WithCancel(tab)
	}
	stop := context.AfterFunc(caller, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (p tabPage) Navigate(ctx context.Context, u string) error {
	runCtx, cancel := p.bind(ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Navigate(u))
}

func (p tabPage) CurrentURL(ctx context.Context) (string, error) {
	runCtx, cancel := p.bind(ctx)
	defer cancel()
	var current string
	err := chromedp.Run(runCtx, currentURL(&current))
	return current, err
}

func (p tabPage) Cookies(ctx context.Context, urls ...string) ([]*network.Cookie, error) {
	runCtx, cancel := p.bind(ctx)
	defer cancel()
	var cookies []*network.Cookie
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().WithUrls(urls).Do(ctx)
		return err
	}))
	return cookies, err
}

func (p tabPage) ClearCookies(ctx context.Context) error {
	runCtx, cancel := p.bind(ctx)
	defer cancel()
	return chromedp.Run(runCtx, network.ClearBrowserCookies())
}

// currentURL reads the committed address from navigation history, without evaluating page script
func currentURL(dst *string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		idx, entries, err := page.GetNavigationHistory().Do(ctx)
		if err != nil {
			return err
		}
		if idx < 0 || int(idx) >= len(entries) {
			return errors.New("navigation history has no current entry")
		}
		*dst = entries[idx].URL
		return nil
	})
}
