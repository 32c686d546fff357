package cookies

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/surfview/pkg/models"
	"github.com/Sriram-PR/surfview/pkg/sanitize"
	"github.com/Sriram-PR/surfview/pkg/utils"
)

// DefaultTimeout bounds the preflight navigation
const DefaultTimeout = 5 * time.Second

// Page is the browser tab the harvest runs on
// The caller configures it (script disabled, document-only interception) before handing it over
type Page interface {
	Navigate(ctx context.Context, u string) error
	CurrentURL(ctx context.Context) (string, error)
	Cookies(ctx context.Context, urls ...string) ([]*network.Cookie, error)
	ClearCookies(ctx context.Context) error
}

// Harvester collects server-set cookies during a lightweight preflight navigation
type Harvester struct {
	log     *logrus.Entry
	scope   Scope
	timeout time.Duration
}

// NewHarvester creates a Harvester; a non-positive timeout selects DefaultTimeout
func NewHarvester(log *logrus.Entry, scope Scope, timeout time.Duration) *Harvester {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if scope == "" {
		scope = ScopeNaive
	}
	return &Harvester{log: log, scope: scope, timeout: timeout}
}

// Harvest navigates page to u and returns the cookies scoped to u's registrable domain
// Every failure degrades to fewer (or zero) cookies; nothing is returned as an error
// The browser jar is cleared afterwards so the capture only sees what the caller replays
func (h *Harvester) Harvest(ctx context.Context, page Page, u sanitize.URL) []models.CookieRecord {
	hlog := h.log.WithField("host", u.Hostname())

	navCtx, cancel := context.WithTimeout(ctx, h.timeout)
	err := page.Navigate(navCtx, u.String())
	cancel()
	if err != nil {
		// Partial loads still leave whatever Set-Cookie headers arrived
		hlog.Debugf("Harvest navigation incomplete: %v", fmt.Errorf("%w: %v", utils.ErrHarvestFailure, err))
	}

	urls := []string{u.String()}
	if final, err := page.CurrentURL(ctx); err == nil {
		if safe, err := sanitize.Parse(final); err == nil && safe != u {
			urls = append(urls, safe.String())
		}
	}

	raw, err := page.Cookies(ctx, urls...)
	if err != nil {
		hlog.Debugf("Harvest cookie read failed: %v", fmt.Errorf("%w: %v", utils.ErrHarvestFailure, err))
		raw = nil
	}

	records := Filter(FromNetwork(raw), h.scope.BaseDomain(u.Hostname()))

	if err := page.ClearCookies(ctx); err != nil {
		hlog.Debugf("Failed to clear cookie jar after harvest: %v", err)
	}

	hlog.WithFields(logrus.Fields{"seen": len(raw), "retained": len(records)}).Debug("Cookie harvest finished")
	return records
}

// Filter keeps cookies whose domain (leading dot stripped) equals base or is a subdomain of it,
// deduplicated by name, domain and path with the first occurrence winning
func Filter(cookies []models.CookieRecord, base string) []models.CookieRecord {
	kept := make([]models.CookieRecord, 0, len(cookies))
	seen := make(map[string]bool, len(cookies))
	for _, c := range cookies {
		if !sanitize.DomainWithin(c.Domain, base) {
			continue
		}
		key := c.Name + "\x00" + strings.ToLower(c.Domain) + "\x00" + c.Path
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, c)
	}
	return kept
}

// FromNetwork converts CDP cookies into records, dropping nil entries
func FromNetwork(cookies []*network.Cookie) []models.CookieRecord {
	records := make([]models.CookieRecord, 0, len(cookies))
	for _, c := range cookies {
		if c == nil {
			continue
		}
		records = append(records, models.CookieRecord{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: string(c.SameSite),
		})
	}
	return records
}

// ToParams converts records into parameters for Network.setCookies
// Expiry is omitted so replayed cookies die with the session
func ToParams(records []models.CookieRecord) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(records))
	for _, r := range records {
		p := &network.CookieParam{
			Name:     r.Name,
			Value:    r.Value,
			Domain:   r.Domain,
			Path:     r.Path,
			Secure:   r.Secure,
			HTTPOnly: r.HTTPOnly,
		}
		switch network.CookieSameSite(r.SameSite) {
		case network.CookieSameSiteStrict, network.CookieSameSiteLax, network.CookieSameSiteNone:
			p.SameSite = network.CookieSameSite(r.SameSite)
		}
		params = append(params, p)
	}
	return params
}
