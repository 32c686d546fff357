package cookies

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/surfview/pkg/models"
	"github.com/Sriram-PR/surfview/pkg/sanitize"
)

func newTestEntry() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

type fakePage struct {
	navErr     error
	navBlocks  bool
	finalURL   string
	cookies    []*network.Cookie
	cookiesErr error
	clearErr   error

	navigated  []string
	cookieURLs []string
	cleared    bool
}

func (p *fakePage) Navigate(ctx context.Context, u string) error {
	p.navigated = append(p.navigated, u)
	if p.navBlocks {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.navErr
}

func (p *fakePage) CurrentURL(ctx context.Context) (string, error) {
	return p.finalURL, nil
}

func (p *fakePage) Cookies(ctx context.Context, urls ...string) ([]*network.Cookie, error) {
	p.cookieURLs = urls
	return p.cookies, p.cookiesErr
}

func (p *fakePage) ClearCookies(ctx context.Context) error {
	p.cleared = true
	return p.clearErr
}

func TestFilter_RetainsRegistrableDomainOnly(t *testing.T) {
	in := []models.CookieRecord{
		{Name: "a", Domain: "example.com", Path: "/"},
		{Name: "b", Domain: "sub.example.com", Path: "/"},
		{Name: "c", Domain: "evil.com", Path: "/"},
	}
	base := ScopeNaive.BaseDomain(sanitize.MustParse("https://sub.example.com/").Hostname())

	got := Filter(in, base)
	assert.Equal(t, in[:2], got)
}

func TestFilter_Cases(t *testing.T) {
	tests := []struct {
		name   string
		domain string
		keep   bool
	}{
		{"leading dot", ".example.com", true},
		{"deep subdomain", "a.b.example.com", true},
		{"uppercase", "WWW.Example.COM", true},
		{"suffix lookalike", "notexample.com", false},
		{"parent suffix", "com", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter([]models.CookieRecord{{Name: "x", Domain: tt.domain}}, "example.com")
			assert.Equal(t, tt.keep, len(got) == 1)
		})
	}
}

func TestFilter_Deduplicates(t *testing.T) {
	got := Filter([]models.CookieRecord{
		{Name: "sid", Value: "1", Domain: "example.com", Path: "/"},
		{Name: "sid", Value: "2", Domain: "EXAMPLE.com", Path: "/"},
		{Name: "sid", Value: "3", Domain: "example.com", Path: "/app"},
	}, "example.com")

	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].Value)
	assert.Equal(t, "3", got[1].Value)
}

func TestScope(t *testing.T) {
	tests := []struct {
		scope    Scope
		host     string
		expected string
	}{
		{ScopeNaive, "sub.example.com", "example.com"},
		{ScopeNaive, "www.bbc.co.uk", "co.uk"},
		{ScopePublicSuffix, "www.bbc.co.uk", "bbc.co.uk"},
		{ScopePublicSuffix, "sub.example.com.", "example.com"},
		{ScopePublicSuffix, "localhost", "localhost"},
	}
	for _, tt := range tests {
		t.Run(string(tt.scope)+"/"+tt.host, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.scope.BaseDomain(tt.host))
		})
	}
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeNaive, s)

	s, err = ParseScope(" PublicSuffix ")
	require.NoError(t, err)
	assert.Equal(t, ScopePublicSuffix, s)

	_, err = ParseScope("psl")
	assert.Error(t, err)
}

func TestHarvest_FiltersAndClears(t *testing.T) {
	page := &fakePage{
		finalURL: "https://www.example.com/landing",
		cookies: []*network.Cookie{
			{Name: "consent", Value: "yes", Domain: ".example.com", Path: "/", Secure: true, SameSite: network.CookieSameSiteLax},
			{Name: "track", Value: "1", Domain: "tracker.net", Path: "/"},
			nil,
		},
	}
	h := NewHarvester(newTestEntry(), ScopeNaive, time.Second)

	got := h.Harvest(context.Background(), page, sanitize.MustParse("https://example.com/"))

	assert.Equal(t, []models.CookieRecord{
		{Name: "consent", Value: "yes", Domain: ".example.com", Path: "/", Secure: true, SameSite: "Lax"},
	}, got)
	assert.Equal(t, []string{"https://example.com/"}, page.navigated)
	assert.Equal(t, []string{"https://example.com/", "https://www.example.com/landing"}, page.cookieURLs)
	assert.True(t, page.cleared)
}

func TestHarvest_NavigationErrorIsSwallowed(t *testing.T) {
	page := &fakePage{
		navErr:  errors.New("net::ERR_CONNECTION_RESET"),
		cookies: []*network.Cookie{{Name: "sid", Domain: "example.com", Path: "/"}},
	}
	h := NewHarvester(newTestEntry(), ScopeNaive, time.Second)

	got := h.Harvest(context.Background(), page, sanitize.MustParse("example.com"))
	assert.Len(t, got, 1)
	assert.True(t, page.cleared)
}

func TestHarvest_TimeoutBoundsNavigation(t *testing.T) {
	page := &fakePage{navBlocks: true}
	h := NewHarvester(newTestEntry(), ScopeNaive, 20*time.Millisecond)

	start := time.Now()
	got := h.Harvest(context.Background(), page, sanitize.MustParse("example.com"))
	assert.Empty(t, got)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHarvest_CookieReadFailureYieldsNone(t *testing.T) {
	page := &fakePage{
		cookies:    []*network.Cookie{{Name: "sid", Domain: "example.com"}},
		cookiesErr: errors.New("target closed"),
		clearErr:   errors.New("target closed"),
	}
	h := NewHarvester(newTestEntry(), "", 0)

	got := h.Harvest(context.Background(), page, sanitize.MustParse("example.com"))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestHarvest_UnsafeFinalURLIgnored(t *testing.T) {
	page := &fakePage{finalURL: "javascript:alert(1)"}
	h := NewHarvester(newTestEntry(), ScopeNaive, time.Second)

	h.Harvest(context.Background(), page, sanitize.MustParse("example.com"))
	assert.Equal(t, []string{"https://example.com/"}, page.cookieURLs)
}

func TestToParams(t *testing.T) {
	params := ToParams([]models.CookieRecord{
		{Name: "a", Value: "1", Domain: "example.com", Path: "/", Secure: true, HTTPOnly: true, SameSite: "Strict"},
		{Name: "b", Value: "2", Domain: "example.com", Path: "/", SameSite: "bogus"},
	})

	require.Len(t, params, 2)
	assert.Equal(t, network.CookieSameSiteStrict, params[0].SameSite)
	assert.True(t, params[0].HTTPOnly)
	assert.True(t, params[0].Secure)
	assert.Nil(t, params[0].Expires)
	assert.Equal(t, network.CookieSameSite(""), params[1].SameSite)
}
