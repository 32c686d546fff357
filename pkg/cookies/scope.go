package cookies

import (
	"fmt"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/Sriram-PR/surfview/pkg/sanitize"
)

// Scope selects how the cookie base domain is derived from the request host
type Scope string

const (
	ScopeNaive        Scope = "naive"        // Last two labels; "co.uk" hosts collapse onto the suffix
	ScopePublicSuffix Scope = "publicsuffix" // eTLD+1 from the public suffix list
)

// ParseScope validates a configured scope; empty selects ScopeNaive
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeNaive:
		return ScopeNaive, nil
	case ScopePublicSuffix:
		return ScopePublicSuffix, nil
	default:
		return "", fmt.Errorf("unknown cookie scope %q (want %q or %q)", s, ScopeNaive, ScopePublicSuffix)
	}
}

// BaseDomain returns the registrable domain cookies must fall within
func (s Scope) BaseDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if s == ScopePublicSuffix {
		if etld1, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			return etld1
		}
		// IP literals and bare suffixes have no eTLD+1
	}
	return sanitize.RegistrableDomain(host)
}
