package sanitize

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"

	"github.com/Sriram-PR/surfview/pkg/utils"
)

// --- Data tables ---

// DisallowedSchemes are rejected outright when they prefix the trimmed input (case-insensitive)
// The check runs before "https://" is prepended, so a scheme cannot be smuggled in by omission
var DisallowedSchemes = []string{
	"javascript",
	"data",
	"vbscript",
	"file",
	"about",
	"chrome",
	"settings",
	"blob",
	"mailto",
}

// EncodedControlSequences are percent-encoded control characters removed from the normalized URL
var EncodedControlSequences = []string{"%00", "%1F", "%0D", "%0A"}

var (
	disallowedSchemePattern = buildAlternation(`(?i)^(%s):`, DisallowedSchemes)
	encodedControlPattern   = buildAlternation(`(?i)(%s)`, EncodedControlSequences)
	rawControlPattern       = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	httpPrefixPattern       = regexp.MustCompile(`(?i)^https?://`)
	explicitSchemePattern   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)
)

// hostProfile mirrors browser host handling: lowercase ASCII, punycode for IDNs,
// but tolerant of underscores and "--" labels that real CDN hostnames use
var hostProfile = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.StrictDomainName(false),
	idna.CheckHyphens(false),
)

func buildAlternation(format string, items []string) *regexp.Regexp {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = regexp.QuoteMeta(item)
	}
	return regexp.MustCompile(fmt.Sprintf(format, strings.Join(quoted, "|")))
}

// URL is a validated, normalized absolute http(s) URL
// It can only be produced by Parse; the zero value is not a valid URL
type URL struct {
	s string
}

// Parse validates and normalizes raw text into a URL, or rejects it with an error wrapping utils.ErrInvalidURL
// Every trust boundary that receives a URL-shaped value calls Parse itself, even when an upstream component already did
func Parse(raw string) (URL, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return URL{}, fmt.Errorf("%w: empty input", utils.ErrInvalidURL)
	}

	if disallowedSchemePattern.MatchString(s) {
		return URL{}, fmt.Errorf("%w: disallowed scheme", utils.ErrInvalidURL)
	}

	if !httpPrefixPattern.MatchString(s) {
		// An explicit foreign scheme ("ftp://...") would otherwise be rewritten into a hostname
		if explicitSchemePattern.MatchString(s) {
			return URL{}, fmt.Errorf("%w: unsupported scheme", utils.ErrInvalidURL)
		}
		s = "https://" + s
	}

	parsed, err := url.Parse(s)
	if err != nil {
		return URL{}, fmt.Errorf("%w: parse: %v", utils.ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return URL{}, fmt.Errorf("%w: scheme %q not allowed", utils.ErrInvalidURL, parsed.Scheme)
	}
	if parsed.Opaque != "" {
		return URL{}, fmt.Errorf("%w: opaque URL", utils.ErrInvalidURL)
	}

	if err := normalize(parsed); err != nil {
		return URL{}, err
	}

	out, err := canonical(parsed)
	if err != nil {
		return URL{}, err
	}
	return URL{s: out}, nil
}

// maxCanonicalPasses bounds the strip/re-serialize loop; real input settles in one or two
const maxCanonicalPasses = 4

// canonical strips control characters and re-serializes until the text is a fixed point,
// so stripping cannot leave a form (an empty "#" or "?") that the next parse would rewrite
func canonical(u *url.URL) (string, error) {
	s := stripControls(u.String())
	for i := 0; i < maxCanonicalPasses; i++ {
		reparsed, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("%w: parse: %v", utils.ErrInvalidURL, err)
		}
		if err := normalize(reparsed); err != nil {
			return "", err
		}
		next := stripControls(reparsed.String())
		if next == s {
			return s, nil
		}
		s = next
	}
	return "", fmt.Errorf("%w: no stable form", utils.ErrInvalidURL)
}

// MustParse is Parse for compile-time constants in tests and defaults; it panics on rejection
func MustParse(raw string) URL {
	u, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// normalize rewrites u in place into the canonical form a browser would serialize
func normalize(u *url.URL) error {
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: missing host", utils.ErrInvalidURL)
	}

	if strings.Contains(host, ":") { // IPv6 literal
		host = strings.ToLower(host)
	} else {
		ascii, err := hostProfile.ToASCII(strings.TrimSuffix(host, "."))
		if err != nil || ascii == "" {
			return fmt.Errorf("%w: invalid host", utils.ErrInvalidURL)
		}
		host = ascii
	}

	// Remove default ports
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		u.Host = "[" + host + "]"
	} else {
		u.Host = host
	}

	u.User = nil // Credentials in the authority are a spoofing vector ("https://bank.com@evil.com")

	if u.Path == "" && u.RawPath == "" {
		u.Path = "/"
	}
	u.RawQuery = normalizeQuery(u.RawQuery)
	return nil
}

// normalizeQuery percent-encodes bytes a browser would encode in a query and escapes stray '%' signs,
// so every '%' left in the string starts a complete escape sequence
func normalizeQuery(q string) string {
	if q == "" {
		return q
	}
	var b strings.Builder
	b.Grow(len(q))
	for i := 0; i < len(q); i++ {
		c := q[i]
		switch {
		case c == '%' && i+2 < len(q) && isHex(q[i+1]) && isHex(q[i+2]):
			b.WriteByte(c)
		case c == '%':
			b.WriteString("%25")
		case c <= 0x20 || c >= 0x7F || c == '"' || c == '<' || c == '>':
			fmt.Fprintf(&b, "%%%02X", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// stripControls removes raw control characters and their encoded forms until none remain
func stripControls(s string) string {
	for {
		cleaned := rawControlPattern.ReplaceAllString(s, "")
		cleaned = encodedControlPattern.ReplaceAllString(cleaned, "")
		if cleaned == s {
			return cleaned
		}
		s = cleaned
	}
}

// String returns the sanitized absolute URL
func (u URL) String() string { return u.s }

// IsZero reports whether u was not produced by a successful Parse
func (u URL) IsZero() bool { return u.s == "" }

// URL returns a freshly parsed copy for inspection; callers may modify it freely
func (u URL) URL() *url.URL {
	parsed, err := url.Parse(u.s)
	if err != nil {
		return nil
	}
	return parsed
}

// Hostname returns the host without port
func (u URL) Hostname() string {
	if parsed := u.URL(); parsed != nil {
		return parsed.Hostname()
	}
	return ""
}

// MarshalText lets a URL appear as a plain string in JSON results
func (u URL) MarshalText() ([]byte, error) {
	return []byte(u.s), nil
}

// RegistrableDomain returns the last two labels of host ("a.b.example.com" -> "example.com")
// This is deliberately naive: multi-label public suffixes such as "co.uk" collapse to the suffix itself
func RegistrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// DomainWithin reports whether domain equals base or is a subdomain of it
// A leading dot on domain (cookie-style) is ignored
func DomainWithin(domain, base string) bool {
	domain = strings.TrimPrefix(strings.ToLower(domain), ".")
	base = strings.ToLower(base)
	if domain == "" || base == "" {
		return false
	}
	return domain == base || strings.HasSuffix(domain, "."+base)
}
