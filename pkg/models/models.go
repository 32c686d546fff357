package models

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/Sriram-PR/surfview/pkg/sanitize"
)

// CookieRecord is a server-issued cookie captured during the harvest preflight
// It is attached to exactly one capture session and then discarded
type CookieRecord struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite string // "Strict", "Lax", "None" or empty
}

// RawLink is an anchor as read from the rendered DOM, before any validation
type RawLink struct {
	Href  string
	Label string
}

// LinkRecord is a sanitized, classified outbound link
type LinkRecord struct {
	Href  sanitize.URL `json:"href"`
	Label string       `json:"label"` // At most MaxLabelRunes runes
	Kind  LinkKind     `json:"type"`
}

// MaxLabelRunes bounds the label carried by a LinkRecord
const MaxLabelRunes = 120

// Capture is the raw output of one isolated render session
type Capture struct {
	Image    []byte // Full-page PNG
	RawLinks []RawLink
	Title    string
	FinalURL string        // Address after redirects, not yet re-sanitized
	Elapsed  time.Duration // Just before navigation to just after the screenshot
}

// RenderResult is the single value handed to the external caller for one request
// Exactly one of the success fields or Error is populated; build it with Success or Failure
type RenderResult struct {
	OK       bool
	Image    []byte
	Links    []LinkRecord
	Title    string
	URL      sanitize.URL
	RenderMs int64
	Error    string
}

// Success builds a successful result
func Success(image []byte, links []LinkRecord, title string, finalURL sanitize.URL, elapsed time.Duration) RenderResult {
	if links == nil {
		links = []LinkRecord{}
	}
	ms := elapsed.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return RenderResult{
		OK:       true,
		Image:    image,
		Links:    links,
		Title:    title,
		URL:      finalURL,
		RenderMs: ms,
	}
}

// Failure builds a failed result carrying only the error message
func Failure(msg string) RenderResult {
	if msg == "" {
		msg = "Unknown error"
	}
	return RenderResult{OK: false, Error: msg}
}

// ImageBase64 returns the screenshot in the encoding used on the wire
func (r RenderResult) ImageBase64() string {
	if len(r.Image) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(r.Image)
}

type successWire struct {
	OK          bool         `json:"ok"`
	ImageBase64 string       `json:"imageBase64"`
	Links       []LinkRecord `json:"links"`
	Title       string       `json:"title"`
	URL         sanitize.URL `json:"url"`
	RenderMs    int64        `json:"renderMs"`
}

type failureWire struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// MarshalJSON emits either the success shape or the failure shape, never a mix
func (r RenderResult) MarshalJSON() ([]byte, error) {
	if !r.OK {
		return json.Marshal(failureWire{OK: false, Error: r.Error})
	}
	links := r.Links
	if links == nil {
		links = []LinkRecord{}
	}
	return json.Marshal(successWire{
		OK:          true,
		ImageBase64: r.ImageBase64(),
		Links:       links,
		Title:       r.Title,
		URL:         r.URL,
		RenderMs:    r.RenderMs,
	})
}
