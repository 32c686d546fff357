package policy

import (
	"path"
	"strings"
)

// ConsentMarkers are substrings matched against class and id attributes of overlay elements
var ConsentMarkers = []string{
	"modal",
	"dialog",
	"overlay",
	"cookie",
	"consent",
	"gdpr",
	"privacy",
	"popup",
	"banner",
}

// ConsentVendorSelectors are known consent-manager containers
var ConsentVendorSelectors = []string{
	"#onetrust-consent-sdk",
	".cc-window",
	".cookielaw-banner",
	".cookie-notice",
	".cookie-popup",
	".gdpr-popup",
}

// ConsentStylesheet builds the override that force-hides consent overlays
// Cosmetic only: it both over-hides and under-hides, and nothing may rely on it for safety
func ConsentStylesheet() string {
	selectors := make([]string, 0, len(ConsentMarkers)*2+len(ConsentVendorSelectors))
	for _, m := range ConsentMarkers {
		selectors = append(selectors, `[class*="`+m+`"]`, `[id*="`+m+`"]`)
	}
	selectors = append(selectors, ConsentVendorSelectors...)
	return strings.Join(selectors, ",\n") + " {\n  display: none !important;\n}\n"
}

// DownloadExtensions mark a link as a download regardless of its host
var DownloadExtensions = map[string]bool{
	"pdf":  true,
	"zip":  true,
	"tar":  true,
	"gz":   true,
	"exe":  true,
	"dmg":  true,
	"pkg":  true,
	"docx": true,
	"xlsx": true,
}

// IsDownloadPath reports whether the last path segment ends in a download extension (case-insensitive)
func IsDownloadPath(p string) bool {
	ext := strings.TrimPrefix(path.Ext(p), ".")
	if ext == "" {
		return false
	}
	return DownloadExtensions[strings.ToLower(ext)]
}
