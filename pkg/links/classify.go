package links

import (
	"strings"
	"unicode/utf8"

	"github.com/Sriram-PR/surfview/pkg/models"
	"github.com/Sriram-PR/surfview/pkg/policy"
	"github.com/Sriram-PR/surfview/pkg/sanitize"
)

// Classify sanitizes, deduplicates and classifies raw links relative to the rendered page
// Order is preserved and the first occurrence of a sanitized href wins
// Links that fail re-sanitization, and every mailto link, are dropped; dropped counts them
func Classify(raw []models.RawLink, page sanitize.URL) (records []models.LinkRecord, dropped int) {
	records = make([]models.LinkRecord, 0, len(raw))
	pageURL := page.URL()
	seen := make(map[string]bool, len(raw))

	for _, link := range raw {
		href := strings.TrimSpace(link.Href)
		if href == "" || isMailto(href) {
			dropped++
			continue
		}
		fragmentOnly := strings.HasPrefix(href, "#")

		absolute := href
		if pageURL != nil {
			resolved, err := pageURL.Parse(href)
			if err != nil {
				dropped++
				continue
			}
			absolute = resolved.String()
		}

		safe, err := sanitize.Parse(absolute)
		if err != nil {
			dropped++ // ErrMalformedLink, never surfaced
			continue
		}
		if seen[safe.String()] {
			continue
		}
		seen[safe.String()] = true

		records = append(records, models.LinkRecord{
			Href:  safe,
			Label: truncateLabel(link.Label, safe.String()),
			Kind:  kindOf(safe, pageURLPath(page), page.Hostname(), fragmentOnly),
		})
	}
	return records, dropped
}

// kindOf applies anchor, external, internal in that order, then the download override
func kindOf(u sanitize.URL, pagePath, pageHost string, fragmentOnly bool) models.LinkKind {
	parsed := u.URL()
	if parsed == nil {
		return models.LinkKindExternal
	}

	var kind models.LinkKind
	switch {
	case fragmentOnly || (parsed.Path == pagePath && parsed.Fragment != ""):
		kind = models.LinkKindAnchor
	case parsed.Hostname() != pageHost:
		kind = models.LinkKindExternal
	default:
		kind = models.LinkKindInternal
	}

	if policy.IsDownloadPath(parsed.Path) {
		kind = models.LinkKindDownload
	}
	return kind
}

func pageURLPath(page sanitize.URL) string {
	if parsed := page.URL(); parsed != nil {
		return parsed.Path
	}
	return ""
}

func isMailto(href string) bool {
	return len(href) >= len("mailto:") && strings.EqualFold(href[:len("mailto:")], "mailto:")
}

// truncateLabel bounds the label to MaxLabelRunes runes, falling back to href when empty
func truncateLabel(label, href string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		label = href
	}
	if utf8.RuneCountInString(label) <= models.MaxLabelRunes {
		return label
	}
	runes := []rune(label)
	return string(runes[:models.MaxLabelRunes])
}
