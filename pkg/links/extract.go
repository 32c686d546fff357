package links

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Sriram-PR/surfview/pkg/models"
)

// Extract reads the page title and every a[href] from a serialized DOM snapshot
// Hrefs are resolved against the document's <base href> when present, else against base
// Nothing here is trusted: the results are raw and must go through Classify
func Extract(html string, base *url.URL) (title string, raw []models.RawLink, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", nil, err
	}

	title = collapseSpace(doc.Find("title").First().Text())

	resolveBase := base
	if baseHref, ok := doc.Find("base[href]").First().Attr("href"); ok && base != nil {
		if parsed, parseErr := base.Parse(strings.TrimSpace(baseHref)); parseErr == nil {
			resolveBase = parsed
		}
	}

	raw = make([]models.RawLink, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		raw = append(raw, models.RawLink{
			Href:  resolve(resolveBase, href),
			Label: labelOf(s),
		})
	})
	return title, raw, nil
}

// resolve makes href absolute the way a browser's a.href does; unparseable values pass through untouched
func resolve(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	resolved, err := base.Parse(href)
	if err != nil {
		return href
	}
	return resolved.String()
}

// labelOf prefers visible text, then aria-label, then title
func labelOf(s *goquery.Selection) string {
	if text := collapseSpace(s.Text()); text != "" {
		return text
	}
	if aria, ok := s.Attr("aria-label"); ok {
		if label := collapseSpace(aria); label != "" {
			return label
		}
	}
	if t, ok := s.Attr("title"); ok {
		return collapseSpace(t)
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
