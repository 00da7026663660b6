package generation

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var anchorPattern = regexp.MustCompile(`(?is)<a\s+[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)

// RewriteConfluenceInternalLinks turns anchors that point at pages of spaceKey
// (/display/KEY/Title or /wiki/spaces/KEY/pages/ID/Title) into <ac:link>
// storage links. Other anchors are left untouched. An empty spaceKey is a no-op.
func RewriteConfluenceInternalLinks(content, spaceKey string) string {
	if content == "" || spaceKey == "" {
		return content
	}

	quoted := regexp.QuoteMeta(spaceKey)
	display := regexp.MustCompile(`(?i)/display/` + quoted + `/([^#?]+)`)
	pages := regexp.MustCompile(`(?i)/wiki/spaces/` + quoted + `/pages/\d+/([^#?]+)`)

	titleFromHref := func(href string) string {
		m := display.FindStringSubmatch(href)
		if m == nil {
			m = pages.FindStringSubmatch(href)
		}
		if m == nil {
			return ""
		}
		raw := strings.ReplaceAll(m[1], "+", " ")
		if unescaped, err := url.PathUnescape(raw); err == nil {
			raw = unescaped
		}
		return strings.TrimSpace(raw)
	}

	return anchorPattern.ReplaceAllStringFunc(content, func(match string) string {
		sub := anchorPattern.FindStringSubmatch(match)
		title := titleFromHref(html.UnescapeString(sub[1]))
		if title == "" {
			return match
		}

		page := `<ri:page ri:space-key="` + html.EscapeString(spaceKey) + `" ri:content-title="` + html.EscapeString(title) + `"/>`
		label := innerText(sub[2])
		if label != "" && label != title {
			return "<ac:link>" + page + "<ac:link-body>" + html.EscapeString(label) + "</ac:link-body></ac:link>"
		}
		return "<ac:link>" + page + "</ac:link>"
	})
}

// innerText returns the visible text of an HTML fragment.
func innerText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(doc.Text())
}
