package project

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/wiki-generator/internal/types"
)

// LinkPlacement reports where one link bank URL ended up in the generated pages.
type LinkPlacement struct {
	URL         string   `json:"url"`
	Anchors     []string `json:"anchors"`
	TargetCount int      `json:"target_count"`
	ActualCount int      `json:"actual_count"`
	Pages       []string `json:"pages"`
	// AnchorTexts are the distinct link labels found for the URL.
	AnchorTexts []string `json:"anchor_texts,omitempty"`
}

// Review is the generated content of a project together with its link audit.
type Review struct {
	Pages          []PageFile      `json:"pages"`
	TotalPageCount int             `json:"total_page_count"`
	HasFilter      bool            `json:"has_filter"`
	LinkSummary    []LinkPlacement `json:"link_summary"`
}

// Review lists generated pages and audits link bank placement across all of them.
//
// When lastRun names fewer pages than exist on disk the listing is narrowed to
// those titles unless showAll is set. The link summary always covers every file.
func (s *Store) Review(id string, lastRun []string, showAll bool) (*Review, error) {
	pages, err := s.ListGenerated(id)
	if err != nil {
		return nil, err
	}
	review := &Review{Pages: pages, TotalPageCount: len(pages)}

	if len(lastRun) > 0 && len(lastRun) < len(pages) {
		review.HasFilter = true
		if !showAll {
			review.Pages = filterPages(pages, lastRun)
			if len(review.Pages) == 0 {
				review.Pages = pages
				review.HasFilter = false
			}
		}
	}

	bank, err := s.LinkBank(id)
	if err != nil {
		return nil, err
	}
	review.LinkSummary, err = s.LinkSummary(id, bank.Links, pages)
	if err != nil {
		return nil, err
	}
	return review, nil
}

// LinkSummary scans the given generated files for each bank URL. Placement is a
// literal substring check, the same heuristic the tracker uses.
func (s *Store) LinkSummary(id string, links []types.LinkEntry, pages []PageFile) ([]LinkPlacement, error) {
	contents := make(map[string]string, len(pages))
	for _, p := range pages {
		c, err := s.ReadPage(id, p.FileName)
		if err != nil {
			return nil, err
		}
		contents[p.FileName] = c
	}

	summary := make([]LinkPlacement, 0, len(links))
	for _, link := range links {
		if link.URL == "" {
			continue
		}
		placement := LinkPlacement{
			URL:         link.URL,
			Anchors:     link.Anchors,
			TargetCount: link.Count,
			Pages:       []string{},
		}
		if placement.Anchors == nil {
			placement.Anchors = []string{}
		}
		seen := map[string]bool{}
		for _, p := range pages {
			content := contents[p.FileName]
			if !strings.Contains(content, link.URL) {
				continue
			}
			placement.Pages = append(placement.Pages, p.Title)
			for _, text := range AnchorTexts(content, link.URL, formatOf(p.FileName)) {
				if !seen[text] {
					seen[text] = true
					placement.AnchorTexts = append(placement.AnchorTexts, text)
				}
			}
		}
		placement.ActualCount = len(placement.Pages)
		summary = append(summary, placement)
	}
	return summary, nil
}

// AnchorTexts returns the labels used for links to url: the text of <a href>
// elements in Confluence storage, or the label of [url label] in wikitext.
func AnchorTexts(content, url string, format types.Format) []string {
	var texts []string
	if format == types.FormatConfluence {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
		if err != nil {
			return nil
		}
		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			if href, _ := a.Attr("href"); href == url {
				if text := strings.TrimSpace(a.Text()); text != "" {
					texts = append(texts, text)
				}
			}
		})
		return texts
	}

	re := regexp.MustCompile(`\[` + regexp.QuoteMeta(url) + `\s+([^\]]+)\]`)
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		if text := strings.TrimSpace(m[1]); text != "" {
			texts = append(texts, text)
		}
	}
	return texts
}

func filterPages(pages []PageFile, titles []string) []PageFile {
	want := make(map[string]bool, len(titles))
	for _, t := range titles {
		want[strings.ReplaceAll(t, " ", "_")] = true
	}
	var out []PageFile
	for _, p := range pages {
		if want[strings.TrimSuffix(p.FileName, filepath.Ext(p.FileName))] {
			out = append(out, p)
		}
	}
	return out
}

func formatOf(filename string) types.Format {
	if filepath.Ext(filename) == types.FormatConfluence.Extension() {
		return types.FormatConfluence
	}
	return types.FormatMediaWiki
}
