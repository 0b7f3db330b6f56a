package chromedp

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	resultLinkSelector = `a[title="Visualizar"]`
	nextPageText       = "Próximo>"
)

var popupPattern = regexp.MustCompile(`popup\('([^']+)'\)`)

// ParseResultLinks returns the document URLs of one result page in page
// order. Links carry their target in an onclick="popup('...')" handler.
func ParseResultLinks(html, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse result page: %w", err)
	}

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	var urls []string
	doc.Find(resultLinkSelector).Each(func(_ int, link *goquery.Selection) {
		onclick, ok := link.Attr("onclick")
		if !ok {
			return
		}
		match := popupPattern.FindStringSubmatch(onclick)
		if len(match) < 2 {
			return
		}
		target := strings.TrimSpace(match[1])
		if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
			urls = append(urls, target)
			return
		}
		urls = append(urls, base+"/"+strings.TrimLeft(target, "/"))
	})
	return urls, nil
}

// HasNextLink reports whether the page offers a "Próximo>" link.
func HasNextLink(html string) (bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, fmt.Errorf("parse result page: %w", err)
	}
	found := false
	doc.Find("a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		if strings.Contains(strings.Join(strings.Fields(link.Text()), " "), nextPageText) {
			found = true
			return false
		}
		return true
	})
	return found, nil
}
