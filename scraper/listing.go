package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

// listingURL returns the URL of the given 1-based listing page.
func (s *Scraper) listingURL(page int) (string, error) {
	u, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set(s.cfg.PageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// discoverPage fetches a listing page and returns its detail links.
func (s *Scraper) discoverPage(ctx context.Context, page int) ([]string, error) {
	listURL, err := s.listingURL(page)
	if err != nil {
		return nil, err
	}
	doc, err := s.fetchDocument(ctx, listURL, phaseListing)
	if err != nil {
		return nil, err
	}
	return s.detailLinks(doc), nil
}

// detailLinks returns the absolute detail-page links of a listing page in
// order of first appearance, without repeats.
func (s *Scraper) detailLinks(doc *goquery.Document) []string {
	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs, ok := resolveURL(doc.Url, href)
		if !ok {
			return
		}
		if abs.Query().Get(s.cfg.DetailQueryKey) != s.cfg.DetailQueryValue {
			return
		}
		link := abs.String()
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})
	return links
}

// filterNew drops links already handed out earlier in the crawl and marks
// the rest as visited.
func (s *Scraper) filterNew(links []string) []string {
	fresh := make([]string, 0, len(links))
	for _, link := range links {
		if s.visited.Contains(link) {
			continue
		}
		s.visited.Add(link, struct{}{})
		fresh = append(fresh, link)
	}
	return fresh
}
