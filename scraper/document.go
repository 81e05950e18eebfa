package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/aluiziolira/go-scrape-pets/parser"
)

// cleanText collapses runs of whitespace and trims the result.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// joinedText returns every non-blank text node under sel, trimmed and
// joined by single spaces.
func joinedText(sel *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := cleanText(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}

// findTextNode returns the first text node in document order whose
// lower-cased content contains needle.
func findTextNode(doc *goquery.Document, needle string) *html.Node {
	var found *html.Node
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		switch n.Type {
		case html.TextNode:
			if strings.Contains(parser.Lower(n.Data), needle) {
				found = n
				return true
			}
			return false
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return false
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	for _, n := range doc.Nodes {
		if walk(n) {
			break
		}
	}
	return found
}

// rowValue reads a labelled attribute row laid out as
//
//	<div>Label</div><div><strong>value</strong></div>
//
// trying each label in order. The first label found in the document
// decides; if its row has no non-empty emphasized value the next label is
// tried.
func rowValue(doc *goquery.Document, labels []string) (string, bool) {
	for _, label := range labels {
		node := findTextNode(doc, label)
		if node == nil || node.Parent == nil {
			continue
		}
		left := doc.FindNodes(node.Parent).Closest("div")
		if left.Length() == 0 {
			continue
		}
		right := left.NextAllFiltered("div").First()
		strong := right.Find("strong").First()
		if strong.Length() == 0 {
			continue
		}
		value := cleanText(strong.Text())
		if value == "" {
			continue
		}
		return value, true
	}
	return "", false
}

// resolveURL resolves href against base, dropping the fragment. Only http
// and https results are accepted.
func resolveURL(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return nil, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return nil, false
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs, true
}
