package htmlparser

import (
	"io"

	"golang.org/x/net/html"
)

// ExtractLinks parses HTML from the reader and returns all href attributes
// found in <a> tags. Returns raw href strings exactly as they appear in the HTML.
func ExtractLinks(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					links = append(links, attr.Val)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

// BadgeCandidate is one raw (unresolved) href/src pair: an <a href> whose
// subtree contains at least one <img src>.
type BadgeCandidate struct {
	Href string
	Src  string
}

// ExtractBadgeCandidates walks every <a href> in the document and, for each,
// recursively walks its descendants collecting every <img src> child,
// emitting one BadgeCandidate per (anchor, image) pair (spec.md §4.8 step
// 4). Hrefs/srcs are returned exactly as they appear in the markup;
// resolving them against the page's base URL is the caller's job.
func ExtractBadgeCandidates(r io.Reader) ([]BadgeCandidate, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var candidates []BadgeCandidate
	var walkImages func(*html.Node, string)
	walkImages = func(n *html.Node, href string) {
		if n.Type == html.ElementNode && n.Data == "img" {
			for _, attr := range n.Attr {
				if attr.Key == "src" {
					candidates = append(candidates, BadgeCandidate{Href: href, Src: attr.Val})
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walkImages(c, href)
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					walkImages(n, attr.Val)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return candidates, nil
}
