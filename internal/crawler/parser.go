package crawler

import (
	"io"
	"net/url"
	"path"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// ParseResult is what discovery needs from one HTML page.
type ParseResult struct {
	// Title is the text of the first <title> element.
	Title string

	// Links are the absolute http(s) page links, in document order,
	// without fragments and without duplicates.
	Links []string
}

// assetExtensions are link targets that are never HTML pages.
var assetExtensions = []string{
	".pdf", ".zip", ".gz", ".tar", ".rar", ".7z",
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico",
	".mp3", ".mp4", ".webm", ".avi", ".mov",
	".css", ".js", ".json", ".xml", ".txt", ".csv",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".odt",
}

// Parse extracts the title and page links of an HTML document. Relative
// links are resolved against base, or against the document's <base href>
// when it has one.
func Parse(base *url.URL, r io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{}
	seen := make(map[string]bool)
	var hrefs []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if result.Title == "" {
					result.Title = strings.TrimSpace(textOf(n))
				}
			case "base":
				if href := getAttr(n, "href"); href != "" {
					if u, err := base.Parse(strings.TrimSpace(href)); err == nil {
						base = u
					}
				}
			case "a", "area":
				if _, ok := attr(n, "download"); !ok {
					if href := getAttr(n, "href"); href != "" {
						hrefs = append(hrefs, href)
					}
				}
			case "svg", "math":
				// Foreign content has its own <title> and <a> semantics.
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, href := range hrefs {
		link := resolveLink(base, href)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		result.Links = append(result.Links, link)
	}
	return result, nil
}

// resolveLink returns href as an absolute page URL, or "" when it does not
// point to a page.
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	u, err := base.Parse(href)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if slices.Contains(assetExtensions, strings.ToLower(path.Ext(u.Path))) {
		return ""
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// textOf concatenates the text nodes below n.
func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// attr retrieves an attribute value and whether it is present.
func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	v, _ := attr(n, key)
	return v
}
