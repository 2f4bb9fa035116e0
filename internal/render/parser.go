package render

import (
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nabetama/webgrab/internal/model"
	"github.com/nabetama/webgrab/internal/urlutil"
)

// parseResult holds everything extracted from one HTML document.
//
// Design decision: We collect title, links, and assets in a single DOM
// walk rather than exposing separate extraction methods because:
//  1. One parsing pass is cheaper than several
//  2. The traversal controller always wants all of it at once
//  3. Callers can ignore the parts they don't need
type parseResult struct {
	// title is the content of the <title> tag, trimmed.
	title string

	// links are all anchors with an href, resolved to absolute form.
	links []model.Link

	// assets are stylesheet, script, and image references, resolved to
	// absolute form.
	assets *model.Assets
}

// parseHTML walks the document and extracts the title, anchor links
// with their text, and asset references. Relative URLs are resolved
// against pageURL.
//
// Design decision: We use golang.org/x/net/html rather than regex
// because it correctly handles the malformed markup that is common on
// the web and gives us a proper node tree to walk.
func parseHTML(pageURL string, r io.Reader) (*parseResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	result := &parseResult{
		links:  make([]model.Link, 0),
		assets: &model.Assets{},
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			processElement(pageURL, n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// processElement handles a single element node.
func processElement(pageURL string, n *html.Node, result *parseResult) {
	switch n.Data {
	case "title":
		if result.title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "a":
		if href := getAttr(n, "href"); href != "" {
			if resolved := resolveRef(pageURL, href); resolved != "" {
				result.links = append(result.links, model.Link{
					URL:  resolved,
					Text: strings.TrimSpace(nodeText(n)),
				})
			}
		}

	case "link":
		// Stylesheets only; icons and preloads are not page assets we mirror.
		if strings.EqualFold(getAttr(n, "rel"), "stylesheet") {
			if href := getAttr(n, "href"); href != "" {
				if resolved := resolveRef(pageURL, href); resolved != "" {
					result.assets.CSS = append(result.assets.CSS, resolved)
				}
			}
		}

	case "script":
		if src := getAttr(n, "src"); src != "" {
			if resolved := resolveRef(pageURL, src); resolved != "" {
				result.assets.JS = append(result.assets.JS, resolved)
			}
		}

	case "img":
		if src := getAttr(n, "src"); src != "" {
			if resolved := resolveRef(pageURL, src); resolved != "" {
				result.assets.Images = append(result.assets.Images, resolved)
			}
		}
	}
}

// resolveRef resolves href/src values against the page URL, dropping
// pseudo-links that can never be fetched.
func resolveRef(pageURL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "#" {
		return ""
	}

	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(ref, prefix) {
			return ""
		}
	}

	return urlutil.MakeAbsolute(pageURL, ref)
}

// nodeText collects the text content beneath a node.
func nodeText(n *html.Node) string {
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

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// whitespaceRun collapses runs of whitespace in extracted text.
var whitespaceRun = regexp.MustCompile(`[ \t\r\f\v]+`)

// blankLines collapses runs of blank lines left behind by block elements.
var blankLines = regexp.MustCompile(`\n{3,}`)

// extractText produces the rendered text content of a page: markup with
// script, style, and noscript subtrees removed and whitespace collapsed.
//
// Design decision: We use goquery here instead of walking the node tree
// ourselves because selection-and-removal ("script, style, noscript")
// is exactly what its selector API is for.
func extractText(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}

	doc.Find("script, style, noscript").Remove()

	body := doc.Find("body")
	var text string
	if body.Length() > 0 {
		text = body.Text()
	} else {
		text = doc.Text()
	}

	text = whitespaceRun.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
