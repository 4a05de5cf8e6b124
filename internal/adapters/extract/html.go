package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"doctalk/internal/domain/entities"
)

// Thresholds separating a real page from a shell/redirect/blocked page.
const (
	// minCandidateLen is the length a main/article/body candidate must
	// exceed to be chosen.
	minCandidateLen = 100
	// minCombinedLen is the minimum length of the combined normalized
	// text; shorter pages are rejected with ErrEmptyContent.
	minCombinedLen = 50
)

// boilerplateSelector matches elements removed before text extraction.
const boilerplateSelector = "script, style, noscript, header, footer, nav, form"

// PageExtractor implements ports.PageExtractor: it normalizes raw HTML into
// plain text and captures title/meta-description fallback fields.
type PageExtractor struct{}

// NewPageExtractor creates a PageExtractor.
func NewPageExtractor() *PageExtractor {
	return &PageExtractor{}
}

// ExtractPage parses the HTML, strips boilerplate, and picks the first of
// main/article/body whose text exceeds minCandidateLen, falling back to the
// whole document. Title and Description are populated even when the result
// fails the minimum-content guard, so the caller can keep them for fallback
// answers before rejecting the page.
func (e *PageExtractor) ExtractPage(rawHTML string) (entities.PageContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return entities.PageContent{}, err
	}

	content := entities.PageContent{
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Description: strings.TrimSpace(doc.Find(`meta[name="description"]`).First().AttrOr("content", "")),
	}

	doc.Find(boilerplateSelector).Remove()

	candidates := []string{
		blockText(doc.Find("main").First()),
		blockText(doc.Find("article").First()),
		blockText(doc.Find("body").First()),
	}
	var text string
	for _, c := range candidates {
		if len(c) > minCandidateLen {
			text = c
			break
		}
	}
	if text == "" {
		text = blockText(doc.Selection)
	}

	var parts []string
	for _, p := range []string{content.Title, content.Description, text} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	content.Text = strings.Join(parts, "\n")

	if len(strings.TrimSpace(content.Text)) < minCombinedLen {
		return content, entities.ErrEmptyContent
	}
	return content, nil
}

// blockText extracts the visible text of a selection with one line per text
// node, each trimmed, empties dropped.
func blockText(sel *goquery.Selection) string {
	var lines []string
	for _, node := range sel.Nodes {
		collectText(node, &lines)
	}
	return strings.Join(lines, "\n")
}

func collectText(n *html.Node, lines *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*lines = append(*lines, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, lines)
	}
}
