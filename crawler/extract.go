package crawler

import (
	"bytes"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/use-agent/syndicate/textutil"
)

// boilerplateSelector matches the page chrome that carries no article
// content and only wastes adaptation-prompt space.
var boilerplateSelector = cascadia.MustCompile("nav, footer, header, aside, script, style, noscript, iframe, form")

// minReadableLength is the minimum extracted text length (in characters)
// for readability output to be trusted. Below it we assume the algorithm
// missed the main content and fall back to the pruned page.
const minReadableLength = 50

// Extractor turns fetched HTML into a compact Markdown context string and a
// list of discovered links.
type Extractor struct {
	conv     *converter.Converter
	maxChars int
}

// NewExtractor creates an Extractor that caps each page's context at
// maxChars characters.
func NewExtractor(maxChars int) *Extractor {
	return &Extractor{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
		maxChars: maxChars,
	}
}

// Context extracts the page's main content as Markdown, prefixed with the
// title when one is known. It never fails: every fallback path still yields
// a (possibly rough) text rendering of the page.
func (e *Extractor) Context(pageURL, title, rawHTML string) string {
	pruned := pruneBoilerplate(rawHTML)

	content := pruned
	if parsedURL, err := url.Parse(pageURL); err == nil {
		article, rerr := readability.FromReader(strings.NewReader(pruned), parsedURL)
		if rerr == nil && len(strings.TrimSpace(article.TextContent)) >= minReadableLength {
			content = article.Content
			if title == "" {
				title = article.Title
			}
		} else {
			slog.Debug("readability fell back to pruned page", "url", pageURL, "error", rerr)
		}
	}

	md, err := e.conv.ConvertString(content, converter.WithDomain(textutil.Domain(pageURL)))
	if err != nil {
		slog.Debug("markdown conversion failed, using plain text", "url", pageURL, "error", err)
		md = textutil.Clean(content)
	}

	md = strings.TrimSpace(md)
	if title != "" {
		md = "# " + strings.TrimSpace(title) + "\n\n" + md
	}
	return textutil.Truncate(md, e.maxChars)
}

// Links returns all HTTP(S) links on the page, resolved against pageURL,
// de-duplicated, in document order. Fragments are dropped.
func (e *Extractor) Links(pageURL, rawHTML string) []string {
	baseURL, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		resolved, err := baseURL.Parse(href)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""
		abs := resolved.String()
		if abs == pageURL {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})
	return links
}

// pruneBoilerplate removes chrome elements matched by boilerplateSelector
// and renders the document back to HTML. On parse failure the input is
// returned unchanged.
func pruneBoilerplate(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}

	for _, node := range cascadia.QueryAll(doc, boilerplateSelector) {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return rawHTML
	}
	return buf.String()
}
