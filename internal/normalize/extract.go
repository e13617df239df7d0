package normalize

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	strippedSelector = "script, style, header, footer, nav"
	headingSelector  = "h1, h2, h3, h4, h5, h6"
)

// ExtractText reduces an HTML page to its heading and paragraph text,
// separated by blank lines. Headings come first, then paragraphs, each group
// in document order.
func ExtractText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find(strippedSelector).Remove()

	var paragraphs []string
	collect := func(_ int, s *goquery.Selection) {
		if text := collapseSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	doc.Find(headingSelector).Each(collect)
	doc.Find("p").Each(collect)

	return strings.Join(paragraphs, "\n\n"), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
