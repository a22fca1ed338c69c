package e2etest

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TextByTestID returns the trimmed text of the single element marked with data-testid=testID.
func TextByTestID(doc *goquery.Document, testID string) (string, error) {
	sel := doc.Find(fmt.Sprintf("[data-testid='%s']", testID))
	if sel.Length() != 1 {
		return "", fmt.Errorf("found %d elements with data-testid %s", sel.Length(), testID)
	}
	return strings.TrimSpace(sel.Text()), nil
}

// CountButtons returns the number of buttons whose text contains text.
func CountButtons(doc *goquery.Document, text string) int {
	count := 0
	doc.Find("button").Each(func(_ int, s *goquery.Selection) {
		if strings.Contains(s.Text(), text) {
			count++
		}
	})
	return count
}
