// Package pdf extracts citable identifiers from local PDF files.
package pdf

import (
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/citekit/citekit/internal/citekey"
)

// DOI pattern: 10.XXXX/... where XXXX is 4+ digits
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// arXiv identifiers printed on preprint margins: arXiv:2301.12345v2
var arxivPattern = regexp.MustCompile(`(?i)arxiv:\s*([0-9]{4}\.[0-9]{4,5}(?:v[0-9]+)?)`)

// maxScanPages limits identifier search; identifiers are almost always
// on the first page.
const maxScanPages = 3

// ExtractCitekey extracts a citekey from a PDF file. DOIs are preferred
// over arXiv identifiers. Returns "" when the file carries neither.
func ExtractCitekey(filePath string) (string, error) {
	text, err := leadingText(filePath, maxScanPages)
	if err != nil {
		return "", err
	}
	return CitekeyFromText(text), nil
}

// CitekeyFromText finds a citable identifier in extracted page text.
func CitekeyFromText(text string) string {
	if doi := findDOI(text); doi != "" {
		return "doi:" + strings.ToLower(doi)
	}
	if m := arxivPattern.FindStringSubmatch(text); m != nil {
		return "arxiv:" + m[1]
	}
	return ""
}

// leadingText returns plain text from the first maxPages pages.
func leadingText(filePath string, maxPages int) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if r.NumPage() < maxPages {
		maxPages = r.NumPage()
	}

	var builder strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// findDOI finds the first plausible DOI in text.
func findDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		// Trailing punctuation is usually sentence context, not DOI.
		match = strings.TrimRight(match, ".,;:)")
		key := citekey.Parse("doi:"+match, nil, false)
		if key.Inspect() == "" {
			return match
		}
	}
	return ""
}
