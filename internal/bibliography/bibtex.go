package bibliography

import (
	"bufio"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/citekit/citekit/internal/csl"
)

// bibtexEntryTypes maps BibTeX entry types to CSL types.
var bibtexEntryTypes = map[string]string{
	"article":       "article-journal",
	"book":          "book",
	"booklet":       "pamphlet",
	"inbook":        "chapter",
	"incollection":  "chapter",
	"inproceedings": "paper-conference",
	"conference":    "paper-conference",
	"manual":        "book",
	"mastersthesis": "thesis",
	"phdthesis":     "thesis",
	"techreport":    "report",
	"unpublished":   "manuscript",
	"misc":          csl.DefaultType,
}

var (
	// Matches entry start: @type{key,
	bibtexEntryStart = regexp.MustCompile(`@(\w+)\s*\{\s*([^,\s]+)\s*,`)
	// Matches field lines: name = {value} or name = "value"
	bibtexField = regexp.MustCompile(`(?i)^\s*([a-z]+)\s*=\s*[{"](.*?)["}]*\s*,?\s*$`)
)

// loadBibTeX reads a .bib file with a line-oriented parser. Entries and
// fields spanning multiple lines beyond the common one-field-per-line
// layout are not supported.
func loadBibTeX(path string) ([]csl.Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var items []csl.Item
	var entryType string
	var fields map[string]string
	flush := func() {
		if fields != nil {
			items = append(items, itemFromBibTeX(entryType, fields))
		}
		fields = nil
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if m := bibtexEntryStart.FindStringSubmatch(line); m != nil {
			flush()
			entryType = strings.ToLower(m[1])
			fields = map[string]string{"=key": m[2]}
			continue
		}
		if fields == nil {
			continue
		}
		if m := bibtexField.FindStringSubmatch(line); m != nil {
			fields[strings.ToLower(m[1])] = strings.TrimRight(m[2], "}\"")
		}
	}
	flush()
	return items, scanner.Err()
}

// itemFromBibTeX maps a parsed BibTeX entry to a CSL item.
func itemFromBibTeX(entryType string, fields map[string]string) csl.Item {
	item := csl.Item{"id": fields["=key"]}
	if cslType, ok := bibtexEntryTypes[entryType]; ok {
		item["type"] = cslType
	} else {
		item["type"] = csl.DefaultType
	}

	copyField := func(from, to string) {
		if v, ok := fields[from]; ok && v != "" {
			item[to] = v
		}
	}
	copyField("title", "title")
	copyField("journal", "container-title")
	copyField("booktitle", "container-title")
	copyField("volume", "volume")
	copyField("number", "issue")
	copyField("publisher", "publisher")
	copyField("address", "publisher-place")
	copyField("edition", "edition")
	copyField("isbn", "ISBN")
	copyField("issn", "ISSN")
	copyField("abstract", "abstract")
	copyField("url", "URL")

	if doi, ok := fields["doi"]; ok && doi != "" {
		item["DOI"] = strings.ToLower(strings.TrimSpace(doi))
	}
	if pages, ok := fields["pages"]; ok && pages != "" {
		item["page"] = strings.ReplaceAll(pages, "--", "-")
	}
	if authors := parseBibTeXAuthors(fields["author"]); len(authors) > 0 {
		item["author"] = authors
	}
	if parts := bibtexDateParts(fields["year"], fields["month"]); parts != nil {
		item["issued"] = map[string]any{"date-parts": []any{parts}}
	}
	return item
}

// parseBibTeXAuthors splits an author field on " and " into CSL names,
// recognizing the "Last, First" form.
func parseBibTeXAuthors(field string) []any {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	var authors []any
	for _, name := range strings.Split(field, " and ") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if family, given, ok := strings.Cut(name, ","); ok {
			authors = append(authors, map[string]any{
				"family": strings.TrimSpace(family),
				"given":  strings.TrimSpace(given),
			})
			continue
		}
		authors = append(authors, map[string]any{"literal": name})
	}
	return authors
}

var bibtexMonths = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

func bibtexDateParts(year, month string) []any {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return nil
	}
	parts := []any{y}
	month = strings.ToLower(strings.TrimSpace(month))
	if m, err := strconv.Atoi(month); err == nil && m >= 1 && m <= 12 {
		parts = append(parts, m)
	} else if len(month) >= 3 {
		if m, ok := bibtexMonths[month[:3]]; ok {
			parts = append(parts, m)
		}
	}
	return parts
}
