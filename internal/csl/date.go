package csl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var datePattern = regexp.MustCompile(
	`^([0-9]{4})(?:-(1[0-2]|0[1-9]))?(?:-([0-3][0-9]))?`)

// DateToDateParts converts an ISO style date string (YYYY, YYYY-MM, or
// YYYY-MM-DD, optionally followed by a time) to a CSL date-parts list.
// Returns nil when no leading year can be extracted.
func DateToDateParts(date string) []any {
	match := datePattern.FindStringSubmatch(strings.TrimSpace(date))
	if match == nil {
		return nil
	}
	var parts []any
	for _, group := range match[1:] {
		if group == "" {
			break
		}
		n, err := strconv.Atoi(group)
		if err != nil {
			break
		}
		parts = append(parts, n)
	}
	if len(parts) == 0 {
		return nil
	}
	return parts
}

// DatePartsToString renders a date-parts list as an ISO formatted string
// (YYYY, YYYY-MM, or YYYY-MM-DD). Returns "" for empty input.
func DatePartsToString(parts []int) string {
	widths := []int{4, 2, 2}
	var str []string
	for i, part := range parts {
		if i >= len(widths) {
			break
		}
		str = append(str, fmt.Sprintf("%0*d", widths[i], part))
	}
	return strings.Join(str, "-")
}

// GetDate returns the item's date variable (e.g. "issued") as an ISO
// formatted string, or "" when the variable is absent or malformed.
func (it Item) GetDate(variable string) string {
	dateVar, ok := it[variable].(map[string]any)
	if !ok {
		return ""
	}
	lists, ok := dateVar["date-parts"].([]any)
	if !ok || len(lists) == 0 {
		return ""
	}
	raw, ok := lists[0].([]any)
	if !ok {
		return ""
	}
	var parts []int
	for _, v := range raw {
		switch n := v.(type) {
		case int:
			parts = append(parts, n)
		case float64:
			parts = append(parts, int(n))
		default:
			return DatePartsToString(parts)
		}
	}
	return DatePartsToString(parts)
}
