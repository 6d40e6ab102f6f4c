package citekey

import "strings"

// cleanISBN strips hyphens, spaces, and an optional "ISBN" label.
func cleanISBN(isbn string) string {
	isbn = strings.ToUpper(strings.TrimSpace(isbn))
	isbn = strings.TrimPrefix(isbn, "ISBN")
	isbn = strings.TrimLeft(isbn, ":- ")
	return strings.NewReplacer("-", "", " ", "").Replace(isbn)
}

// ValidISBN reports whether isbn is a syntactically valid ISBN-10 or
// ISBN-13, including its check digit.
func ValidISBN(isbn string) bool {
	isbn = cleanISBN(isbn)
	switch len(isbn) {
	case 10:
		return validISBN10(isbn)
	case 13:
		return validISBN13(isbn)
	}
	return false
}

// ToISBN13 converts an ISBN-10 or ISBN-13 to hyphen-free ISBN-13 form.
// Invalid input is returned cleaned but otherwise unchanged, so that
// metadata lookup fails downstream with proper error handling.
func ToISBN13(isbn string) string {
	isbn = cleanISBN(isbn)
	if len(isbn) != 10 || !validISBN10(isbn) {
		return isbn
	}
	body := "978" + isbn[:9]
	return body + string(rune('0'+isbn13CheckDigit(body)))
}

func validISBN10(isbn string) bool {
	if len(isbn) != 10 {
		return false
	}
	sum := 0
	for i, r := range isbn {
		var digit int
		switch {
		case r >= '0' && r <= '9':
			digit = int(r - '0')
		case r == 'X' && i == 9:
			digit = 10
		default:
			return false
		}
		sum += (10 - i) * digit
	}
	return sum%11 == 0
}

func validISBN13(isbn string) bool {
	if len(isbn) != 13 {
		return false
	}
	for _, r := range isbn {
		if r < '0' || r > '9' {
			return false
		}
	}
	return isbn13CheckDigit(isbn[:12]) == int(isbn[12]-'0')
}

// isbn13CheckDigit computes the EAN-13 check digit for a 12-digit body.
func isbn13CheckDigit(body string) int {
	sum := 0
	for i, r := range body {
		digit := int(r - '0')
		if i%2 == 1 {
			digit *= 3
		}
		sum += digit
	}
	return (10 - sum%10) % 10
}
