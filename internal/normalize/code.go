package normalize

import (
	"strings"
	"unicode"
)

// CodeStyle tells how a searched code fragment is compared with stored codes.
type CodeStyle int

const (
	// CodeNumeric compares digits only: "01 01" matches stored "C-0101".
	CodeNumeric CodeStyle = iota
	// CodeAlphanumeric compares with hyphens and spaces removed, case-insensitively.
	CodeAlphanumeric
)

// ClassifyCode reports CodeNumeric when every character of raw is a Unicode
// number, white space or hyphen.
func ClassifyCode(raw string) CodeStyle {
	for _, r := range raw {
		if !unicode.IsNumber(r) && !unicode.IsSpace(r) && r != '-' {
			return CodeAlphanumeric
		}
	}
	return CodeNumeric
}

// CompactCode removes hyphens and spaces: "C-01 01" -> "C0101".
func CompactCode(raw string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(raw)
}

// DigitsOnly keeps the number characters of raw: "C-0101*" -> "0101".
func DigitsOnly(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CodePrefix returns the style of raw and the prefix to look for in stored
// codes normalized the same way. Alphanumeric prefixes are upper-cased.
func CodePrefix(raw string) (CodeStyle, string) {
	if ClassifyCode(raw) == CodeNumeric {
		return CodeNumeric, DigitsOnly(raw)
	}
	return CodeAlphanumeric, strings.ToUpper(CompactCode(raw))
}
