package pii

import (
	"regexp"
	"strings"
)

// Value-shape patterns. Classification here looks at the value
// itself, unlike the detector which looks at column names.
var (
	emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	ssnShape   = regexp.MustCompile(`^\d{3}-?\d{2}-?\d{4}$`)
	phoneShape = regexp.MustCompile(`^\+?[\d\s().-]{7,20}$`)
)

const maskRune = '*'

// MaskValue classifies the value's shape and applies the matching
// masking strategy.
func MaskValue(value string) string {
	switch {
	case emailShape.MatchString(value):
		return maskEmail(value)
	case ssnShape.MatchString(value):
		return maskDigitsExceptLast(value, 4)
	case phoneShape.MatchString(value) && digitCount(value) >= 7:
		return maskPhone(value)
	default:
		return maskGeneric(value)
	}
}

// MaskFields masks the named fields of a record, leaving other fields
// and absent names untouched. The input record is not mutated.
func MaskFields(record map[string]string, fields []string) map[string]string {
	masked := make(map[string]string, len(record))
	for k, v := range record {
		masked[k] = v
	}
	for _, field := range fields {
		if value, ok := masked[field]; ok {
			masked[field] = MaskValue(value)
		}
	}
	return masked
}

// maskEmail keeps the domain and the first two characters of the
// local part.
func maskEmail(value string) string {
	at := strings.LastIndex(value, "@")
	local, domain := value[:at], value[at:]

	keep := 2
	if keep > len(local) {
		keep = len(local)
	}
	return local[:keep] + strings.Repeat(string(maskRune), len(local)-keep) + domain
}

// maskPhone keeps the first three and last three digits, masking the
// digits between and preserving formatting characters.
func maskPhone(value string) string {
	total := digitCount(value)
	out := []rune(value)
	seen := 0
	for i, r := range out {
		if r < '0' || r > '9' {
			continue
		}
		seen++
		if seen > 3 && seen <= total-3 {
			out[i] = maskRune
		}
	}
	return string(out)
}

// maskDigitsExceptLast masks every digit except the trailing keep,
// preserving formatting characters.
func maskDigitsExceptLast(value string, keep int) string {
	total := digitCount(value)
	out := []rune(value)
	seen := 0
	for i, r := range out {
		if r < '0' || r > '9' {
			continue
		}
		seen++
		if seen <= total-keep {
			out[i] = maskRune
		}
	}
	return string(out)
}

// maskGeneric keeps the first two and last two characters; values of
// four characters or fewer are masked entirely.
func maskGeneric(value string) string {
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat(string(maskRune), len(runes))
	}
	return string(runes[:2]) + strings.Repeat(string(maskRune), len(runes)-4) + string(runes[len(runes)-2:])
}

func digitCount(value string) int {
	n := 0
	for _, r := range value {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
