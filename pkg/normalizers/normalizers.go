// Package normalizers provides named value normalizers applied to extracted fields
package normalizers

import (
	"sort"
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// separatorCutset is stripped from both ends of every captured value.
const separatorCutset = "\",; "

var registry = make(map[string]Normalizer)

func init() {
	Register("lowercase", Lowercase)
	Register("uppercase", Uppercase)
	Register("trim", Trim)
	Register("collapse_whitespace", CollapseWhitespace)
	Register("remove_whitespace", RemoveWhitespace)
	Register("remove_punctuation", RemovePunctuation)
	Register("nphone", NormalizePhone)
	Register("nemail", NormalizeEmail)
	Register("digits_only", DigitsOnly)
	Register("alphanumeric", Alphanumeric)
	Register("title", Title)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Names lists the registered normalizers in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply applies a named normalizer to a value. Unknown names leave the value unchanged.
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Clean trims whitespace and then strips surrounding quote and separator characters
// from a captured value.
func Clean(s string) string {
	return strings.Trim(strings.TrimSpace(s), separatorCutset)
}

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Uppercase converts string to uppercase
func Uppercase(s string) string {
	return strings.ToUpper(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// Title upper-cases the first letter of every word and lower-cases the rest
func Title(s string) string {
	var result strings.Builder
	start := true
	for _, r := range s {
		if unicode.IsSpace(r) || r == '-' || r == '\'' {
			start = true
			result.WriteRune(r)
			continue
		}
		if start {
			result.WriteRune(unicode.ToUpper(r))
			start = false
		} else {
			result.WriteRune(unicode.ToLower(r))
		}
	}
	return result.String()
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims the ends
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// RemoveWhitespace removes all whitespace characters
func RemoveWhitespace(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// RemovePunctuation removes all punctuation characters
func RemovePunctuation(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsPunct(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizePhone keeps digits and a leading plus sign
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	var result strings.Builder
	for i, r := range s {
		if unicode.IsDigit(r) || (i == 0 && r == '+') {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizeEmail normalizes an email address (lowercase, trim)
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Alphanumeric keeps only alphanumeric characters
func Alphanumeric(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
