package utils

import "strings"

// BracketIdentifier wraps an identifier in square brackets, handling
// qualified identifiers. Each part of a schema.object style identifier is
// bracketed individually.
//
// Examples:
//   - "Orders" -> "[Orders]"
//   - "dbo.Orders" -> "[dbo].[Orders]"
//   - "[Orders]" -> "[Orders]" (already bracketed, not double-bracketed)
//   - "" -> ""
//
// Any closing bracket embedded in a part is doubled, so an object name that
// itself contains "]" cannot terminate the quoted identifier early.
func BracketIdentifier(name string) string {
	if name == "" {
		return ""
	}

	// A single identifier that is already bracketed is returned as-is, even
	// when it contains dots.
	if IsBracketed(name) {
		return name
	}

	parts := strings.Split(name, ".")
	for i, part := range parts {
		if IsBracketed(part) {
			continue
		}
		parts[i] = "[" + EscapeIdentifier(part) + "]"
	}
	return strings.Join(parts, ".")
}

// BracketQualifiedName formats a schema-qualified name with brackets. An
// empty schema yields just the bracketed object name.
//
// Examples:
//   - ("dbo", "Orders") -> "[dbo].[Orders]"
//   - ("", "Orders") -> "[Orders]"
func BracketQualifiedName(schema, name string) string {
	if schema == "" {
		return BracketIdentifier(name)
	}
	return BracketIdentifier(schema) + "." + BracketIdentifier(name)
}

// EscapeIdentifier doubles every closing bracket in an identifier so the
// result can be embedded between [ and ] without ending the identifier.
func EscapeIdentifier(name string) string {
	return strings.ReplaceAll(name, "]", "]]")
}

// IsBracketed checks if a string is a single identifier wrapped in brackets.
//
// Examples:
//   - "[Orders]" -> true
//   - "Orders" -> false
//   - "[dbo].[Orders]" -> false (qualified name, not a single identifier)
func IsBracketed(s string) bool {
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return false
	}
	inner := s[1 : len(s)-1]
	return !strings.ContainsAny(inner, "[]")
}

// StripBrackets removes brackets from an identifier if present, undoing any
// doubled closing brackets.
//
// Examples:
//   - "[Orders]" -> "Orders"
//   - "[dbo].[Orders]" -> "dbo.Orders"
//   - "Orders" -> "Orders"
func StripBrackets(s string) string {
	s = strings.ReplaceAll(s, "]]", "\x00")
	s = strings.ReplaceAll(s, "[", "")
	s = strings.ReplaceAll(s, "]", "")
	return strings.ReplaceAll(s, "\x00", "]")
}
