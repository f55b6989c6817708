package utils_test

import (
	"testing"

	"github.com/sqlport/sqlport/pkg/utils"
	"github.com/stretchr/testify/require"
)

func TestBracketIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple identifier",
			input:    "Orders",
			expected: "[Orders]",
		},
		{
			name:     "qualified identifier",
			input:    "dbo.Orders",
			expected: "[dbo].[Orders]",
		},
		{
			name:     "three part identifier",
			input:    "Sales.dbo.Orders",
			expected: "[Sales].[dbo].[Orders]",
		},
		{
			name:     "already bracketed",
			input:    "[Orders]",
			expected: "[Orders]",
		},
		{
			name:     "partially bracketed qualified identifier",
			input:    "[dbo].Orders",
			expected: "[dbo].[Orders]",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "identifier with spaces",
			input:    "Order Details",
			expected: "[Order Details]",
		},
		{
			name:     "identifier containing a closing bracket",
			input:    "Odd]Name",
			expected: "[Odd]]Name]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, utils.BracketIdentifier(tt.input))
		})
	}
}

func TestBracketQualifiedName(t *testing.T) {
	require.Equal(t, "[dbo].[Orders]", utils.BracketQualifiedName("dbo", "Orders"))
	require.Equal(t, "[Orders]", utils.BracketQualifiedName("", "Orders"))
}

func TestEscapeIdentifier(t *testing.T) {
	require.Equal(t, "plain", utils.EscapeIdentifier("plain"))
	require.Equal(t, "a]]b", utils.EscapeIdentifier("a]b"))
	require.Equal(t, "a]]]]b", utils.EscapeIdentifier("a]]b"))
}

func TestIsBracketed(t *testing.T) {
	require.True(t, utils.IsBracketed("[Orders]"))
	require.False(t, utils.IsBracketed("Orders"))
	require.False(t, utils.IsBracketed("[dbo].[Orders]"))
	require.False(t, utils.IsBracketed(""))
}

func TestStripBrackets(t *testing.T) {
	require.Equal(t, "Orders", utils.StripBrackets("[Orders]"))
	require.Equal(t, "dbo.Orders", utils.StripBrackets("[dbo].[Orders]"))
	require.Equal(t, "Orders", utils.StripBrackets("Orders"))
	require.Equal(t, "Odd]Name", utils.StripBrackets("[Odd]]Name]"))
}
