package wat

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func kindsOf(t *testing.T, source string) []tokenKind {
	t.Helper()
	tokens, err := lex([]byte(source))
	require.Nil(t, err)
	kinds := make([]tokenKind, 0, len(tokens))
	for _, tok := range tokens {
		kinds = append(kinds, tok.kind)
	}
	return kinds
}

func TestLex(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected []tokenKind
	}{
		{
			name:     "empty",
			source:   "",
			expected: []tokenKind{tokenEOF},
		},
		{
			name:     "only whitespace",
			source:   " \t\r\n",
			expected: []tokenKind{tokenEOF},
		},
		{
			name:     "line comment",
			source:   ";; end of line comment\n",
			expected: []tokenKind{tokenEOF},
		},
		{
			name:     "block comment",
			source:   "(; block comment ;)",
			expected: []tokenKind{tokenEOF},
		},
		{
			name:     "nested block comment",
			source:   "(; outer (; inner ;) outer ;)",
			expected: []tokenKind{tokenEOF},
		},
		{
			name:     "empty module",
			source:   "(module)",
			expected: []tokenKind{tokenLParen, tokenKeyword, tokenRParen, tokenEOF},
		},
		{
			name:   "table with limits",
			source: "(table 1 2 funcref)",
			expected: []tokenKind{
				tokenLParen, tokenKeyword, tokenUN, tokenUN, tokenKeyword, tokenRParen, tokenEOF,
			},
		},
		{
			name:     "id",
			source:   "$main",
			expected: []tokenKind{tokenID, tokenEOF},
		},
		{
			name:     "string",
			source:   `"hello"`,
			expected: []tokenKind{tokenString, tokenEOF},
		},
		{
			name:     "string with escaped quote",
			source:   `"say \"hi\""`,
			expected: []tokenKind{tokenString, tokenEOF},
		},
		{
			name:     "signed",
			source:   "-384 +42",
			expected: []tokenKind{tokenSN, tokenSN, tokenEOF},
		},
		{
			name:     "hex",
			source:   "0xdeadbeef",
			expected: []tokenKind{tokenUN, tokenEOF},
		},
		{
			name:     "underscored",
			source:   "1_000_000",
			expected: []tokenKind{tokenUN, tokenEOF},
		},
		{
			name:     "float",
			source:   "3.14 1e10 0x1.8p4",
			expected: []tokenKind{tokenFN, tokenFN, tokenFN, tokenEOF},
		},
		{
			name:     "float specials",
			source:   "inf -inf nan nan:0x7f_ffff",
			expected: []tokenKind{tokenFN, tokenFN, tokenFN, tokenFN, tokenEOF},
		},
		{
			name:     "memarg keywords",
			source:   "offset=16 align=8",
			expected: []tokenKind{tokenKeyword, tokenKeyword, tokenEOF},
		},
		{
			name:     "reserved",
			source:   "0$x",
			expected: []tokenKind{tokenReserved, tokenEOF},
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, kindsOf(t, tc.source))
		})
	}
}

func TestLexSpans(t *testing.T) {
	tokens, err := lex([]byte("(elem $e)"))
	require.Nil(t, err)
	require.Equal(t, 5, len(tokens)) // includes the EOF sentinel
	require.Equal(t, 1, tokens[1].span.Start)
	require.Equal(t, 5, tokens[1].span.End) // "elem"
	require.Equal(t, 6, tokens[2].span.Start)
	require.Equal(t, 8, tokens[2].span.End) // "$e"
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		expMsg string
	}{
		{
			name:   "unbalanced close",
			source: "(module))",
			expMsg: "found ')' before '('",
		},
		{
			name:   "unclosed paren",
			source: "(module",
			expMsg: "expected ')', but reached end of input",
		},
		{
			name:   "unclosed block comment",
			source: "(; never ends",
			expMsg: "expected block comment end ';)', but reached end of input",
		},
		{
			name:   "unclosed string",
			source: `"runs off`,
			expMsg: "expected end quote",
		},
		{
			name:   "newline in string",
			source: "\"line\nbreak\"",
			expMsg: "unescaped newline in string",
		},
		{
			name:   "lone open paren at end of input",
			source: "(",
			expMsg: "found '(' at end of input",
		},
		{
			name:   "open paren ending an unclosed block comment",
			source: "(; (",
			expMsg: "expected block comment end ';)', but reached end of input",
		},
		{
			name:   "control character",
			source: string([]byte{0x01}),
			expMsg: "unexpected character",
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, err := lex([]byte(tc.source))
			require.NotNil(t, err)
			require.Contains(t, err.Msg, tc.expMsg)
		})
	}
}

func TestLexTokenBytes(t *testing.T) {
	source := []byte("(table $t 1 funcref)")
	tokens, err := lex(source)
	require.Nil(t, err)
	var texts []string
	for _, tok := range tokens[:len(tokens)-1] { // strip EOF
		texts = append(texts, string(source[tok.span.Start:tok.span.End]))
	}
	require.Equal(t, []string{"(", "table", "$t", "1", "funcref", ")"}, texts)
}

func TestStripDollar(t *testing.T) {
	for i, tc := range []struct{ in, exp string }{
		{"$x", "x"},
		{"$with-dash", "with-dash"},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			require.Equal(t, tc.exp, stripDollar([]byte(tc.in)))
		})
	}
}
