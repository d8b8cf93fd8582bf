package wat

import (
	"bytes"
	"fmt"

	"github.com/wasmkit/watc/ast"
)

// lex splits source into a flat token stream. This returns when the source
// is exhausted or an error occurs: dangling block comments, unterminated
// strings, unbalanced parentheses or unexpected characters.
//
// Tokens carry byte spans only. Line and column are computed lazily by
// Diagnostic.Render, so the hot path never pays for position bookkeeping.
func lex(source []byte) ([]token, *ParseError) {
	// i is the source index to begin reading, inclusive.
	i := 0
	// end is the source index to stop reading, exclusive.
	end := len(source)

	// Expressions are grouped by parenthesis, even the minimal example
	// "(module)". Track nesting to report imbalance here instead of bubbling
	// a confusing error up from the grammar layer.
	parenDepth := 0

	// Block comments, ex. (; comment ;), can span multiple lines and nest.
	blockCommentDepth := 0

	// A reasonable starting capacity: tokens average a few bytes plus a gap.
	tokens := make([]token, 0, len(source)/4+2)

	for ; i < end; i++ {
		b1 := source[i]

		if b1 == ' ' || b1 == '\t' || b1 == '\r' || b1 == '\n' { // fast path whitespace
			continue
		}

		// Handle parens and comments, noting block comments can be nested.
		switch b1 {
		case '(':
			peek := i + 1
			if peek == end { // nothing opens at end of input
				if blockCommentDepth > 0 {
					// Inside a comment the '(' is just text; let the
					// dangling-comment check below report.
					continue
				}
				return nil, errAt(span(i, end), "found '(' at end of input")
			}
			if source[peek] == ';' { // block comment begins
				i = peek // continue after "(;"
				blockCommentDepth++
				continue
			} else if blockCommentDepth == 0 {
				tokens = append(tokens, token{tokenLParen, span(i, i+1)})
				parenDepth++
				continue
			}
		case ')':
			if blockCommentDepth == 0 {
				if parenDepth == 0 {
					return nil, errAt(span(i, i+1), "found ')' before '('")
				}
				tokens = append(tokens, token{tokenRParen, span(i, i+1)})
				parenDepth--
				continue
			}
		case ';': // possible line comment or block comment end
			peek := i + 1
			if peek < end {
				b2 := source[peek]
				if blockCommentDepth > 0 && b2 == ')' {
					i = peek // continue after ";)"
					blockCommentDepth--
					continue
				}

				if b2 == ';' { // line comment: run to the next newline
					for peek < end && source[peek] != '\n' {
						peek++
					}
					i = peek - 1 // at the '\n' (or end); loop will +1
					continue
				}
			}
		}

		// Non-ASCII is only supported in comments and strings. Skip over
		// whole runes so a multi-byte character never confuses the scan.
		if blockCommentDepth > 0 {
			s := utf8Size[b1]
			if s == 0 {
				return nil, errAt(span(i, i+1), fmt.Sprintf("found an invalid byte in block comment: 0x%x", b1))
			}
			i += s - 1 // loop will +1
			continue
		}

		tok := firstTokenByte[b1]
		// b is the start position of the token (fixed); peek advances to one
		// past its last byte.
		b := i
		peek := i + 1

		switch tok {
		case tokenUN, tokenSN: // may resolve to tokenFN after scanning
			for ; peek < end; peek++ {
				if !idChar[source[peek]] {
					break
				}
			}
			tok = classifyNumber(source[b:peek])
			i = peek - 1
		case tokenString: // min 2 bytes for the empty string ("")
			hitQuote := false
		String:
			for peek < end {
				switch peeked := source[peek]; {
				case peeked == '"':
					hitQuote = true
					break String
				case peeked == '\\': // skip the escaped byte so \" does not terminate
					peek += 2
				case peeked == '\n':
					return nil, errAt(span(b, peek), "unescaped newline in string")
				default:
					s := utf8Size[peeked]
					if s == 0 {
						return nil, errAt(span(peek, peek+1), fmt.Sprintf("found an invalid byte in string token: 0x%x", peeked))
					}
					peek += s
				}
			}
			if !hitQuote {
				return nil, errAt(span(b, end), "expected end quote")
			}
			peek++ // past the closing quote
			i = peek - 1
		case tokenKeyword, tokenID, tokenReserved: // end with zero or more idChar
			for ; peek < end; peek++ {
				if !idChar[source[peek]] {
					break
				}
			}
			if tok == tokenKeyword {
				// Unsigned float constants for infinity and NaN clash with
				// keyword representation: "inf" and "nan" are numbers, while
				// "info" and "nano" are keywords.
				if isFloatSpecial(source[b:peek]) {
					tok = tokenFN
				}
			}
			if tok == tokenID && peek == b+1 {
				tok = tokenReserved // bare '$'
			}
			i = peek - 1
		default:
			if b1 > 0x7f {
				return nil, errAt(span(i, i+1), fmt.Sprintf("expected an ASCII character, not 0x%x", b1))
			}
			return nil, errAt(span(i, i+1), fmt.Sprintf("unexpected character %q", string(b1)))
		}

		tokens = append(tokens, token{tok, span(b, peek)})
	}

	if blockCommentDepth > 0 {
		return nil, errAt(span(end, end), "expected block comment end ';)', but reached end of input")
	}
	if parenDepth > 0 {
		return nil, errAt(span(end, end), "expected ')', but reached end of input")
	}
	return append(tokens, token{tokenEOF, span(end, end)}), nil
}

func span(start, end int) ast.Span {
	return ast.Span{Start: start, End: end}
}

// classifyNumber decides between tokenUN, tokenSN, tokenFN and
// tokenReserved for a scanned idChar run beginning with a digit or sign.
func classifyNumber(tokenBytes []byte) tokenKind {
	digits := tokenBytes
	signed := false
	if digits[0] == '+' || digits[0] == '-' {
		signed = true
		digits = digits[1:]
	}
	if len(digits) == 0 {
		return tokenReserved // bare sign
	}
	if isFloatSpecial(digits) {
		return tokenFN
	}

	hex := false
	if len(digits) > 2 && digits[0] == '0' && digits[1] == 'x' {
		hex = true
		digits = digits[2:]
	}

	float := false
	for _, c := range digits {
		switch {
		case c >= '0' && c <= '9' || c == '_':
		case hex && (c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'):
		case c == '.':
			float = true
		case !hex && (c == 'e' || c == 'E') || hex && (c == 'p' || c == 'P'):
			float = true
		case float && (c == '+' || c == '-'): // exponent sign
		default:
			return tokenReserved
		}
	}
	switch {
	case float:
		return tokenFN
	case signed:
		return tokenSN
	default:
		return tokenUN
	}
}

// isFloatSpecial reports whether the (unsigned) token spells infinity or a
// NaN, ex. "inf", "nan" or "nan:0x400000".
func isFloatSpecial(tokenBytes []byte) bool {
	return bytes.Equal(tokenBytes, []byte("inf")) ||
		bytes.Equal(tokenBytes, []byte("nan")) ||
		bytes.HasPrefix(tokenBytes, []byte("nan:0x"))
}
