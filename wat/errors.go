package wat

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/wasmkit/watc/ast"
)

// Diagnostic is a message tied to a byte span of the source. Rendering a
// line/column position is deferred to Render so parsing never pays for
// position computation unless a diagnostic is actually reported.
type Diagnostic struct {
	Span ast.Span
	Msg  string
}

// Render formats the diagnostic against the source it was produced from as a
// 1-based "line:col" position, the message, and a caret-annotated snippet of
// the offending line.
func (d Diagnostic) Render(source []byte) string {
	line, col := position(source, d.Span.Start)
	text := lineAt(source, d.Span.Start)
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%d: %s", line, col, d.Msg)
	if text != "" {
		b.WriteString("\n")
		b.WriteString(text)
		b.WriteString("\n")
		for i := uint32(1); i < col; i++ {
			b.WriteByte(' ')
		}
		b.WriteByte('^')
	}
	return b.String()
}

// ParseError is a failure to tokenize or parse, carrying the byte span of
// the offending token.
type ParseError struct {
	Diagnostic
	// Context is where symbolically the error occurred, ex. "module.elem[1]".
	Context string
}

func (e *ParseError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("%s (at offset %d)", e.Msg, e.Span.Start)
	}
	return fmt.Sprintf("%s in %s (at offset %d)", e.Msg, e.Context, e.Span.Start)
}

func errAt(span ast.Span, msg string) *ParseError {
	return &ParseError{Diagnostic: Diagnostic{Span: span, Msg: msg}}
}

func errAtf(span ast.Span, format string, args ...interface{}) *ParseError {
	return errAt(span, fmt.Sprintf(format, args...))
}

// position maps a byte offset to a 1-based line and UTF-8 column with one
// scan of the source. Only unescaped '\n' counts as a newline; a bare '\r'
// does not.
func position(source []byte, offset int) (line, col uint32) {
	if offset > len(source) {
		offset = len(source)
	}
	line = 1
	lineStart := 0
	for i := 0; i < offset; i++ {
		if source[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	col = uint32(utf8.RuneCount(source[lineStart:offset])) + 1
	return
}

// lineAt returns the full source line containing the byte offset, without
// its trailing newline.
func lineAt(source []byte, offset int) string {
	if offset > len(source) {
		offset = len(source)
	}
	start := offset
	for start > 0 && source[start-1] != '\n' {
		start--
	}
	end := offset
	for end < len(source) && source[end] != '\n' {
		end++
	}
	return strings.TrimRight(string(source[start:end]), "\r")
}
