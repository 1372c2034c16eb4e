package engine

import "strings"

// rewriter converts crop script source into source zygomys accepts. It
// tracks the current line and column so malformed input can be reported
// where it starts.
//
// Three rewrites apply outside string literals. A :keyword becomes the
// string "__kw_keyword", so keywords never bind global symbols. A hyphen
// between identifier letters becomes an underscore (open-loop reads as
// open_loop) because zygomys parses a bare hyphen as subtraction. A ;
// comment becomes a // comment.
type rewriter struct {
	src  string
	pos  int
	line int
	col  int
	out  strings.Builder
}

// rewriteSource runs the rewriter over src. An unterminated string
// literal is returned as an EvalError at its opening quote.
func rewriteSource(src string) (string, error) {
	w := &rewriter{src: src, line: 1, col: 1}
	w.out.Grow(len(src) + len(src)/4)

	for w.pos < len(w.src) {
		c := w.src[w.pos]
		switch {
		case c == '"' || c == '`':
			if err := w.literal(c); err != nil {
				return "", err
			}
		case c == ';':
			w.comment()
		case c == ':' && w.at(1) == '=':
			w.copy(2)
		case c == ':' && isLetter(w.at(1)):
			w.keyword()
		case c == '-' && w.pos > 0 && isIdentChar(w.src[w.pos-1]) && isLetter(w.at(1)):
			w.skip(1)
			w.out.WriteByte('_')
		default:
			w.copy(1)
		}
	}
	return w.out.String(), nil
}

// at returns the byte k positions ahead, or 0 past the end.
func (w *rewriter) at(k int) byte {
	if w.pos+k < len(w.src) {
		return w.src[w.pos+k]
	}
	return 0
}

func (w *rewriter) skip(n int) {
	for ; n > 0 && w.pos < len(w.src); n-- {
		if w.src[w.pos] == '\n' {
			w.line++
			w.col = 1
		} else {
			w.col++
		}
		w.pos++
	}
}

func (w *rewriter) copy(n int) {
	end := min(w.pos+n, len(w.src))
	w.out.WriteString(w.src[w.pos:end])
	w.skip(end - w.pos)
}

// literal copies a string delimited by quote unchanged. Backslash escapes
// apply only inside double quotes.
func (w *rewriter) literal(quote byte) error {
	line, col := w.line, w.col
	w.copy(1)
	for w.pos < len(w.src) {
		switch c := w.src[w.pos]; {
		case c == quote:
			w.copy(1)
			return nil
		case c == '\\' && quote == '"':
			w.copy(2)
		default:
			w.copy(1)
		}
	}
	return EvalError{Line: line, Col: col, Message: "unterminated string literal"}
}

// comment rewrites a run of semicolons as // and copies the rest of the
// line.
func (w *rewriter) comment() {
	w.out.WriteString("//")
	for w.pos < len(w.src) && w.src[w.pos] == ';' {
		w.skip(1)
	}
	end := strings.IndexByte(w.src[w.pos:], '\n')
	if end < 0 {
		end = len(w.src) - w.pos
	}
	w.copy(end)
}

func (w *rewriter) keyword() {
	w.skip(1)
	start := w.pos
	for w.pos < len(w.src) && isKWChar(w.src[w.pos]) {
		w.skip(1)
	}
	w.out.WriteByte('"')
	w.out.WriteString(kwPrefix)
	w.out.WriteString(w.src[start:w.pos])
	w.out.WriteByte('"')
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
