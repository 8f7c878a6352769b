// Package scanner turns a PL/0 source buffer into a lazy sequence of
// tokens, one symbol of lookahead at a time, over a fully buffered
// source string.
package scanner

import (
	"strconv"

	"github.com/jkorhonen/pl0r/internal/diag"
	"github.com/jkorhonen/pl0r/internal/token"
)

// Scanner holds scan position over an in-memory source buffer.
type Scanner struct {
	src     []rune
	start   int
	current int
	line    int

	diags *diag.Sink
}

// New creates a Scanner over src, reporting non-fatal lexical diagnostics
// through diags.
func New(src string, diags *diag.Sink) *Scanner {
	return &Scanner{src: []rune(src), line: 1, diags: diags}
}

// Line returns the current line number, for diagnostics raised by the
// parser against the symbol just returned by Next.
func (s *Scanner) Line() int { return s.line }

func (s *Scanner) atEnd() bool { return s.current >= len(s.src) }

func (s *Scanner) advance() rune {
	r := s.src[s.current]
	s.current++
	return r
}

func (s *Scanner) peek() rune {
	if s.atEnd() {
		return 0
	}
	return s.src[s.current]
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
func isAlpha(r rune) bool { return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' }
func isAlphaNum(r rune) bool { return isAlpha(r) || isDigit(r) }

// Next returns the next token from the buffer, or a token.Eof token once
// the buffer is exhausted.
func (s *Scanner) Next() token.Token {
	if s.atEnd() {
		return token.Token{Type: token.Eof, Line: s.line}
	}
	s.start = s.current
	return s.scanOne()
}

func (s *Scanner) scanOne() token.Token {
	line := s.line
	c := s.advance()
	switch c {
	case '(':
		return token.Token{Type: token.LParen, Line: line}
	case ')':
		return token.Token{Type: token.RParen, Line: line}
	case ',':
		return token.Token{Type: token.Comma, Line: line}
	case '.':
		return token.Token{Type: token.Period, Line: line}
	case '-':
		return token.Token{Type: token.Minus, Line: line}
	case '+':
		return token.Token{Type: token.Plus, Line: line}
	case '*':
		return token.Token{Type: token.Times, Line: line}
	case '#':
		return token.Token{Type: token.NotEqual, Line: line}
	case '=':
		return token.Token{Type: token.Equal, Line: line}
	case ';':
		return token.Token{Type: token.Semicolon, Line: line}
	case '/':
		return token.Token{Type: token.Slash, Line: line}
	case ':':
		if s.peek() == '=' {
			s.advance()
			return token.Token{Type: token.Becomes, Line: line}
		}
		return token.Token{Type: token.BecomesErr, Line: line}
	case '<':
		return token.Token{Type: token.Less, Line: line}
	case '>':
		return token.Token{Type: token.Greater, Line: line}
	case '[':
		return token.Token{Type: token.LessEqual, Line: line}
	case ']':
		return token.Token{Type: token.GreaterEqual, Line: line}
	case '!':
		return token.Token{Type: token.Write, Line: line}
	case '?':
		return token.Token{Type: token.Read, Line: line}
	case ' ', '\r', '\t':
		return token.Token{Type: token.WhiteSpace, Ch: c, Line: line}
	case '\n':
		s.line++
		return token.Token{Type: token.WhiteSpace, Ch: c, Line: line}
	default:
		if isDigit(c) {
			return s.number(line)
		}
		if isAlpha(c) {
			return s.identifier(line)
		}
		if s.diags != nil {
			s.diags.ScanError(line, "unexpected character")
		}
		return token.Token{Type: token.WhiteSpace, Ch: ' ', Line: line}
	}
}

func (s *Scanner) number(line int) token.Token {
	for isDigit(s.peek()) {
		s.advance()
	}
	text := string(s.src[s.start:s.current])
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		if s.diags != nil {
			s.diags.ScanError(line, "number does not fit in 32 bits")
		}
		return token.Token{Type: token.Number, Num: 0, Line: line}
	}
	return token.Token{Type: token.Number, Num: int(n), Line: line}
}

func (s *Scanner) identifier(line int) token.Token {
	for isAlphaNum(s.peek()) {
		s.advance()
	}
	text := string(s.src[s.start:s.current])
	if kw, ok := token.Keywords[text]; ok {
		return token.Token{Type: kw, Line: line}
	}
	return token.Token{Type: token.Ident, Name: text, Line: line}
}
