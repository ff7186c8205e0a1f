// Package lexer splits a VCD stream into whitespace-delimited tokens.
//
// The scanner reads through a bufio.Reader one token at a time, so arbitrarily
// large dumps are never materialized in memory. Token kinds are lexical hints
// only: VCD identifier codes may start with '$' or '#', so the parsers read
// fields positionally and use Kind only where the grammar is unambiguous.
package lexer

import (
	"bufio"
	"io"
	"strings"

	"vcdscan/internal/core/errors"
)

// DefaultBufferSize is the read buffer used when none is specified.
const DefaultBufferSize = 64 * 1024

// Kind classifies a token.
type Kind int

const (
	EOF Kind = iota
	// Keyword is a '$'-prefixed word other than $end.
	Keyword
	// End is the $end section terminator.
	End
	// Word is anything else: identifiers, numbers, values, timestamps.
	Word
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "end of input"
	case Keyword:
		return "keyword"
	case End:
		return "$end"
	default:
		return "word"
	}
}

// Token is a single lexeme with the position of its first byte.
type Token struct {
	Kind   Kind
	Text   string
	Line   int
	Offset int64
}

// Is reports whether t is the keyword kw (for example "$scope").
func (t Token) Is(kw string) bool {
	return t.Kind != EOF && t.Text == kw
}

func (t Token) String() string {
	if t.Kind == EOF {
		return "end of input"
	}
	return "'" + t.Text + "'"
}

// Scanner produces tokens from a VCD stream.
type Scanner struct {
	r      *bufio.Reader
	line   int
	offset int64
	buf    []byte
}

// New returns a Scanner reading from r with the default buffer size.
func New(r io.Reader) *Scanner {
	return NewSize(r, DefaultBufferSize)
}

// NewSize returns a Scanner whose read buffer holds at least size bytes.
func NewSize(r io.Reader, size int) *Scanner {
	if size <= 0 {
		size = DefaultBufferSize
	}
	br, ok := r.(*bufio.Reader)
	if !ok || br.Size() < size {
		br = bufio.NewReaderSize(r, size)
	}
	return &Scanner{r: br, line: 1, buf: make([]byte, 0, 64)}
}

// Line returns the current 1-based line number.
func (s *Scanner) Line() int { return s.line }

// Offset returns the number of bytes consumed so far.
func (s *Scanner) Offset() int64 { return s.offset }

// Next returns the next token. At end of input it returns a token of kind EOF
// and a nil error. Bytes outside the printable ASCII range inside a token
// produce a MALFORMED_TOKEN error.
func (s *Scanner) Next() (Token, error) {
	return s.scan(true)
}

// ReadSection consumes raw text up to and including the next $end and returns
// the words in between joined by single spaces. No alphabet check is applied,
// which makes it suitable for $date, $version and $comment bodies.
func (s *Scanner) ReadSection() (string, error) {
	startLine, startOffset := s.line, s.offset
	var words []string
	for {
		tok, err := s.scan(false)
		if err != nil {
			return "", err
		}
		switch tok.Kind {
		case EOF:
			return "", errors.Newf(errors.CodeMalformedToken,
				"unterminated section starting here, expected $end before end of input").
				WithPosition(startLine, startOffset)
		case End:
			return strings.Join(words, " "), nil
		}
		words = append(words, tok.Text)
	}
}

func (s *Scanner) scan(validate bool) (Token, error) {
	if err := s.skipSpace(); err != nil {
		if err == io.EOF {
			return Token{Kind: EOF, Line: s.line, Offset: s.offset}, nil
		}
		return Token{}, s.ioError(err)
	}

	tok := Token{Line: s.line, Offset: s.offset}
	s.buf = s.buf[:0]
	for {
		c, err := s.r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Token{}, s.ioError(err)
		}
		if isSpace(c) {
			if err := s.r.UnreadByte(); err != nil {
				return Token{}, s.ioError(err)
			}
			break
		}
		if validate && !isPrintable(c) {
			return Token{}, errors.Newf(errors.CodeMalformedToken,
				"byte 0x%02x is outside the VCD token alphabet, expected printable ASCII", c).
				WithPosition(s.line, s.offset)
		}
		s.buf = append(s.buf, c)
		s.offset++
	}

	tok.Text = string(s.buf)
	switch {
	case tok.Text == "$end":
		tok.Kind = End
	case len(tok.Text) > 1 && tok.Text[0] == '$':
		tok.Kind = Keyword
	default:
		tok.Kind = Word
	}
	return tok, nil
}

func (s *Scanner) skipSpace() error {
	for {
		c, err := s.r.ReadByte()
		if err != nil {
			return err
		}
		if !isSpace(c) {
			return s.r.UnreadByte()
		}
		s.offset++
		if c == '\n' {
			s.line++
		}
	}
}

func (s *Scanner) ioError(err error) error {
	return (&errors.DomainError{
		Code:    errors.CodeInternal,
		Message: "read failed",
		Err:     err,
	}).WithPosition(s.line, s.offset)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func isPrintable(c byte) bool {
	return c >= '!' && c <= '~'
}
