// Package scan tokenises a circuit definition file into a stream of
// tagged symbols, skipping whitespace and comments, for the parser in
// internal/parse to consume.
package scan

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/suton5/logicsim/internal/names"
)

// Kind tags the lexical category of a Symbol.
type Kind int

const (
	NAME Kind = iota
	KEYWORD
	NUMBER
	COMMA
	SEMICOLON
	ARROW
	EQUALS
	PERIOD
	EOF
	INVALID
)

func (k Kind) String() string {
	switch k {
	case NAME:
		return "NAME"
	case KEYWORD:
		return "KEYWORD"
	case NUMBER:
		return "NUMBER"
	case COMMA:
		return "COMMA"
	case SEMICOLON:
		return "SEMICOLON"
	case ARROW:
		return "ARROW"
	case EQUALS:
		return "EQUALS"
	case PERIOD:
		return "PERIOD"
	case EOF:
		return "EOF"
	default:
		return "INVALID"
	}
}

// Keywords lists every reserved word in the grammar, pre-interned at
// construction so keyword IDs can be compared by equality.
var Keywords = []string{
	"START", "END", "DEVICES", "CONNECTIONS", "MONITORS",
	"ip", "init", "cycles", "sig",
	"CLOCK", "SWITCH", "AND", "NAND", "OR", "NOR", "DTYPE", "XOR", "SIGGEN",
	"Q", "QBAR", "DATA", "CLK", "SET", "CLEAR",
}

// KeywordIDs holds the interned NameID of every reserved word.
type KeywordIDs struct {
	Start, End                        names.ID
	Devices, Connections, Monitors    names.ID
	Ip, Init, Cycles, Sig             names.ID
	Clock, Switch, And, Nand, Or, Nor names.ID
	Dtype, Xor, Siggen                names.ID
	Q, Qbar, Data, Clk, Set, Clear    names.ID
}

// Symbol is a single token, tagged with its kind, an associated NameID for
// NAME/KEYWORD, a numeric value for NUMBER, and the source position
// needed to locate it within its line.
type Symbol struct {
	Kind    Kind
	NameID  names.ID // valid for NAME and KEYWORD
	Value   int      // parsed numeric value, valid for NUMBER
	Literal string   // identifier text, raw digit string (leading zeros preserved), or punctuation text

	Line      int // 1-based line number
	LineStart int // absolute byte offset of the first character of the line
	Pos       int // absolute byte offset just past this symbol
	Col       int // Pos - LineStart
}

// Scanner reads a circuit definition file and translates its characters
// into a stream of Symbols. The file is opened lazily, on the first call
// to NextSymbol.
type Scanner struct {
	path string
	file *os.File

	names      *names.Table
	Keywords   KeywordIDs
	keywordSet map[string]bool

	cur    byte
	curEOF bool
	atEOF  bool // true once the underlying file has reported io.EOF

	offset    int // absolute byte offset just past the last byte read
	line      int // 0-based; reported Line is line+1
	lineStart int // absolute offset of the current line's first byte
}

// New returns a Scanner over path, interning every keyword into tbl.
func New(path string, tbl *names.Table) *Scanner {
	s := &Scanner{path: path, names: tbl}
	ids := tbl.InternAll(Keywords)
	s.Keywords = KeywordIDs{
		Start: ids[0], End: ids[1], Devices: ids[2], Connections: ids[3], Monitors: ids[4],
		Ip: ids[5], Init: ids[6], Cycles: ids[7], Sig: ids[8],
		Clock: ids[9], Switch: ids[10], And: ids[11], Nand: ids[12], Or: ids[13], Nor: ids[14],
		Dtype: ids[15], Xor: ids[16], Siggen: ids[17],
		Q: ids[18], Qbar: ids[19], Data: ids[20], Clk: ids[21], Set: ids[22], Clear: ids[23],
	}
	s.keywordSet = make(map[string]bool, len(Keywords))
	for _, kw := range Keywords {
		s.keywordSet[kw] = true
	}
	return s
}

func (s *Scanner) open() error {
	if s.file != nil {
		return nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	s.file = f
	return nil
}

func (s *Scanner) readByte() (byte, bool) {
	if s.atEOF {
		return 0, false
	}
	var buf [1]byte
	n, err := s.file.Read(buf[:])
	if n == 0 || err != nil {
		s.atEOF = true
		return 0, false
	}
	s.offset++
	return buf[0], true
}

// unread backs the file position up by one byte, undoing the most recent
// readByte. Must only be called immediately after a successful readByte.
func (s *Scanner) unread() {
	if s.offset == 0 {
		return
	}
	s.file.Seek(-1, io.SeekCurrent)
	s.offset--
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isAlnum(b byte) bool {
	return isAlpha(b) || isDigit(b)
}

// skipSpaces consumes a run of whitespace, tracking line/lineStart, and
// leaves s.cur holding the first non-space byte (or sets s.curEOF).
func (s *Scanner) skipSpaces() {
	for {
		b, ok := s.readByte()
		if !ok {
			s.curEOF = true
			return
		}
		switch b {
		case ' ', '\t', '\r':
			continue
		case '\n':
			s.line++
			s.lineStart = s.offset
			continue
		default:
			s.cur = b
			s.curEOF = false
			return
		}
	}
}

func (s *Scanner) skipLineComment() {
	for {
		b, ok := s.readByte()
		if !ok {
			return
		}
		if b == '\n' {
			s.line++
			s.lineStart = s.offset
			return
		}
	}
}

func (s *Scanner) skipBlockComment() error {
	prevStar := false
	for {
		b, ok := s.readByte()
		if !ok {
			return fmt.Errorf("scan: unterminated block comment")
		}
		if b == '\n' {
			s.line++
			s.lineStart = s.offset
		}
		if prevStar && b == '/' {
			return nil
		}
		prevStar = b == '*'
	}
}

func (s *Scanner) finishPunct(kind Kind, lit string) Symbol {
	return Symbol{
		Kind: kind, Literal: lit,
		Line: s.line + 1, LineStart: s.lineStart,
		Pos: s.offset, Col: s.offset - s.lineStart,
	}
}

func (s *Scanner) finishEOF() Symbol {
	return Symbol{
		Kind: EOF, Literal: "",
		Line: s.line + 1, LineStart: s.lineStart,
		Pos: s.offset, Col: s.offset - s.lineStart,
	}
}

func (s *Scanner) scanName() Symbol {
	line, lineStart := s.line+1, s.lineStart
	var sb strings.Builder
	for isAlnum(s.cur) {
		sb.WriteByte(s.cur)
		b, ok := s.readByte()
		if !ok {
			s.curEOF = true
			break
		}
		s.cur = b
	}
	if !s.curEOF {
		s.unread()
	}
	text := sb.String()
	kind := NAME
	if s.keywordSet[text] {
		kind = KEYWORD
	}
	return Symbol{
		Kind: kind, NameID: s.names.Intern(text), Literal: text,
		Line: line, LineStart: lineStart,
		Pos: s.offset, Col: s.offset - lineStart,
	}
}

func (s *Scanner) scanNumber() Symbol {
	line, lineStart := s.line+1, s.lineStart
	var sb strings.Builder
	for isDigit(s.cur) {
		sb.WriteByte(s.cur)
		b, ok := s.readByte()
		if !ok {
			s.curEOF = true
			break
		}
		s.cur = b
	}
	if !s.curEOF {
		s.unread()
	}
	text := sb.String()
	val, _ := strconv.Atoi(text) // text is all digits: always parses
	return Symbol{
		Kind: NUMBER, Value: val, Literal: text,
		Line: line, LineStart: lineStart,
		Pos: s.offset, Col: s.offset - lineStart,
	}
}

func (s *Scanner) scanArrow() Symbol {
	line, lineStart := s.line+1, s.lineStart
	posAfterDash := s.offset
	b, ok := s.readByte()
	if !ok {
		return Symbol{Kind: INVALID, Literal: "-", Line: line, LineStart: lineStart, Pos: posAfterDash, Col: posAfterDash - lineStart}
	}
	if b == '>' {
		return Symbol{Kind: ARROW, Literal: "->", Line: line, LineStart: lineStart, Pos: s.offset, Col: s.offset - lineStart}
	}
	s.unread()
	return Symbol{Kind: INVALID, Literal: "-", Line: line, LineStart: lineStart, Pos: posAfterDash, Col: posAfterDash - lineStart}
}

// NextSymbol returns the next token in stream order. After EOF is reached
// it keeps returning an EOF symbol on every subsequent call.
func (s *Scanner) NextSymbol() (Symbol, error) {
	if err := s.open(); err != nil {
		return s.finishEOF(), err
	}
	for {
		s.skipSpaces()
		if s.curEOF {
			return s.finishEOF(), nil
		}
		switch {
		case isAlpha(s.cur):
			return s.scanName(), nil
		case isDigit(s.cur):
			return s.scanNumber(), nil
		case s.cur == '/':
			b, ok := s.readByte()
			if !ok {
				return s.finishPunct(INVALID, "/"), nil
			}
			switch b {
			case '/':
				s.skipLineComment()
				continue
			case '*':
				if err := s.skipBlockComment(); err != nil {
					return s.finishEOF(), err
				}
				continue
			default:
				s.unread()
				return s.finishPunct(INVALID, "/"), nil
			}
		case s.cur == '=':
			return s.finishPunct(EQUALS, "="), nil
		case s.cur == ',':
			return s.finishPunct(COMMA, ","), nil
		case s.cur == ';':
			return s.finishPunct(SEMICOLON, ";"), nil
		case s.cur == '.':
			return s.finishPunct(PERIOD, "."), nil
		case s.cur == '-':
			return s.scanArrow(), nil
		default:
			return s.finishPunct(INVALID, string(s.cur)), nil
		}
	}
}

// PrintError rewinds to primary's line, prints it up to its terminating
// newline/semicolon/EOF, then a caret line with one caret under primary
// and, if secondary is given, a second under it (smaller column first).
// The scanner's read offset is restored to current.Pos before returning.
func (s *Scanner) PrintError(w io.Writer, current Symbol, primary Symbol, secondary *Symbol) error {
	if err := s.open(); err != nil {
		return err
	}
	if _, err := s.file.Seek(int64(primary.LineStart), io.SeekStart); err != nil {
		return err
	}

	var line []byte
	var buf [1]byte
	for {
		n, err := s.file.Read(buf[:])
		if n == 0 || err != nil {
			break
		}
		if buf[0] == '\n' || buf[0] == ';' {
			break
		}
		line = append(line, buf[0])
	}
	fmt.Fprintf(w, "%s\n", string(line))

	first, second := primary.Col, -1
	if secondary != nil {
		if secondary.Col < primary.Col {
			first, second = secondary.Col, primary.Col
		} else {
			first, second = primary.Col, secondary.Col
		}
	}
	fmt.Fprint(w, strings.Repeat(" ", max(first, 0)))
	fmt.Fprint(w, "^")
	if second >= 0 {
		if gap := second - first - 1; gap > 0 {
			fmt.Fprint(w, strings.Repeat(" ", gap))
		}
		fmt.Fprint(w, "^")
	}
	fmt.Fprintln(w)

	if _, err := s.file.Seek(int64(current.Pos), io.SeekStart); err != nil {
		return err
	}
	s.offset = current.Pos
	s.atEOF = false
	s.curEOF = false
	return nil
}

// Close releases the underlying file handle, if one was opened.
func (s *Scanner) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
