// Package parse implements the recursive-descent grammar driver that
// consumes scanner symbols and builds a circuit by calling into Devices,
// Network and Monitors, collecting syntactic and semantic diagnostics
// along the way.
package parse

import (
	"github.com/suton5/logicsim/internal/devices"
	"github.com/suton5/logicsim/internal/monitors"
	"github.com/suton5/logicsim/internal/names"
	"github.com/suton5/logicsim/internal/network"
	"github.com/suton5/logicsim/internal/scan"
)

// SyntaxError is a diagnostic raised on a grammar mismatch. Code is one of
// a small fixed vocabulary (see the codes used in parseX methods below).
type SyntaxError struct {
	Code      string
	Primary   scan.Symbol
	Secondary *scan.Symbol
}

// SemanticError wraps an error code returned by Devices, Network or
// Monitors with the issuing component's name. Codes are already globally
// unique (each component reserves its own range); Issuer records which
// component and call site raised the diagnostic.
type SemanticError struct {
	Issuer    string
	Code      int
	Message   string
	Primary   scan.Symbol
	Secondary *scan.Symbol
}

// Parser drives a single circuit definition file through the Scanner into
// a populated Devices/Network/Monitors triple.
type Parser struct {
	scanner *scan.Scanner
	names   *names.Table
	cat     *devices.Catalogue
	net     *network.Network
	mon     *monitors.Monitors

	cur scan.Symbol

	syntaxErrors   []SyntaxError
	semanticErrors []SemanticError
}

// New builds a Parser over path, constructing a fresh NameTable, Scanner,
// Devices catalogue, Network and Monitors set for it.
func New(path string) *Parser {
	tbl := names.New()
	s := scan.New(path, tbl)
	cat := devices.New(tbl)
	net := network.New(tbl, cat)
	mon := monitors.New(tbl, cat)
	return &Parser{scanner: s, names: tbl, cat: cat, net: net, mon: mon}
}

// Names, Devices, Network and Monitors expose the collaborators this
// parser populated, for a simulation driver or CLI to consume after
// ParseNetwork returns.
func (p *Parser) Names() *names.Table { return p.names }
func (p *Parser) Devices() *devices.Catalogue { return p.cat }
func (p *Parser) Network() *network.Network { return p.net }
func (p *Parser) Monitors() *monitors.Monitors { return p.mon }

// SyntaxErrors and SemanticErrors expose the two independent diagnostic
// lists accumulated while parsing.
func (p *Parser) SyntaxErrors() []SyntaxError { return p.syntaxErrors }
func (p *Parser) SemanticErrors() []SemanticError { return p.semanticErrors }

// Scanner exposes the underlying scanner so a front end can reprint a
// diagnostic's source line with PrintError after ParseNetwork returns.
func (p *Parser) Scanner() *scan.Scanner { return p.scanner }

func (p *Parser) clean() bool {
	return len(p.syntaxErrors) == 0 && len(p.semanticErrors) == 0
}

// advance reads the next symbol into p.cur. On a scanner error (an
// unterminated block comment, or the file failing to open) the scanner
// still hands back a valid EOF symbol, which advance adopts so every loop
// that tests for SEMICOLON/EOF terminates; the error is also recorded as
// a syntax diagnostic with code "comment" so parse_network reports
// failure.
func (p *Parser) advance() error {
	sym, err := p.scanner.NextSymbol()
	p.cur = sym
	if err != nil {
		p.syntaxErrors = append(p.syntaxErrors, SyntaxError{Code: "comment", Primary: sym})
	}
	return err
}

// syntaxError records a diagnostic and resynchronises by consuming
// symbols up to and including the next SEMICOLON, or up to EOF.
func (p *Parser) syntaxError(code string, primary scan.Symbol, secondary *scan.Symbol) {
	p.syntaxErrors = append(p.syntaxErrors, SyntaxError{Code: code, Primary: primary, Secondary: secondary})
	for p.cur.Kind != scan.SEMICOLON && p.cur.Kind != scan.EOF {
		if err := p.advance(); err != nil {
			return
		}
	}
	if p.cur.Kind == scan.SEMICOLON {
		p.advance()
	}
}

func (p *Parser) semanticError(issuer string, code int, message string, primary scan.Symbol, secondary *scan.Symbol) {
	p.semanticErrors = append(p.semanticErrors, SemanticError{
		Issuer: issuer, Code: code, Message: message, Primary: primary, Secondary: secondary,
	})
}

// ParseNetwork consumes the whole file and returns true iff both
// diagnostic lists are empty at EOF.
func (p *Parser) ParseNetwork() (bool, error) {
	p.advance()

	kw := p.scanner.Keywords
	p.parseBlock("devices", kw.Devices, p.parseDeviceList)
	p.parseBlock("connections", kw.Connections, p.parseConnList)

	if p.clean() && !p.net.CheckNetwork() {
		p.semanticError("network", p.net.Code(network.Incomplete), network.Incomplete.String(), p.cur, nil)
	}

	p.parseBlock("monitors", kw.Monitors, p.parseMonList)

	return p.clean(), nil
}

// parseBlock parses `"START" sectionName ";" list "END" sectionName ";"`.
// sectionCode names the semantic section for diagnostics naming the
// wrong section keyword (e.g. "devices", "connections", "monitors").
func (p *Parser) parseBlock(sectionCode string, sectionID names.ID, list func()) {
	kw := p.scanner.Keywords

	if !(p.cur.Kind == scan.KEYWORD && p.cur.NameID == kw.Start) {
		p.syntaxError("start", p.cur, nil)
		return
	}
	p.advance()
	if !(p.cur.Kind == scan.KEYWORD && p.cur.NameID == sectionID) {
		p.syntaxError(sectionCode, p.cur, nil)
		return
	}
	p.advance()
	if p.cur.Kind != scan.SEMICOLON {
		p.syntaxError("semicolon", p.cur, nil)
		return
	}
	p.advance()

	list()

	if !(p.cur.Kind == scan.KEYWORD && p.cur.NameID == kw.End) {
		p.syntaxError("start", p.cur, nil)
		return
	}
	p.advance()
	if !(p.cur.Kind == scan.KEYWORD && p.cur.NameID == sectionID) {
		p.syntaxError(sectionCode, p.cur, nil)
		return
	}
	p.advance()
	if p.cur.Kind != scan.SEMICOLON {
		p.syntaxError("semicolon", p.cur, nil)
		return
	}
	p.advance()
}

func devKindFor(kw scan.KeywordIDs, id names.ID) (devices.Kind, bool) {
	switch id {
	case kw.Clock:
		return devices.CLOCK, true
	case kw.Switch:
		return devices.SWITCH, true
	case kw.And:
		return devices.AND, true
	case kw.Nand:
		return devices.NAND, true
	case kw.Or:
		return devices.OR, true
	case kw.Nor:
		return devices.NOR, true
	case kw.Dtype:
		return devices.DTYPE, true
	case kw.Xor:
		return devices.XOR, true
	case kw.Siggen:
		return devices.SIGGEN, true
	default:
		return 0, false
	}
}

// qualifierIsLiteral reports whether a param keyword takes the raw digit
// literal ("sig") rather than the parsed integer (ip/init/cycles).
func qualifierIsLiteral(kw scan.KeywordIDs, id names.ID) bool {
	return id == kw.Sig
}

func isParamKeyword(kw scan.KeywordIDs, id names.ID) bool {
	return id == kw.Ip || id == kw.Init || id == kw.Cycles || id == kw.Sig
}

// parseDeviceList parses `{ NAME "=" devKind [ "," param "=" NUMBER ] ";" }`.
func (p *Parser) parseDeviceList() {
	kw := p.scanner.Keywords
	for p.cur.Kind == scan.NAME {
		nameSym := p.cur
		p.advance()

		if p.cur.Kind != scan.EQUALS {
			p.syntaxError("equal", p.cur, nil)
			continue
		}
		p.advance()

		if p.cur.Kind != scan.KEYWORD {
			p.syntaxError("devicetype", p.cur, nil)
			continue
		}
		kind, ok := devKindFor(kw, p.cur.NameID)
		if !ok {
			p.syntaxError("devicetype", p.cur, nil)
			continue
		}
		kindSym := p.cur
		p.advance()

		var qualifier *devices.Qualifier
		var qualSym *scan.Symbol

		switch p.cur.Kind {
		case scan.COMMA:
			p.advance()
			if !(p.cur.Kind == scan.KEYWORD && isParamKeyword(kw, p.cur.NameID)) {
				p.syntaxError("parameter", p.cur, nil)
				continue
			}
			literal := qualifierIsLiteral(kw, p.cur.NameID)
			p.advance()

			if p.cur.Kind != scan.EQUALS {
				p.syntaxError("equal", p.cur, nil)
				continue
			}
			p.advance()

			if p.cur.Kind != scan.NUMBER {
				p.syntaxError("number", p.cur, nil)
				continue
			}
			sym := p.cur
			qualSym = &sym
			if literal {
				qualifier = &devices.Qualifier{Literal: p.cur.Literal}
			} else {
				qualifier = &devices.Qualifier{Number: p.cur.Value}
			}
			p.advance()

		case scan.SEMICOLON:
			// no qualifier

		default:
			p.syntaxError("semicoloncomma", p.cur, nil)
			continue
		}

		if p.cur.Kind != scan.SEMICOLON {
			p.syntaxError("semicolon", p.cur, nil)
			continue
		}
		p.advance()

		if p.clean() {
			secondary := qualSym
			if secondary == nil {
				secondary = &kindSym
			}
			if e := p.cat.MakeDevice(nameSym.NameID, kind, qualifier); e != devices.NoError {
				p.semanticError("devices", p.cat.Code(e), e.String(), nameSym, secondary)
			}
		}
	}
}

// isInputPortToken reports whether the current symbol can stand as an
// input port reference: DATA/CLK/SET/CLEAR, or a NAME of the form
// "I" followed by one or more digits.
func isInputPortToken(kw scan.KeywordIDs, sym scan.Symbol) (names.ID, bool) {
	if sym.Kind == scan.KEYWORD {
		switch sym.NameID {
		case kw.Data, kw.Clk, kw.Set, kw.Clear:
			return sym.NameID, true
		}
		return 0, false
	}
	if sym.Kind != scan.NAME {
		return 0, false
	}
	lit := sym.Literal
	if len(lit) < 2 || lit[0] != 'I' {
		return 0, false
	}
	for i := 1; i < len(lit); i++ {
		if lit[i] < '0' || lit[i] > '9' {
			return 0, false
		}
	}
	return sym.NameID, true
}

// parseOutputPortSuffix parses an optional ". (Q|QBAR)" following a NAME,
// returning the resolved port id (devices.NoPort if absent) and whether
// parsing succeeded.
func (p *Parser) parseOutputPortSuffix() (names.ID, bool) {
	kw := p.scanner.Keywords
	if p.cur.Kind != scan.PERIOD {
		return devices.NoPort, true
	}
	p.advance()
	if !(p.cur.Kind == scan.KEYWORD && (p.cur.NameID == kw.Q || p.cur.NameID == kw.Qbar)) {
		p.syntaxError("doutput", p.cur, nil)
		return devices.NoPort, false
	}
	port := p.cur.NameID
	p.advance()
	return port, true
}

// parseConnList parses `{ output "->" input { "," input } ";" }`.
func (p *Parser) parseConnList() {
	for p.cur.Kind == scan.NAME {
		srcSym := p.cur
		p.advance()

		srcPort, ok := p.parseOutputPortSuffix()
		if !ok {
			continue
		}

		if p.cur.Kind != scan.ARROW {
			p.syntaxError("arrowperiod", p.cur, nil)
			continue
		}
		p.advance()

		failed := false
		for {
			if p.cur.Kind != scan.NAME {
				p.syntaxError("devicename", p.cur, nil)
				failed = true
				break
			}
			dstSym := p.cur
			p.advance()

			if p.cur.Kind != scan.PERIOD {
				p.syntaxError("period", p.cur, nil)
				failed = true
				break
			}
			p.advance()

			portID, ok := isInputPortToken(p.scanner.Keywords, p.cur)
			if !ok {
				p.syntaxError("input", p.cur, nil)
				failed = true
				break
			}
			portSym := p.cur
			p.advance()

			if p.clean() {
				if e := p.net.MakeConnection(srcSym.NameID, srcPort, dstSym.NameID, portID); e != network.NoError {
					p.semanticError("network", p.net.Code(e), e.String(), srcSym, &portSym)
				}
			}

			switch p.cur.Kind {
			case scan.COMMA:
				p.advance()
				continue
			case scan.SEMICOLON:
				// handled below
			default:
				p.syntaxError("comma", p.cur, nil)
				failed = true
			}
			break
		}
		if failed {
			continue
		}

		if p.cur.Kind != scan.SEMICOLON {
			p.syntaxError("semicolon", p.cur, nil)
			continue
		}
		p.advance()
	}
}

// parseMonList parses `{ NAME [ "." ("Q" | "QBAR") ] ";" }`.
func (p *Parser) parseMonList() {
	for p.cur.Kind == scan.NAME {
		devSym := p.cur
		p.advance()

		port, ok := p.parseOutputPortSuffix()
		if !ok {
			continue
		}

		if p.cur.Kind != scan.SEMICOLON {
			p.syntaxError("semicolon", p.cur, nil)
			continue
		}
		p.advance()

		if p.clean() {
			if e := p.mon.MakeMonitor(devSym.NameID, port, 0); e != monitors.NoError {
				p.semanticError("monitors", p.mon.Code(e), e.String(), devSym, nil)
			}
		}
	}
}

// Close releases the underlying scanner's file handle.
func (p *Parser) Close() error {
	return p.scanner.Close()
}
