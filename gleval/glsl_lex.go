package gleval

import (
	"fmt"
	"strings"
	"text/scanner"
)

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokIdent
	tokNumber
	tokPunct
)

type token struct {
	kind tokKind
	text string
	pos  scanner.Position
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of source"
	}
	return fmt.Sprintf("%q", t.text)
}

// Two character operators. Single character operators are returned as is by the scanner.
var twoCharOps = [...]string{"==", "!=", "<=", ">=", "&&", "||", "+=", "-=", "*=", "/=", "++", "--"}

// lexGLSL splits GLSL source into tokens. Preprocessor lines are dropped
// while preserving line numbering.
func lexGLSL(src string) ([]token, error) {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			lines[i] = ""
		}
	}
	var s scanner.Scanner
	s.Init(strings.NewReader(strings.Join(lines, "\n")))
	s.Mode = scanner.ScanIdents | scanner.ScanFloats | scanner.ScanInts | scanner.ScanComments | scanner.SkipComments
	var lexErr error
	s.Error = func(s *scanner.Scanner, msg string) {
		if lexErr == nil {
			lexErr = fmt.Errorf("%d:%d: %s", s.Pos().Line, s.Pos().Column, msg)
		}
	}
	var toks []token
	for {
		r := s.Scan()
		if lexErr != nil {
			return nil, lexErr
		}
		tok := token{pos: s.Position, text: s.TokenText()}
		switch r {
		case scanner.EOF:
			tok.kind = tokEOF
			return append(toks, tok), nil
		case scanner.Ident:
			tok.kind = tokIdent
		case scanner.Float, scanner.Int:
			tok.kind = tokNumber
		case scanner.String, scanner.Char, scanner.RawString:
			return nil, fmt.Errorf("%d:%d: unexpected literal %s", tok.pos.Line, tok.pos.Column, tok.text)
		default:
			tok.kind = tokPunct
			next := s.Peek()
			for _, op := range twoCharOps {
				if rune(op[0]) == r && rune(op[1]) == next {
					s.Next()
					tok.text = op
					break
				}
			}
		}
		toks = append(toks, tok)
	}
}
