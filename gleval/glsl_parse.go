package gleval

import (
	"fmt"
	"strconv"
	"text/scanner"
)

// Expression nodes.
type (
	expr interface{ position() scanner.Position }

	numberExpr struct {
		pos scanner.Position
		v   float32
	}
	boolExpr struct {
		pos scanner.Position
		v   bool
	}
	identExpr struct {
		pos  scanner.Position
		name string
	}
	unaryExpr struct {
		pos scanner.Position
		op  string
		x   expr
	}
	binaryExpr struct {
		pos  scanner.Position
		op   string
		x, y expr
	}
	ternaryExpr struct {
		pos        scanner.Position
		cond, a, b expr
	}
	callExpr struct {
		pos  scanner.Position
		name string
		args []expr
	}
	selectExpr struct {
		pos scanner.Position
		x   expr
		sel string
	}
	assignExpr struct {
		pos    scanner.Position
		op     string // "=", "+=", "-=", "*=" or "/=".
		target expr
		x      expr
	}
)

func (e *numberExpr) position() scanner.Position  { return e.pos }
func (e *boolExpr) position() scanner.Position    { return e.pos }
func (e *identExpr) position() scanner.Position   { return e.pos }
func (e *unaryExpr) position() scanner.Position   { return e.pos }
func (e *binaryExpr) position() scanner.Position  { return e.pos }
func (e *ternaryExpr) position() scanner.Position { return e.pos }
func (e *callExpr) position() scanner.Position    { return e.pos }
func (e *selectExpr) position() scanner.Position  { return e.pos }
func (e *assignExpr) position() scanner.Position  { return e.pos }

// Statement nodes.
type (
	stmt interface{}

	declStmt struct {
		pos   scanner.Position
		k     kind
		names []string
		inits []expr // nil entries are zero initialized.
	}
	exprStmt struct{ x expr }
	ifStmt   struct {
		cond expr
		then stmt
		els  stmt // May be nil.
	}
	returnStmt struct {
		pos scanner.Position
		x   expr // nil in void functions.
	}
	blockStmt struct{ body []stmt }
)

type param struct {
	name string
	k    kind
}

type funcDecl struct {
	pos    scanner.Position
	name   string
	ret    kind
	params []param
	body   *blockStmt
}

type globalDecl struct {
	pos     scanner.Position
	name    string
	k       kind
	uniform bool
	init    expr
}

// program is a parsed GLSL translation unit.
type program struct {
	funcs   map[string]*funcDecl
	globals []globalDecl
}

type parser struct {
	toks []token
	i    int
}

// parseGLSL parses the subset of GLSL emitted by the glbuild package:
// function definitions, uniform and global declarations, local
// declarations, assignments, if/else and return statements.
func parseGLSL(src string) (*program, error) {
	toks, err := lexGLSL(src)
	if err != nil {
		return nil, err
	}
	p := parser{toks: toks}
	prog := &program{funcs: make(map[string]*funcDecl)}
	for p.peek().kind != tokEOF {
		err = p.parseTopLevel(prog)
		if err != nil {
			return nil, err
		}
	}
	return prog, nil
}

type parseError struct {
	pos scanner.Position
	msg string
}

func (e *parseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.pos.Line, e.pos.Column, e.msg)
}

func (p *parser) errorf(pos scanner.Position, format string, args ...any) error {
	return &parseError{pos: pos, msg: fmt.Sprintf(format, args...)}
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) peekN(n int) token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) next() token {
	tok := p.toks[p.i]
	if tok.kind != tokEOF {
		p.i++
	}
	return tok
}

func (p *parser) is(text string) bool {
	tok := p.peek()
	return tok.kind != tokEOF && tok.text == text
}

func (p *parser) accept(text string) bool {
	if p.is(text) {
		p.i++
		return true
	}
	return false
}

func (p *parser) expect(text string) (token, error) {
	tok := p.next()
	if tok.kind == tokEOF || tok.text != text {
		return tok, p.errorf(tok.pos, "expected %q, found %s", text, tok)
	}
	return tok, nil
}

func (p *parser) ident() (token, error) {
	tok := p.next()
	if tok.kind != tokIdent {
		return tok, p.errorf(tok.pos, "expected identifier, found %s", tok)
	}
	return tok, nil
}

func (p *parser) typeName() (kind, token, error) {
	tok := p.next()
	if tok.kind == tokIdent {
		if k, ok := kindFromName(tok.text); ok {
			return k, tok, nil
		}
	}
	return kindVoid, tok, p.errorf(tok.pos, "expected type, found %s", tok)
}

// skipQualifiers consumes storage and precision qualifiers.
func (p *parser) skipQualifiers() (uniform bool, err error) {
	for {
		tok := p.peek()
		if tok.kind != tokIdent {
			return uniform, nil
		}
		switch tok.text {
		case "const", "in", "out", "inout", "highp", "mediump", "lowp", "flat", "smooth":
		case "uniform":
			uniform = true
		case "layout", "buffer":
			return false, p.errorf(tok.pos, "unsupported qualifier %q", tok.text)
		default:
			return uniform, nil
		}
		p.next()
	}
}

func isTypeName(tok token) bool {
	if tok.kind != tokIdent {
		return false
	}
	_, ok := kindFromName(tok.text)
	return ok
}

func (p *parser) parseTopLevel(prog *program) error {
	if p.accept(";") {
		return nil
	}
	if p.is("precision") {
		for !p.accept(";") {
			if p.next().kind == tokEOF {
				return p.errorf(p.peek().pos, "unterminated precision statement")
			}
		}
		return nil
	}
	uniform, err := p.skipQualifiers()
	if err != nil {
		return err
	}
	k, typTok, err := p.typeName()
	if err != nil {
		return err
	}
	name, err := p.ident()
	if err != nil {
		return err
	}
	if p.is("(") {
		if uniform {
			return p.errorf(typTok.pos, "uniform qualifier on function %s", name.text)
		}
		fn, err := p.parseFunction(k, name)
		if err != nil {
			return err
		}
		if _, dup := prog.funcs[fn.name]; dup {
			return p.errorf(name.pos, "function %s redefined", fn.name)
		}
		prog.funcs[fn.name] = fn
		return nil
	}
	if k == kindVoid {
		return p.errorf(typTok.pos, "void variable %s", name.text)
	}
	for {
		g := globalDecl{pos: name.pos, name: name.text, k: k, uniform: uniform}
		if p.accept("=") {
			if uniform {
				return p.errorf(name.pos, "uniform %s cannot be initialized", name.text)
			}
			g.init, err = p.parseExpr()
			if err != nil {
				return err
			}
		}
		prog.globals = append(prog.globals, g)
		if !p.accept(",") {
			break
		}
		name, err = p.ident()
		if err != nil {
			return err
		}
	}
	_, err = p.expect(";")
	return err
}

func (p *parser) parseFunction(ret kind, name token) (*funcDecl, error) {
	fn := &funcDecl{pos: name.pos, name: name.text, ret: ret}
	p.next() // Opening parenthesis.
	if p.is("void") && p.peekN(1).text == ")" {
		p.next()
	}
	for !p.accept(")") {
		if len(fn.params) > 0 {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
		}
		if tok := p.peek(); tok.text == "out" || tok.text == "inout" {
			return nil, p.errorf(tok.pos, "unsupported parameter qualifier %q", tok.text)
		}
		if _, err := p.skipQualifiers(); err != nil {
			return nil, err
		}
		k, tok, err := p.typeName()
		if err != nil {
			return nil, err
		} else if k == kindVoid {
			return nil, p.errorf(tok.pos, "void parameter")
		}
		pname, err := p.ident()
		if err != nil {
			return nil, err
		}
		fn.params = append(fn.params, param{name: pname.text, k: k})
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	body, err := p.parseBlockBody()
	if err != nil {
		return nil, err
	}
	fn.body = body
	return fn, nil
}

// parseBlockBody parses statements up to and including the closing brace.
func (p *parser) parseBlockBody() (*blockStmt, error) {
	block := &blockStmt{}
	for !p.accept("}") {
		if p.peek().kind == tokEOF {
			return nil, p.errorf(p.peek().pos, "expected \"}\", found end of source")
		}
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if s != nil {
			block.body = append(block.body, s)
		}
	}
	return block, nil
}

func (p *parser) parseStmt() (stmt, error) {
	tok := p.peek()
	switch {
	case tok.text == ";":
		p.next()
		return nil, nil
	case tok.text == "{":
		p.next()
		return p.parseBlockBody()
	case tok.text == "if":
		p.next()
		if _, err := p.expect("("); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err = p.expect(")"); err != nil {
			return nil, err
		}
		s := &ifStmt{cond: cond}
		s.then, err = p.parseStmt()
		if err != nil {
			return nil, err
		}
		if p.accept("else") {
			s.els, err = p.parseStmt()
			if err != nil {
				return nil, err
			}
		}
		return s, nil
	case tok.text == "return":
		p.next()
		s := &returnStmt{pos: tok.pos}
		if !p.is(";") {
			var err error
			s.x, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		_, err := p.expect(";")
		return s, err
	case tok.text == "for" || tok.text == "while" || tok.text == "do" || tok.text == "switch":
		return nil, p.errorf(tok.pos, "unsupported statement %q", tok.text)
	case tok.text == "const" || (isTypeName(tok) && p.peekN(1).kind == tokIdent):
		return p.parseDecl()
	}
	x, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	_, err = p.expect(";")
	return &exprStmt{x: x}, err
}

func (p *parser) parseDecl() (stmt, error) {
	p.accept("const")
	k, tok, err := p.typeName()
	if err != nil {
		return nil, err
	} else if k == kindVoid {
		return nil, p.errorf(tok.pos, "void variable")
	}
	d := &declStmt{pos: tok.pos, k: k}
	for {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		var init expr
		if p.accept("=") {
			init, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		d.names = append(d.names, name.text)
		d.inits = append(d.inits, init)
		if !p.accept(",") {
			break
		}
	}
	_, err = p.expect(";")
	return d, err
}

func (p *parser) parseAssign() (expr, error) {
	target, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	switch tok.text {
	case "=", "+=", "-=", "*=", "/=":
		p.next()
		x, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return &assignExpr{pos: tok.pos, op: tok.text, target: target, x: x}, nil
	case "++", "--":
		p.next()
		one := &numberExpr{pos: tok.pos, v: 1}
		return &assignExpr{pos: tok.pos, op: tok.text[:1] + "=", target: target, x: one}, nil
	}
	return target, nil
}

// parseExpr parses a conditional expression.
func (p *parser) parseExpr() (expr, error) {
	cond, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	if !p.accept("?") {
		return cond, nil
	}
	a, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(":"); err != nil {
		return nil, err
	}
	b, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ternaryExpr{pos: tok.pos, cond: cond, a: a, b: b}, nil
}

func binaryPrecedence(op string) int {
	switch op {
	case "||":
		return 1
	case "&&":
		return 2
	case "==", "!=":
		return 3
	case "<", ">", "<=", ">=":
		return 4
	case "+", "-":
		return 5
	case "*", "/":
		return 6
	}
	return 0
}

func (p *parser) parseBinary(minPrec int) (expr, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokPunct {
			return x, nil
		}
		prec := binaryPrecedence(tok.text)
		if prec < minPrec || prec == 0 {
			return x, nil
		}
		p.next()
		y, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		x = &binaryExpr{pos: tok.pos, op: tok.text, x: x, y: y}
	}
}

func (p *parser) parseUnary() (expr, error) {
	tok := p.peek()
	switch tok.text {
	case "-", "+", "!":
		if tok.kind != tokPunct {
			break
		}
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if tok.text == "+" {
			return x, nil
		}
		return &unaryExpr{pos: tok.pos, op: tok.text, x: x}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		switch {
		case tok.text == "." && tok.kind == tokPunct:
			p.next()
			sel, err := p.ident()
			if err != nil {
				return nil, err
			}
			x = &selectExpr{pos: sel.pos, x: x, sel: sel.text}
		case tok.text == "[" && tok.kind == tokPunct:
			return nil, p.errorf(tok.pos, "indexing is not supported")
		default:
			return x, nil
		}
	}
}

func (p *parser) parsePrimary() (expr, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(tok.text, 32)
		if err != nil {
			iv, ierr := strconv.ParseInt(tok.text, 0, 64)
			if ierr != nil {
				return nil, p.errorf(tok.pos, "invalid number %s", tok.text)
			}
			v = float64(iv)
		}
		return &numberExpr{pos: tok.pos, v: float32(v)}, nil

	case tokIdent:
		switch tok.text {
		case "true", "false":
			return &boolExpr{pos: tok.pos, v: tok.text == "true"}, nil
		}
		if !p.accept("(") {
			return &identExpr{pos: tok.pos, name: tok.text}, nil
		}
		call := &callExpr{pos: tok.pos, name: tok.text}
		for !p.accept(")") {
			if len(call.args) > 0 {
				if _, err := p.expect(","); err != nil {
					return nil, err
				}
			}
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.args = append(call.args, arg)
		}
		return call, nil

	case tokPunct:
		if tok.text == "(" {
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			_, err = p.expect(")")
			return x, err
		}
	}
	return nil, p.errorf(tok.pos, "unexpected %s", tok)
}
