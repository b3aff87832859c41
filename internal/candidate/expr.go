package candidate

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Expr is a parsed arithmetic expression over named per-candidate
// quantities. Supported: numbers, identifiers, + - * /, unary minus
// and parentheses
type Expr struct {
	root exprNode
	text string
}

// ParseExpr parses an expression once so it can be evaluated per
// candidate without re-lexing
func ParseExpr(text string) (*Expr, error) {
	p := &exprParser{input: text}
	root, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("unexpected %q at offset %d in %q", p.input[p.pos:], p.pos, text)
	}
	return &Expr{root: root, text: text}, nil
}

// Eval computes the expression against a variable binding. Unknown
// identifiers are an error, not zero
func (e *Expr) Eval(vars map[string]float64) (float64, error) {
	return e.root.eval(vars)
}

// String returns the source text
func (e *Expr) String() string { return e.text }

type exprNode interface {
	eval(vars map[string]float64) (float64, error)
}

type numNode float64

func (n numNode) eval(map[string]float64) (float64, error) { return float64(n), nil }

type varNode string

func (n varNode) eval(vars map[string]float64) (float64, error) {
	v, ok := vars[string(n)]
	if !ok {
		return 0, fmt.Errorf("unknown quantity %q", string(n))
	}
	return v, nil
}

type binNode struct {
	op          byte
	left, right exprNode
}

func (n binNode) eval(vars map[string]float64) (float64, error) {
	l, err := n.left.eval(vars)
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval(vars)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	}
	return 0, fmt.Errorf("unknown operator %q", n.op)
}

type negNode struct{ inner exprNode }

func (n negNode) eval(vars map[string]float64) (float64, error) {
	v, err := n.inner.eval(vars)
	return -v, err
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseSum() (exprNode, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = binNode{op: op, left: left, right: right}
	}
}

func (p *exprParser) parseProduct() (exprNode, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = binNode{op: op, left: left, right: right}
	}
}

func (p *exprParser) parseFactor() (exprNode, error) {
	switch c := p.peek(); {
	case c == '(':
		p.pos++
		inner, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			return nil, fmt.Errorf("missing ) at offset %d in %q", p.pos, p.input)
		}
		p.pos++
		return inner, nil

	case c == '-':
		p.pos++
		inner, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return negNode{inner: inner}, nil

	case c >= '0' && c <= '9' || c == '.':
		start := p.pos
		for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
			p.pos++
		}
		v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q in %q", p.input[start:p.pos], p.input)
		}
		return numNode(v), nil

	case isIdentStart(c):
		start := p.pos
		for p.pos < len(p.input) && isIdentPart(p.input[p.pos]) {
			p.pos++
		}
		return varNode(strings.ToLower(p.input[start:p.pos])), nil
	}
	return nil, fmt.Errorf("unexpected character at offset %d in %q", p.pos, p.input)
}

func isIdentStart(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c))
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
