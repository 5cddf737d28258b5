package executor

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var sizeofPattern = regexp.MustCompile(`sizeof\(\s*(\w+)\s*\)`)

// maxExactInt is the largest magnitude float64 holds without losing integers.
const maxExactInt = 1 << 53

var (
	errUnexpectedToken = errors.New("unexpected token in offset expression")
	errUnexpectedEnd   = errors.New("unexpected end of offset expression")
	errDivisionByZero  = errors.New("division by zero in offset expression")
	errBadNumber       = errors.New("malformed numeric literal")
)

// EvaluateOffset resolves an fseek offset expression against the current
// struct size. Every sizeof(T) stands for StructSize regardless of T. Any
// failure evaluates to 0.
func (s *ExecutionState) EvaluateOffset(expr string) int {
	expanded := sizeofPattern.ReplaceAllString(expr, strconv.Itoa(s.StructSize))
	v, err := evalArithmetic(expanded)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v > maxExactInt || v < -maxExactInt {
		return 0
	}
	return int(math.Trunc(v))
}

func evalArithmetic(src string) (float64, error) {
	p := &exprParser{src: src}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return 0, errUnexpectedToken
	}
	return v, nil
}

// exprParser is a recursive-descent parser over numeric literals, + - * /,
// unary signs and parentheses. It evaluates while parsing.
type exprParser struct {
	src string
	pos int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && strings.IndexByte(" \t\r\n", p.src[p.pos]) >= 0 {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
			continue
		}
		if right == 0 {
			return 0, errDivisionByZero
		}
		left /= right
	}
}

func (p *exprParser) parseUnary() (float64, error) {
	switch p.peek() {
	case '-':
		p.pos++
		v, err := p.parseUnary()
		return -v, err
	case '+':
		p.pos++
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (float64, error) {
	c := p.peek()
	switch {
	case c == 0:
		return 0, errUnexpectedEnd
	case c == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, errUnexpectedToken
		}
		p.pos++
		return v, nil
	case c == '.' || isDigit(c):
		return p.parseNumber()
	}
	return 0, errUnexpectedToken
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.src) && isNumberChar(p.src[p.pos]) {
		p.pos++
	}
	lit := p.src[start:p.pos]
	if strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X") {
		n, err := strconv.ParseInt(lit[2:], 16, 64)
		if err != nil {
			return 0, errBadNumber
		}
		return float64(n), nil
	}
	if len(lit) > 1 && lit[0] == '0' && isDigits(lit) {
		n, err := strconv.ParseInt(lit[1:], 8, 64)
		if err != nil {
			return 0, errBadNumber
		}
		return float64(n), nil
	}
	if strings.ContainsAny(lit, "_pP") {
		return 0, errBadNumber
	}
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0, errBadNumber
	}
	return v, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isNumberChar(c byte) bool {
	return isDigit(c) || c == '.' || c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
