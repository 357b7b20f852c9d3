// Package calc evaluates calculator-style queries such as "(2 + 3) * 4".
//
// Grammar:
//
//	expression = term { ("+" | "-") term }
//	term       = unary { ("*" | "/" | "%") unary }
//	unary      = "-" unary | power
//	power      = primary [ "^" unary ]
//	primary    = number | "(" expression ")"
//
// Exponentiation is right-associative and binds tighter than unary minus,
// so -2^2 is -4 and 2^3^2 is 512.
package calc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const operators = "+-*/%^"

// Evaluate returns the formatted result of query and true, or "" and false
// when query is not a well-formed arithmetic expression, divides by zero,
// or produces a non-finite value.
func Evaluate(query string) (string, bool) {
	expr := strings.TrimSpace(query)
	if !looksLikeMath(expr) {
		return "", false
	}

	p := &parser{input: expr}
	v, ok := p.expression()
	if !ok {
		return "", false
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return "", false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", false
	}
	return Format(v), true
}

// looksLikeMath requires a digit and an operator, and nothing outside the
// accepted alphabet.
func looksLikeMath(s string) bool {
	var digit, op bool
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			digit = true
		case strings.ContainsRune(operators, c):
			op = true
		case c == '.' || c == '(' || c == ')' || c == ' ':
		default:
			return false
		}
	}
	return digit && op
}

// Format prints whole values below 1e15 as integers and everything else
// with up to six decimals.
func Format(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	s := fmt.Sprintf("%.6f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

// peek returns the next non-space byte without consuming it.
func (p *parser) peek() byte {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) expression() (float64, bool) {
	left, ok := p.term()
	if !ok {
		return 0, false
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, true
		}
		p.pos++
		right, ok := p.term()
		if !ok {
			return 0, false
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) term() (float64, bool) {
	left, ok := p.unary()
	if !ok {
		return 0, false
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' && op != '%' {
			return left, true
		}
		p.pos++
		right, ok := p.unary()
		if !ok {
			return 0, false
		}
		switch op {
		case '*':
			left *= right
		case '/':
			if right == 0 {
				return 0, false
			}
			left /= right
		case '%':
			if right == 0 {
				return 0, false
			}
			left = math.Mod(left, right)
		}
	}
}

func (p *parser) unary() (float64, bool) {
	if p.peek() == '-' {
		p.pos++
		v, ok := p.unary()
		return -v, ok
	}
	return p.power()
}

func (p *parser) power() (float64, bool) {
	base, ok := p.primary()
	if !ok {
		return 0, false
	}
	if p.peek() != '^' {
		return base, true
	}
	p.pos++
	exp, ok := p.unary()
	if !ok {
		return 0, false
	}
	return math.Pow(base, exp), true
}

func (p *parser) primary() (float64, bool) {
	if p.peek() == '(' {
		p.pos++
		v, ok := p.expression()
		if !ok || p.peek() != ')' {
			return 0, false
		}
		p.pos++
		return v, true
	}
	return p.number()
}

// number reads digits with at most one decimal point.
func (p *parser) number() (float64, bool) {
	p.skipSpaces()
	start := p.pos
	dot := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' && !dot {
			dot = true
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return 0, false
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
