package expr

import (
	"strconv"
	"strings"
)

// scanner converts an expression source string into a flat token stream
type scanner struct {
	src string
	pos int
}

// Operators are matched longest first so that "===" is never read as
// "==" followed by "="
var (
	threeCharOps = []string{"===", "!=="}
	twoCharOps   = []string{"==", "!=", "<=", ">=", "&&", "||", "??"}
	oneCharOps   = "+-*/%<>!?:"
)

var keywordTokens = map[string]Token{
	"true":      {Type: TokenBoolean, Value: true, Raw: "true"},
	"false":     {Type: TokenBoolean, Value: false, Raw: "false"},
	"null":      {Type: TokenNull, Raw: "null"},
	"undefined": {Type: TokenUndefined, Raw: "undefined"},
}

// scan tokenizes the source, returning an EOF-terminated token list
func scan(src string) ([]Token, error) {
	s := &scanner{src: src}
	var tokens []Token
	for {
		tok, err := s.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

func (s *scanner) next() (Token, error) {
	s.skipWhitespace()
	if s.pos >= len(s.src) {
		return Token{Type: TokenEOF}, nil
	}

	c := s.src[s.pos]
	switch {
	case isDigit(c) || c == '.' && s.digitAt(s.pos+1):
		return s.scanNumber()
	case c == '\'' || c == '"':
		return s.scanString(c)
	case isIdentStart(c):
		return s.scanIdentifier(), nil
	}

	switch c {
	case '(':
		return s.punct(TokenLParen), nil
	case ')':
		return s.punct(TokenRParen), nil
	case '[':
		return s.punct(TokenLBracket), nil
	case ']':
		return s.punct(TokenRBracket), nil
	case '.':
		return s.punct(TokenDot), nil
	case ',':
		return s.punct(TokenComma), nil
	}

	for _, op := range threeCharOps {
		if strings.HasPrefix(s.src[s.pos:], op) {
			s.pos += 3
			return Token{Type: TokenOperator, Value: op, Raw: op}, nil
		}
	}
	for _, op := range twoCharOps {
		if strings.HasPrefix(s.src[s.pos:], op) {
			s.pos += 2
			return Token{Type: TokenOperator, Value: op, Raw: op}, nil
		}
	}
	if strings.IndexByte(oneCharOps, c) >= 0 {
		s.pos++
		op := string(c)
		return Token{Type: TokenOperator, Value: op, Raw: op}, nil
	}

	return Token{}, newError(ErrSyntax,
		"unexpected character %q at position %d", string(c), s.pos)
}

func (s *scanner) skipWhitespace() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

func (s *scanner) scanNumber() (Token, error) {
	start := s.pos
	for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
		s.pos++
	}
	if s.pos < len(s.src) && s.src[s.pos] == '.' {
		s.pos++
		for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
			s.pos++
		}
	}
	if s.pos < len(s.src) && (s.src[s.pos] == 'e' || s.src[s.pos] == 'E') {
		mark := s.pos
		s.pos++
		if s.pos < len(s.src) && (s.src[s.pos] == '+' || s.src[s.pos] == '-') {
			s.pos++
		}
		if s.pos < len(s.src) && isDigit(s.src[s.pos]) {
			for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
				s.pos++
			}
		} else {
			// bare "e" belongs to the next token, not this number
			s.pos = mark
		}
	}

	raw := s.src[start:s.pos]
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Token{}, newError(ErrSyntax, "invalid number %q", raw)
	}
	return Token{Type: TokenNumber, Value: val, Raw: raw}, nil
}

func (s *scanner) scanString(quote byte) (Token, error) {
	start := s.pos
	s.pos++
	var b strings.Builder
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch c {
		case quote:
			s.pos++
			return Token{
				Type:  TokenString,
				Value: b.String(),
				Raw:   s.src[start:s.pos],
			}, nil
		case '\\':
			s.pos++
			if s.pos >= len(s.src) {
				return Token{}, newError(ErrSyntax, "unterminated string")
			}
			switch s.src[s.pos] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\':
				b.WriteByte('\\')
			case '\'':
				b.WriteByte('\'')
			case '"':
				b.WriteByte('"')
			default:
				b.WriteByte(s.src[s.pos])
			}
			s.pos++
		default:
			b.WriteByte(c)
			s.pos++
		}
	}
	return Token{}, newError(ErrSyntax, "unterminated string")
}

// scanIdentifier reads an identifier, reclassifying the literal keywords
// true/false/null/undefined so they can never be shadowed or blocked as
// names
func (s *scanner) scanIdentifier() Token {
	start := s.pos
	for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
		s.pos++
	}
	name := s.src[start:s.pos]
	if tok, ok := keywordTokens[name]; ok {
		return tok
	}
	return Token{Type: TokenIdentifier, Value: name, Raw: name}
}

func (s *scanner) punct(t TokenType) Token {
	raw := string(s.src[s.pos])
	s.pos++
	return Token{Type: t, Raw: raw}
}

func (s *scanner) digitAt(pos int) bool {
	return pos < len(s.src) && isDigit(s.src[pos])
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == '$'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
