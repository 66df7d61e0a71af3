package expr

// parser is a recursive descent parser over the scanned token stream.
// Precedence climbs lowest to highest binding: ternary, logical-or/nullish,
// logical-and, equality, relational, additive, multiplicative, unary, call,
// member, primary
type parser struct {
	tokens []Token
	pos    int
}

// parse consumes the token list and returns a single expression tree root.
// Leftover input after a complete expression is a syntax error
func parse(tokens []Token) (node, error) {
	p := &parser{tokens: tokens}
	root, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.cur().Type != TokenEOF {
		return nil, newError(ErrSyntax,
			"unexpected token %q after expression", p.cur().Raw)
	}
	return root, nil
}

func (p *parser) parseExpression() (node, error) {
	return p.parseTernary()
}

func (p *parser) parseTernary() (node, error) {
	test, err := p.parseNullishOr()
	if err != nil {
		return nil, err
	}
	if !p.matchOperator("?") {
		return test, nil
	}
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if !p.matchOperator(":") {
		return nil, newError(ErrSyntax, "expected ':' in ternary expression")
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &conditional{test: test, then: then, els: els}, nil
}

func (p *parser) parseNullishOr() (node, error) {
	return p.parseLogical(p.parseAnd, "||", "??")
}

func (p *parser) parseAnd() (node, error) {
	return p.parseLogical(p.parseEquality, "&&")
}

func (p *parser) parseLogical(
	next func() (node, error), ops ...string,
) (node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchAnyOperator(ops...)
		if !ok {
			return left, nil
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &logical{op: op, left: left, right: right}
	}
}

func (p *parser) parseEquality() (node, error) {
	return p.parseBinary(p.parseRelational, "===", "!==", "==", "!=")
}

func (p *parser) parseRelational() (node, error) {
	return p.parseBinary(p.parseAdditive, "<=", ">=", "<", ">")
}

func (p *parser) parseAdditive() (node, error) {
	return p.parseBinary(p.parseMultiplicative, "+", "-")
}

func (p *parser) parseMultiplicative() (node, error) {
	return p.parseBinary(p.parseUnary, "*", "/", "%")
}

func (p *parser) parseBinary(
	next func() (node, error), ops ...string,
) (node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchAnyOperator(ops...)
		if !ok {
			return left, nil
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &binary{op: op, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if op, ok := p.matchAnyOperator("!", "-", "+"); ok {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unary{op: op, operand: operand}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by any chain of member
// accesses and calls. Calls only attach to an identifier or member callee
func (p *parser) parsePostfix() (node, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.match(TokenDot):
			tok := p.cur()
			if tok.Type != TokenIdentifier {
				return nil, newError(ErrSyntax,
					"expected property name after '.', got %q", tok.Raw)
			}
			p.pos++
			expr = &member{
				object:   expr,
				property: &identifier{name: tok.Raw},
			}

		case p.match(TokenLBracket):
			prop, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if !p.match(TokenRBracket) {
				return nil, newError(ErrSyntax, "expected ']'")
			}
			expr = &member{object: expr, property: prop, computed: true}

		case p.cur().Type == TokenLParen:
			switch expr.(type) {
			case *identifier, *member:
			default:
				return nil, newError(ErrSyntax,
					"call target must be an identifier or member")
			}
			p.pos++
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			expr = &call{callee: expr, args: args}

		default:
			return expr, nil
		}
	}
}

func (p *parser) parseArguments() ([]node, error) {
	var args []node
	if p.match(TokenRParen) {
		return args, nil
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.match(TokenComma) {
			continue
		}
		if p.match(TokenRParen) {
			return args, nil
		}
		return nil, newError(ErrSyntax,
			"expected ',' or ')' in argument list, got %q", p.cur().Raw)
	}
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.cur()
	switch tok.Type {
	case TokenNumber, TokenString, TokenBoolean:
		p.pos++
		return &literal{value: tok.Value}, nil
	case TokenNull:
		p.pos++
		return &literal{value: nil}, nil
	case TokenUndefined:
		p.pos++
		return &literal{value: Undefined}, nil
	case TokenIdentifier:
		p.pos++
		return &identifier{name: tok.Raw}, nil
	case TokenLParen:
		p.pos++
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if !p.match(TokenRParen) {
			return nil, newError(ErrSyntax, "expected ')'")
		}
		return expr, nil
	case TokenEOF:
		return nil, newError(ErrSyntax, "unexpected end of expression")
	default:
		return nil, newError(ErrSyntax, "unexpected token %q", tok.Raw)
	}
}

func (p *parser) cur() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return Token{Type: TokenEOF}
}

func (p *parser) match(t TokenType) bool {
	if p.cur().Type == t {
		p.pos++
		return true
	}
	return false
}

func (p *parser) matchOperator(op string) bool {
	tok := p.cur()
	if tok.Type == TokenOperator && tok.Raw == op {
		p.pos++
		return true
	}
	return false
}

func (p *parser) matchAnyOperator(ops ...string) (string, bool) {
	for _, op := range ops {
		if p.matchOperator(op) {
			return op, true
		}
	}
	return "", false
}
