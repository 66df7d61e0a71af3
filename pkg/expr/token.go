package expr

// TokenType classifies a lexical token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNumber
	TokenString
	TokenBoolean
	TokenNull
	TokenUndefined
	TokenIdentifier
	TokenOperator
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenDot
	TokenComma
)

// Token is one lexical unit of an expression. Value holds the decoded
// literal for number, string, and boolean tokens; Raw holds the source text
type Token struct {
	Value any
	Raw   string
	Type  TokenType
}

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenNumber:     "NUMBER",
	TokenString:     "STRING",
	TokenBoolean:    "BOOLEAN",
	TokenNull:       "NULL",
	TokenUndefined:  "UNDEFINED",
	TokenIdentifier: "IDENTIFIER",
	TokenOperator:   "OPERATOR",
	TokenLParen:     "LPAREN",
	TokenRParen:     "RPAREN",
	TokenLBracket:   "LBRACKET",
	TokenRBracket:   "RBRACKET",
	TokenDot:        "DOT",
	TokenComma:      "COMMA",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}
