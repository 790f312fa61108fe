package lexer

import "fmt"

// Kind enumerates the token categories from the spec: keywords,
// identifiers, literals, punctuation, operators, and end-of-file. Layout
// (newline) is not a token kind of its own — see Token.NewlineBefore.
type Kind uint8

const (
	EOF Kind = iota
	Illegal

	Ident
	Int
	Float
	String
	Embedded // {| lang \n ... |}

	// keywords
	Let
	Return
	Print
	For
	Each
	In
	Action
	If
	Else
	While
	Try
	Catch
	Debug
	External
	From
	Use
	Export
	Exactly
	Lambda
	True
	False
	Null
	Async
	Await
	Event
	Emit
	RegisterEvent
	Enum
	Protocol
	Contract
	Require
	Persistent
	Storage
	Screen
	Component
	Theme

	// punctuation
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Semicolon
	Colon
	Dot

	// operators
	Assign
	Arrow
	Plus
	Minus
	Star
	Slash
	Percent
	Eq
	NotEq
	Lt
	Gt
	LtEq
	GtEq
	And
	Or
	Bang
)

var keywords = map[string]Kind{
	"let":            Let,
	"return":         Return,
	"print":          Print,
	"for":            For,
	"each":           Each,
	"in":             In,
	"action":         Action,
	"if":             If,
	"else":           Else,
	"while":          While,
	"try":            Try,
	"catch":          Catch,
	"debug":          Debug,
	"external":       External,
	"from":           From,
	"use":            Use,
	"export":         Export,
	"exactly":        Exactly,
	"lambda":         Lambda,
	"true":           True,
	"false":          False,
	"null":           Null,
	"await":          Await,
	"event":          Event,
	"emit":           Emit,
	"register_event": RegisterEvent,
	"enum":           Enum,
	"protocol":       Protocol,
	"contract":       Contract,
	"require":        Require,
	"persistent":     Persistent,
	"storage":        Storage,
	"screen":         Screen,
	"component":      Component,
	"theme":          Theme,
}

// LookupIdent classifies a raw identifier lexeme, promoting keywords.
// "async" is deliberately absent: it is only a keyword immediately after
// "action", handled by the Lexer itself (§4.1).
func LookupIdent(lit string) Kind {
	if k, ok := keywords[lit]; ok {
		return k
	}
	return Ident
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", k)
}

var kindNames = map[Kind]string{
	EOF: "EOF", Illegal: "ILLEGAL", Ident: "IDENT", Int: "INT", Float: "FLOAT",
	String: "STRING", Embedded: "EMBEDDED", Let: "let", Return: "return",
	Print: "print", For: "for", Each: "each", In: "in", Action: "action",
	If: "if", Else: "else", While: "while", Try: "try", Catch: "catch",
	Debug: "debug", External: "external", From: "from", Use: "use",
	Export: "export", Exactly: "exactly", Lambda: "lambda", True: "true",
	False: "false", Null: "null", Async: "async", Await: "await",
	Event: "event", Emit: "emit", RegisterEvent: "register_event",
	Enum: "enum", Protocol: "protocol", Contract: "contract",
	Require: "require", Persistent: "persistent", Storage: "storage",
	Screen: "screen", Component: "component", Theme: "theme",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBracket: "[",
	RBracket: "]", Comma: ",", Semicolon: ";", Colon: ":", Dot: ".",
	Assign: "=", Arrow: "->", Plus: "+", Minus: "-", Star: "*", Slash: "/",
	Percent: "%", Eq: "==", NotEq: "!=", Lt: "<", Gt: ">", LtEq: "<=",
	GtEq: ">=", And: "&&", Or: "||", Bang: "!",
}

// EmbeddedLiteral is the parsed payload of an Embedded token.
type EmbeddedLiteral struct {
	Language string
	Text     string
}

// Token is a lexical unit: kind, lexeme, an optional literal value, and a
// source position. Trivia captures the whitespace/comment text
// immediately preceding the token so the lexer round-trip invariant
// (concatenating lexemes with original whitespace reconstructs the
// source) can be checked directly against a token stream.
type Token struct {
	Kind    Kind
	Lexeme  string
	Literal any // *big.Int | float64 | string | EmbeddedLiteral | nil
	Line    int
	Column  int

	Trivia         string
	NewlineBefore  bool
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Kind, t.Lexeme, t.Line, t.Column)
}
