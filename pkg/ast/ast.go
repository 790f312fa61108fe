// Package ast defines the interpreter AST (IA): the node set the
// tolerant multi-strategy parser produces and the tree-walking
// evaluator walks directly (§3.2, §4.2, §4.4).
//
// Every node carries a source Position and a Recovery slice. Recovery
// is empty for a node parsed without incident; the tolerant parser's
// error-recovery engine appends a short note to it whenever it had to
// guess at the node's shape, so a caller can distinguish "parsed
// cleanly" from "parsed by inference" without the diagnostics bag.
package ast

import (
	"math/big"

	"github.com/zexus-lang/zexus/pkg/zerr"
)

// Node is implemented by every IA node.
type Node interface {
	Pos() zerr.Position
	recoveryNotes() *[]string
}

// Statement is any IA node usable at statement position.
type Statement interface {
	Node
	statementNode()
}

// Expression is any IA node usable at expression position.
type Expression interface {
	Node
	expressionNode()
}

// Base is embedded by every concrete node to provide Pos() and the
// Recovery field's accessor without repeating both on every type.
type Base struct {
	Position zerr.Position
	Recovery []string
}

func (b *Base) Pos() zerr.Position       { return b.Position }
func (b *Base) recoveryNotes() *[]string { return &b.Recovery }

// AddRecovery appends a note explaining a parser inference, used by the
// tolerant parser's error-recovery engine.
func AddRecovery(n Node, note string) {
	notes := n.recoveryNotes()
	*notes = append(*notes, note)
}

// Program is the root of a parsed file: a flat statement list.
type Program struct {
	Base
	Statements []Statement
}

// ---- Statements ----------------------------------------------------------

type LetStatement struct {
	Base
	Name  string
	Value Expression
}

func (*LetStatement) statementNode() {}

type ReturnStatement struct {
	Base
	Value Expression // nil for a bare "return"
}

func (*ReturnStatement) statementNode() {}

type ExpressionStatement struct {
	Base
	Expr Expression
}

func (*ExpressionStatement) statementNode() {}

type BlockStatement struct {
	Base
	Statements []Statement
}

func (*BlockStatement) statementNode() {}

type PrintStatement struct {
	Base
	Args []Expression
}

func (*PrintStatement) statementNode() {}

type ForEachStatement struct {
	Base
	ValueName string
	KeyName   string // empty when the loop binds only a value, e.g. "for each x in xs"
	Iterable  Expression
	Body      *BlockStatement
}

func (*ForEachStatement) statementNode() {}

type IfStatement struct {
	Base
	Condition Expression
	Then      *BlockStatement
	Else      *BlockStatement // nil when there is no else clause or when ElseIf holds an else-if chain
	ElseIf    *IfStatement
}

func (*IfStatement) statementNode() {}

type WhileStatement struct {
	Base
	Condition Expression
	Body      *BlockStatement
}

func (*WhileStatement) statementNode() {}

type TryCatchStatement struct {
	Base
	Try        *BlockStatement
	CatchName  string // name bound to the caught *value.Error
	Catch      *BlockStatement
}

func (*TryCatchStatement) statementNode() {}

// ActionStatement declares a named function in statement position, as
// distinct from an ActionLiteral used as a value (§3.2).
type ActionStatement struct {
	Base
	Name    string
	Params  []string
	Body    *BlockStatement
	IsAsync bool
}

func (*ActionStatement) statementNode() {}

type EventStatement struct {
	Base
	Name   string
	Fields []string
}

func (*EventStatement) statementNode() {}

type EmitStatement struct {
	Base
	Name    string
	Payload Expression // typically a MapLiteral
}

func (*EmitStatement) statementNode() {}

type EnumStatement struct {
	Base
	Name     string
	Variants []string
}

func (*EnumStatement) statementNode() {}

type ProtocolStatement struct {
	Base
	Name    string
	Methods []ProtocolMethod
}

type ProtocolMethod struct {
	Name  string
	Arity int
}

func (*ProtocolStatement) statementNode() {}

type ContractStatement struct {
	Base
	Name        string
	Protocol    string
	Requires    []Expression
}

func (*ContractStatement) statementNode() {}

type ExternalStatement struct {
	Base
	Name   string
	Source string // "from" clause, e.g. an embedded-language name or host module path
}

func (*ExternalStatement) statementNode() {}

type ExportStatement struct {
	Base
	Names []string
}

func (*ExportStatement) statementNode() {}

type DebugStatement struct {
	Base
	Args []Expression
}

func (*DebugStatement) statementNode() {}

type UseStatement struct {
	Base
	ModulePath string
	Alias      string
}

func (*UseStatement) statementNode() {}

type ImportStatement struct {
	Base
	Names      []string
	ModulePath string
}

func (*ImportStatement) statementNode() {}

// ScreenDef, ComponentDef and ThemeDef model the UI-declaration surface
// (§3.2 SUPPLEMENTED, GLOSSARY): declarative bodies handed unevaluated
// to the renderer collaborator by tag.
type ScreenDef struct {
	Base
	Name string
	Body *BlockStatement
}

func (*ScreenDef) statementNode() {}

type ComponentDef struct {
	Base
	Name   string
	Params []string
	Body   *BlockStatement
}

func (*ComponentDef) statementNode() {}

type ThemeDef struct {
	Base
	Name string
	Body *BlockStatement
}

func (*ThemeDef) statementNode() {}

// ---- Expressions -----------------------------------------------------

type Identifier struct {
	Base
	Name string
}

func (*Identifier) expressionNode() {}

type IntegerLiteral struct {
	Base
	Value *big.Int
}

func (*IntegerLiteral) expressionNode() {}

type FloatLiteral struct {
	Base
	Value float64
}

func (*FloatLiteral) expressionNode() {}

type StringLiteral struct {
	Base
	Value string
}

func (*StringLiteral) expressionNode() {}

type BoolLiteral struct {
	Base
	Value bool
}

func (*BoolLiteral) expressionNode() {}

type NullLiteral struct{ Base }

func (*NullLiteral) expressionNode() {}

type ListLiteral struct {
	Base
	Elements []Expression
}

func (*ListLiteral) expressionNode() {}

type MapEntry struct {
	Key   Expression
	Value Expression
}

type MapLiteral struct {
	Base
	Entries []MapEntry
}

func (*MapLiteral) expressionNode() {}

// ActionLiteral is an anonymous or named function used where an
// expression is expected (assigned, passed, returned).
type ActionLiteral struct {
	Base
	Name    string // optional; non-empty when written as a named expression e.g. `let f = action add(a, b) { ... }`
	Params  []string
	Body    *BlockStatement
	IsAsync bool
}

func (*ActionLiteral) expressionNode() {}

type LambdaLiteral struct {
	Base
	Params []string
	Body   Expression // lambdas are single-expression bodies
}

func (*LambdaLiteral) expressionNode() {}

type CallExpression struct {
	Base
	Callee Expression
	Args   []Expression
}

func (*CallExpression) expressionNode() {}

type MethodCallExpression struct {
	Base
	Receiver Expression
	Method   string
	Args     []Expression
}

func (*MethodCallExpression) expressionNode() {}

type PropertyAccessExpression struct {
	Base
	Receiver Expression
	Property string
}

func (*PropertyAccessExpression) expressionNode() {}

type IndexExpression struct {
	Base
	Receiver Expression
	Index    Expression
}

func (*IndexExpression) expressionNode() {}

type AssignmentExpression struct {
	Base
	Target Expression // Identifier, IndexExpression or PropertyAccessExpression
	Value  Expression
}

func (*AssignmentExpression) expressionNode() {}

type PrefixExpression struct {
	Base
	Operator string
	Right    Expression
}

func (*PrefixExpression) expressionNode() {}

type InfixExpression struct {
	Base
	Operator string
	Left     Expression
	Right    Expression
}

func (*InfixExpression) expressionNode() {}

// IfExpression is the expression-position conditional (§3.2: `if` can
// appear as either a statement or an expression).
type IfExpression struct {
	Base
	Condition Expression
	Then      Expression
	Else      Expression
}

func (*IfExpression) expressionNode() {}

type AwaitExpression struct {
	Base
	Value Expression
}

func (*AwaitExpression) expressionNode() {}

// EmbeddedLiteral is a `{| lang ... |}` block kept intact for the
// pyembed collaborator to execute (§4.4, DOMAIN STACK).
type EmbeddedLiteral struct {
	Base
	Language string
	Source   string
}

func (*EmbeddedLiteral) expressionNode() {}
