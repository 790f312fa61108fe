// Package ast defines the compiler AST (CA): the leaner node set the
// strict production parser produces, walked by the semantic analyzer
// and lowered by the emitter (§3.2, §4.3, §4.5, §4.6).
//
// CA is intentionally not identical to the interpreter AST in
// pkg/ast (IA): it carries no Recovery notes, since the production
// parser never guesses. But every node the tolerant parser can produce
// has a same-named counterpart here, and the two walk identically for
// any program the strict grammar accepts (the equivalence invariant,
// §4.2/§4.3).
package ast

import (
	"math/big"

	"github.com/zexus-lang/zexus/pkg/zerr"
)

type Node interface {
	Pos() zerr.Position
}

type Statement interface {
	Node
	statementNode()
}

type Expression interface {
	Node
	expressionNode()
}

type Base struct{ Position zerr.Position }

func (b Base) Pos() zerr.Position { return b.Position }

type Program struct {
	Base
	Statements []Statement
}

// ---- Statements ------------------------------------------------------

type LetStatement struct {
	Base
	Name  string
	Value Expression
}

func (LetStatement) statementNode() {}

type ReturnStatement struct {
	Base
	Value Expression
}

func (ReturnStatement) statementNode() {}

type ExpressionStatement struct {
	Base
	Expr Expression
}

func (ExpressionStatement) statementNode() {}

type BlockStatement struct {
	Base
	Statements []Statement
}

func (BlockStatement) statementNode() {}

type PrintStatement struct {
	Base
	Args []Expression
}

func (PrintStatement) statementNode() {}

type ForEachStatement struct {
	Base
	ValueName string
	KeyName   string
	Iterable  Expression
	Body      *BlockStatement
}

func (ForEachStatement) statementNode() {}

type IfStatement struct {
	Base
	Condition Expression
	Then      *BlockStatement
	Else      *BlockStatement
	ElseIf    *IfStatement
}

func (IfStatement) statementNode() {}

type WhileStatement struct {
	Base
	Condition Expression
	Body      *BlockStatement
}

func (WhileStatement) statementNode() {}

type TryCatchStatement struct {
	Base
	Try       *BlockStatement
	CatchName string
	Catch     *BlockStatement
}

func (TryCatchStatement) statementNode() {}

type ActionStatement struct {
	Base
	Name    string
	Params  []string
	Body    *BlockStatement
	IsAsync bool
}

func (ActionStatement) statementNode() {}

type EventStatement struct {
	Base
	Name   string
	Fields []string
}

func (EventStatement) statementNode() {}

type EmitStatement struct {
	Base
	Name    string
	Payload Expression
}

func (EmitStatement) statementNode() {}

type EnumStatement struct {
	Base
	Name     string
	Variants []string
}

func (EnumStatement) statementNode() {}

type ProtocolMethod struct {
	Name  string
	Arity int
}

type ProtocolStatement struct {
	Base
	Name    string
	Methods []ProtocolMethod
}

func (ProtocolStatement) statementNode() {}

type ContractStatement struct {
	Base
	Name     string
	Protocol string
	Requires []Expression
}

func (ContractStatement) statementNode() {}

type ExternalStatement struct {
	Base
	Name   string
	Source string
}

func (ExternalStatement) statementNode() {}

type ExportStatement struct {
	Base
	Names []string
}

func (ExportStatement) statementNode() {}

type DebugStatement struct {
	Base
	Args []Expression
}

func (DebugStatement) statementNode() {}

type UseStatement struct {
	Base
	ModulePath string
	Alias      string
}

func (UseStatement) statementNode() {}

type ImportStatement struct {
	Base
	Names      []string
	ModulePath string
}

func (ImportStatement) statementNode() {}

type ScreenDef struct {
	Base
	Name string
	Body *BlockStatement
}

func (ScreenDef) statementNode() {}

type ComponentDef struct {
	Base
	Name   string
	Params []string
	Body   *BlockStatement
}

func (ComponentDef) statementNode() {}

type ThemeDef struct {
	Base
	Name string
	Body *BlockStatement
}

func (ThemeDef) statementNode() {}

// ---- Expressions -----------------------------------------------------

type Identifier struct {
	Base
	Name string
}

func (Identifier) expressionNode() {}

type IntegerLiteral struct {
	Base
	Value *big.Int
}

func (IntegerLiteral) expressionNode() {}

type FloatLiteral struct {
	Base
	Value float64
}

func (FloatLiteral) expressionNode() {}

type StringLiteral struct {
	Base
	Value string
}

func (StringLiteral) expressionNode() {}

type BoolLiteral struct {
	Base
	Value bool
}

func (BoolLiteral) expressionNode() {}

type NullLiteral struct{ Base }

func (NullLiteral) expressionNode() {}

type ListLiteral struct {
	Base
	Elements []Expression
}

func (ListLiteral) expressionNode() {}

type MapEntry struct {
	Key   Expression
	Value Expression
}

type MapLiteral struct {
	Base
	Entries []MapEntry
}

func (MapLiteral) expressionNode() {}

type ActionLiteral struct {
	Base
	Name    string
	Params  []string
	Body    *BlockStatement
	IsAsync bool
}

func (ActionLiteral) expressionNode() {}

type LambdaLiteral struct {
	Base
	Params []string
	Body   Expression
}

func (LambdaLiteral) expressionNode() {}

type CallExpression struct {
	Base
	Callee Expression
	Args   []Expression
}

func (CallExpression) expressionNode() {}

type MethodCallExpression struct {
	Base
	Receiver Expression
	Method   string
	Args     []Expression
}

func (MethodCallExpression) expressionNode() {}

type PropertyAccessExpression struct {
	Base
	Receiver Expression
	Property string
}

func (PropertyAccessExpression) expressionNode() {}

type IndexExpression struct {
	Base
	Receiver Expression
	Index    Expression
}

func (IndexExpression) expressionNode() {}

type AssignmentExpression struct {
	Base
	Target Expression
	Value  Expression
}

func (AssignmentExpression) expressionNode() {}

type PrefixExpression struct {
	Base
	Operator string
	Right    Expression
}

func (PrefixExpression) expressionNode() {}

type InfixExpression struct {
	Base
	Operator string
	Left     Expression
	Right    Expression
}

func (InfixExpression) expressionNode() {}

type IfExpression struct {
	Base
	Condition Expression
	Then      Expression
	Else      Expression
}

func (IfExpression) expressionNode() {}

type AwaitExpression struct {
	Base
	Value Expression
}

func (AwaitExpression) expressionNode() {}

type EmbeddedLiteral struct {
	Base
	Language string
	Source   string
}

func (EmbeddedLiteral) expressionNode() {}
