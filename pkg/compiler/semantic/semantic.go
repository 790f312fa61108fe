// Package semantic analyzes the compiler AST before it reaches the
// emitter: scope resolution, free-variable classification for
// closures, and static validation of await/emit/export/protocol usage
// (§4.5).
package semantic

import (
	"github.com/zexus-lang/zexus/pkg/compiler/ast"
	"github.com/zexus-lang/zexus/pkg/core/value"
	"github.com/zexus-lang/zexus/pkg/zerr"
)

// scope is a compile-time symbol table, one per function/block nesting
// level, mirroring the shape env.Environment uses at runtime.
type scope struct {
	names map[string]bool
	outer *scope
}

func newScope(outer *scope) *scope { return &scope{names: map[string]bool{}, outer: outer} }

func (s *scope) define(name string) { s.names[name] = true }

func (s *scope) resolve(name string) (depth int, ok bool) {
	for cur, d := s, 0; cur != nil; cur, d = cur.outer, d+1 {
		if cur.names[name] {
			return d, true
		}
	}
	return 0, false
}

// FreeVar names a variable an action body references but does not
// declare: the emitter must capture its cell when building a closure.
type FreeVar struct {
	Name  string
	Depth int
}

// Result carries what the emitter and stdlib registration need out of
// analysis: the set of declared event names, the free variables each
// action literal or statement captures, and every top-level export.
type Result struct {
	Events     map[string]*value.EventDescriptor
	FreeVars   map[ast.Node][]FreeVar
	Exports    []string
	Enums      map[string][]string
}

// Analyzer walks the compiler AST once, in a single pass, recording
// scope membership and flagging invalid await/emit/export/protocol use.
type Analyzer struct {
	root   *scope
	result *Result

	inAction  int
	protocols map[string][]ast.ProtocolMethod
}

func New() *Analyzer {
	return &Analyzer{
		result: &Result{
			Events:   map[string]*value.EventDescriptor{},
			FreeVars: map[ast.Node][]FreeVar{},
			Enums:    map[string][]string{},
		},
		protocols: map[string][]ast.ProtocolMethod{},
	}
}

// Analyze validates prog and returns the resolved facts the emitter
// needs, or the first semantic error found.
func (a *Analyzer) Analyze(prog *ast.Program) (*Result, error) {
	a.root = newScope(nil)
	if err := a.walkStatements(prog.Statements, a.root); err != nil {
		return nil, err
	}
	return a.result, nil
}

func (a *Analyzer) walkStatements(stmts []ast.Statement, s *scope) error {
	for _, stmt := range stmts {
		if err := a.walkStatement(stmt, s); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) walkStatement(stmt ast.Statement, s *scope) error {
	switch st := stmt.(type) {
	case *ast.LetStatement:
		if err := a.walkExpr(st.Value, s); err != nil {
			return err
		}
		s.define(st.Name)
	case *ast.ReturnStatement:
		if a.inAction == 0 {
			return zerr.New(zerr.Semantic, st.Pos(), "return outside of an action")
		}
		if st.Value != nil {
			return a.walkExpr(st.Value, s)
		}
	case *ast.ExpressionStatement:
		return a.walkExpr(st.Expr, s)
	case *ast.BlockStatement:
		return a.walkStatements(st.Statements, newScope(s))
	case *ast.PrintStatement:
		return a.walkExprList(st.Args, s)
	case *ast.DebugStatement:
		return a.walkExprList(st.Args, s)
	case *ast.ForEachStatement:
		if err := a.walkExpr(st.Iterable, s); err != nil {
			return err
		}
		child := newScope(s)
		if st.KeyName != "" {
			child.define(st.KeyName)
		}
		child.define(st.ValueName)
		return a.walkStatements(st.Body.Statements, child)
	case *ast.IfStatement:
		if err := a.walkExpr(st.Condition, s); err != nil {
			return err
		}
		if err := a.walkStatements(st.Then.Statements, newScope(s)); err != nil {
			return err
		}
		if st.ElseIf != nil {
			return a.walkStatement(st.ElseIf, s)
		}
		if st.Else != nil {
			return a.walkStatements(st.Else.Statements, newScope(s))
		}
	case *ast.WhileStatement:
		if err := a.walkExpr(st.Condition, s); err != nil {
			return err
		}
		return a.walkStatements(st.Body.Statements, newScope(s))
	case *ast.TryCatchStatement:
		if err := a.walkStatements(st.Try.Statements, newScope(s)); err != nil {
			return err
		}
		catchScope := newScope(s)
		catchScope.define(st.CatchName)
		return a.walkStatements(st.Catch.Statements, catchScope)
	case *ast.ActionStatement:
		s.define(st.Name)
		return a.walkAction(st, st.Params, st.Body, s)
	case *ast.EventStatement:
		a.result.Events[st.Name] = &value.EventDescriptor{Name: st.Name, Fields: st.Fields}
	case *ast.EmitStatement:
		if _, ok := a.result.Events[st.Name]; !ok {
			return zerr.New(zerr.Event, st.Pos(), "emit of undeclared event %q", st.Name)
		}
		if st.Payload != nil {
			return a.walkExpr(st.Payload, s)
		}
	case *ast.EnumStatement:
		s.define(st.Name)
		a.result.Enums[st.Name] = st.Variants
	case *ast.ProtocolStatement:
		s.define(st.Name)
		a.protocols[st.Name] = st.Methods
	case *ast.ContractStatement:
		s.define(st.Name)
		if st.Protocol != "" {
			if _, ok := a.protocols[st.Protocol]; !ok {
				return zerr.New(zerr.Protocol, st.Pos(), "contract %q references undeclared protocol %q", st.Name, st.Protocol)
			}
		}
		return a.walkExprList(st.Requires, s)
	case *ast.ExternalStatement:
		s.define(st.Name)
	case *ast.ExportStatement:
		for _, name := range st.Names {
			if _, ok := s.resolve(name); !ok {
				return zerr.New(zerr.Name, st.Pos(), "cannot export undefined name %q", name)
			}
			a.result.Exports = append(a.result.Exports, name)
		}
	case *ast.UseStatement:
		if st.Alias != "" {
			s.define(st.Alias)
		}
	case *ast.ImportStatement:
		for _, n := range st.Names {
			s.define(n)
		}
	case *ast.ScreenDef:
		s.define(st.Name)
		return a.walkStatements(st.Body.Statements, newScope(s))
	case *ast.ComponentDef:
		s.define(st.Name)
		child := newScope(s)
		for _, p := range st.Params {
			child.define(p)
		}
		return a.walkStatements(st.Body.Statements, child)
	case *ast.ThemeDef:
		s.define(st.Name)
		return a.walkStatements(st.Body.Statements, newScope(s))
	}
	return nil
}

func (a *Analyzer) walkAction(node ast.Node, params []string, body *ast.BlockStatement, outer *scope) error {
	child := newScope(outer)
	for _, p := range params {
		child.define(p)
	}
	a.inAction++
	free := map[string]int{}
	a.collectFree(body.Statements, child, free)
	if err := a.walkStatements(body.Statements, child); err != nil {
		a.inAction--
		return err
	}
	a.inAction--
	for name, depth := range free {
		a.result.FreeVars[node] = append(a.result.FreeVars[node], FreeVar{Name: name, Depth: depth})
	}
	return nil
}

// collectFree records identifiers referenced inside body that are not
// declared within it, the set an emitted closure must capture cells
// for (§3.3 GLOSSARY: Cell; §4.6).
func (a *Analyzer) collectFree(stmts []ast.Statement, s *scope, free map[string]int) {
	var visitExpr func(ast.Expression)
	var visitStmt func(ast.Statement)

	visitExpr = func(e ast.Expression) {
		switch ex := e.(type) {
		case *ast.Identifier:
			if _, ok := s.names[ex.Name]; !ok {
				if depth, ok := s.resolve(ex.Name); ok {
					free[ex.Name] = depth
				}
			}
		case *ast.InfixExpression:
			visitExpr(ex.Left)
			visitExpr(ex.Right)
		case *ast.PrefixExpression:
			visitExpr(ex.Right)
		case *ast.CallExpression:
			visitExpr(ex.Callee)
			for _, arg := range ex.Args {
				visitExpr(arg)
			}
		case *ast.MethodCallExpression:
			visitExpr(ex.Receiver)
			for _, arg := range ex.Args {
				visitExpr(arg)
			}
		case *ast.PropertyAccessExpression:
			visitExpr(ex.Receiver)
		case *ast.IndexExpression:
			visitExpr(ex.Receiver)
			visitExpr(ex.Index)
		case *ast.AssignmentExpression:
			visitExpr(ex.Target)
			visitExpr(ex.Value)
		case *ast.IfExpression:
			visitExpr(ex.Condition)
			visitExpr(ex.Then)
			visitExpr(ex.Else)
		case *ast.AwaitExpression:
			visitExpr(ex.Value)
		case *ast.ListLiteral:
			for _, el := range ex.Elements {
				visitExpr(el)
			}
		case *ast.MapLiteral:
			for _, entry := range ex.Entries {
				visitExpr(entry.Key)
				visitExpr(entry.Value)
			}
		}
	}
	visitStmt = func(st ast.Statement) {
		switch s2 := st.(type) {
		case *ast.LetStatement:
			visitExpr(s2.Value)
		case *ast.ExpressionStatement:
			visitExpr(s2.Expr)
		case *ast.ReturnStatement:
			if s2.Value != nil {
				visitExpr(s2.Value)
			}
		case *ast.IfStatement:
			visitExpr(s2.Condition)
			for _, x := range s2.Then.Statements {
				visitStmt(x)
			}
			if s2.Else != nil {
				for _, x := range s2.Else.Statements {
					visitStmt(x)
				}
			}
		case *ast.WhileStatement:
			visitExpr(s2.Condition)
			for _, x := range s2.Body.Statements {
				visitStmt(x)
			}
		case *ast.ForEachStatement:
			visitExpr(s2.Iterable)
			for _, x := range s2.Body.Statements {
				visitStmt(x)
			}
		case *ast.BlockStatement:
			for _, x := range s2.Statements {
				visitStmt(x)
			}
		}
	}
	for _, st := range stmts {
		visitStmt(st)
	}
}

func (a *Analyzer) walkExprList(exprs []ast.Expression, s *scope) error {
	for _, e := range exprs {
		if err := a.walkExpr(e, s); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) walkExpr(expr ast.Expression, s *scope) error {
	switch ex := expr.(type) {
	case *ast.Identifier:
		if _, ok := s.resolve(ex.Name); !ok {
			return zerr.New(zerr.Name, ex.Pos(), "undefined name %q", ex.Name)
		}
	case *ast.InfixExpression:
		if err := a.walkExpr(ex.Left, s); err != nil {
			return err
		}
		return a.walkExpr(ex.Right, s)
	case *ast.PrefixExpression:
		return a.walkExpr(ex.Right, s)
	case *ast.CallExpression:
		if err := a.walkExpr(ex.Callee, s); err != nil {
			return err
		}
		return a.walkExprList(ex.Args, s)
	case *ast.MethodCallExpression:
		if err := a.walkExpr(ex.Receiver, s); err != nil {
			return err
		}
		return a.walkExprList(ex.Args, s)
	case *ast.PropertyAccessExpression:
		return a.walkExpr(ex.Receiver, s)
	case *ast.IndexExpression:
		if err := a.walkExpr(ex.Receiver, s); err != nil {
			return err
		}
		return a.walkExpr(ex.Index, s)
	case *ast.AssignmentExpression:
		if err := a.walkExpr(ex.Target, s); err != nil {
			return err
		}
		return a.walkExpr(ex.Value, s)
	case *ast.IfExpression:
		if err := a.walkExpr(ex.Condition, s); err != nil {
			return err
		}
		if err := a.walkExpr(ex.Then, s); err != nil {
			return err
		}
		return a.walkExpr(ex.Else, s)
	case *ast.AwaitExpression:
		if a.inAction == 0 {
			return zerr.New(zerr.Semantic, ex.Pos(), "await used outside of an async action")
		}
		return a.walkExpr(ex.Value, s)
	case *ast.ListLiteral:
		return a.walkExprList(ex.Elements, s)
	case *ast.MapLiteral:
		for _, entry := range ex.Entries {
			if err := a.walkExpr(entry.Key, s); err != nil {
				return err
			}
			if err := a.walkExpr(entry.Value, s); err != nil {
				return err
			}
		}
	case *ast.ActionLiteral:
		return a.walkAction(ex, ex.Params, ex.Body, s)
	case *ast.LambdaLiteral:
		child := newScope(s)
		for _, p := range ex.Params {
			child.define(p)
		}
		free := map[string]int{}
		a.collectFree([]ast.Statement{&ast.ReturnStatement{Value: ex.Body}}, child, free)
		for name, depth := range free {
			a.result.FreeVars[ast.Node(ex)] = append(a.result.FreeVars[ast.Node(ex)], FreeVar{Name: name, Depth: depth})
		}
		return a.walkExpr(ex.Body, child)
	}
	return nil
}
