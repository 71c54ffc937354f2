package refscan

import (
	"bytes"
	"fmt"

	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"
)

// LuaExtractor extracts require() references from Lua source by walking the
// parse tree. Only string-literal arguments are considered; dynamic requires
// cannot be resolved statically and are ignored.
type LuaExtractor struct{}

// NewLuaExtractor returns the default extractor for module script sources.
func NewLuaExtractor() *LuaExtractor {
	return &LuaExtractor{}
}

// Extract implements Extractor.
func (e *LuaExtractor) Extract(filename string, src []byte) ([]Reference, error) {
	chunk, err := parse.Parse(bytes.NewReader(src), filename)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	c := &collector{seen: make(map[Reference]struct{})}
	c.stmts(chunk)
	return c.refs, nil
}

// collector accumulates references during the tree walk.
type collector struct {
	refs []Reference
	seen map[Reference]struct{}
}

func (c *collector) add(ref Reference) {
	if _, dup := c.seen[ref]; dup {
		return
	}
	c.seen[ref] = struct{}{}
	c.refs = append(c.refs, ref)
}

// requireArg returns the string argument of a require(...) call expression.
func requireArg(e ast.Expr) (string, bool) {
	call, ok := e.(*ast.FuncCallExpr)
	if !ok || call.Func == nil {
		return "", false
	}
	ident, ok := call.Func.(*ast.IdentExpr)
	if !ok || ident.Value != "require" || len(call.Args) == 0 {
		return "", false
	}
	str, ok := call.Args[0].(*ast.StringExpr)
	if !ok {
		return "", false
	}
	return str.Value, true
}

func (c *collector) stmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		c.stmt(s)
	}
}

func (c *collector) stmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.LocalAssignStmt:
		c.exprs(st.Exprs)
	case *ast.AssignStmt:
		c.exprs(st.Lhs)
		c.exprs(st.Rhs)
	case *ast.FuncCallStmt:
		c.expr(st.Expr)
	case *ast.DoBlockStmt:
		c.stmts(st.Stmts)
	case *ast.WhileStmt:
		c.expr(st.Condition)
		c.stmts(st.Stmts)
	case *ast.RepeatStmt:
		c.expr(st.Condition)
		c.stmts(st.Stmts)
	case *ast.IfStmt:
		c.expr(st.Condition)
		c.stmts(st.Then)
		c.stmts(st.Else)
	case *ast.NumberForStmt:
		c.expr(st.Init)
		c.expr(st.Limit)
		c.expr(st.Step)
		c.stmts(st.Stmts)
	case *ast.GenericForStmt:
		c.exprs(st.Exprs)
		c.stmts(st.Stmts)
	case *ast.FuncDefStmt:
		if st.Func != nil {
			c.stmts(st.Func.Stmts)
		}
	case *ast.ReturnStmt:
		c.exprs(st.Exprs)
	}
}

func (c *collector) exprs(exprs []ast.Expr) {
	for _, e := range exprs {
		c.expr(e)
	}
}

func (c *collector) expr(e ast.Expr) {
	if e == nil {
		return
	}
	switch ex := e.(type) {
	case *ast.AttrGetExpr:
		// require("a.b").Name also references the member, which may be
		// a module in its own right.
		if path, ok := requireArg(ex.Object); ok {
			if key, isStr := ex.Key.(*ast.StringExpr); isStr {
				c.add(Reference{Path: path, Member: key.Value})
			}
		}
		c.expr(ex.Object)
		c.expr(ex.Key)
	case *ast.FuncCallExpr:
		if path, ok := requireArg(ex); ok {
			c.add(Reference{Path: path})
		}
		c.expr(ex.Func)
		c.expr(ex.Receiver)
		c.exprs(ex.Args)
	case *ast.TableExpr:
		for _, f := range ex.Fields {
			if f == nil {
				continue
			}
			c.expr(f.Key)
			c.expr(f.Value)
		}
	case *ast.LogicalOpExpr:
		c.expr(ex.Lhs)
		c.expr(ex.Rhs)
	case *ast.RelationalOpExpr:
		c.expr(ex.Lhs)
		c.expr(ex.Rhs)
	case *ast.StringConcatOpExpr:
		c.expr(ex.Lhs)
		c.expr(ex.Rhs)
	case *ast.ArithmeticOpExpr:
		c.expr(ex.Lhs)
		c.expr(ex.Rhs)
	case *ast.UnaryMinusOpExpr:
		c.expr(ex.Expr)
	case *ast.UnaryNotOpExpr:
		c.expr(ex.Expr)
	case *ast.UnaryLenOpExpr:
		c.expr(ex.Expr)
	case *ast.FunctionExpr:
		c.stmts(ex.Stmts)
	}
}
