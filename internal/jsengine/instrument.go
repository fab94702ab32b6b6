package jsengine

import (
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"
	"github.com/dop251/goja/parser"
	"github.com/joeycumines/jdb/internal/debugger"
	"github.com/rivo/uniseg"
)

const (
	// hookName is the global the instrumented source calls before each
	// statement.
	hookName = "__jdb_step"
	// internalPrefix marks names that are never shown to the operator.
	internalPrefix = "__jdb"
)

var astPkgPath = reflect.TypeFor[ast.Program]().PkgPath()

// statement is one instrumented statement.
type statement struct {
	pos debugger.Position
	// names visible at the statement, innermost scope first.
	names []string
	// debugger is set for `debugger;` statements, which always break.
	debugger bool
}

type insertion struct {
	offset int
	text   string
}

// instrumented is the result of rewriting a script.
type instrumented struct {
	source     string
	statements []statement
	// globals are the names declared at the top level of the script.
	globals []string
}

// instrument parses src and inserts a call to the step hook before every
// statement of every statement list. The hook receives the statement index
// and an arrow function that evaluates text in the statement's scope.
// Insertions never contain newlines, so line numbers are unchanged.
func instrument(name, src string) (*instrumented, error) {
	prg, err := parser.ParseFile(nil, name, src, 0)
	if err != nil {
		return nil, err
	}
	in := &instrumenter{
		src:     src,
		file:    prg.File,
		base:    prg.File.Base(),
		visited: make(map[uintptr]struct{}),
	}

	globals := slices.Concat(declarationNames(prg.DeclarationList), lexicalNames(prg.Body))
	in.push(globals)
	in.list(prg.Body, true)
	in.pop()

	slices.SortStableFunc(in.inserts, func(a, b insertion) int { return a.offset - b.offset })
	var b strings.Builder
	b.Grow(len(src) + len(in.inserts)*48)
	last := 0
	for _, ins := range in.inserts {
		b.WriteString(src[last:ins.offset])
		b.WriteString(ins.text)
		last = ins.offset
	}
	b.WriteString(src[last:])

	return &instrumented{
		source:     b.String(),
		statements: in.statements,
		globals:    dedupe(globals),
	}, nil
}

type instrumenter struct {
	src        string
	file       *file.File
	base       int
	inserts    []insertion
	statements []statement
	scopes     [][]string
	visited    map[uintptr]struct{}
}

func (in *instrumenter) push(names []string) { in.scopes = append(in.scopes, names) }
func (in *instrumenter) pop()                { in.scopes = in.scopes[:len(in.scopes)-1] }

// visible flattens the scope stack, innermost first, dropping shadowed names.
func (in *instrumenter) visible() []string {
	var out []string
	for i := len(in.scopes) - 1; i >= 0; i-- {
		out = append(out, in.scopes[i]...)
	}
	return dedupe(out)
}

// list instruments a statement list. A leading directive prologue ("use
// strict") is left in place when directives is set.
func (in *instrumenter) list(stmts []ast.Statement, directives bool) {
	for _, s := range stmts {
		if directives {
			if es, ok := s.(*ast.ExpressionStatement); ok {
				if _, ok := es.Expression.(*ast.StringLiteral); ok {
					continue
				}
			}
			directives = false
		}
		switch s := s.(type) {
		case *ast.FunctionDeclaration, *ast.EmptyStatement, *ast.BadStatement:
		case *ast.DebuggerStatement:
			in.mark(s, true)
		default:
			in.mark(s, false)
		}
		in.node(reflect.ValueOf(s))
	}
}

func (in *instrumenter) mark(s ast.Statement, brk bool) {
	start := in.start(s)
	end := min(max(in.offset(s.Idx1()), start), len(in.src))
	text := in.src[start:end]
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		text = text[:i]
	}
	p := in.file.Position(start)
	if p.Column > 1 {
		// columns count user-perceived characters, not bytes
		p.Column = uniseg.GraphemeClusterCount(in.src[start-(p.Column-1):start]) + 1
	}

	id := len(in.statements)
	in.statements = append(in.statements, statement{
		pos: debugger.Position{
			Line:   p.Line,
			Column: p.Column,
			Source: strings.TrimSpace(text),
		},
		names:    in.visible(),
		debugger: brk,
	})
	in.inserts = append(in.inserts, insertion{
		offset: in.insertionPoint(start),
		text:   ";" + hookName + "(" + strconv.Itoa(id) + ",__jdb_e=>eval(__jdb_e));",
	})
}

// start returns the source offset of s. The parser leaves IfStatement.If
// unset, so the keyword is found by scanning back from the test.
func (in *instrumenter) start(s ast.Statement) int {
	if n, ok := s.(*ast.IfStatement); ok && n.If == 0 {
		return in.keywordBefore(in.offset(n.Test.Idx0()), "if")
	}
	return in.offset(s.Idx0())
}

// keywordBefore returns the offset of kw when only whitespace, opening
// parentheses and block comments separate it from off, otherwise off.
func (in *instrumenter) keywordBefore(off int, kw string) int {
	i := off
scan:
	for i > 0 {
		switch in.src[i-1] {
		case '(', ' ', '\t', '\r', '\n':
			i--
		case '/':
			if i < 2 || in.src[i-2] != '*' {
				break scan
			}
			open := strings.LastIndex(in.src[:i-2], "/*")
			if open < 0 {
				break scan
			}
			i = open
		default:
			break scan
		}
	}
	if strings.HasSuffix(in.src[:i], kw) {
		return i - len(kw)
	}
	return off
}

func (in *instrumenter) offset(idx file.Idx) int {
	return min(max(int(idx)-in.base, 0), len(in.src))
}

// insertionPoint moves off back over opening parentheses, since the parser
// reports the start of a parenthesised expression after the parenthesis.
func (in *instrumenter) insertionPoint(off int) int {
	point := off
	for i := off; i > 0; i-- {
		switch in.src[i-1] {
		case '(':
			point = i - 1
		case ' ', '\t', '\r', '\n':
		default:
			return point
		}
	}
	return point
}

// node walks an AST value looking for nested statement lists.
func (in *instrumenter) node(v reflect.Value) {
	switch v.Kind() {
	case reflect.Interface:
		if !v.IsNil() {
			in.node(v.Elem())
		}
	case reflect.Pointer:
		if v.IsNil() || v.Type().Elem().PkgPath() != astPkgPath {
			return
		}
		if _, ok := in.visited[v.Pointer()]; ok {
			return
		}
		in.visited[v.Pointer()] = struct{}{}
		if in.scoped(v.Interface()) {
			return
		}
		in.fields(v.Elem())
	case reflect.Struct:
		if v.Type().PkgPath() == astPkgPath {
			in.fields(v)
		}
	case reflect.Slice:
		for i := range v.Len() {
			in.node(v.Index(i))
		}
	}
}

func (in *instrumenter) fields(v reflect.Value) {
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		// DeclarationList shares its bindings with the statements.
		if !f.IsExported() || f.Name == "DeclarationList" {
			continue
		}
		in.node(v.Field(i))
	}
}

// scoped handles the nodes that introduce names or statement lists. It
// returns false for everything else.
func (in *instrumenter) scoped(n any) bool {
	switch n := n.(type) {
	case *ast.FunctionLiteral:
		names := slices.Concat(parameterNames(n.ParameterList), declarationNames(n.DeclarationList))
		if n.Body != nil {
			names = append(names, lexicalNames(n.Body.List)...)
		}
		in.push(names)
		in.node(reflect.ValueOf(n.ParameterList))
		if n.Body != nil {
			in.list(n.Body.List, true)
		}
		in.pop()
	case *ast.ArrowFunctionLiteral:
		names := slices.Concat(parameterNames(n.ParameterList), declarationNames(n.DeclarationList))
		body, isBlock := n.Body.(*ast.BlockStatement)
		if isBlock {
			names = append(names, lexicalNames(body.List)...)
		}
		in.push(names)
		in.node(reflect.ValueOf(n.ParameterList))
		if isBlock {
			in.list(body.List, true)
		} else {
			in.node(reflect.ValueOf(n.Body))
		}
		in.pop()
	case *ast.ClassStaticBlock:
		if n.Block == nil {
			return true
		}
		in.push(slices.Concat(declarationNames(n.DeclarationList), lexicalNames(n.Block.List)))
		in.list(n.Block.List, false)
		in.pop()
	case *ast.BlockStatement:
		in.push(lexicalNames(n.List))
		in.list(n.List, false)
		in.pop()
	case *ast.CaseStatement:
		in.node(reflect.ValueOf(n.Test))
		in.push(lexicalNames(n.Consequent))
		in.list(n.Consequent, false)
		in.pop()
	case *ast.CatchStatement:
		in.push(targetNames(n.Parameter))
		in.node(reflect.ValueOf(n.Body))
		in.pop()
	case *ast.ForStatement:
		var names []string
		if decl, ok := n.Initializer.(*ast.ForLoopInitializerLexicalDecl); ok {
			names = bindingNames(decl.LexicalDeclaration.List)
		}
		in.push(names)
		in.fields(reflect.ValueOf(n).Elem())
		in.pop()
	case *ast.ForInStatement:
		in.push(forIntoNames(n.Into))
		in.fields(reflect.ValueOf(n).Elem())
		in.pop()
	case *ast.ForOfStatement:
		in.push(forIntoNames(n.Into))
		in.fields(reflect.ValueOf(n).Elem())
		in.pop()
	default:
		return false
	}
	return true
}

func forIntoNames(into ast.ForInto) []string {
	if decl, ok := into.(*ast.ForDeclaration); ok {
		return targetNames(decl.Target)
	}
	return nil
}

func declarationNames(list []*ast.VariableDeclaration) []string {
	var out []string
	for _, decl := range list {
		out = append(out, bindingNames(decl.List)...)
	}
	return out
}

// lexicalNames returns the names a statement list declares for its own
// block: let, const, class and function declarations.
func lexicalNames(stmts []ast.Statement) []string {
	var out []string
	for _, s := range stmts {
		switch s := s.(type) {
		case *ast.LexicalDeclaration:
			out = append(out, bindingNames(s.List)...)
		case *ast.FunctionDeclaration:
			if s.Function != nil && s.Function.Name != nil {
				out = append(out, s.Function.Name.Name.String())
			}
		case *ast.ClassDeclaration:
			if s.Class != nil && s.Class.Name != nil {
				out = append(out, s.Class.Name.Name.String())
			}
		}
	}
	return out
}

func parameterNames(params *ast.ParameterList) []string {
	if params == nil {
		return nil
	}
	out := bindingNames(params.List)
	if params.Rest != nil {
		out = append(out, targetNames(params.Rest)...)
	}
	return out
}

func bindingNames(list []*ast.Binding) []string {
	var out []string
	for _, b := range list {
		out = append(out, targetNames(b.Target)...)
	}
	return out
}

// targetNames returns the identifiers bound by a binding target, descending
// into destructuring patterns.
func targetNames(n ast.Node) []string {
	switch n := n.(type) {
	case *ast.Identifier:
		return []string{n.Name.String()}
	case *ast.ArrayPattern:
		var out []string
		for _, e := range n.Elements {
			out = append(out, targetNames(e)...)
		}
		if n.Rest != nil {
			out = append(out, targetNames(n.Rest)...)
		}
		return out
	case *ast.ObjectPattern:
		var out []string
		for _, p := range n.Properties {
			switch p := p.(type) {
			case *ast.PropertyShort:
				out = append(out, p.Name.Name.String())
			case *ast.PropertyKeyed:
				out = append(out, targetNames(p.Value)...)
			}
		}
		if n.Rest != nil {
			out = append(out, targetNames(n.Rest)...)
		}
		return out
	case *ast.AssignExpression:
		return targetNames(n.Left)
	default:
		return nil
	}
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := names[:0:0]
	for _, name := range names {
		if _, ok := seen[name]; ok || strings.HasPrefix(name, internalPrefix) {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
