// Package utcclock provides a linter that keeps wall-clock reads in UTC.
//
// It reports time.Now() calls whose result is not immediately converted with
// .UTC(), and any reference to time.Local. Todo timestamps and the calendar
// date used for weather lookups are always UTC, so a local-zone clock read
// is almost always a bug.
//
// Passing time.Now as a function value (for example as an injectable clock)
// is allowed; the caller is expected to convert the result.
//
// Findings can be suppressed with //nolint or //nolint:utcclock on the same
// line or the line above.
package utcclock

import (
	"go/ast"
	"go/token"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

const analyzerName = "utcclock"

// Analyzer reports local-zone clock reads.
var Analyzer = &analysis.Analyzer{
	Name:     analyzerName,
	Doc:      "checks that time.Now() is followed by .UTC() and that time.Local is not used",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

const (
	msgNow   = "time.Now() should be followed by .UTC()"
	msgLocal = "time.Local should not be used; convert to UTC instead"
)

func run(pass *analysis.Pass) (any, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	suppressed := nolintLines(pass)

	filter := []ast.Node{(*ast.CallExpr)(nil), (*ast.SelectorExpr)(nil)}
	insp.WithStack(filter, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return true
		}

		switch node := n.(type) {
		case *ast.CallExpr:
			if !isTimeSelector(node.Fun, "Now") || convertedToUTC(node, stack) {
				return true
			}
			report(pass, suppressed, node.Pos(), msgNow)
		case *ast.SelectorExpr:
			if isTimeSelector(node, "Local") {
				report(pass, suppressed, node.Pos(), msgLocal)
			}
		}
		return true
	})

	return nil, nil
}

// convertedToUTC reports whether call is the receiver of a .UTC() call.
func convertedToUTC(call *ast.CallExpr, stack []ast.Node) bool {
	if len(stack) < 2 {
		return false
	}
	sel, ok := stack[len(stack)-2].(*ast.SelectorExpr)
	return ok && sel.X == call && sel.Sel.Name == "UTC"
}

// isTimeSelector matches time.<name>, honouring renamed imports.
func isTimeSelector(expr ast.Expr, name string) bool {
	sel, ok := expr.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != name {
		return false
	}
	ident, ok := sel.X.(*ast.Ident)
	if !ok {
		return false
	}
	return ident.Name == "time"
}

type lineKey struct {
	file string
	line int
}

// nolintLines collects the lines covered by a nolint directive that applies
// to this analyzer.
func nolintLines(pass *analysis.Pass) map[lineKey]bool {
	lines := make(map[lineKey]bool)
	for _, f := range pass.Files {
		for _, cg := range f.Comments {
			for _, c := range cg.List {
				if !appliesToUs(c.Text) {
					continue
				}
				pos := pass.Fset.Position(c.Pos())
				lines[lineKey{pos.Filename, pos.Line}] = true
				lines[lineKey{pos.Filename, pos.Line + 1}] = true
			}
		}
	}
	return lines
}

func appliesToUs(comment string) bool {
	text := strings.TrimSpace(strings.TrimPrefix(comment, "//"))
	if !strings.HasPrefix(text, "nolint") {
		return false
	}
	rest := strings.TrimPrefix(text, "nolint")
	if !strings.HasPrefix(rest, ":") {
		return true
	}
	names, _, _ := strings.Cut(strings.TrimPrefix(rest, ":"), " ")
	for _, name := range strings.Split(names, ",") {
		if name == analyzerName {
			return true
		}
	}
	return false
}

func report(pass *analysis.Pass, suppressed map[lineKey]bool, pos token.Pos, msg string) {
	p := pass.Fset.Position(pos)
	if suppressed[lineKey{p.Filename, p.Line}] {
		return
	}
	pass.Reportf(pos, "%s", msg)
}
