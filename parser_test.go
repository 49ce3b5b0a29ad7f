// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package ecmac_test

import (
	"context"
	"testing"
	"time"

	"github.com/anluin/ecmac"
)

func parseAll(t *testing.T, src string) ([]ecmac.Node, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cps := ecmac.CodePoints([]ecmac.TextChunk{{Text: src}}, "file:///t.js", ecmac.Cursor{})
	cpIn := make(chan []ecmac.CodePoint, 1)
	cpIn <- cps
	close(cpIn)

	lx := ecmac.NewLexer(ctx, "file:///t.js", nil)
	tokCh, lexErrc := lx.Engine().Run(ctx, cpIn)

	ps := ecmac.NewParser("file:///t.js", nil)
	nodeCh, parseErrc := ps.Engine().Run(ctx, tokCh)

	var nodes []ecmac.Node
	var err error
	for nodeCh != nil || parseErrc != nil || lexErrc != nil {
		select {
		case batch, ok := <-nodeCh:
			if !ok {
				nodeCh = nil
				continue
			}
			nodes = append(nodes, batch...)
		case e, ok := <-parseErrc:
			if !ok {
				parseErrc = nil
				continue
			}
			if e != nil && err == nil {
				err = e
			}
		case e, ok := <-lexErrc:
			if !ok {
				lexErrc = nil
				continue
			}
			if e != nil && err == nil {
				err = e
			}
		}
	}
	return nodes, err
}

func TestParseBareIdentifierStatement(t *testing.T) {
	nodes, err := parseAll(t, "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(nodes))
	}
	stmt, ok := nodes[0].(*ecmac.ExpressionStatementNode)
	if !ok {
		t.Fatalf("got %T, want *ExpressionStatementNode", nodes[0])
	}
	if stmt.Semicolon != nil {
		t.Fatalf("expected no semicolon")
	}
	id, ok := stmt.Expression.(*ecmac.IdentifierNode)
	if !ok || id.Name != "x" {
		t.Fatalf("got %+v, want Identifier(\"x\")", stmt.Expression)
	}
}

func TestParseIdentifierStatementWithSemicolon(t *testing.T) {
	nodes, err := parseAll(t, "x;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stmt := nodes[0].(*ecmac.ExpressionStatementNode)
	if stmt.Semicolon == nil || stmt.Semicolon.Payload != ";" {
		t.Fatalf("expected a ';' semicolon, got %+v", stmt.Semicolon)
	}
}

func TestParseMethodCall(t *testing.T) {
	nodes, err := parseAll(t, `console.log("hi")`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stmt := nodes[0].(*ecmac.ExpressionStatementNode)
	call, ok := stmt.Expression.(*ecmac.CallExpressionNode)
	if !ok {
		t.Fatalf("got %T, want *CallExpressionNode", stmt.Expression)
	}
	member, ok := call.Callee.(*ecmac.MemberExpressionNode)
	if !ok {
		t.Fatalf("got %T, want *MemberExpressionNode", call.Callee)
	}
	obj, ok := member.Object.(*ecmac.IdentifierNode)
	if !ok || obj.Name != "console" {
		t.Fatalf("got %+v, want Identifier(\"console\")", member.Object)
	}
	if member.Property.Name != "log" {
		t.Fatalf("got property %q, want %q", member.Property.Name, "log")
	}
	if len(call.Args) != 1 {
		t.Fatalf("got %d args, want 1", len(call.Args))
	}
	lit, ok := call.Args[0].Expression.(*ecmac.StringLiteralNode)
	if !ok || lit.Value != `"hi"` {
		t.Fatalf("got %+v, want StringLiteral(\"hi\")", call.Args[0].Expression)
	}
	if call.Args[0].Comma != nil {
		t.Fatalf("expected no trailing comma")
	}
}

func TestParseNestedMemberExpression(t *testing.T) {
	nodes, err := parseAll(t, "a.b.c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stmt := nodes[0].(*ecmac.ExpressionStatementNode)
	outer, ok := stmt.Expression.(*ecmac.MemberExpressionNode)
	if !ok || outer.Property.Name != "c" {
		t.Fatalf("got %+v, want MemberExpression(..., \"c\")", stmt.Expression)
	}
	inner, ok := outer.Object.(*ecmac.MemberExpressionNode)
	if !ok || inner.Property.Name != "b" {
		t.Fatalf("got %+v, want MemberExpression(..., \"b\")", outer.Object)
	}
	base, ok := inner.Object.(*ecmac.IdentifierNode)
	if !ok || base.Name != "a" {
		t.Fatalf("got %+v, want Identifier(\"a\")", inner.Object)
	}
}

func TestParseCallWithTrailingComma(t *testing.T) {
	nodes, err := parseAll(t, "f(a, b,)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stmt := nodes[0].(*ecmac.ExpressionStatementNode)
	call := stmt.Expression.(*ecmac.CallExpressionNode)
	if len(call.Args) != 2 {
		t.Fatalf("got %d args, want 2", len(call.Args))
	}
	for i, arg := range call.Args {
		if arg.Comma == nil || arg.Comma.Payload != "," {
			t.Fatalf("arg[%d] missing comma", i)
		}
	}
}

func TestParseTruncatedCallIsFatal(t *testing.T) {
	_, err := parseAll(t, "f(a,")
	if err == nil {
		t.Fatalf("expected a fatal diagnostic for the truncated call")
	}
	if !ecmac.IsFatal(err) {
		t.Fatalf("got %v, want a fatal error", err)
	}
}

func TestNodeSpanAroundsFirstAndLastToken(t *testing.T) {
	nodes, err := parseAll(t, "x;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stmt := nodes[0].(*ecmac.ExpressionStatementNode)
	toks := stmt.Tokens()
	want := ecmac.Around(toks[0].Span, toks[len(toks)-1].Span)
	if !stmt.Span().Equal(want) {
		t.Fatalf("got span %+v, want %+v", stmt.Span(), want)
	}
}
