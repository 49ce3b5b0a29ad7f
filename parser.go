// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package ecmac

import (
	"fmt"
	"log/slog"
)

// modifierProduction extends a previously-parsed expression (e.g. `.x` or
// `(args)` following a callee). Registered by concrete modifiers against
// Expression, per spec.md §4.4's "Registration" rule. Each production
// takes the owning Parser explicitly (rather than closing over it) so
// the module-level registration tables below can stay plain var/init
// state shared by every Parser instance.
type modifierProduction func(ps *Parser, p *Proc[Token], prev Node) (Node, error)

// statementProduction is a top-level statement variant, registered
// against Statement.
type statementProduction func(ps *Parser, p *Proc[Token]) (Node, error)

// expressionModifiers and statementVariants are the module-level,
// read-only-after-init registration tables spec.md §9 prescribes in
// place of the source's class-hierarchy self-registration: populated
// once below, never mutated again.
var expressionModifiers []modifierProduction
var statementVariants []statementProduction

func registerExpressionModifier(fn modifierProduction) {
	expressionModifiers = append(expressionModifiers, fn)
}

func registerStatementVariant(fn statementProduction) {
	statementVariants = append(statementVariants, fn)
}

func init() {
	registerExpressionModifier(parseMemberExpressionModifier)
	registerExpressionModifier(parseCallExpressionModifier)
	registerStatementVariant(parseExpressionStatement)
}

// Parser drives the syntactic stage: a parser coroutine over Tokens
// producing one top-level Node per invocation (spec.md §4.4).
type Parser struct {
	sourceURL string
	logger    *slog.Logger
}

// NewParser builds a Parser over sourceURL, the same source location
// its lexer was built against (used only to tag log records). logger
// receives Error events for fatal diagnostics raised by the grammar
// (same convention as Lexer's); a nil logger disables logging.
func NewParser(sourceURL string, logger *slog.Logger) *Parser {
	return &Parser{sourceURL: sourceURL, logger: logger}
}

func (ps *Parser) errorf(format string, args ...any) {
	if ps.logger == nil {
		return
	}
	ps.logger.Error(fmt.Sprintf(format, args...), "source_url", ps.sourceURL)
}

// Engine returns the parser engine driving the syntactic stage.
func (ps *Parser) Engine() *Engine[Token, Node] {
	return NewEngine(func() CoroutineFunc[Token, Node] {
		return ps.parseStatement
	})
}

func isTriviaToken(t Token) bool {
	return t.Kind.Is(Comment | Whitespace | LineTerminator)
}

// peek looks at the next token without consuming it.
func (ps *Parser) peek(p *Proc[Token]) (Token, bool) {
	return p.TryPeek()
}

// consume is the raw token consumer every grammar production funnels
// through.
func (ps *Parser) consume(p *Proc[Token]) (Token, error) {
	return p.Consume()
}

func (ps *Parser) consumeKind(p *Proc[Token], match func(Token) bool, mismatch func(Token) error) (Token, error) {
	return ConsumeKind(p, match, mismatch)
}

// skipTrivia discards comments, whitespace and line terminators between
// grammar productions. These tokens are not attached to any node: the
// round-trip invariant (spec.md §3/§8) is stated at the token-stream
// level, which is unaffected by what the parser does with them.
func (ps *Parser) skipTrivia(p *Proc[Token]) {
	for {
		tok, ok := ps.peek(p)
		if !ok || !isTriviaToken(tok) {
			return
		}
		ps.consume(p)
	}
}

func isPunctuator(t Token, lexeme string) bool {
	return t.Kind == Punctuator && t.Payload == lexeme
}

// diagAt builds a Diagnostic anchored at whatever token p is currently
// sitting on, for the fatal productions below where the grammar has
// already committed and any further mismatch is a real syntax error
// rather than a candidate for backtracking.
func (ps *Parser) diagAt(p *Proc[Token], message string) error {
	if tok, ok := ps.peek(p); ok {
		return NewDiagnostic(tok.Span, message)
	}
	return NewDiagnostic(Span{}, message)
}

func (ps *Parser) fatalAt(p *Proc[Token], message string) error {
	err := Fatal(ps.diagAt(p, message))
	ps.errorf("%s", err)
	return err
}

// parseStatement is the top-level coroutine: skip leading trivia, then
// choose the first matching registered statement variant.
func (ps *Parser) parseStatement(p *Proc[Token]) (Node, error) {
	ps.skipTrivia(p)
	fns := make([]Production[Token, Node], len(statementVariants))
	for i, variant := range statementVariants {
		variant := variant
		fns[i] = func(p *Proc[Token]) (Node, error) { return variant(ps, p) }
	}
	return First(p, fns...)
}

func parseExpressionStatement(ps *Parser, p *Proc[Token]) (Node, error) {
	expr, err := ps.parseExpression(p)
	if err != nil {
		return nil, err
	}
	ps.skipTrivia(p)
	var semi *Token
	if tok, ok := ps.peek(p); ok && isPunctuator(tok, ";") {
		s, _ := ps.consume(p)
		semi = &s
	}
	return &ExpressionStatementNode{Expression: expr, Semicolon: semi}, nil
}

// parseExpression implements the left-recursion flattening spec.md §4.4
// describes: parse one PrimaryExpression, then repeatedly try each
// registered modifier against the expression built so far, stopping
// when none match.
func (ps *Parser) parseExpression(p *Proc[Token]) (Node, error) {
	ps.skipTrivia(p)
	expr, err := ps.parsePrimaryExpression(p)
	if err != nil {
		return nil, err
	}
	for {
		ps.skipTrivia(p)
		next, matched, err := ps.tryModifiers(p, expr)
		if err != nil {
			return nil, err
		}
		if !matched {
			return expr, nil
		}
		expr = next
	}
}

func (ps *Parser) tryModifiers(p *Proc[Token], prev Node) (Node, bool, error) {
	save := p.Position()
	for _, mod := range expressionModifiers {
		p.Position(save)
		next, err := mod(ps, p, prev)
		if err == nil {
			return next, true, nil
		}
		if IsFatal(err) {
			return nil, false, err
		}
	}
	p.Position(save)
	return nil, false, nil
}

func (ps *Parser) parsePrimaryExpression(p *Proc[Token]) (Node, error) {
	return First(p, ps.parseIdentifierExpression, ps.parseLiteralExpression)
}

func (ps *Parser) parseIdentifierExpression(p *Proc[Token]) (Node, error) {
	tok, err := ps.consumeKind(p, func(t Token) bool { return t.Kind == Identifier }, func(t Token) error {
		return fmt.Errorf("expected identifier, got %v", t.Kind)
	})
	if err != nil {
		return nil, err
	}
	return &IdentifierNode{Name: tok.Payload, Token: tok}, nil
}

func (ps *Parser) parseLiteralExpression(p *Proc[Token]) (Node, error) {
	return ps.parseStringLiteral(p)
}

func (ps *Parser) parseStringLiteral(p *Proc[Token]) (Node, error) {
	tok, err := ps.consumeKind(p, func(t Token) bool { return t.Kind == String }, func(t Token) error {
		return fmt.Errorf("expected string literal, got %v", t.Kind)
	})
	if err != nil {
		return nil, err
	}
	return &StringLiteralNode{Value: tok.Payload, Token: tok}, nil
}

// parseMemberExpressionModifier is `prev . Identifier`: the dot is
// recoverable, but once matched the identifier is mandatory (fatal).
func parseMemberExpressionModifier(ps *Parser, p *Proc[Token], prev Node) (Node, error) {
	dot, err := ps.consumeKind(p, func(t Token) bool { return isPunctuator(t, ".") }, func(t Token) error {
		return fmt.Errorf("expected '.'")
	})
	if err != nil {
		return nil, err
	}
	ps.skipTrivia(p)
	propNode, err := ps.parseIdentifierExpression(p)
	if err != nil {
		return nil, ps.fatalAt(p, "identifier expected after '.'")
	}
	return &MemberExpressionNode{Object: prev, Dot: dot, Property: propNode.(*IdentifierNode)}, nil
}

// parseCallExpressionModifier is `prev ( Argument,* )`: the opening
// paren is recoverable; once consumed, both the argument list and the
// closing paren are mandatory (fatal).
func parseCallExpressionModifier(ps *Parser, p *Proc[Token], prev Node) (Node, error) {
	open, err := ps.consumeKind(p, func(t Token) bool { return isPunctuator(t, "(") }, func(t Token) error {
		return fmt.Errorf("expected '('")
	})
	if err != nil {
		return nil, err
	}
	args, close, err := ps.parseArgumentsFatal(p)
	if err != nil {
		return nil, err
	}
	return &CallExpressionNode{Callee: prev, OpenParen: open, Args: args, CloseParen: close}, nil
}

// parseArgumentsFatal parses a call's argument list and closing paren.
// Every failure from here on is fatal: spec.md §4.4 says that once `(`
// is consumed, the rest of the call expression is mandatory.
func (ps *Parser) parseArgumentsFatal(p *Proc[Token]) ([]*CallArgumentNode, Token, error) {
	var args []*CallArgumentNode
	for {
		ps.skipTrivia(p)
		if tok, ok := ps.peek(p); ok && isPunctuator(tok, ")") {
			closeParen, _ := ps.consume(p)
			return args, closeParen, nil
		}
		arg, err := ps.parseCallArgument(p)
		if err != nil {
			return nil, Token{}, ps.fatalAt(p, "expression or ) expected")
		}
		args = append(args, arg)
		if arg.Comma == nil {
			ps.skipTrivia(p)
			closeParen, err := ps.consumeKind(p, func(t Token) bool { return isPunctuator(t, ")") }, func(t Token) error {
				return NewDiagnostic(t.Span, "expression or ) expected")
			})
			if err != nil {
				wrapped := Fatal(err)
				ps.errorf("%s", wrapped)
				return nil, Token{}, wrapped
			}
			return args, closeParen, nil
		}
	}
}

// parseCallArgument is Expression plus an optional trailing comma. A
// trailing comma before `)` is accepted (spec.md §4.4, scenario 5).
func (ps *Parser) parseCallArgument(p *Proc[Token]) (*CallArgumentNode, error) {
	expr, err := ps.parseExpression(p)
	if err != nil {
		return nil, err
	}
	ps.skipTrivia(p)
	if tok, ok := ps.peek(p); ok && isPunctuator(tok, ",") {
		comma, _ := ps.consume(p)
		return &CallArgumentNode{Expression: expr, Comma: &comma}, nil
	}
	return &CallArgumentNode{Expression: expr}, nil
}
