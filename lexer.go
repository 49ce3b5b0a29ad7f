// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package ecmac

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
)

// Lexer holds the ECMAScript-specific lexer state that spans successive
// engine invocations of its dispatch coroutine: the template-literal
// "gap" mode (spec.md §4.3), realized here as a stack of open-template
// brace-nesting counters rather than a single flag, so that an object
// literal or block nested inside a `${...}` substitution doesn't get
// mistaken for the substitution's closing brace; and the regex/division
// goal-symbol flag spec.md §9 calls for.
//
// spec.md §9's Open Question frames that flag as something "the
// syntactic stage" toggles "after each non-whitespace token". A literal
// reading would have Parser call a setter on Lexer — but the Engine in
// this tree pipelines the two stages (engine.go starts scanning token
// N+1 the instant token N is handed off, not when the parser has
// finished reacting to it), so a cross-goroutine setter would race
// against the lexer's own next scan with no ordering guarantee between
// them. regexAllowed is instead maintained here, synchronously, from
// the one sequence of tokens this Lexer itself has produced so far
// (which it already knows authoritatively, one token at a time, with
// no concurrency internal to a single Lexer): regardless of how fast or
// slow the syntactic stage drains them, this is the same previous-token
// category the syntactic stage would have reported, just read off the
// producer instead of threaded in from the consumer.
type Lexer struct {
	sourceURL          string
	templateBraceDepth []int
	regexAllowed       bool
	ctx                context.Context
	logger             *slog.Logger
}

// NewLexer builds a Lexer for the given source URL, stamped onto every
// emitted token's span for diagnostics. logger receives Debug/Error
// events for diagnostic-worthy lexical events (unknown code points,
// fatal diagnostics); a nil logger disables logging, same as
// mdhender/tnrpt's Lexer.debug/Lexer.error. A bare "/" at the very start
// of the stream is assumed to open a regular expression, since there is
// no previous token to rule it out.
func NewLexer(ctx context.Context, sourceURL string, logger *slog.Logger) *Lexer {
	return &Lexer{sourceURL: sourceURL, regexAllowed: true, ctx: ctx, logger: logger}
}

// regexAllowedAfter reports whether a bare "/" immediately following tok
// opens a RegExp literal (true) or is a division punctuator (false): a
// "/" can't start a value right after something that already produced
// one (an identifier, a literal, a closing ")" or "]", a RegExp
// literal, or a template literal's closing segment).
func regexAllowedAfter(tok Token) bool {
	switch {
	case tok.Kind.Is(Identifier | Integer | Float | String | RegExp | Template | TemplateTail):
		return false
	case tok.Kind == Punctuator && (tok.Payload == ")" || tok.Payload == "]"):
		return false
	default:
		return true
	}
}

func (lx *Lexer) debugf(format string, args ...any) {
	if lx.logger == nil {
		return
	}
	lx.logger.Debug(fmt.Sprintf(format, args...), "source_url", lx.sourceURL)
}

func (lx *Lexer) errorf(format string, args ...any) {
	if lx.logger == nil {
		return
	}
	lx.logger.Error(fmt.Sprintf(format, args...), "source_url", lx.sourceURL)
}

// Engine returns the parser engine that drives this lexer's dispatch
// coroutine over a stream of CodePoint batches, producing Token batches.
func (lx *Lexer) Engine() *Engine[CodePoint, Token] {
	return NewEngine(func() CoroutineFunc[CodePoint, Token] {
		return lx.scan
	})
}

// tokenBuilder accumulates the payload and span of a token as codepoints
// are consumed for it.
type tokenBuilder struct {
	begin   Span
	end     Span
	payload strings.Builder
	started bool
}

func (tb *tokenBuilder) consume(cp CodePoint) {
	if !tb.started {
		tb.begin = cp.Span
		tb.started = true
	}
	tb.end = cp.Span
	tb.payload.WriteRune(cp.Value)
}

func (tb *tokenBuilder) token(kind TokenKind) Token {
	return Token{Kind: kind, Payload: tb.payload.String(), Span: Around(tb.begin, tb.end)}
}

// span is the span covered so far, for anchoring a diagnostic raised
// mid-scan.
func (tb *tokenBuilder) span() Span {
	return Around(tb.begin, tb.end)
}

// scan is the coroutine registered with Engine: it dispatches one token
// via dispatch, then updates the regex/division goal-symbol flag from
// it before returning, so the next invocation sees the right context
// for a bare "/" (see the Lexer doc comment).
func (lx *Lexer) scan(p *Proc[CodePoint]) (Token, error) {
	tok, err := lx.dispatch(p)
	if err != nil {
		return tok, err
	}
	if !isTriviaToken(tok) {
		lx.regexAllowed = regexAllowedAfter(tok)
	}
	return tok, nil
}

// dispatch selects the matching rule from spec.md §4.3's
// priority-ordered rule list and drives it to completion, given the
// first code point of the next token.
func (lx *Lexer) dispatch(p *Proc[CodePoint]) (Token, error) {
	cp, err := p.Peek()
	if err != nil {
		return Token{}, err
	}
	r := cp.Value

	if n := len(lx.templateBraceDepth); n > 0 && lx.templateBraceDepth[n-1] == 0 && r == '}' {
		return lx.scanTemplateContinuation(p)
	}

	switch {
	case r == '"' || r == '\'':
		return lx.scanString(p)
	case r == '`':
		return lx.scanTemplateStart(p)
	case r == '/':
		return lx.scanSlash(p)
	case isDecimalDigit(r):
		return scanNumber(p)
	case isIdentifierStart(r):
		return scanIdentifier(p)
	case isPunctuatorRune(r):
		tok, err := scanPunctuator(p)
		if err == nil {
			if n := len(lx.templateBraceDepth); n > 0 {
				switch tok.Payload {
				case "{":
					lx.templateBraceDepth[n-1]++
				case "}":
					lx.templateBraceDepth[n-1]--
				}
			}
		}
		return tok, err
	case isLineTerminator(r):
		return scanLineTerminatorRun(p)
	case isWhitespace(r):
		return scanWhitespaceRun(p)
	default:
		return lx.scanUnknown(p)
	}
}

// scanString implements spec.md §4.3 rule 1: opens with a quote,
// consumes until the matching quote, backslash escapes the next code
// point unconditionally, and an embedded line terminator is fatal
// (unterminated string literal).
func (lx *Lexer) scanString(p *Proc[CodePoint]) (Token, error) {
	quote, err := p.Consume()
	if err != nil {
		return Token{}, err
	}
	var tb tokenBuilder
	tb.consume(quote)
	for {
		cp, err := p.Consume()
		if err != nil {
			lx.errorf("unterminated string literal at %s", tb.span().Begin)
			return Token{}, Fatal(NewDiagnostic(tb.span(), "unterminated string literal"))
		}
		if isLineTerminator(cp.Value) {
			lx.errorf("unterminated string literal at %s", tb.span().Begin)
			return Token{}, Fatal(NewDiagnostic(tb.span(), "unterminated string literal"))
		}
		tb.consume(cp)
		if cp.Value == '\\' {
			esc, err := p.Consume()
			if err != nil {
				lx.errorf("unterminated string literal at %s", tb.span().Begin)
				return Token{}, Fatal(NewDiagnostic(tb.span(), "unterminated string literal"))
			}
			tb.consume(esc)
			continue
		}
		if cp.Value == quote.Value {
			return tb.token(String), nil
		}
	}
}

// scanTemplateStart consumes a template literal from its opening
// backtick, either to its closing backtick (a self-contained Template
// token) or to a `${` substitution opener (a TemplateHead), at which
// point it pushes a new brace-depth counter and enters gap mode.
func (lx *Lexer) scanTemplateStart(p *Proc[CodePoint]) (Token, error) {
	backtick, err := p.Consume()
	if err != nil {
		return Token{}, err
	}
	var tb tokenBuilder
	tb.consume(backtick)
	for {
		cp, err := p.Consume()
		if err != nil {
			lx.errorf("unterminated template literal at %s", tb.span().Begin)
			return Token{}, Fatal(NewDiagnostic(tb.span(), "unterminated template literal"))
		}
		tb.consume(cp)
		switch {
		case cp.Value == '\\':
			esc, err := p.Consume()
			if err != nil {
				lx.errorf("unterminated template literal at %s", tb.span().Begin)
				return Token{}, Fatal(NewDiagnostic(tb.span(), "unterminated template literal"))
			}
			tb.consume(esc)
		case cp.Value == '`':
			return tb.token(Template), nil
		case cp.Value == '$':
			if dollar, ok := p.TryPeek(); ok && dollar.Value == '{' {
				brace, _ := p.Consume()
				tb.consume(brace)
				lx.templateBraceDepth = append(lx.templateBraceDepth, 0)
				return tb.token(TemplateHead), nil
			}
		}
	}
}

// scanTemplateContinuation resumes string-literal-style scanning at the
// `}` that closes a substitution's expression, emitting TemplateMiddle
// if another `${` follows or TemplateTail if the template's closing
// backtick follows, popping the brace-depth counter in the latter case.
func (lx *Lexer) scanTemplateContinuation(p *Proc[CodePoint]) (Token, error) {
	brace, err := p.Consume()
	if err != nil {
		return Token{}, err
	}
	var tb tokenBuilder
	tb.consume(brace)
	for {
		cp, err := p.Consume()
		if err != nil {
			lx.errorf("unterminated template literal at %s", tb.span().Begin)
			return Token{}, Fatal(NewDiagnostic(tb.span(), "unterminated template literal"))
		}
		tb.consume(cp)
		switch {
		case cp.Value == '\\':
			esc, err := p.Consume()
			if err != nil {
				lx.errorf("unterminated template literal at %s", tb.span().Begin)
				return Token{}, Fatal(NewDiagnostic(tb.span(), "unterminated template literal"))
			}
			tb.consume(esc)
		case cp.Value == '`':
			lx.templateBraceDepth = lx.templateBraceDepth[:len(lx.templateBraceDepth)-1]
			return tb.token(TemplateTail), nil
		case cp.Value == '$':
			if dollar, ok := p.TryPeek(); ok && dollar.Value == '{' {
				b2, _ := p.Consume()
				tb.consume(b2)
				return tb.token(TemplateMiddle), nil
			}
		}
	}
}

// scanSlash resolves the rule-6 "/" dispatch plus the regex/division
// ambiguity spec.md §4.3 and §9 raise. Line and block comments are
// unambiguous given one code point of lookahead, so they're tried
// first; between the two remaining readings of a bare "/"
// (DivPunctuator and RegExpLiteral) this lexer defers to lx.regexAllowed
// — the previous-significant-token category tracked by scan, per §9's
// Open Question — rather than picking whichever production happens to
// consume more code points: Furthest would read ordinary division
// syntax like "a/b/" as a single regex literal, since "/b/" is longer
// than "/" alone.
func (lx *Lexer) scanSlash(p *Proc[CodePoint]) (Token, error) {
	return First(p,
		scanLineComment,
		lx.scanBlockComment,
		func(p *Proc[CodePoint]) (Token, error) {
			if lx.regexAllowed {
				return scanRegExpLiteral(p)
			}
			return scanDivPunctuator(p)
		},
	)
}

func scanLineComment(p *Proc[CodePoint]) (Token, error) {
	slash, err := p.Consume()
	if err != nil {
		return Token{}, err
	}
	if slash.Value != '/' {
		return Token{}, fmt.Errorf("not a comment")
	}
	second, ok := p.TryPeek()
	if !ok || second.Value != '/' {
		return Token{}, fmt.Errorf("not a line comment")
	}
	p.Consume()
	var tb tokenBuilder
	tb.consume(slash)
	tb.consume(second)
	for {
		cp, ok := p.TryPeek()
		if !ok || isLineTerminator(cp.Value) {
			break
		}
		p.Consume()
		tb.consume(cp)
	}
	return tb.token(LineComment), nil
}

func (lx *Lexer) scanBlockComment(p *Proc[CodePoint]) (Token, error) {
	slash, err := p.Consume()
	if err != nil {
		return Token{}, err
	}
	if slash.Value != '/' {
		return Token{}, fmt.Errorf("not a comment")
	}
	star, ok := p.TryPeek()
	if !ok || star.Value != '*' {
		return Token{}, fmt.Errorf("not a block comment")
	}
	p.Consume()
	var tb tokenBuilder
	tb.consume(slash)
	tb.consume(star)
	for {
		cp, err := p.Consume()
		if err != nil {
			lx.errorf("unterminated block comment at %s", tb.span().Begin)
			return Token{}, Fatal(NewDiagnostic(tb.span(), "unterminated block comment"))
		}
		tb.consume(cp)
		if cp.Value == '*' {
			if next, ok := p.TryPeek(); ok && next.Value == '/' {
				closeSlash, _ := p.Consume()
				tb.consume(closeSlash)
				return tb.token(BlockComment), nil
			}
		}
	}
}

func scanDivPunctuator(p *Proc[CodePoint]) (Token, error) {
	slash, err := p.Consume()
	if err != nil {
		return Token{}, err
	}
	if slash.Value != '/' {
		return Token{}, fmt.Errorf("not a slash")
	}
	var tb tokenBuilder
	tb.consume(slash)
	if eq, ok := p.TryPeek(); ok && eq.Value == '=' {
		e, _ := p.Consume()
		tb.consume(e)
	}
	return tb.token(Punctuator), nil
}

func scanRegExpLiteral(p *Proc[CodePoint]) (Token, error) {
	open, err := p.Consume()
	if err != nil {
		return Token{}, err
	}
	if open.Value != '/' {
		return Token{}, fmt.Errorf("not a regexp")
	}
	var tb tokenBuilder
	tb.consume(open)
	inClass := false
body:
	for {
		cp, err := p.Consume()
		if err != nil {
			return Token{}, fmt.Errorf("unterminated regular expression literal")
		}
		if isLineTerminator(cp.Value) {
			return Token{}, fmt.Errorf("unterminated regular expression literal")
		}
		tb.consume(cp)
		switch cp.Value {
		case '\\':
			esc, err := p.Consume()
			if err != nil || isLineTerminator(esc.Value) {
				return Token{}, fmt.Errorf("unterminated regular expression literal")
			}
			tb.consume(esc)
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if !inClass {
				break body
			}
		}
	}
	for {
		cp, ok := p.TryPeek()
		if !ok || !isIdentifierContinue(cp.Value) {
			break
		}
		p.Consume()
		tb.consume(cp)
	}
	return tb.token(RegExp), nil
}

// isPunctuatorRune reports whether r can begin one of spec.md §4.3's
// punctuator alphabet (excluding '/', handled by scanSlash).
func isPunctuatorRune(r rune) bool {
	switch r {
	case '{', '}', '(', ')', '[', ']', '.', ';', ',', '~', '?', ':',
		'<', '>', '=', '!', '+', '-', '*', '%', '&', '|', '^':
		return true
	}
	return false
}

// scanPunctuator is the hand-rolled maximal-munch decision tree from
// spec.md §4.3 rule 2.
func scanPunctuator(p *Proc[CodePoint]) (Token, error) {
	first, err := p.Consume()
	if err != nil {
		return Token{}, err
	}
	var tb tokenBuilder
	tb.consume(first)

	peekIs := func(r rune) bool {
		cp, ok := p.TryPeek()
		return ok && cp.Value == r
	}
	take := func() {
		cp, _ := p.Consume()
		tb.consume(cp)
	}

	switch first.Value {
	case '{', '}', '(', ')', '[', ']', '.', ';', ',', '~', '?', ':':
		// single-character punctuators in this grammar subset.
	case '<':
		if peekIs('<') {
			take()
			if peekIs('=') {
				take()
			}
		} else if peekIs('=') {
			take()
		}
	case '>':
		if peekIs('>') {
			take()
			if peekIs('>') {
				take()
				if peekIs('=') {
					take()
				}
			} else if peekIs('=') {
				take()
			}
		} else if peekIs('=') {
			take()
		}
	case '=':
		if peekIs('=') {
			take()
			if peekIs('=') {
				take()
			}
		}
	case '!':
		if peekIs('=') {
			take()
			if peekIs('=') {
				take()
			}
		}
	case '+':
		if peekIs('+') || peekIs('=') {
			take()
		}
	case '-':
		if peekIs('-') || peekIs('=') {
			take()
		}
	case '*':
		if peekIs('=') {
			take()
		}
	case '%':
		if peekIs('=') {
			take()
		}
	case '&':
		if peekIs('&') || peekIs('=') {
			take()
		}
	case '|':
		if peekIs('|') || peekIs('=') {
			take()
		}
	case '^':
		if peekIs('=') {
			take()
		}
	default:
		return Token{}, fmt.Errorf("%q is not a punctuator", first.Value)
	}
	return tb.token(Punctuator), nil
}

func isWhitespace(r rune) bool {
	switch r {
	case 0x0009, 0x000B, 0x000C, 0x0020, 0x00A0, 0xFEFF, 0x205F, 0x3000:
		return true
	}
	return r >= 0x2000 && r <= 0x200F
}

func scanWhitespaceRun(p *Proc[CodePoint]) (Token, error) {
	first, err := p.Consume()
	if err != nil {
		return Token{}, err
	}
	var tb tokenBuilder
	tb.consume(first)
	for {
		cp, ok := p.TryPeek()
		if !ok || !isWhitespace(cp.Value) {
			break
		}
		p.Consume()
		tb.consume(cp)
	}
	return tb.token(Whitespace), nil
}

func isLineTerminator(r rune) bool {
	switch r {
	case 0x000A, 0x000D, 0x2028, 0x2029:
		return true
	}
	return false
}

func scanLineTerminatorRun(p *Proc[CodePoint]) (Token, error) {
	first, err := p.Consume()
	if err != nil {
		return Token{}, err
	}
	var tb tokenBuilder
	tb.consume(first)
	for {
		cp, ok := p.TryPeek()
		if !ok || !isLineTerminator(cp.Value) {
			break
		}
		p.Consume()
		tb.consume(cp)
	}
	return tb.token(LineTerminator), nil
}

func isIdentifierStart(r rune) bool {
	return r == '$' || r == '_' || unicode.IsLetter(r)
}

func isIdentifierContinue(r rune) bool {
	if isIdentifierStart(r) || unicode.IsDigit(r) {
		return true
	}
	if unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r) || unicode.Is(unicode.Pc, r) {
		return true
	}
	return r == 0x200C || r == 0x200D // ZWNJ, ZWJ
}

func scanIdentifier(p *Proc[CodePoint]) (Token, error) {
	first, err := p.Consume()
	if err != nil {
		return Token{}, err
	}
	var tb tokenBuilder
	tb.consume(first)
	for {
		cp, ok := p.TryPeek()
		if !ok || !isIdentifierContinue(cp.Value) {
			break
		}
		p.Consume()
		tb.consume(cp)
	}
	return tb.token(Identifier), nil
}

func isDecimalDigit(r rune) bool { return r >= '0' && r <= '9' }

// scanNumber implements the Open Question's resolution (DESIGN.md):
// decimal digits, plus an optional single '.' followed by more digits
// for Float. No exponents, radix prefixes, BigInt suffix or digit
// separators.
func scanNumber(p *Proc[CodePoint]) (Token, error) {
	first, err := p.Consume()
	if err != nil {
		return Token{}, err
	}
	var tb tokenBuilder
	tb.consume(first)
	for {
		cp, ok := p.TryPeek()
		if !ok || !isDecimalDigit(cp.Value) {
			break
		}
		p.Consume()
		tb.consume(cp)
	}
	kind := Integer
	save := p.Position()
	if dot, ok := p.TryConsume(); ok && dot.Value == '.' {
		if digit, ok := p.TryPeek(); ok && isDecimalDigit(digit.Value) {
			tb.consume(dot)
			kind = Float
			for {
				cp, ok := p.TryPeek()
				if !ok || !isDecimalDigit(cp.Value) {
					break
				}
				p.Consume()
				tb.consume(cp)
			}
		} else {
			p.Position(save)
		}
	} else if ok {
		p.Position(save)
	}
	return tb.token(kind), nil
}

func (lx *Lexer) scanUnknown(p *Proc[CodePoint]) (Token, error) {
	cp, err := p.Consume()
	if err != nil {
		return Token{}, err
	}
	var tb tokenBuilder
	tb.consume(cp)
	lx.debugf("unknown code point %q at %s", cp.Value, tb.span().Begin)
	return tb.token(Unknown), nil
}
