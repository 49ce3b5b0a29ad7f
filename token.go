package ecmac

import "strings"

// TokenKind is a bitmask-capable enumeration so callers can match groups
// (e.g. "any literal", "any comment") with a single predicate, per
// spec.md §3.
type TokenKind uint32

const (
	End TokenKind = 1 << iota
	Integer
	Float
	String
	Punctuator
	Identifier
	LineComment
	BlockComment
	Template
	TemplateHead
	TemplateMiddle
	TemplateTail
	RegExp
	LineTerminator
	Whitespace
	Unknown

	// Number, Literal and Comment are unions over the bits above.
	Number  = Integer | Float
	Literal = Number | String
	Comment = LineComment | BlockComment
)

var kindNames = map[TokenKind]string{
	End:            "End",
	Integer:        "Integer",
	Float:          "Float",
	String:         "String",
	Punctuator:     "Punctuator",
	Identifier:     "Identifier",
	LineComment:    "LineComment",
	BlockComment:   "BlockComment",
	Template:       "Template",
	TemplateHead:   "TemplateHead",
	TemplateMiddle: "TemplateMiddle",
	TemplateTail:   "TemplateTail",
	RegExp:         "RegExp",
	LineTerminator: "LineTerminator",
	Whitespace:     "Whitespace",
	Unknown:        "Unknown",
}

// String renders a kind, or a '|'-joined list for a union of bits that
// isn't one of the single named kinds.
func (k TokenKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	var parts []string
	for bit := TokenKind(1); bit != 0; bit <<= 1 {
		if k&bit != 0 {
			if name, ok := kindNames[bit]; ok {
				parts = append(parts, name)
			}
		}
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, "|")
}

// Is reports whether k has any bit of group set, e.g. tok.Kind.Is(Literal).
func (k TokenKind) Is(group TokenKind) bool {
	return k&group != 0
}

// Token is a tagged variant over TokenKind with the matched lexeme and the
// span it occupies.
type Token struct {
	Kind    TokenKind
	Payload string
	Span    Span
}

// Is reports whether tok's kind is in the given group. A nil receiver
// reports false.
func (t *Token) Is(group TokenKind) bool {
	if t == nil {
		return false
	}
	return t.Kind.Is(group)
}
