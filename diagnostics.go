// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package ecmac

import "fmt"

// Diagnostic is the single format every fatal error surfaces as, per
// spec.md §6/§7: "{source-url}:{line+1}:{column+1}: {message}", 1-based
// for display even though cursors stay 0-based internally.
type Diagnostic struct {
	Span    Span
	Message string
	cause   error
}

// NewDiagnostic builds a Diagnostic anchored at span's beginning.
func NewDiagnostic(span Span, message string) *Diagnostic {
	return &Diagnostic{Span: span, Message: message}
}

// Wrap attaches cause as the underlying error (for errors.Unwrap), while
// keeping message as the user-facing text.
func (d *Diagnostic) Wrap(cause error) *Diagnostic {
	d.cause = cause
	return d
}

func (d *Diagnostic) Error() string {
	url := d.Span.SourceURL
	if url == "" {
		url = "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d: %s", url, d.Span.Begin.Line+1, d.Span.Begin.Column+1, d.Message)
}

func (d *Diagnostic) Unwrap() error { return d.cause }
