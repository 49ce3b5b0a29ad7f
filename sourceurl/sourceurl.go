// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package sourceurl resolves whatever a caller passes as a program's
// location into the canonical source URL that gets stamped onto every
// span and surfaced in diagnostics (spec's external-interfaces rule: bare
// "/" or "./" is a file path, "scheme://..." is already a URL, anything
// else is treated as inline source text and wrapped in a data URL).
package sourceurl

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
)

// Resolve turns loc into a source URL. It never touches the filesystem or
// network: resolving a file path to an absolute one is pure string work,
// and scheme detection only looks at loc's own text.
func Resolve(loc string) string {
	switch {
	case strings.HasPrefix(loc, "/") || strings.HasPrefix(loc, "./") || strings.HasPrefix(loc, "../"):
		abs, err := filepath.Abs(loc)
		if err != nil {
			abs = loc
		}
		return "file://" + filepath.ToSlash(abs)
	case hasScheme(loc):
		return loc
	default:
		return inlineDataURL(loc)
	}
}

// hasScheme reports whether loc begins with "scheme://" for some
// RFC 3986 scheme token (letters, digits, +, -, . after the first letter).
func hasScheme(loc string) bool {
	i := strings.Index(loc, "://")
	if i <= 0 {
		return false
	}
	scheme := loc[:i]
	for j, r := range scheme {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case j > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// inlineDataURL wraps loc itself (treated as ECMAScript source text, not a
// location) in a base64url "data:" URL, so that a diagnostic anchored on
// it still prints something stable and self-contained rather than an
// empty or made-up path.
func inlineDataURL(loc string) string {
	return fmt.Sprintf("data:application/javascript;base64,%s", base64.URLEncoding.EncodeToString([]byte(loc)))
}
