// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package textdecode turns a byte stream into the TextChunk batches the
// code-point stage consumes, auto-detecting a leading UTF BOM and falling
// back to UTF-8 (spec's external-interfaces pipeline: "byte source → text
// decoder → code-point stream").
package textdecode

import (
	"context"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/anluin/ecmac"
)

// Decoder decodes a byte stream into text. The zero value is ready to use.
type Decoder struct{}

// New builds a Decoder.
func New() *Decoder {
	return &Decoder{}
}

// Stream reads r, decodes it, and emits one TextChunk batch per underlying
// read. The channel closes when r is exhausted or ctx is cancelled.
func (d *Decoder) Stream(ctx context.Context, r io.Reader) <-chan []ecmac.TextChunk {
	out := make(chan []ecmac.TextChunk)
	go func() {
		defer close(out)

		tr := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
		buf := make([]byte, 4096)
		var pending []byte

		emit := func(text string) bool {
			if text == "" {
				return true
			}
			select {
			case out <- []ecmac.TextChunk{{Text: text}}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			n, err := tr.Read(buf)
			if n > 0 {
				pending = append(pending, buf[:n]...)
				text, rest := splitValidUTF8(pending)
				pending = rest
				if !emit(text) {
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					return
				}
				emit(string(pending))
				return
			}
		}
	}()
	return out
}

// splitValidUTF8 splits buf at the last byte offset known to end a
// complete rune, so a chunk boundary never falls inside a multi-byte code
// point: the caller carries the undecoded suffix forward to the next read.
func splitValidUTF8(buf []byte) (valid string, rest []byte) {
	if utf8.Valid(buf) {
		return string(buf), nil
	}
	for i := len(buf); i > 0 && len(buf)-i < utf8.UTFMax; i-- {
		if utf8.Valid(buf[:i]) {
			return string(buf[:i]), append([]byte(nil), buf[i:]...)
		}
	}
	return "", buf
}
