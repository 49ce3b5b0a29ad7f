// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package ecmac

// CodePoint is a single Unicode scalar value plus the span it occupies in
// the source. Surrogate pairs are not handled at this layer: input arrives
// already decoded to code-point granularity (see TextChunk).
type CodePoint struct {
	Value rune
	Span  Span
}

// TextChunk is a fragment of decoded text. Fragment boundaries may fall
// between any two code points but never inside one — the boundary owner
// (textdecode) guarantees this.
type TextChunk struct {
	Text string
}

// CodePoints decomposes a sequence of text chunks into code points,
// advancing cursor bookkeeping (§4.1): position advances by one per code
// point, column advances by one, and on U+000A column resets to zero and
// line increments. No other rune is treated as a line break at this layer.
//
// start is the cursor to begin numbering from (normally the zero cursor);
// sourceURL is stamped onto every emitted span.
func CodePoints(chunks []TextChunk, sourceURL string, start Cursor) []CodePoint {
	var out []CodePoint
	cur := start
	for _, chunk := range chunks {
		for _, r := range chunk.Text {
			next := cur.advance(r)
			out = append(out, CodePoint{
				Value: r,
				Span: Span{
					Begin:     cur,
					End:       next,
					SourceURL: sourceURL,
				},
			})
			cur = next
		}
	}
	return out
}

// CodePointStream incrementally converts a channel of TextChunk batches
// into a channel of CodePoint batches, one output batch per input batch,
// matching the "emit one batch per input fragment" backpressure rule in
// spec.md §4.1. The returned channel is closed once in is closed and
// drained, or immediately if ctx is cancelled.
func CodePointStream(ctx cancelContext, in <-chan []TextChunk, sourceURL string) <-chan []CodePoint {
	out := make(chan []CodePoint)
	go func() {
		defer close(out)
		cur := Cursor{}
		for {
			select {
			case <-ctx.Done():
				return
			case chunks, ok := <-in:
				if !ok {
					return
				}
				batch := CodePoints(chunks, sourceURL, cur)
				if len(batch) > 0 {
					cur = batch[len(batch)-1].Span.End
				}
				select {
				case out <- batch:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// cancelContext is the minimal surface CodePointStream needs from a
// context.Context; declared locally so this file has no direct "context"
// import dependency beyond what decode.go already wires through.
type cancelContext interface {
	Done() <-chan struct{}
}

// runeLen counts code points in s, the unit Span.Len measures a lexeme's
// span in (spec.md §3, invariant 3).
func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
