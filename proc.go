// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package ecmac

import "context"

type cmdKind int

const (
	cmdPeek cmdKind = iota
	cmdConsume
	cmdPosition
)

// procResult carries back whichever of item/cursor/err is relevant to the
// command that produced it.
type procResult[I any] struct {
	item   I
	cursor int
	err    error
}

type procRequest[I any] struct {
	kind   cmdKind
	setPos *int
	resp   chan procResult[I]
}

// Proc is a coroutine's view of its input stream: the three primitive
// commands spec.md §4.2 defines (Peek, Consume, Position), each a blocking
// round-trip to the Engine driving it. A Proc is only ever used by the
// single goroutine running the coroutine it was handed to.
type Proc[I any] struct {
	reqs chan procRequest[I]
	ctx  context.Context
}

func (p *Proc[I]) roundTrip(kind cmdKind, setPos *int) procResult[I] {
	resp := make(chan procResult[I], 1)
	select {
	case p.reqs <- procRequest[I]{kind: kind, setPos: setPos, resp: resp}:
	case <-p.ctx.Done():
		return procResult[I]{err: p.ctx.Err()}
	}
	select {
	case r := <-resp:
		return r
	case <-p.ctx.Done():
		return procResult[I]{err: p.ctx.Err()}
	}
}

// Peek returns the item at the current cursor without advancing it. It
// returns EndOfStream once the cursor has reached terminal end-of-input.
func (p *Proc[I]) Peek() (I, error) {
	r := p.roundTrip(cmdPeek, nil)
	return r.item, r.err
}

// Consume returns the item at the current cursor and advances it by one.
func (p *Proc[I]) Consume() (I, error) {
	r := p.roundTrip(cmdConsume, nil)
	return r.item, r.err
}

// Position returns the current cursor. If newPos is supplied, the cursor
// is first set to newPos[0]; the value returned is always the cursor as
// it stood *before* any such update, matching the common
// "save := p.Position(); ...; p.Position(save)" restore idiom.
func (p *Proc[I]) Position(newPos ...int) int {
	var sp *int
	if len(newPos) > 0 {
		sp = &newPos[0]
	}
	r := p.roundTrip(cmdPosition, sp)
	return r.cursor
}

// TryPeek is Peek without the error return: ok is false at end-of-stream.
func (p *Proc[I]) TryPeek() (item I, ok bool) {
	v, err := p.Peek()
	if err != nil {
		return item, false
	}
	return v, true
}

// TryConsume is Consume without the error return: ok is false at
// end-of-stream.
func (p *Proc[I]) TryConsume() (item I, ok bool) {
	v, err := p.Consume()
	if err != nil {
		return item, false
	}
	return v, true
}
