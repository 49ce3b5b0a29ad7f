// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package ecmac_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/anluin/ecmac"
)

func expectRune(r rune) ecmac.Production[rune, rune] {
	return func(p *ecmac.Proc[rune]) (rune, error) {
		v, err := p.Consume()
		if err != nil {
			return 0, err
		}
		if v != r {
			return 0, fmt.Errorf("expected %q, got %q", r, v)
		}
		return v, nil
	}
}

// runSingle drives a one-shot coroutine over runes and returns its result
// (the coroutine is expected to consume all of items and nothing more).
func runSingle(t *testing.T, items []rune, fn ecmac.CoroutineFunc[rune, string]) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	used := false
	eng := ecmac.NewEngine(func() ecmac.CoroutineFunc[rune, string] {
		if used {
			// Second invocation: with nothing left it meets end of input
			// before consuming anything, which the engine treats as a
			// clean end; any leftover items are consumed and the end of
			// input that follows is reported as an error.
			return func(p *ecmac.Proc[rune]) (string, error) {
				for {
					if _, err := p.Consume(); err != nil {
						return "", err
					}
				}
			}
		}
		used = true
		return fn
	})
	in := make(chan []rune, 1)
	in <- items
	close(in)
	outCh, errc := eng.Run(ctx, in)

	var result string
	var runErr error
	got := false
	for outCh != nil || errc != nil {
		select {
		case batch, ok := <-outCh:
			if !ok {
				outCh = nil
				continue
			}
			if len(batch) > 0 && !got {
				result = batch[0]
				got = true
			}
		case e, ok := <-errc:
			if !ok {
				errc = nil
				continue
			}
			runErr = e
		}
	}
	return result, runErr
}

func TestMaybeRestoresCursorOnFailure(t *testing.T) {
	fn := func(p *ecmac.Proc[rune]) (string, error) {
		if _, err := ecmac.Maybe(p, expectRune('x')); err == nil {
			t.Fatalf("expected failure matching 'x'")
		}
		v, err := p.Consume()
		if err != nil {
			return "", err
		}
		return string(v), nil
	}
	got, err := runSingle(t, []rune{'a'}, fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a" {
		t.Fatalf("got %q, want %q (Maybe should have restored the cursor)", got, "a")
	}
}

func TestManyCollectsUntilFailure(t *testing.T) {
	fn := func(p *ecmac.Proc[rune]) (string, error) {
		as, err := ecmac.Many(p, expectRune('a'))
		if err != nil {
			return "", err
		}
		if _, err := p.Consume(); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", len(as)), nil
	}
	got, err := runSingle(t, []rune{'a', 'a', 'a', 'b'}, fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "3" {
		t.Fatalf("got %q, want %q", got, "3")
	}
}

func TestFirstReturnsFurthestFailure(t *testing.T) {
	fn := func(p *ecmac.Proc[rune]) (string, error) {
		branchAB := func(p *ecmac.Proc[rune]) (string, error) {
			if _, err := expectRune('a')(p); err != nil {
				return "", err
			}
			if _, err := expectRune('b')(p); err != nil {
				return "", err
			}
			return "ab", nil
		}
		branchAX := func(p *ecmac.Proc[rune]) (string, error) {
			if _, err := expectRune('a')(p); err != nil {
				return "", err
			}
			return "", fmt.Errorf("ax never matches %c", 'x')
		}
		branchZ := func(p *ecmac.Proc[rune]) (string, error) {
			if _, err := expectRune('z')(p); err != nil {
				return "", err
			}
			return "z", nil
		}
		_, err := ecmac.First(p, branchAB, branchAX, branchZ)
		if err == nil {
			t.Fatalf("expected all branches to fail on input \"ac\"")
		}
		// The furthest failure comes from branchAB, which consumes 'a'
		// and 'c' before failing (cursor 2); branchAX and branchZ each
		// consume only 'a' before failing (cursor 1).
		want := "expected 'b', got 'c'"
		if err.Error() != want {
			t.Fatalf("got %q, want %q", err.Error(), want)
		}
		// consume the remaining input; the end of input met after that
		// is returned as this coroutine's own error
		for {
			if _, cerr := p.Consume(); cerr != nil {
				return "", cerr
			}
		}
	}
	_, err := runSingle(t, []rune{'a', 'c'}, fn)
	if err == nil {
		t.Fatalf("expected the coroutine's own error to surface")
	}
}

func TestFurthestPicksLongestMatch(t *testing.T) {
	fn := func(p *ecmac.Proc[rune]) (string, error) {
		short := func(p *ecmac.Proc[rune]) (string, error) {
			if _, err := expectRune('a')(p); err != nil {
				return "", err
			}
			return "short", nil
		}
		long := func(p *ecmac.Proc[rune]) (string, error) {
			if _, err := expectRune('a')(p); err != nil {
				return "", err
			}
			if _, err := expectRune('b')(p); err != nil {
				return "", err
			}
			return "long", nil
		}
		v, err := ecmac.Furthest(p, short, long)
		if err != nil {
			return "", err
		}
		return v, nil
	}
	got, err := runSingle(t, []rune{'a', 'b'}, fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "long" {
		t.Fatalf("got %q, want %q", got, "long")
	}
}

func TestLookAheadNeverConsumes(t *testing.T) {
	fn := func(p *ecmac.Proc[rune]) (string, error) {
		before := p.Position()
		if _, err := ecmac.LookAhead(p, expectRune('a')); err != nil {
			t.Fatalf("unexpected lookahead failure: %v", err)
		}
		if after := p.Position(); after != before {
			t.Fatalf("LookAhead must not move the cursor: before=%d after=%d", before, after)
		}
		v, err := p.Consume()
		if err != nil {
			return "", err
		}
		return string(v), nil
	}
	got, err := runSingle(t, []rune{'a'}, fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a" {
		t.Fatalf("got %q, want %q", got, "a")
	}
}

func TestRunFatalPreventsBacktracking(t *testing.T) {
	fn := func(p *ecmac.Proc[rune]) (string, error) {
		inner := func(p *ecmac.Proc[rune]) (string, error) {
			if _, err := expectRune('(')(p); err != nil {
				return "", err
			}
			return ecmac.RunFatal(p, expectRuneAsString(')'))
		}
		_, err := ecmac.Maybe(p, inner)
		if err == nil {
			t.Fatalf("expected a failure")
		}
		if !ecmac.IsFatal(err) {
			t.Fatalf("expected the failure to be fatal after committing to '('")
		}
		return "", err
	}
	_, err := runSingle(t, []rune{'(', 'x'}, fn)
	if err == nil || !ecmac.IsFatal(err) {
		t.Fatalf("got %v, want a fatal error to surface from the engine", err)
	}
}

func expectRuneAsString(r rune) ecmac.Production[rune, string] {
	return func(p *ecmac.Proc[rune]) (string, error) {
		v, err := p.Consume()
		if err != nil {
			return "", err
		}
		if v != r {
			return "", fmt.Errorf("expected %q, got %q", r, v)
		}
		return string(v), nil
	}
}

func TestConsumeKind(t *testing.T) {
	isVowel := func(r rune) bool { return r == 'a' || r == 'e' || r == 'i' || r == 'o' || r == 'u' }
	fn := func(p *ecmac.Proc[rune]) (string, error) {
		v, err := ecmac.ConsumeKind(p, isVowel, func(r rune) error {
			return fmt.Errorf("%q is not a vowel", r)
		})
		if err != nil {
			return "", err
		}
		return string(v), nil
	}
	got, err := runSingle(t, []rune{'a'}, fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a" {
		t.Fatalf("got %q, want %q", got, "a")
	}

	_, err = runSingle(t, []rune{'b'}, fn)
	if err == nil {
		t.Fatalf("expected a mismatch error for 'b'")
	}
}
