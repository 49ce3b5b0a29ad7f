// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package textdecode_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/anluin/ecmac/textdecode"
)

func drain(t *testing.T, src string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d := textdecode.New()
	ch := d.Stream(ctx, strings.NewReader(src))

	var got strings.Builder
	for batch := range ch {
		for _, chunk := range batch {
			got.WriteString(chunk.Text)
		}
	}
	return got.String()
}

func TestDecodePlainUTF8(t *testing.T) {
	const src = "let x = 1;\n"
	if got := drain(t, src); got != src {
		t.Fatalf("got %q, want %q", got, src)
	}
}

func TestDecodeStripsUTF8BOM(t *testing.T) {
	const bom = string(rune(0xFEFF))
	src := bom + "let x = 1;"
	got := drain(t, src)
	if strings.HasPrefix(got, bom) {
		t.Fatalf("BOM was not stripped: %q", got)
	}
	if got != "let x = 1;" {
		t.Fatalf("got %q, want %q", got, "let x = 1;")
	}
}

func TestDecodeMultibyteRunes(t *testing.T) {
	const src = "const π = 3;"
	if got := drain(t, src); got != src {
		t.Fatalf("got %q, want %q", got, src)
	}
}
