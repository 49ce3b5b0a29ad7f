// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package source

import "fmt"

// ErrFetch is returned when a source URL cannot be opened, regardless of
// which scheme handler tried.
type ErrFetch struct {
	URL string
	Err error
}

func (e *ErrFetch) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *ErrFetch) Unwrap() error {
	return e.Err
}

// ErrUnsupportedScheme is returned for a source URL whose scheme none of
// the handlers recognize.
type ErrUnsupportedScheme struct {
	Scheme string
}

func (e *ErrUnsupportedScheme) Error() string {
	return fmt.Sprintf("unsupported source scheme %q", e.Scheme)
}
