// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package source fetches the raw bytes behind a resolved source URL
// (sourceurl.Resolve's output): file:// through afero, http(s):// over
// plain net/http, and data: by decoding its payload in place.
package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/afero"
)

// Fetcher opens a source URL's bytes. The zero value is not usable; build
// one with New.
type Fetcher struct {
	fs     afero.Fs
	client *http.Client
}

// New builds a Fetcher backed by the real filesystem and the default HTTP
// client.
func New() *Fetcher {
	return &Fetcher{
		fs:     afero.NewOsFs(),
		client: http.DefaultClient,
	}
}

// SetFS swaps in an in-memory filesystem for tests, mirroring the
// WorkerService.SetFS seam the pipeline stages use for the same reason.
func (f *Fetcher) SetFS(fs afero.Fs) {
	f.fs = fs
}

// Open returns the bytes behind sourceURL. The caller is responsible for
// closing the returned ReadCloser.
func (f *Fetcher) Open(ctx context.Context, sourceURL string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(sourceURL, "file://"):
		path := strings.TrimPrefix(sourceURL, "file://")
		file, err := f.fs.Open(path)
		if err != nil {
			return nil, &ErrFetch{URL: sourceURL, Err: err}
		}
		return file, nil

	case strings.HasPrefix(sourceURL, "http://"), strings.HasPrefix(sourceURL, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
		if err != nil {
			return nil, &ErrFetch{URL: sourceURL, Err: err}
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, &ErrFetch{URL: sourceURL, Err: err}
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, &ErrFetch{URL: sourceURL, Err: fmt.Errorf("status %s", resp.Status)}
		}
		return resp.Body, nil

	case strings.HasPrefix(sourceURL, "data:"):
		data, err := decodeDataURL(sourceURL)
		if err != nil {
			return nil, &ErrFetch{URL: sourceURL, Err: err}
		}
		return io.NopCloser(bytes.NewReader(data)), nil

	default:
		return nil, &ErrUnsupportedScheme{Scheme: schemeOf(sourceURL)}
	}
}

// decodeDataURL decodes the payload of a "data:<mime>;base64,<payload>"
// URL, the only data: form sourceurl.Resolve ever produces.
func decodeDataURL(sourceURL string) ([]byte, error) {
	rest := strings.TrimPrefix(sourceURL, "data:")
	i := strings.Index(rest, ",")
	if i < 0 {
		return nil, fmt.Errorf("malformed data URL")
	}
	meta, payload := rest[:i], rest[i+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("unsupported data URL encoding %q", meta)
	}
	return base64.URLEncoding.DecodeString(payload)
}

func schemeOf(sourceURL string) string {
	if i := strings.Index(sourceURL, ":"); i > 0 {
		return sourceURL[:i]
	}
	return sourceURL
}
