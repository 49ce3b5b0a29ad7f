// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package decode wires source acquisition, text decoding and the
// lexical/syntactic engines into a single node stream: the whole pipeline
// spec's external-interfaces section describes, supervised the way
// WorkerService.ProcessJob sequences a job's stages under one error path,
// adapted from a claim/execute/finish loop to an errgroup-supervised
// goroutine.
package decode

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/anluin/ecmac"
	"github.com/anluin/ecmac/source"
	"github.com/anluin/ecmac/sourceurl"
	"github.com/anluin/ecmac/textdecode"
)

// Pipeline holds the fetcher, decoder and logger shared across runs.
type Pipeline struct {
	fetcher *source.Fetcher
	decoder *textdecode.Decoder
	logger  *slog.Logger
}

// New builds a Pipeline. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher: source.New(),
		decoder: textdecode.New(),
		logger:  logger,
	}
}

// Fetcher exposes the underlying source.Fetcher so callers (tests, the
// CLI) can call its SetFS with an afero.Fs.
func (p *Pipeline) Fetcher() *source.Fetcher {
	return p.fetcher
}

// Run resolves loc to a source URL, fetches and decodes it, and drives it
// through the lexical and syntactic engines, emitting one Node at a time.
// The returned error channel carries at most one terminal error, matching
// the "consumer sees at most one terminal error per stream" rule.
func (p *Pipeline) Run(ctx context.Context, loc string) (<-chan ecmac.Node, <-chan error) {
	nodes := make(chan ecmac.Node)
	errc := make(chan error, 1)

	runID := uuid.New()
	srcURL := sourceurl.Resolve(loc)
	log := p.logger.With("run_id", runID.String(), "source_url", srcURL)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(nodes)

		rc, err := p.fetcher.Open(gctx, srcURL)
		if err != nil {
			return err
		}
		defer rc.Close()
		log.Info("fetched source")

		chunkCh := p.decoder.Stream(gctx, rc)
		cpCh := ecmac.CodePointStream(gctx, chunkCh, srcURL)

		lx := ecmac.NewLexer(gctx, srcURL, log)
		tokCh, lexErrc := lx.Engine().Run(gctx, cpCh)

		ps := ecmac.NewParser(srcURL, log)
		nodeCh, parseErrc := ps.Engine().Run(gctx, tokCh)

		nodeCount := 0
		for nodeCh != nil || lexErrc != nil || parseErrc != nil {
			select {
			case batch, ok := <-nodeCh:
				if !ok {
					nodeCh = nil
					continue
				}
				for _, n := range batch {
					select {
					case nodes <- n:
						nodeCount++
					case <-gctx.Done():
						return gctx.Err()
					}
				}
			case e, ok := <-lexErrc:
				if !ok {
					lexErrc = nil
					continue
				}
				if e != nil {
					return e
				}
			case e, ok := <-parseErrc:
				if !ok {
					parseErrc = nil
					continue
				}
				if e != nil {
					return e
				}
			}
		}
		log.Info("parse complete", "nodes", nodeCount)
		return nil
	})

	go func() {
		defer close(errc)
		if err := g.Wait(); err != nil {
			select {
			case errc <- err:
			default:
			}
		}
	}()

	return nodes, errc
}
