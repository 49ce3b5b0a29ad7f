// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/anluin/ecmac"
	"github.com/anluin/ecmac/decode"
	"github.com/anluin/ecmac/source"
	"github.com/anluin/ecmac/sourceurl"
	"github.com/anluin/ecmac/textdecode"
)

func main() {
	addFlags := func(cmd *cobra.Command) error {
		cmd.PersistentFlags().Bool("debug", false, "log debugging information")
		cmd.PersistentFlags().Bool("quiet", false, "log less information")
		cmd.PersistentFlags().Bool("show-version", false, "show version")
		return nil
	}
	var cmdRoot = &cobra.Command{
		Use:   "ecmac",
		Short: "ecmac command runner",
		Long:  `ecmac runs the streaming ECMAScript lexer and parser over a source location.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			quiet, _ := cmd.Flags().GetBool("quiet")
			level := slog.LevelInfo
			switch {
			case debug:
				level = slog.LevelDebug
			case quiet:
				level = slog.LevelWarn
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			if showVersion, _ := cmd.Flags().GetBool("show-version"); showVersion {
				fmt.Printf("ecmac: version %q\n", ecmac.Version().Core())
			}
			return nil
		},
	}
	cmdRoot.AddCommand(cmdParse())
	cmdRoot.AddCommand(cmdLex())
	cmdRoot.AddCommand(cmdVersion())
	if err := addFlags(cmdRoot); err != nil {
		log.Fatal(err)
	}

	if err := cmdRoot.Execute(); err != nil {
		os.Exit(1)
	}
}

func cmdParse() *cobra.Command {
	var outputFile string
	var cmd = &cobra.Command{
		Use:          "parse <source-location>",
		Short:        "parse a source location (file path, URL, or inline source text) into syntax nodes",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := decode.New(slog.Default())
			nodeCh, errc := p.Run(cmd.Context(), args[0])

			var nodes []map[string]any
			var runErr error
			for nodeCh != nil || errc != nil {
				select {
				case n, ok := <-nodeCh:
					if !ok {
						nodeCh = nil
						continue
					}
					nodes = append(nodes, describeNode(n))
				case e, ok := <-errc:
					if !ok {
						errc = nil
						continue
					}
					if e != nil {
						runErr = e
					}
				}
			}

			data, err := json.MarshalIndent(nodes, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal nodes: %w", err)
			}
			if outputFile == "" {
				fmt.Println(string(data))
			} else if err := os.WriteFile(outputFile, data, 0o644); err != nil {
				return err
			} else {
				log.Printf("%s: wrote %s\n", outputFile, humanize.Bytes(uint64(len(data))))
			}

			return runErr
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", outputFile, "save the node dump to file")
	return cmd
}

func cmdLex() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "lex <source-location>",
		Short:        "lex a source location and print its token stream",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			srcURL := sourceurl.Resolve(args[0])

			rc, err := source.New().Open(ctx, srcURL)
			if err != nil {
				return err
			}
			defer rc.Close()

			toks, runErr := lexOnly(ctx, rc, srcURL)
			for _, tok := range toks {
				fmt.Printf("%-6s %-14s %q\n", tok.Span.Begin, tok.Kind, tok.Payload)
			}
			return runErr
		},
	}
	return cmd
}

func cmdVersion() *cobra.Command {
	showBuildInfo := false
	var cmd = &cobra.Command{
		Use:   "version",
		Short: "display the application's version number",
		RunE: func(cmd *cobra.Command, args []string) error {
			if showBuildInfo {
				fmt.Println(ecmac.Version().String())
				return nil
			}
			fmt.Println(ecmac.Version().Core())
			return nil
		},
	}
	cmd.Flags().BoolVar(&showBuildInfo, "build-info", showBuildInfo, "show build information")
	return cmd
}

// describeNode renders a Node tree as JSON-friendly data, since the tagged
// Node interface carries no struct tags of its own to marshal against.
func describeNode(n ecmac.Node) map[string]any {
	if n == nil {
		return nil
	}
	out := map[string]any{"kind": string(n.Kind())}
	switch v := n.(type) {
	case *ecmac.IdentifierNode:
		out["name"] = v.Name
	case *ecmac.StringLiteralNode:
		out["value"] = v.Value
	case *ecmac.MemberExpressionNode:
		out["object"] = describeNode(v.Object)
		out["property"] = describeNode(v.Property)
	case *ecmac.CallExpressionNode:
		out["callee"] = describeNode(v.Callee)
		var args []map[string]any
		for _, a := range v.Args {
			args = append(args, describeNode(a))
		}
		out["args"] = args
	case *ecmac.CallArgumentNode:
		out["expression"] = describeNode(v.Expression)
		out["trailingComma"] = v.Comma != nil
	case *ecmac.ExpressionStatementNode:
		out["expression"] = describeNode(v.Expression)
		out["semicolon"] = v.Semicolon != nil
	}
	return out
}

// lexOnly drives just the lexical stage over r, for the "lex" subcommand.
func lexOnly(ctx context.Context, r io.Reader, srcURL string) ([]ecmac.Token, error) {
	chunkCh := textdecode.New().Stream(ctx, r)
	cpCh := ecmac.CodePointStream(ctx, chunkCh, srcURL)

	lx := ecmac.NewLexer(ctx, srcURL, slog.Default())
	tokCh, errc := lx.Engine().Run(ctx, cpCh)

	var toks []ecmac.Token
	var runErr error
	for tokCh != nil || errc != nil {
		select {
		case batch, ok := <-tokCh:
			if !ok {
				tokCh = nil
				continue
			}
			toks = append(toks, batch...)
		case e, ok := <-errc:
			if !ok {
				errc = nil
				continue
			}
			if e != nil {
				runErr = e
			}
		}
	}
	return toks, runErr
}
