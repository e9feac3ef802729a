package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/urfave/cli/v3"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/ori"
	"github.com/rlch/ori/analysis"
	"github.com/rlch/ori/lsp"
	"github.com/rlch/ori/scope"
)

var errUsage = errors.New("expected FILE LINE COLUMN")

func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "root",
			Aliases: []string{"r"},
			Usage:   "workspace root that stops the scope search (default: current directory)",
		},
		&cli.StringFlag{
			Name:  "home",
			Usage: "folder the ~ key resolves to (default: the user's home)",
		},
	}
}

func completeCommand() *cli.Command {
	return &cli.Command{
		Name:      "complete",
		Usage:     "List completions at a position",
		ArgsUsage: "FILE LINE COLUMN",
		Flags:     queryFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			q, err := newQuery(cmd)
			if err != nil {
				return err
			}

			items, err := lsp.Complete(ctx, q.ws, q.doc, q.pos)
			if err != nil {
				return err
			}

			printCompletions(os.Stdout, items)

			return nil
		},
	}
}

func definitionCommand() *cli.Command {
	return &cli.Command{
		Name:      "definition",
		Aliases:   []string{"def"},
		Usage:     "Print where the name at a position is defined",
		ArgsUsage: "FILE LINE COLUMN",
		Flags:     queryFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			q, err := newQuery(cmd)
			if err != nil {
				return err
			}

			loc, err := lsp.Define(ctx, q.ws, q.doc, q.pos)
			if err != nil {
				return err
			}

			if loc == nil {
				return cli.Exit("no definition found", 1)
			}

			printLocation(os.Stdout, loc)

			return nil
		},
	}
}

// query is a document and position taken from the command line, with the
// workspace it resolves in.
type query struct {
	ws  lsp.Workspace
	doc *lsp.Document
	pos protocol.Position
}

func newQuery(cmd *cli.Command) (*query, error) {
	args := cmd.Args()
	if args.Len() != 3 { //nolint:mnd // FILE LINE COLUMN
		return nil, errUsage
	}

	file, err := filepath.Abs(args.Get(0))
	if err != nil {
		return nil, err
	}

	line, err := strconv.Atoi(args.Get(1))
	if err != nil {
		return nil, fmt.Errorf("line: %w", err)
	}

	column, err := strconv.Atoi(args.Get(2))
	if err != nil {
		return nil, fmt.Errorf("column: %w", err)
	}

	data, err := os.ReadFile(file) //#nosec G304 -- path comes from user args
	if err != nil {
		return nil, err
	}

	roots := cmd.StringSlice("root")
	if len(roots) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}

		roots = []string{wd}
	}

	for i, root := range roots {
		if roots[i], err = filepath.Abs(root); err != nil {
			return nil, err
		}
	}

	cfg, _ := ori.LoadConfig(roots[0])

	return &query{
		ws: lsp.Workspace{
			Scope:  scope.New(osfs.New("/"), cmd.String("home"), zap.NewNop()),
			Roots:  roots,
			Config: cfg,
		},
		doc: lsp.NewDocument(lsp.PathToURI(file), 0, string(data)),
		pos: analysis.ToEditorPosition(ori.Position{Line: line, Column: column}),
	}, nil
}

func printCompletions(out io.Writer, items []protocol.CompletionItem) {
	for _, item := range items {
		if item.Detail != "" {
			_, _ = fmt.Fprintf(out, "%s\t%s\n", item.Label, item.Detail)
		} else {
			_, _ = fmt.Fprintln(out, item.Label)
		}
	}
}

func printLocation(out io.Writer, loc *protocol.Location) {
	start := analysis.ToSourcePosition(loc.Range.Start)
	_, _ = fmt.Fprintf(out, "%s:%d:%d\n", lsp.URIToPath(loc.URI), start.Line, start.Column)
}
