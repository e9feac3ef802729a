package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/rlch/ori"
	"github.com/rlch/ori/lsp"
)

var errNoOriFiles = errors.New("no .ori files found")

// maxParallelChecks bounds how many files are parsed at once.
const maxParallelChecks = 8

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Report syntax errors in ori files",
		ArgsUsage: "[files or directories...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "only print files with errors",
			},
		},
		Action: runCheck,
	}
}

func runCheck(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		args = []string{"."}
	}

	cfg, _ := ori.LoadConfig(".")

	files, err := collectFiles(args, cfg)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return errNoOriFiles
	}

	results, err := checkFiles(ctx, files)
	if err != nil {
		return err
	}

	failed := report(os.Stdout, stylesFor(os.Stdout), results, cmd.Bool("quiet"))
	if failed > 0 {
		return cli.Exit("", 1)
	}

	return nil
}

// checkResult is the outcome of parsing one file.
type checkResult struct {
	path string
	err  *ori.SyntaxError
}

// checkFiles parses files concurrently. Results keep the order of files.
func checkFiles(ctx context.Context, files []string) ([]checkResult, error) {
	results := make([]checkResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelChecks)

	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := os.ReadFile(file) //#nosec G304 -- paths come from user args
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}

			results[i] = checkResult{path: file}

			if _, err := ori.Parse(string(data)); err != nil {
				var syntaxErr *ori.SyntaxError
				if !errors.As(err, &syntaxErr) {
					return fmt.Errorf("%s: %w", file, err)
				}

				results[i].err = syntaxErr
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// report prints one line per file and returns the number of failures.
func report(out io.Writer, st *styles, results []checkResult, quiet bool) int {
	failed := 0

	for _, r := range results {
		if r.err == nil {
			if !quiet {
				_, _ = fmt.Fprintf(out, "%s %s\n", st.Pass.Render(st.SymbolPass), st.Path.Render(r.path))
			}

			continue
		}

		failed++

		_, _ = fmt.Fprintf(out, "%s %s:%d:%d: %s\n",
			st.Fail.Render(st.SymbolFail),
			st.Path.Render(r.path),
			r.err.Span.Start.Line,
			r.err.Span.Start.Column,
			r.err.Message)
	}

	if !quiet || failed > 0 {
		_, _ = fmt.Fprintf(out, "%s\n", st.Dim.Render(fmt.Sprintf("%d files, %d with errors", len(results), failed)))
	}

	return failed
}

// collectFiles expands directories into the .ori files below them, skipping
// folders the config excludes.
func collectFiles(args []string, cfg *ori.Config) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() {
				if path != arg && cfg.Excluded(d.Name()) {
					return filepath.SkipDir
				}

				return nil
			}

			if strings.HasSuffix(path, lsp.FileExtension) {
				files = append(files, path)
			}

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}
