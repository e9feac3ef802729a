package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/urfave/cli/v3"

	"github.com/rlch/ori"
)

const filePermissions = 0o600

func fmtCommand() *cli.Command {
	return &cli.Command{
		Name:      "fmt",
		Aliases:   []string{"format"},
		Usage:     "Format ori files",
		ArgsUsage: "[files or directories...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "write result to file instead of stdout",
			},
			&cli.BoolFlag{
				Name:    "check",
				Aliases: []string{"c"},
				Usage:   "list files that are not formatted (exit 1 if any)",
			},
			&cli.BoolFlag{
				Name:    "diff",
				Aliases: []string{"d"},
				Usage:   "display changed lines instead of rewriting files",
			},
		},
		Action: runFmt,
	}
}

func runFmt(_ context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return formatStream(os.Stdin, os.Stdout)
	}

	cfg, _ := ori.LoadConfig(".")

	files, err := collectFiles(args, cfg)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return errNoOriFiles
	}

	mode := fmtPrint

	switch {
	case cmd.Bool("check"):
		mode = fmtCheck
	case cmd.Bool("write"):
		mode = fmtWrite
	case cmd.Bool("diff"):
		mode = fmtDiff
	}

	var unformatted []string

	for _, file := range files {
		changed, err := formatFile(file, mode, os.Stdout)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}

		if changed {
			unformatted = append(unformatted, file)
		}
	}

	if mode == fmtCheck && len(unformatted) > 0 {
		_, _ = fmt.Fprintf(os.Stderr, "The following files are not formatted:\n")

		for _, f := range unformatted {
			_, _ = fmt.Fprintf(os.Stderr, "  %s\n", f)
		}

		return cli.Exit("", 1)
	}

	return nil
}

type fmtMode int

const (
	fmtPrint fmtMode = iota
	fmtWrite
	fmtCheck
	fmtDiff
)

func formatStream(in io.Reader, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	formatted, err := ori.Format(string(data))
	if err != nil {
		return err
	}

	_, err = io.WriteString(out, formatted)

	return err
}

// formatFile formats one file according to mode and reports whether its
// contents differ from the formatted text.
func formatFile(path string, mode fmtMode, out io.Writer) (bool, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- paths come from user args
	if err != nil {
		return false, err
	}

	formatted, err := ori.Format(string(data))
	if err != nil {
		return false, err
	}

	changed := string(data) != formatted

	switch mode {
	case fmtCheck:
	case fmtWrite:
		if !changed {
			return false, nil
		}

		if err := os.WriteFile(path, []byte(formatted), filePermissions); err != nil {
			return true, err
		}

		_, _ = fmt.Fprintln(out, path)
	case fmtDiff:
		if changed {
			printDiff(out, path, string(data), formatted)
		}
	case fmtPrint:
		_, err = io.WriteString(out, formatted)
	}

	return changed, err
}

// printDiff prints a unified diff from the file to its formatted text.
func printDiff(out io.Writer, path, original, formatted string) {
	edits := myers.ComputeEdits(span.URIFromPath(path), original, formatted)
	_, _ = fmt.Fprint(out, gotextdiff.ToUnified(path, path+" (formatted)", original, edits))
}
