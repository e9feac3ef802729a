package main

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	colorPass   = lipgloss.Color("#10b981") // green-500
	colorFail   = lipgloss.Color("#ef4444") // red-500
	colorDim    = lipgloss.Color("#6b7280") // gray-500
	colorAccent = lipgloss.Color("#3b82f6") // blue-500
)

// styles holds the output styles of the CLI.
type styles struct {
	Pass  lipgloss.Style
	Fail  lipgloss.Style
	Dim   lipgloss.Style
	Path  lipgloss.Style
	Color bool

	SymbolPass string
	SymbolFail string
}

// stylesFor returns colored styles when w is a terminal and plain ones
// otherwise.
func stylesFor(w io.Writer) *styles {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return &styles{
			Pass:       lipgloss.NewStyle().Foreground(colorPass).Bold(true),
			Fail:       lipgloss.NewStyle().Foreground(colorFail).Bold(true),
			Dim:        lipgloss.NewStyle().Foreground(colorDim),
			Path:       lipgloss.NewStyle().Foreground(colorAccent),
			Color:      true,
			SymbolPass: "✓",
			SymbolFail: "✗",
		}
	}

	return plainStyles()
}

func plainStyles() *styles {
	return &styles{
		Pass:       lipgloss.NewStyle(),
		Fail:       lipgloss.NewStyle(),
		Dim:        lipgloss.NewStyle(),
		Path:       lipgloss.NewStyle(),
		SymbolPass: "ok",
		SymbolFail: "FAIL",
	}
}
