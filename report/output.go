package report

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Format is an output format for a markdown report.
type Format int

const (
	Markdown Format = iota // raw markdown
	Terminal               // styled for the terminal
	HTML                   // standalone HTML fragment
)

// ParseFormat returns the format named s: "md", "term" or "html".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "md", "markdown":
		return Markdown, nil
	case "", "term", "terminal":
		return Terminal, nil
	case "html":
		return HTML, nil
	}
	return Markdown, fmt.Errorf("unknown format %q, want md, term or html", s)
}

// Write renders the markdown document md to w in the given format.
func Write(w io.Writer, md string, format Format) error {
	switch format {
	case Terminal:
		out, err := TerminalMarkdown(md)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	case HTML:
		return ToHTML(w, md)
	}
	_, err := io.WriteString(w, md)
	return err
}

// TerminalMarkdown styles md for the terminal, choosing the style from the
// terminal background.
func TerminalMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		return "", fmt.Errorf("cannot create markdown renderer: %w", err)
	}
	return r.Render(md)
}

var htmlConverter = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

// ToHTML converts md to HTML. Tables are supported.
func ToHTML(w io.Writer, md string) error {
	var buf bytes.Buffer
	if err := htmlConverter.Convert([]byte(md), &buf); err != nil {
		return fmt.Errorf("cannot convert markdown to html: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Print writes md on the standard output in the given format.
// Errors are reported on the standard error, and the raw markdown is printed instead.
func Print(md string, format Format) {
	if err := Write(os.Stdout, md, format); err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering report: %v\n", err)
		fmt.Print(md)
	}
}
