package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/term"

	"github.com/folio-press/folio/internal/sanitize"
)

func runSanitize(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("sanitize", flag.ContinueOnError)
	fs.SetOutput(stdout)
	diff := fs.Bool("diff", false, "Print what the sanitizer removes instead of the result")

	fs.Usage = func() {
		fmt.Fprintln(stdout, "Usage: folio sanitize [options] [file]")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Sanitize an HTML file (or stdin) with the display allowlist.")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args()[1:])
	}

	input, err := readInput(fs.Arg(0), stdin)
	if err != nil {
		return err
	}

	if !*diff {
		_, err := fmt.Fprintln(stdout, sanitize.Sanitize(input))
		return err
	}
	out := termenv.NewOutput(stdout, termenv.WithProfile(colorProfile(stdout)))
	return writeDiff(out, sanitize.Diff(input))
}

// colorProfile colours output only when w is a terminal. Pipes and files get
// plain text.
func colorProfile(w io.Writer) termenv.Profile {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return termenv.EnvColorProfile()
	}
	return termenv.Ascii
}

// writeDiff prints the sanitized result with removed fragments struck
// through in red.
func writeDiff(out *termenv.Output, diffs []diffmatchpatch.Diff) error {
	removed := 0
	for _, d := range diffs {
		var s string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			removed++
			s = out.String("[-" + d.Text + "-]").Foreground(out.Color("1")).CrossOut().String()
		case diffmatchpatch.DiffInsert:
			s = out.String("{+" + d.Text + "+}").Foreground(out.Color("2")).String()
		default:
			s = d.Text
		}
		if _, err := fmt.Fprint(out, s); err != nil {
			return err
		}
	}
	summary := "nothing removed"
	if removed > 0 {
		summary = fmt.Sprintf("%d fragment(s) removed", removed)
	}
	_, err := fmt.Fprintf(out, "\n%s\n", out.String(summary).Faint())
	return err
}
