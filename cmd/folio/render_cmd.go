package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/folio-press/folio/internal/content"
	"github.com/folio-press/folio/internal/render"
)

// formatForPath guesses the format of a file from its extension.
func formatForPath(path string) content.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return content.HTML
	case ".txt", ".text":
		return content.Plaintext
	default:
		return content.Markdown
	}
}

func runRender(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(stdout)
	format := fs.String("format", "", "Content format: plaintext, markdown, html or html_editor (default: from file extension, markdown for stdin)")
	mount := fs.Bool("mount", false, "Highlight code blocks in the output")

	fs.Usage = func() {
		fmt.Fprintln(stdout, "Usage: folio render [options] [file...]")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Render each file (or stdin) to sanitized HTML on stdout.")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Options:")
		fs.PrintDefaults()
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Examples:")
		fmt.Fprintln(stdout, "  folio render post.md")
		fmt.Fprintln(stdout, "  folio render -mount -format html_editor draft.html")
		fmt.Fprintln(stdout, "  echo '# Title' | folio render")
	}

	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		return err
	}

	var forced content.Format
	if *format != "" {
		f, err := content.ParseFormat(*format)
		if err != nil {
			return err
		}
		forced = f
	}

	paths := fs.Args()
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	r := render.New()
	outputs := make([]string, len(paths))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			body, err := readInput(path, stdin)
			if err != nil {
				return err
			}
			f := forced
			if f == "" {
				f = formatForPath(path)
			}
			if *mount {
				outputs[i] = string(r.RenderPage(&body, f))
			} else {
				outputs[i] = string(r.Render(&body, f))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, out := range outputs {
		if _, err := io.WriteString(stdout, out); err != nil {
			return err
		}
		if !strings.HasSuffix(out, "\n") {
			if _, err := io.WriteString(stdout, "\n"); err != nil {
				return err
			}
		}
	}
	return nil
}
