package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/folio-press/folio/internal/highlight"
)

func runCSS(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("css", flag.ContinueOnError)
	fs.SetOutput(stdout)
	style := fs.String("style", highlight.DefaultStyle, "Chroma style name")
	minify := fs.Bool("minify", false, "Minify the stylesheet")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if err := highlight.SetStyle(*style); err != nil {
		return err
	}

	css := highlight.Stylesheet()
	if *minify {
		var err error
		if css, err = highlight.MinifiedCSS(); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(stdout, css)
	return err
}
