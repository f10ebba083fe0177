package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

type printer struct {
	format string
	w      io.Writer
}

func newPrinter(opts *RootOptions, w io.Writer) *printer {
	return &printer{format: opts.Format, w: w}
}

// emit writes v as one JSON line, or the text form produced by text.
func (p *printer) emit(v any, text func(w io.Writer)) error {
	if p.format == "json" {
		return json.NewEncoder(p.w).Encode(v)
	}
	text(p.w)
	return nil
}

func (p *printer) textf(format string, args ...any) {
	if p.format == "json" {
		return
	}
	fmt.Fprintf(p.w, format, args...)
}
