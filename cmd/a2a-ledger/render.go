// cmd/a2a-ledger/render.go
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// renderer prints agent replies, as styled markdown on a terminal and
// verbatim everywhere else.
type renderer struct {
	out      io.Writer
	markdown func(string) (string, error)
}

func newRenderer(out io.Writer) *renderer {
	r := &renderer{out: out}
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return r
	}

	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 20 {
		opts = append(opts, glamour.WithWordWrap(width-4))
	}
	tr, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		log.Debugf("Markdown rendering disabled: %v", err)
		return r
	}
	r.markdown = tr.Render
	return r
}

// Print writes markdown to the output.
func (r *renderer) Print(markdown string) {
	if r.markdown != nil {
		if styled, err := r.markdown(markdown); err == nil {
			fmt.Fprint(r.out, styled)
			return
		}
	}
	fmt.Fprintln(r.out, markdown)
}
