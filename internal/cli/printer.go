package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/lumipallolabs/fontdrop/internal/core"
)

// printer writes run progress as plain colored lines
type printer struct {
	out  io.Writer
	head *color.Color
	ok   *color.Color
	warn *color.Color
	fail *color.Color
	dim  *color.Color
}

func newPrinter(out io.Writer) *printer {
	return &printer{
		out:  out,
		head: color.New(color.FgCyan, color.Bold),
		ok:   color.New(color.FgGreen),
		warn: color.New(color.FgYellow),
		fail: color.New(color.FgRed),
		dim:  color.New(color.Faint),
	}
}

func (p *printer) event(e core.Event) {
	switch e := e.(type) {
	case core.ScanStartedEvent:
		p.head.Fprintln(p.out, e.String())
	case core.TotalDiscoveredEvent:
		p.head.Fprintln(p.out, e.String())
		if e.Faults > 0 {
			p.warn.Fprintf(p.out, "%d target(s) or archive(s) could not be read, see the log\n", e.Faults)
		}
	case core.InstallProgressEvent:
		if e.OK {
			p.ok.Fprintf(p.out, "  ✓ %s", e.FontName)
		} else {
			p.fail.Fprintf(p.out, "  ✗ %s", e.FontName)
		}
		p.dim.Fprintf(p.out, " (%d/%d)\n", e.Index, e.Total)
	case core.DoneEvent:
		if e.Failed > 0 {
			p.warn.Fprintln(p.out, e.String())
		} else {
			p.ok.Fprintln(p.out, e.String())
		}
	case core.NoFontsFoundEvent, core.CanceledEvent:
		p.warn.Fprintln(p.out, e.String())
	case core.FaultedEvent:
		p.fail.Fprintln(p.out, e.String())
	default:
		fmt.Fprintln(p.out, e.String())
	}
}

func (p *printer) notice(format string, args ...any) {
	p.dim.Fprintf(p.out, format+"\n", args...)
}
