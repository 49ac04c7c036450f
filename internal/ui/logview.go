// File: internal/ui/logview.go
// Brief: Plain-terminal renderer for a pod log session.

package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/example/kview/internal/podlog"
)

const defaultRuleWidth = 80

// LogView writes log batches to Out and failure reports to Err.
type LogView struct {
	Out io.Writer
	Err io.Writer
}

// Summary counts what a LogView rendered.
type Summary struct {
	Lines    int
	Batches  int
	Failures int
}

// Header prints a rule naming the pod being followed, sized to the terminal.
func (v *LogView) Header(namespace, pod string) {
	width, ok := TerminalWidth(v.Out)
	if !ok || width <= 0 {
		width = defaultRuleWidth
	}
	title := fmt.Sprintf("── %s/%s ", namespace, pod)
	fill := width - runewidth.StringWidth(title)
	if fill < 0 {
		fill = 0
	}
	fmt.Fprintln(v.Out, color.New(color.Faint).Sprint(title+strings.Repeat("─", fill)))
}

// Run renders events until ch is closed or ctx ends.
func (v *LogView) Run(ctx context.Context, ch <-chan podlog.Event) Summary {
	var sum Summary
	for {
		select {
		case <-ctx.Done():
			return sum
		case ev, ok := <-ch:
			if !ok {
				return sum
			}
			if ev.Err != nil {
				sum.Failures++
				v.renderError(ev.Err)
				continue
			}
			if len(ev.Lines) == 0 {
				continue
			}
			sum.Batches++
			sum.Lines += len(ev.Lines)
			fmt.Fprintln(v.Out, strings.Join(ev.Lines, "\n"))
		}
	}
}

// renderError prints exit reports as they are; they carry their own banner.
func (v *LogView) renderError(err error) {
	var exitErr *podlog.ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintln(v.Err, exitErr.Error())
		return
	}
	fmt.Fprintf(v.Err, "%s %v\n", color.New(color.FgRed).Sprint("error:"), err)
}
