package ui

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/example/kview/internal/podlog"
)

func TestLogViewRendersEvents(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var out, errOut bytes.Buffer
	view := &LogView{Out: &out, Err: &errOut}
	ch := make(chan podlog.Event, 4)
	ch <- podlog.Event{Lines: []string{"[app] one", "[app] two"}}
	ch <- podlog.Event{Lines: nil}
	ch <- podlog.Event{Err: &podlog.ExitError{Container: "app", Diagnostic: "== Error app =="}}
	ch <- podlog.Event{Err: fmt.Errorf("watch pod shop/web-0: gone")}
	close(ch)

	sum := view.Run(context.Background(), ch)
	require.Equal(t, Summary{Lines: 2, Batches: 1, Failures: 2}, sum)
	require.Equal(t, "[app] one\n[app] two\n", out.String())
	require.Equal(t, "== Error app ==\nerror: watch pod shop/web-0: gone\n", errOut.String())
}

func TestLogViewStopsOnCancel(t *testing.T) {
	view := &LogView{Out: &bytes.Buffer{}, Err: &bytes.Buffer{}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum := view.Run(ctx, make(chan podlog.Event))
	require.Equal(t, Summary{}, sum)
}

func TestLogViewHeaderFallsBackToDefaultWidth(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var out bytes.Buffer
	(&LogView{Out: &out}).Header("shop", "web-0")
	line := strings.TrimSuffix(out.String(), "\n")
	require.True(t, strings.HasPrefix(line, "── shop/web-0 ─"))
	require.Equal(t, defaultRuleWidth, len([]rune(line)))
}

func TestSpinnerWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	stop := StartSpinner(&buf, "Resolving deploy/checkout")
	stop(true)
	stop(false)
	require.Equal(t, "Resolving deploy/checkout [done]\n", buf.String())
}

func TestTerminalHelpersOnBuffer(t *testing.T) {
	var buf bytes.Buffer
	require.False(t, IsTerminal(&buf))
	_, ok := TerminalWidth(&buf)
	require.False(t, ok)
}
