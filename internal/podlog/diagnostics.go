// File: internal/podlog/diagnostics.go
// Brief: Failure report for a container that exited abnormally.

package podlog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/types"
)

const (
	reportWidth      = 30
	reportTimeLayout = "Mon, 02 Jan 2006 15:04:05 -0700"
)

// DiagnosticInput identifies the container a report is built for. Container
// may be nil when the spec entry can no longer be found.
type DiagnosticInput struct {
	Namespace string
	Pod       string
	PodUID    types.UID
	Kind      ContainerKind
	Container *corev1.Container
	Status    corev1.ContainerStatus
}

// EventFieldSelector selects the Events recorded against this container of
// this pod. The UID term keeps a recreated pod's history out of the report.
func EventFieldSelector(in DiagnosticInput) string {
	path := fmt.Sprintf("spec.containers{%s}", in.Status.Name)
	if in.Kind == KindInit {
		path = fmt.Sprintf("spec.initContainers{%s}", in.Status.Name)
	}
	selectors := []fields.Selector{
		fields.OneTermEqualSelector("involvedObject.name", in.Pod),
		fields.OneTermEqualSelector("involvedObject.namespace", in.Namespace),
		fields.OneTermEqualSelector("involvedObject.fieldPath", path),
	}
	if in.PodUID != "" {
		selectors = append(selectors, fields.OneTermEqualSelector("involvedObject.uid", string(in.PodUID)))
	}
	return fields.AndSelectors(selectors...).String()
}

type diagnostics struct {
	cluster  Cluster
	painter  painter
	location *time.Location
}

// Build renders the report. Events are listed at call time; a failed listing
// fails the whole report.
func (d *diagnostics) Build(ctx context.Context, in DiagnosticInput) (string, error) {
	events, err := d.cluster.ListEvents(ctx, in.Namespace, EventFieldSelector(in))
	if err != nil {
		return "", fmt.Errorf("list events for container %q: %w", in.Status.Name, err)
	}

	lines := []string{d.painter.paint(color.FgRed, centerRule(fmt.Sprintf(" Error %s ", in.Status.Name), reportWidth)), "Info:"}
	lines = appendContainerInfo(lines, in.Container)
	lines = d.appendState(lines, in.Status.State, "  State:       ")
	lines = d.appendState(lines, in.Status.LastTerminationState, "  Last State:  ")
	lines = append(lines, "Event:")
	for _, ev := range events {
		if ev.Message == "" {
			continue
		}
		lines = append(lines, "  "+ev.Message)
	}
	lines = append(lines, d.painter.paint(color.FgRed, strings.Repeat("=", reportWidth)))
	return strings.Join(lines, "\n"), nil
}

func appendContainerInfo(lines []string, c *corev1.Container) []string {
	if c == nil {
		return lines
	}
	if c.Image != "" {
		lines = append(lines, "  Image:       "+c.Image)
	}
	if len(c.Command) > 0 {
		lines = append(lines, "  Command:")
		for _, part := range c.Command {
			lines = append(lines, "    "+part)
		}
	}
	if len(c.Args) > 0 {
		lines = append(lines, "  Args:")
		for _, arg := range c.Args {
			lines = append(lines, "    "+arg)
		}
	}
	return lines
}

func (d *diagnostics) appendState(lines []string, state corev1.ContainerState, label string) []string {
	if t := state.Terminated; t != nil {
		lines = append(lines, label+"Terminated", fmt.Sprintf("    Exit Code: %d", t.ExitCode))
		if t.Message != "" {
			lines = append(lines, "    Message:   "+t.Message)
		}
		if t.Reason != "" {
			lines = append(lines, "    Reason:    "+t.Reason)
		}
		if !t.StartedAt.IsZero() {
			lines = append(lines, "    Started:   "+d.formatTime(t.StartedAt))
		}
		if !t.FinishedAt.IsZero() {
			lines = append(lines, "    Finished:  "+d.formatTime(t.FinishedAt))
		}
	}
	if w := state.Waiting; w != nil {
		lines = append(lines, label+"Waiting")
		if w.Reason != "" {
			lines = append(lines, "    Reason:    "+w.Reason)
		}
	}
	if r := state.Running; r != nil {
		lines = append(lines, label+"Running")
		if !r.StartedAt.IsZero() {
			lines = append(lines, "    Started:   "+d.formatTime(r.StartedAt))
		}
	}
	return lines
}

func (d *diagnostics) formatTime(t metav1.Time) string {
	loc := d.location
	if loc == nil {
		loc = time.Local
	}
	return t.Time.In(loc).Format(reportTimeLayout)
}

// centerRule centers title in a rule of '=' that is width columns wide.
func centerRule(title string, width int) string {
	w := runewidth.StringWidth(title)
	if w >= width {
		return title
	}
	pad := width - w
	left := pad / 2
	return strings.Repeat("=", left) + title + strings.Repeat("=", pad-left)
}
