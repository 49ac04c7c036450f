// File: internal/podlog/orchestrator.go
// Brief: Init-then-main streaming state machine for one pod.

package podlog

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
)

type orchestrator struct {
	cluster   Cluster
	namespace string
	podName   string
	snapshot  *podSnapshot
	gate      *gate
	streamer  *streamer
	diag      *diagnostics
	painter   painter
	out       chan<- Event
	log       logr.Logger
}

// Run seeds the snapshot, streams every init container in order and then
// every main container concurrently. It returns the first failure.
func (o *orchestrator) Run(ctx context.Context) error {
	pod, err := o.cluster.GetPod(ctx, o.namespace, o.podName)
	if err != nil {
		return o.fail(ctx, fmt.Errorf("get pod %s/%s: %w", o.namespace, o.podName, err))
	}
	// The tracker's watch may not have delivered anything yet.
	o.snapshot.Set(pod)

	var cursor Cursor
	if err := o.runInitPhase(ctx, pod, &cursor); err != nil {
		return err
	}
	o.log.V(1).Info("init phase done", "initContainers", len(pod.Spec.InitContainers))

	err = o.runMainPhase(ctx, o.snapshot.Get(), &cursor)
	o.log.V(1).Info("main phase done", "error", err != nil)
	return err
}

func (o *orchestrator) runInitPhase(ctx context.Context, pod *corev1.Pod, cursor *Cursor) error {
	total := len(pod.Spec.InitContainers)
	for i, c := range pod.Spec.InitContainers {
		ref := ContainerRef{Kind: KindInit, Index: i, Name: c.Name}
		prefix := o.painter.paint(cursor.Next(), initPrefix(i, total, c.Name))
		if err := o.runContainer(ctx, ref, prefix); err != nil {
			return err
		}
	}
	return nil
}

// runMainPhase runs all main containers to completion. A failing container
// never cancels its siblings.
func (o *orchestrator) runMainPhase(ctx context.Context, pod *corev1.Pod, cursor *Cursor) error {
	prefixed := len(pod.Spec.Containers) > 1
	var g errgroup.Group
	for i, c := range pod.Spec.Containers {
		ref := ContainerRef{Kind: KindMain, Index: i, Name: c.Name}
		prefix := ""
		if prefixed {
			prefix = o.painter.paint(cursor.Next(), mainPrefix(c.Name))
		}
		g.Go(func() error {
			return o.runContainer(ctx, ref, prefix)
		})
	}
	return g.Wait()
}

// runContainer waits for the container to start, follows its log, waits for
// it to terminate and checks how it exited.
func (o *orchestrator) runContainer(ctx context.Context, ref ContainerRef, prefix string) error {
	log := o.log.WithValues("container", ref.String())
	if err := o.gate.WaitFor(ctx, ref, ReadyOrWaitingOther); err != nil {
		return o.fail(ctx, fmt.Errorf("wait for container %q to start: %w", ref.Name, err))
	}
	if err := o.streamer.Stream(ctx, ref.Name, prefix); err != nil {
		return o.fail(ctx, err)
	}
	if err := o.gate.WaitFor(ctx, ref, Terminated); err != nil {
		return o.fail(ctx, fmt.Errorf("wait for container %q to terminate: %w", ref.Name, err))
	}
	err := o.checkExit(ctx, ref)
	if err == nil {
		log.V(1).Info("container finished")
	}
	return err
}

func (o *orchestrator) checkExit(ctx context.Context, ref ContainerRef) error {
	pod := o.snapshot.Get()
	status, err := lookupStatus(pod, ref)
	if err != nil {
		return o.fail(ctx, fmt.Errorf("read status of container %q: %w", ref.Name, err))
	}
	if !IsTerminated(status) {
		return nil
	}
	report, err := o.diag.Build(ctx, DiagnosticInput{
		Namespace: o.namespace,
		Pod:       o.podName,
		PodUID:    pod.UID,
		Kind:      ref.Kind,
		Container: lookupContainer(pod, ref),
		Status:    *status,
	})
	if err != nil {
		return o.fail(ctx, err)
	}
	exitErr := &ExitError{Container: ref.Name, Kind: ref.Kind, Diagnostic: report}
	o.log.Info("container exited abnormally", "container", ref.Name, "kind", ref.Kind)
	emit(ctx, o.out, Event{Err: exitErr})
	return exitErr
}

// fail reports err on the output channel and returns it. Teardown of the
// session is not reported.
func (o *orchestrator) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	o.log.Error(err, "log stream failed", "pod", o.podName)
	emit(ctx, o.out, Event{Err: err})
	return err
}
