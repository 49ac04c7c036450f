// File: internal/podlog/gate.go
// Brief: Readiness gate that decides when a container's logs can be opened or closed out.

package podlog

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/wait"
)

// Condition is a container state the gate can wait for.
type Condition int

const (
	// ReadyOrWaitingOther holds once the container is running, terminated,
	// or waiting for any reason other than PodInitializing.
	ReadyOrWaitingOther Condition = iota
	// Terminated holds once either the current or the previous run of the
	// container has terminated.
	Terminated
)

func (c Condition) String() string {
	switch c {
	case ReadyOrWaitingOther:
		return "ReadyOrWaitingOther"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

func (c Condition) satisfiedBy(status *corev1.ContainerStatus) bool {
	switch c {
	case Terminated:
		// LastTerminationState first: a fast crash may already have pushed
		// State on to Waiting{CrashLoopBackOff}.
		return status.LastTerminationState.Terminated != nil || status.State.Terminated != nil
	case ReadyOrWaitingOther:
		if isCrashLooping(status) {
			return true
		}
		if waiting := status.State.Waiting; waiting != nil {
			return waiting.Reason != reasonPodInitializing
		}
		return status.State.Running != nil || status.State.Terminated != nil
	default:
		return false
	}
}

// gate polls the pod snapshot until a container reaches a condition.
type gate struct {
	snapshot *podSnapshot
	interval time.Duration
	log      logr.Logger
}

// WaitFor blocks until ref satisfies cond, ctx ends, or the snapshot holds no
// pod at all.
func (g *gate) WaitFor(ctx context.Context, ref ContainerRef, cond Condition) error {
	polls := 0
	err := wait.PollUntilContextCancel(ctx, g.interval, true, func(context.Context) (bool, error) {
		polls++
		status, err := g.snapshot.status(ref)
		if err != nil {
			return false, err
		}
		if status == nil {
			return false, nil
		}
		return cond.satisfiedBy(status), nil
	})
	if err != nil {
		return err
	}
	g.log.V(1).Info("container condition met", "container", ref.String(), "condition", cond.String(), "polls", polls)
	return nil
}
