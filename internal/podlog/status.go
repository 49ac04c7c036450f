// File: internal/podlog/status.go
// Brief: Container status lookups and the abnormal-exit rule.

package podlog

import (
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"
)

const (
	reasonPodInitializing  = "PodInitializing"
	reasonCrashLoopBackOff = "CrashLoopBackOff"
)

// ErrPodStatusMissing is returned when no pod object has been observed yet,
// so there is no status to inspect.
var ErrPodStatusMissing = errors.New("pod status is not available")

// ContainerKind distinguishes init containers from main containers.
type ContainerKind string

const (
	KindInit ContainerKind = "init"
	KindMain ContainerKind = "main"
)

// ContainerRef addresses one container of the pod by kind, position and name.
type ContainerRef struct {
	Kind  ContainerKind
	Index int
	Name  string
}

func (r ContainerRef) String() string {
	return fmt.Sprintf("%s[%d]:%s", r.Kind, r.Index, r.Name)
}

// ExitError reports a container that exited abnormally. Error returns the
// rendered diagnostic report.
type ExitError struct {
	Container  string
	Kind       ContainerKind
	Diagnostic string
}

func (e *ExitError) Error() string {
	if e.Diagnostic != "" {
		return e.Diagnostic
	}
	return fmt.Sprintf("container %q exited with a non-zero exit code", e.Container)
}

// IsTerminated reports whether the container exited abnormally. A zero exit
// code never counts as a failure.
func IsTerminated(status *corev1.ContainerStatus) bool {
	if status == nil {
		return false
	}
	if last := status.LastTerminationState.Terminated; last != nil && last.ExitCode != 0 {
		// Covers the crash-loop case too: the failed run is only visible in
		// LastTerminationState once State has moved on to Waiting{CrashLoopBackOff}.
		return true
	}
	if cur := status.State.Terminated; cur != nil && cur.ExitCode != 0 {
		return true
	}
	return false
}

func isCrashLooping(status *corev1.ContainerStatus) bool {
	return status.State.Waiting != nil && status.State.Waiting.Reason == reasonCrashLoopBackOff
}

func containerStatuses(pod *corev1.Pod, kind ContainerKind) []corev1.ContainerStatus {
	if kind == KindInit {
		return pod.Status.InitContainerStatuses
	}
	return pod.Status.ContainerStatuses
}

// lookupStatus returns the status for ref, or nil when the kubelet has not
// reported it yet.
func lookupStatus(pod *corev1.Pod, ref ContainerRef) (*corev1.ContainerStatus, error) {
	if pod == nil {
		return nil, ErrPodStatusMissing
	}
	statuses := containerStatuses(pod, ref.Kind)
	if ref.Index >= 0 && ref.Index < len(statuses) && statuses[ref.Index].Name == ref.Name {
		return &statuses[ref.Index], nil
	}
	for i := range statuses {
		if statuses[i].Name == ref.Name {
			return &statuses[i], nil
		}
	}
	return nil, nil
}

func lookupContainer(pod *corev1.Pod, ref ContainerRef) *corev1.Container {
	if pod == nil {
		return nil
	}
	containers := pod.Spec.Containers
	if ref.Kind == KindInit {
		containers = pod.Spec.InitContainers
	}
	if ref.Index >= 0 && ref.Index < len(containers) && containers[ref.Index].Name == ref.Name {
		return &containers[ref.Index]
	}
	for i := range containers {
		if containers[i].Name == ref.Name {
			return &containers[i]
		}
	}
	return nil
}
