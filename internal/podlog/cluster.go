package podlog

import (
	"context"
	"io"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/watch"
)

// Cluster is the slice of the Kubernetes API a log session needs.
type Cluster interface {
	GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, error)
	// WatchPod watches the single named pod; the server ends the watch after timeout.
	WatchPod(ctx context.Context, namespace, name string, timeout time.Duration) (watch.Interface, error)
	// StreamContainerLog follows the container's log until it stops producing output.
	StreamContainerLog(ctx context.Context, namespace, pod, container string) (io.ReadCloser, error)
	ListEvents(ctx context.Context, namespace, fieldSelector string) ([]corev1.Event, error)
}
