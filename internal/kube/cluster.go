package kube

import (
	"context"
	"io"
	"time"

	"github.com/example/kview/internal/podlog"
	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"
)

// requestTimeout bounds the unary calls made through Cluster.
const requestTimeout = 30 * time.Second

// Cluster serves the log engine's API calls from a typed clientset.
type Cluster struct {
	clientset kubernetes.Interface
}

func NewCluster(clientset kubernetes.Interface) *Cluster {
	return &Cluster{clientset: clientset}
}

func (c *Cluster) GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	pod, err := c.clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "get pod %s/%s", namespace, name)
	}
	return pod, nil
}

// WatchPod opens a watch on the single named pod. The server closes it after
// timeout, rounded down to whole seconds.
func (c *Cluster) WatchPod(ctx context.Context, namespace, name string, timeout time.Duration) (watch.Interface, error) {
	seconds := int64(timeout / time.Second)
	opts := metav1.ListOptions{
		FieldSelector: fields.OneTermEqualSelector("metadata.name", name).String(),
	}
	if seconds > 0 {
		opts.TimeoutSeconds = &seconds
	}
	w, err := c.clientset.CoreV1().Pods(namespace).Watch(ctx, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "watch pod %s/%s", namespace, name)
	}
	return w, nil
}

// StreamContainerLog follows the container's log. The stream ends when the
// container stops or ctx is cancelled.
func (c *Cluster) StreamContainerLog(ctx context.Context, namespace, pod, container string) (io.ReadCloser, error) {
	req := c.clientset.CoreV1().Pods(namespace).GetLogs(pod, &corev1.PodLogOptions{
		Container: container,
		Follow:    true,
	})
	stream, err := req.Stream(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "stream logs of %s/%s container %s", namespace, pod, container)
	}
	return stream, nil
}

func (c *Cluster) ListEvents(ctx context.Context, namespace, fieldSelector string) ([]corev1.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	list, err := c.clientset.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{FieldSelector: fieldSelector})
	if err != nil {
		return nil, errors.Wrapf(err, "list events in %s", namespace)
	}
	return list.Items, nil
}

var _ podlog.Cluster = (*Cluster)(nil)
