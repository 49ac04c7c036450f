// File: internal/kube/target.go
// Brief: Resolution of log targets (pod or workload references) to a pod.

package kube

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"
)

// TargetKind is the kind of object a log target names.
type TargetKind string

const (
	TargetPod         TargetKind = "pod"
	TargetDeployment  TargetKind = "deployment"
	TargetStatefulSet TargetKind = "statefulset"
	TargetJob         TargetKind = "job"
)

// Target is a parsed "kind/name" reference.
type Target struct {
	Kind TargetKind
	Name string
}

func (t Target) String() string {
	return string(t.Kind) + "/" + t.Name
}

// ParseTarget accepts "name", "pod/name", "deployment/name",
// "statefulset/name" or "job/name". Common short forms are accepted for the
// kind.
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, fmt.Errorf("target is required")
	}
	kind, name, found := strings.Cut(raw, "/")
	if !found {
		return Target{Kind: TargetPod, Name: raw}, nil
	}
	if name == "" || strings.Contains(name, "/") {
		return Target{}, fmt.Errorf("invalid target %q (expected kind/name)", raw)
	}
	switch strings.ToLower(kind) {
	case "pod", "pods", "po":
		return Target{Kind: TargetPod, Name: name}, nil
	case "deployment", "deployments", "deploy":
		return Target{Kind: TargetDeployment, Name: name}, nil
	case "statefulset", "statefulsets", "sts":
		return Target{Kind: TargetStatefulSet, Name: name}, nil
	case "job", "jobs":
		return Target{Kind: TargetJob, Name: name}, nil
	default:
		return Target{}, fmt.Errorf("unsupported target kind %q (expected pod, deployment, statefulset or job)", kind)
	}
}

// ResolvePod returns the pod a target refers to. Workloads resolve to their
// newest pod that is not being deleted.
func ResolvePod(ctx context.Context, clientset kubernetes.Interface, namespace string, target Target) (*corev1.Pod, error) {
	var selector *metav1.LabelSelector
	switch target.Kind {
	case TargetPod:
		pod, err := clientset.CoreV1().Pods(namespace).Get(ctx, target.Name, metav1.GetOptions{})
		if err != nil {
			return nil, errors.Wrapf(err, "get pod %s/%s", namespace, target.Name)
		}
		return pod, nil
	case TargetDeployment:
		deploy, err := clientset.AppsV1().Deployments(namespace).Get(ctx, target.Name, metav1.GetOptions{})
		if err != nil {
			return nil, errors.Wrapf(err, "get deployment %s/%s", namespace, target.Name)
		}
		selector = deploy.Spec.Selector
	case TargetStatefulSet:
		sts, err := clientset.AppsV1().StatefulSets(namespace).Get(ctx, target.Name, metav1.GetOptions{})
		if err != nil {
			return nil, errors.Wrapf(err, "get statefulset %s/%s", namespace, target.Name)
		}
		selector = sts.Spec.Selector
	case TargetJob:
		job, err := clientset.BatchV1().Jobs(namespace).Get(ctx, target.Name, metav1.GetOptions{})
		if err != nil {
			return nil, errors.Wrapf(err, "get job %s/%s", namespace, target.Name)
		}
		selector = job.Spec.Selector
		if selector == nil {
			selector = &metav1.LabelSelector{MatchLabels: map[string]string{"job-name": target.Name}}
		}
	default:
		return nil, fmt.Errorf("unsupported target kind %q", target.Kind)
	}
	if selector == nil {
		return nil, fmt.Errorf("%s in %s has no pod selector", target, namespace)
	}
	sel, err := metav1.LabelSelectorAsSelector(selector)
	if err != nil {
		return nil, errors.Wrapf(err, "parse selector of %s", target)
	}
	return newestPod(ctx, clientset, namespace, target, sel)
}

func newestPod(ctx context.Context, clientset kubernetes.Interface, namespace string, target Target, sel labels.Selector) (*corev1.Pod, error) {
	list, err := clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: sel.String()})
	if err != nil {
		return nil, errors.Wrapf(err, "list pods of %s", target)
	}
	var pods []corev1.Pod
	for _, pod := range list.Items {
		if pod.DeletionTimestamp == nil {
			pods = append(pods, pod)
		}
	}
	if len(pods) == 0 {
		return nil, fmt.Errorf("no pods found for %s in namespace %s", target, namespace)
	}
	sort.SliceStable(pods, func(i, j int) bool {
		ti, tj := pods[i].CreationTimestamp, pods[j].CreationTimestamp
		if !ti.Equal(&tj) {
			return tj.Before(&ti)
		}
		return pods[i].Name < pods[j].Name
	})
	return &pods[0], nil
}
