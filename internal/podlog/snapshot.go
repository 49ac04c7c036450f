package podlog

import (
	"sync"

	corev1 "k8s.io/api/core/v1"
)

// podSnapshot holds the latest observed pod. Stored pods are never mutated
// after Set, so readers may keep the pointer they were handed.
type podSnapshot struct {
	mu  sync.RWMutex
	pod *corev1.Pod
}

func (s *podSnapshot) Set(pod *corev1.Pod) {
	s.mu.Lock()
	s.pod = pod
	s.mu.Unlock()
}

func (s *podSnapshot) Get() *corev1.Pod {
	s.mu.RLock()
	pod := s.pod
	s.mu.RUnlock()
	return pod
}

func (s *podSnapshot) status(ref ContainerRef) (*corev1.ContainerStatus, error) {
	return lookupStatus(s.Get(), ref)
}
