// File: internal/kube/client.go
// Brief: Kubernetes client construction from kubeconfig.

// Package kube talks to the Kubernetes API on behalf of kview: it loads the
// kubeconfig, resolves log targets to pods and serves the engine's cluster
// calls.
package kube

import (
	"path/filepath"

	"github.com/example/kview/internal/version"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Client bundles the typed clientset with the settings it was built from.
type Client struct {
	RESTConfig *rest.Config
	Clientset  kubernetes.Interface
	Namespace  string
	// Stats records latency for every request made through Clientset.
	Stats *APIRequestStats
}

// New builds a client honoring the provided kubeconfig path and context. An
// empty path uses the default loading rules ($KUBECONFIG, ~/.kube/config).
func New(kubeconfigPath, contextName string) (*Client, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		expanded, err := homedir.Expand(kubeconfigPath)
		if err != nil {
			return nil, errors.Wrap(err, "expand kubeconfig path")
		}
		loadingRules.ExplicitPath = filepath.Clean(expanded)
	}

	overrides := &clientcmd.ConfigOverrides{}
	if contextName != "" {
		overrides.CurrentContext = contextName
	}
	clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides)
	namespace, _, err := clientConfig.Namespace()
	if err != nil {
		return nil, errors.Wrap(err, "resolve default namespace")
	}
	restConfig, err := clientConfig.ClientConfig()
	if err != nil {
		return nil, errors.Wrap(err, "build rest config")
	}
	rest.SetDefaultWarningHandler(rest.NoWarnings{})

	// No client-wide Timeout: log follows and watches are long-lived. Unary
	// calls are bounded per request in Cluster.
	restConfig.QPS = 50
	restConfig.Burst = 100
	restConfig.UserAgent = version.UserAgent()

	stats := NewAPIRequestStats()
	AttachAPITelemetry(restConfig, stats)

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, errors.Wrap(err, "create typed client")
	}
	return &Client{
		RESTConfig: restConfig,
		Clientset:  clientset,
		Namespace:  namespace,
		Stats:      stats,
	}, nil
}

// Cluster returns the engine-facing adapter over this client.
func (c *Client) Cluster() *Cluster {
	return NewCluster(c.Clientset)
}
