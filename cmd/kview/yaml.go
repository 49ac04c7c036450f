// File: cmd/kview/yaml.go
// Brief: CLI command wiring and implementation for 'yaml'.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/yaml"

	"github.com/example/kview/internal/config"
	"github.com/example/kview/internal/kube"
)

func newYAMLCommand(opts *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:           "yaml TARGET",
		Short:         "Print the manifest of the pod a target resolves to",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Target = args[0]
			if err := opts.Validate(); err != nil {
				return err
			}
			client, err := kube.New(opts.KubeConfigPath, opts.Context)
			if err != nil {
				return err
			}
			pod, err := resolveTarget(cmd.Context(), cmd, client, opts)
			if err != nil {
				return err
			}
			return writePodYAML(cmd.OutOrStdout(), pod)
		},
	}
}

// writePodYAML prints pod without managed fields, which only add noise.
func writePodYAML(w io.Writer, pod *corev1.Pod) error {
	clean := pod.DeepCopy()
	clean.APIVersion = "v1"
	clean.Kind = "Pod"
	clean.ManagedFields = nil
	data, err := yaml.Marshal(clean)
	if err != nil {
		return fmt.Errorf("encode pod %s/%s: %w", pod.Namespace, pod.Name, err)
	}
	_, err = w.Write(data)
	return err
}
