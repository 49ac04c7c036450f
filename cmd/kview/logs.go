// File: cmd/kview/logs.go
// Brief: CLI command wiring and implementation for 'logs'.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	corev1 "k8s.io/api/core/v1"

	"github.com/example/kview/internal/config"
	"github.com/example/kview/internal/featureflags"
	"github.com/example/kview/internal/kube"
	"github.com/example/kview/internal/logging"
	"github.com/example/kview/internal/podlog"
	"github.com/example/kview/internal/ui"
)

func newLogsCommand(opts *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "logs TARGET",
		Short: "Follow init and main container logs of one pod",
		Long: `Follow every container of a pod. Init containers are shown one after another,
main containers together, each line prefixed with its container. When a
container exits with a non-zero code a report with its state and recent
events is printed to stderr.

TARGET is a pod name or kind/name for pod, deployment, statefulset or job.
Workloads resolve to their newest pod.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Target = args[0]
			return runLogs(cmd, opts)
		},
	}
}

func runLogs(cmd *cobra.Command, opts *config.Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	logger, closeLog, err := setupLogging(opts)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := cmd.Context()
	flags := featureflags.FromContext(ctx)
	logFeatures(logger, flags)
	client, err := kube.New(opts.KubeConfigPath, opts.Context)
	if err != nil {
		return err
	}
	defer func() { client.Stats.Snapshot().Log(logger) }()

	pod, err := resolveTarget(ctx, cmd, client, opts)
	if err != nil {
		return err
	}
	view := &ui.LogView{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
	return followPod(ctx, logger, client.Cluster(), view, podlog.Options{
		Namespace:     pod.Namespace,
		Pod:           pod.Name,
		PollInterval:  opts.PollInterval,
		FlushInterval: opts.FlushInterval,
		WatchTimeout:  opts.WatchTimeout,
		ColorMode:     podlog.ColorMode(opts.ColorMode),
		RenewWatch:    flags.Enabled(featureflags.FeaturePodWatchRenew),
		Location:      opts.TimeLocation,
	})
}

func logFeatures(logger logr.Logger, flags featureflags.Flags) {
	for _, name := range flags.EnabledNames() {
		def, _ := featureflags.DefinitionByName(name)
		logger.V(1).Info("feature enabled", "feature", name, "stage", def.Stage, "env", def.EnvVar())
	}
}

// followPod runs one log session to completion and renders it through view.
// Errors the view already displayed come back as reportedError.
func followPod(ctx context.Context, logger logr.Logger, cluster podlog.Cluster, view *ui.LogView, opts podlog.Options) error {
	events := make(chan podlog.Event)
	session, err := podlog.NewSession(cluster, events, logger, opts)
	if err != nil {
		return err
	}

	view.Header(opts.Namespace, opts.Pod)
	rendered := make(chan ui.Summary, 1)
	go func() {
		rendered <- view.Run(context.Background(), events)
	}()

	session.Start(ctx)
	select {
	case <-session.Done():
	case <-ctx.Done():
	}
	session.Stop()
	close(events)
	summary := <-rendered
	logger.V(1).Info("log session finished", "lines", summary.Lines, "batches", summary.Batches, "failures", summary.Failures)

	if err := session.Err(); err != nil && ctx.Err() == nil {
		return reportedError{err: err}
	}
	return nil
}

func resolveTarget(ctx context.Context, cmd *cobra.Command, client *kube.Client, opts *config.Options) (*corev1.Pod, error) {
	target, err := kube.ParseTarget(opts.Target)
	if err != nil {
		return nil, err
	}
	namespace := opts.Namespace
	if namespace == "" {
		namespace = client.Namespace
	}
	stop := ui.StartSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Resolving %s in %s", target, namespace))
	pod, err := kube.ResolvePod(ctx, client.Clientset, namespace, target)
	stop(err == nil)
	return pod, err
}

// setupLogging builds the process logger and routes client-go's klog output
// through it. The returned func closes the log file, if any.
func setupLogging(opts *config.Options) (logr.Logger, func(), error) {
	closeFn := func() {}
	var out io.Writer
	if opts.LogFile != "" {
		f, err := logging.OpenFile(opts.LogFile)
		if err != nil {
			return logr.Logger{}, closeFn, err
		}
		out = f
		closeFn = func() { _ = f.Close() }
	}
	logger, err := logging.New(opts.LogLevel, out)
	if err != nil {
		closeFn()
		return logr.Logger{}, func() {}, err
	}
	if err := initKlog(logger, opts.EffectiveKubeLogLevel()); err != nil {
		closeFn()
		return logr.Logger{}, func() {}, err
	}
	return logger, closeFn, nil
}
