// File: internal/config/config.go
// Brief: Command-line options for kview.

// Package config defines the flag plumbing and runtime options shared by
// kview's commands, translating Cobra/Viper flag values into a strongly typed
// struct that the log session consumes.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/example/kview/internal/featureflags"
)

// Options holds all CLI configuration.
type Options struct {
	Namespace      string
	Target         string
	KubeConfigPath string
	Context        string
	ColorMode      string
	PollInterval   time.Duration
	FlushInterval  time.Duration
	WatchTimeout   time.Duration
	TimeZone       string
	TimeLocation   *time.Location
	LogLevel       string
	LogFile        string
	KubeLogLevel   int
	Features       []string
}

const (
	defaultPollInterval  = 200 * time.Millisecond
	defaultFlushInterval = 200 * time.Millisecond
	defaultWatchTimeout  = 180 * time.Second
)

// NewOptions returns Options with defaults applied.
func NewOptions() *Options {
	return &Options{
		ColorMode:     "auto",
		PollInterval:  defaultPollInterval,
		FlushInterval: defaultFlushInterval,
		WatchTimeout:  defaultWatchTimeout,
		LogLevel:      "info",
		KubeLogLevel:  -1,
	}
}

// AddFlags binds configuration flags to the provided Cobra command's
// persistent flags so every subcommand shares them.
func (o *Options) AddFlags(cmd *cobra.Command) []string {
	return o.BindFlags(cmd.PersistentFlags())
}

// BindFlags attaches the flags to an arbitrary FlagSet and returns the flag
// names for further customization.
func (o *Options) BindFlags(fs *pflag.FlagSet) []string {
	var names []string
	fs.StringVarP(&o.Namespace, "namespace", "n", "", "Kubernetes namespace to use. Defaults to the context namespace")
	names = append(names, "namespace")
	fs.StringVar(&o.KubeConfigPath, "kubeconfig", "", "Path to the kubeconfig file to use")
	names = append(names, "kubeconfig")
	fs.StringVar(&o.Context, "context", "", "Name of the kubeconfig context to use")
	names = append(names, "context")
	fs.StringVarP(&o.ColorMode, "color", "m", "auto", "Color container prefixes. 'auto': colorize if tty attached, 'always': always colorize, 'never': never colorize")
	names = append(names, "color")
	fs.DurationVar(&o.PollInterval, "poll-interval", defaultPollInterval, "How often container state is re-checked while waiting for it to start or finish")
	names = append(names, "poll-interval")
	fs.DurationVar(&o.FlushInterval, "flush-interval", defaultFlushInterval, "How often buffered log lines are delivered")
	names = append(names, "flush-interval")
	fs.DurationVar(&o.WatchTimeout, "watch-timeout", defaultWatchTimeout, "Server-side timeout of the pod status watch")
	names = append(names, "watch-timeout")
	fs.StringVar(&o.TimeZone, "timezone", "", "IANA timezone name used for timestamps in failure reports (e.g. Asia/Tokyo)")
	names = append(names, "timezone")
	fs.StringVar(&o.LogLevel, "log-level", "info", "Log level for kview's own output (debug, info, warn, error)")
	names = append(names, "log-level")
	fs.StringVar(&o.LogFile, "log-file", "", "Write kview's own logs to this file instead of stderr")
	names = append(names, "log-file")
	fs.IntVar(&o.KubeLogLevel, "kube-log-level", -1, "client-go verbosity (klog -v); -1 follows --log-level")
	names = append(names, "kube-log-level")
	fs.StringSliceVar(&o.Features, "feature", nil, featureUsage())
	names = append(names, "feature")
	return names
}

// Validate normalizes values and rejects incoherent ones.
func (o *Options) Validate() error {
	o.Target = strings.TrimSpace(o.Target)
	if o.Target == "" {
		return fmt.Errorf("a target is required (pod name or kind/name)")
	}
	o.Namespace = strings.TrimSpace(o.Namespace)
	o.ColorMode = strings.ToLower(strings.TrimSpace(o.ColorMode))
	switch o.ColorMode {
	case "":
		o.ColorMode = "auto"
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid --color %q (expected auto, always, or never)", o.ColorMode)
	}
	if o.PollInterval <= 0 {
		return fmt.Errorf("--poll-interval must be positive, got %s", o.PollInterval)
	}
	if o.FlushInterval <= 0 {
		return fmt.Errorf("--flush-interval must be positive, got %s", o.FlushInterval)
	}
	if o.WatchTimeout < time.Second {
		return fmt.Errorf("--watch-timeout must be at least 1s, got %s", o.WatchTimeout)
	}
	if o.TimeZone != "" {
		loc, err := time.LoadLocation(o.TimeZone)
		if err != nil {
			return fmt.Errorf("invalid --timezone %q: %w", o.TimeZone, err)
		}
		o.TimeLocation = loc
	}
	if o.KubeLogLevel < -1 {
		return fmt.Errorf("--kube-log-level must be -1 or greater, got %d", o.KubeLogLevel)
	}
	return nil
}

// EffectiveKubeLogLevel returns the klog verbosity. An unset value follows
// the log level: debug maps to 6, everything else to 0.
func (o *Options) EffectiveKubeLogLevel() int {
	if o.KubeLogLevel >= 0 {
		return o.KubeLogLevel
	}
	if strings.EqualFold(o.LogLevel, "debug") {
		return 6
	}
	return 0
}

// featureUsage lists every registered feature flag with its stage and the
// environment variable that also enables it.
func featureUsage() string {
	var b strings.Builder
	b.WriteString("Enable features (repeat or comma-separate):")
	for _, def := range featureflags.Definitions() {
		fmt.Fprintf(&b, "\n  %s [%s, %s=1] %s", def.Name, def.Stage, def.EnvVar(), def.Description)
	}
	return b.String()
}
