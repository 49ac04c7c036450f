// main.go bootstraps kview: it builds the root Cobra command and executes it with a signal-aware context.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/example/kview/internal/config"
	"github.com/example/kview/internal/featureflags"
	"github.com/example/kview/internal/version"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stopProfile := setupProfiling()
	defer stopProfile()

	rootCmd := newRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	handleError(os.Stderr, err)
	if err != nil {
		stopProfile()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := config.NewOptions()
	loader := newConfigLoader()
	cmd := &cobra.Command{
		Use:           "kview [TARGET]",
		Short:         "Follow every container of a Kubernetes pod in one stream",
		Long:          "kview follows init and main containers of a pod, prefixes each line with its container and explains abnormal exits.",
		Args:          cobra.MaximumNArgs(1),
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loader.apply(cmd.Flags()); err != nil {
				return err
			}
			flags, err := featureflags.Resolve(opts.Features, featureflags.EnabledFromEnv(nil))
			if err != nil {
				return err
			}
			cmd.SetContext(featureflags.ContextWithFlags(cmd.Context(), flags))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			opts.Target = args[0]
			return runLogs(cmd, opts)
		},
	}
	opts.AddFlags(cmd)
	cmd.AddCommand(newLogsCommand(opts), newYAMLCommand(opts), newVersionCommand())
	cmd.Example = `  # Follow every container of a pod
  kview logs web-0 --namespace shop

  # Follow the newest pod of a deployment without colors
  kview logs deploy/checkout --color never

  # Show the pod a statefulset target resolves to
  kview yaml sts/db`
	return cmd
}

// configLoader fills flags from KVIEW_* environment variables and the
// config file. Each root command owns one so bindings never leak between
// command trees.
type configLoader struct {
	v          *viper.Viper
	configFile string
}

func newConfigLoader() *configLoader {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("KVIEW")
	v.AutomaticEnv()
	configFile := os.Getenv("KVIEW_CONFIG")
	configureConfigFile(v, configFile)
	return &configLoader{v: v, configFile: configFile}
}

// apply binds fs, which holds the running command's local and inherited
// flags, and copies configured values onto the flags left unset.
func (l *configLoader) apply(fs *pflag.FlagSet) error {
	if err := l.v.BindPFlags(fs); err != nil {
		return err
	}
	if err := readConfigFile(l.v, l.configFile != ""); err != nil {
		return err
	}
	applyViper(l.v, fs)
	return nil
}

// applyViper copies config file and environment values onto flags the user
// did not set explicitly.
func applyViper(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		var val string
		switch raw := v.Get(f.Name).(type) {
		case []string:
			val = strings.Join(raw, ",")
		case []any:
			parts := make([]string, 0, len(raw))
			for _, item := range raw {
				parts = append(parts, fmt.Sprintf("%v", item))
			}
			val = strings.Join(parts, ",")
		default:
			val = fmt.Sprintf("%v", raw)
		}
		if val == "" {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(strings.Split(val, ","))
			return
		}
		_ = f.Value.Set(val)
	})
}

func configureConfigFile(v *viper.Viper, explicitPath string) {
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		return
	}
	v.SetConfigName("config")
	for _, dir := range configSearchDirs() {
		v.AddConfigPath(dir)
	}
}

func readConfigFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		return err
	}
	return nil
}

func configSearchDirs() []string {
	added := make(map[string]struct{})
	var dirs []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := added[path]; ok {
			return
		}
		added[path] = struct{}{}
		dirs = append(dirs, path)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		add(filepath.Join(xdg, "kview"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		add(filepath.Join(home, ".config", "kview"))
		add(filepath.Join(home, ".kview"))
	}
	return dirs
}

// reportedError marks an error the log view has already shown.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func handleError(w io.Writer, err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	var reported reportedError
	if errors.As(err, &reported) {
		return
	}
	fmt.Fprintf(w, "Error: %s\n", errorMessage(err))
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%s\nHint: verify network connectivity to the cluster.", err)
	case apierrors.IsUnauthorized(err):
		return fmt.Sprintf("%s\nHint: kubeconfig credentials were rejected. Run 'kubectl config view' to confirm the active user.", err)
	case apierrors.IsForbidden(err):
		return fmt.Sprintf("%s\nHint: kview needs get/list/watch on pods, get on pods/log and list on events in the namespace.", err)
	case apierrors.IsNotFound(err):
		return fmt.Sprintf("%s\nHint: check the target name and --namespace.", err)
	}
	return err.Error()
}
