package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/example/kview/internal/config"
)

func isolateConfig(t *testing.T) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("{}\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("KVIEW_CONFIG", cfgPath)
}

func TestVersionCommandPrintsVersion(t *testing.T) {
	isolateConfig(t)
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"version"})

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Version: dev") || !strings.Contains(got, "UserAgent: kview/dev") {
		t.Fatalf("unexpected version output: %q", got)
	}
}

func TestRootCommandWiring(t *testing.T) {
	isolateConfig(t)
	root := newRootCommand()
	for _, name := range []string{"logs", "yaml", "version"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Fatalf("expected %s subcommand, got %v (%v)", name, cmd, err)
		}
	}
	for _, flag := range []string{"namespace", "kubeconfig", "context", "color", "log-file", "kube-log-level", "feature"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Fatalf("expected persistent flag --%s", flag)
		}
	}
}

func TestLogsRequiresTarget(t *testing.T) {
	isolateConfig(t)
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"logs"})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected missing target to fail")
	}
}

func TestUnknownFeatureFails(t *testing.T) {
	isolateConfig(t)
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"version", "--feature", "time-travel"})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected unknown feature flag to fail")
	}
}

func TestConfigFileBindingStaysWithCommand(t *testing.T) {
	stale := filepath.Join(t.TempDir(), "stale.yaml")
	if err := os.WriteFile(stale, []byte("feature:\n  - time-travel\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("KVIEW_CONFIG", stale)
	first := newRootCommand()
	first.SetOut(&bytes.Buffer{})
	first.SetErr(&bytes.Buffer{})
	first.SetArgs([]string{"version"})
	if err := first.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected the feature from the config file to be rejected")
	}
	if err := os.Remove(stale); err != nil {
		t.Fatalf("remove config: %v", err)
	}

	isolateConfig(t)
	second := newRootCommand()
	var out bytes.Buffer
	second.SetOut(&out)
	second.SetErr(&bytes.Buffer{})
	second.SetArgs([]string{"version", "--short"})
	if err := second.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("second command must not read the first one's config: %v", err)
	}
	if strings.TrimSpace(out.String()) == "" {
		t.Fatalf("expected version output")
	}
}

func TestApplyViperFillsUnsetFlags(t *testing.T) {
	opts := config.NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.BindFlags(fs)
	if err := fs.Parse([]string{"--namespace", "explicit"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	v := viper.New()
	v.Set("namespace", "from-config")
	v.Set("color", "never")
	v.Set("feature", []any{"pod-watch-renew"})
	v.Set("poll-interval", "50ms")
	applyViper(v, fs)

	if opts.Namespace != "explicit" {
		t.Fatalf("explicit flag must win, got %q", opts.Namespace)
	}
	if opts.ColorMode != "never" {
		t.Fatalf("expected color from config, got %q", opts.ColorMode)
	}
	if len(opts.Features) != 1 || opts.Features[0] != "pod-watch-renew" {
		t.Fatalf("expected features from config, got %v", opts.Features)
	}
	if opts.PollInterval.String() != "50ms" {
		t.Fatalf("expected poll interval from config, got %s", opts.PollInterval)
	}
}

func TestConfigSearchDirs(t *testing.T) {
	xdg := t.TempDir()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", home)

	dirs := configSearchDirs()
	want := []string{
		filepath.Join(xdg, "kview"),
		filepath.Join(home, ".config", "kview"),
		filepath.Join(home, ".kview"),
	}
	if strings.Join(dirs, "|") != strings.Join(want, "|") {
		t.Fatalf("configSearchDirs() = %v, want %v", dirs, want)
	}
}

func TestErrorMessageHints(t *testing.T) {
	tests := []struct {
		name string
		err  error
		hint string
	}{
		{"unauthorized", apierrors.NewUnauthorized("token expired"), "credentials were rejected"},
		{"forbidden", apierrors.NewForbidden(schema.GroupResource{Resource: "pods"}, "web-0", errors.New("denied")), "get/list/watch on pods"},
		{"not found", apierrors.NewNotFound(schema.GroupResource{Resource: "pods"}, "web-0"), "check the target name"},
		{"deadline", fmt.Errorf("get pod: %w", context.DeadlineExceeded), "network connectivity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if msg := errorMessage(tt.err); !strings.Contains(msg, "Hint: ") || !strings.Contains(msg, tt.hint) {
				t.Fatalf("expected hint %q, got %q", tt.hint, msg)
			}
		})
	}
	if msg := errorMessage(errors.New("plain")); msg != "plain" {
		t.Fatalf("unexpected message for plain error: %q", msg)
	}
}

func TestHandleError(t *testing.T) {
	var buf bytes.Buffer
	handleError(&buf, nil)
	handleError(&buf, pflag.ErrHelp)
	handleError(&buf, reportedError{err: errors.New("already shown")})
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
	handleError(&buf, errors.New("boom"))
	if buf.String() != "Error: boom\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
