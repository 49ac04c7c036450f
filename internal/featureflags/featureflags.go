// Package featureflags holds kview's opt-in behaviors. Flags come from
// --feature (or the feature key of the config file) and KVIEW_FEATURE_*
// environment variables, and travel to commands on the context.
package featureflags

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Stage indicates how settled a flag's behavior is.
type Stage string

const StageExperimental Stage = "experimental"

// Name is the kebab-case identifier of a flag.
type Name string

// FeaturePodWatchRenew reopens the pod status watch after the server times it
// out instead of leaving the status stale.
const FeaturePodWatchRenew Name = "pod-watch-renew"

const envPrefix = "KVIEW_FEATURE_"

// Definition describes a registered flag.
type Definition struct {
	Name        Name
	Description string
	Stage       Stage
	Default     bool
}

// EnvVar returns the variable that toggles the flag, e.g.
// KVIEW_FEATURE_POD_WATCH_RENEW.
func (d Definition) EnvVar() string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(string(d.Name), "-", "_"))
}

var registry = map[Name]Definition{
	FeaturePodWatchRenew: {
		Name:        FeaturePodWatchRenew,
		Description: "Keep pod status fresh past the watch timeout by reopening the watch.",
		Stage:       StageExperimental,
	},
}

// ErrUnknownFeature is returned for a token that names no registered flag.
var ErrUnknownFeature = errors.New("unknown feature flag")

// DefinitionByName looks up a registered flag.
func DefinitionByName(name Name) (Definition, bool) {
	def, ok := registry[name]
	return def, ok
}

// Definitions returns every registered flag sorted by name.
func Definitions() []Definition {
	names := slices.Sorted(maps.Keys(registry))
	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		defs = append(defs, registry[name])
	}
	return defs
}

// Flags is the resolved on/off state for one invocation. The zero value has
// everything off.
type Flags struct {
	on map[Name]bool
}

func (f Flags) Enabled(name Name) bool {
	return f.on[name]
}

// EnabledNames lists the flags that are on, sorted.
func (f Flags) EnabledNames() []Name {
	var names []Name
	for name, on := range f.on {
		if on {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Resolve starts from the registered defaults and applies each source in
// order, so later sources win. A token is "name", "name=<bool>" or "-name";
// sources may hold comma-separated tokens.
func Resolve(sources ...[]string) (Flags, error) {
	on := make(map[Name]bool, len(registry))
	for name, def := range registry {
		on[name] = def.Default
	}
	for _, source := range sources {
		for _, value := range source {
			for _, token := range strings.Split(value, ",") {
				token = strings.TrimSpace(token)
				if token == "" {
					continue
				}
				name, enabled, err := parseToken(token)
				if err != nil {
					return Flags{}, err
				}
				on[name] = enabled
			}
		}
	}
	return Flags{on: on}, nil
}

func parseToken(token string) (Name, bool, error) {
	raw, enabled := token, true
	if rest, ok := strings.CutPrefix(raw, "-"); ok {
		raw, enabled = rest, false
	} else if key, val, ok := strings.Cut(raw, "="); ok {
		b, err := parseBool(val)
		if err != nil {
			return "", false, fmt.Errorf("feature %s: %w", token, err)
		}
		raw, enabled = key, b
	}
	name := Name(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "_", "-"))
	if _, ok := registry[name]; !ok {
		return "", false, fmt.Errorf("%w: %s", ErrUnknownFeature, token)
	}
	return name, enabled, nil
}

func parseBool(val string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "y", "yes", "on":
		return true, nil
	case "n", "no", "off", "":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(val))
}

// EnabledFromEnv turns KVIEW_FEATURE_* variables from environ (os.Environ when
// nil) into Resolve tokens. A false value yields a disabling token, unless it
// names no registered flag. Values that are not booleans are ignored.
func EnabledFromEnv(environ []string) []string {
	if environ == nil {
		environ = os.Environ()
	}
	var tokens []string
	for _, entry := range environ {
		key, val, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		rest, ok := strings.CutPrefix(key, envPrefix)
		if !ok || rest == "" {
			continue
		}
		enabled, err := parseBool(val)
		if err != nil {
			continue
		}
		name := strings.ToLower(strings.ReplaceAll(rest, "_", "-"))
		if !enabled {
			if _, known := registry[Name(name)]; !known {
				continue
			}
			name = "-" + name
		}
		tokens = append(tokens, name)
	}
	slices.Sort(tokens)
	return tokens
}

type ctxKey struct{}

// ContextWithFlags stores flags on ctx.
func ContextWithFlags(ctx context.Context, flags Flags) context.Context {
	return context.WithValue(ctx, ctxKey{}, flags)
}

// FromContext returns the flags stored on ctx, or all-off flags.
func FromContext(ctx context.Context) Flags {
	if ctx == nil {
		return Flags{}
	}
	flags, _ := ctx.Value(ctxKey{}).(Flags)
	return flags
}
