package steps

import (
	"bytes"
	"context"
	"os"
	"sort"
	"strings"

	dferrors "github.com/gapurov/simple-dotfiles/pkg/errors"
)

// envOutVar names the file an init shell dumps its environment into
const envOutVar = "__DOTFILES_ENV_OUT"

// ignoredEnv are maintained by the shell itself and never propagated
var ignoredEnv = map[string]bool{
	"_":       true,
	"SHLVL":   true,
	"PWD":     true,
	"OLDPWD":  true,
	envOutVar: true,
}

// EnvChange is one environment variable an init command set or unset
type EnvChange struct {
	Key   string
	Value string
	Unset bool
}

// RunInit runs an init action and returns the changes it made to the
// exported environment. Changes are only collected when the action
// succeeds. Nothing is applied; see ApplyEnv.
func (r *Runner) RunInit(ctx context.Context, action Action) (Result, []EnvChange) {
	raw, ok := action.(RawCommand)
	if !ok || r.opts.DryRun {
		return r.run(ctx, action, nil), nil
	}

	dump, err := os.CreateTemp("", "dotfiles-env-*")
	if err != nil {
		return Result{
			Action:   action,
			Outcome:  Failure,
			ExitCode: -1,
			Err:      dferrors.Wrap(err, dferrors.ErrStepFailed, "failed to create environment capture file"),
		}, nil
	}
	dumpPath := dump.Name()
	_ = dump.Close()
	defer func() {
		_ = os.Remove(dumpPath)
	}()

	before := environMap(os.Environ())

	wrapped := RawCommand{Command: "trap 'env -0 > \"$" + envOutVar + "\"' EXIT\n" + raw.Command}
	result := r.run(ctx, wrapped, []string{envOutVar + "=" + dumpPath})
	result.Action = action
	if !result.OK() {
		return result, nil
	}

	data, err := os.ReadFile(dumpPath)
	if err != nil {
		r.logger.Warn().Err(err).Str("command", raw.Command).Msg("Failed to read init environment")
		return result, nil
	}

	if len(data) == 0 {
		// The trap did not run, an empty dump would unset everything
		r.logger.Warn().Str("command", raw.Command).Msg("Init environment was not captured")
		return result, nil
	}

	changes := DiffEnv(before, parseEnvDump(data))
	r.logger.Debug().Str("command", raw.Command).Int("changes", len(changes)).Msg("Captured init environment")
	return result, changes
}

// ApplyEnv applies changes to the current process environment
func ApplyEnv(changes []EnvChange) error {
	for _, c := range changes {
		var err error
		if c.Unset {
			err = os.Unsetenv(c.Key)
		} else {
			err = os.Setenv(c.Key, c.Value)
		}
		if err != nil {
			return dferrors.Wrapf(err, dferrors.ErrInternal, "failed to apply environment variable %s", c.Key)
		}
	}
	return nil
}

// DiffEnv lists what changed between two environments, sorted by key
func DiffEnv(before, after map[string]string) []EnvChange {
	var changes []EnvChange
	for k, v := range after {
		if ignoredEnv[k] {
			continue
		}
		if old, ok := before[k]; !ok || old != v {
			changes = append(changes, EnvChange{Key: k, Value: v})
		}
	}
	for k := range before {
		if ignoredEnv[k] {
			continue
		}
		if _, ok := after[k]; !ok {
			changes = append(changes, EnvChange{Key: k, Unset: true})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })
	return changes
}

// parseEnvDump reads NUL separated KEY=VALUE records, as written by env -0
func parseEnvDump(data []byte) map[string]string {
	env := make(map[string]string)
	for _, record := range bytes.Split(data, []byte{0}) {
		if len(record) == 0 {
			continue
		}
		key, value, ok := strings.Cut(string(record), "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

func environMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if key, value, ok := strings.Cut(kv, "="); ok && key != "" {
			env[key] = value
		}
	}
	return env
}
