package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/gapurov/simple-dotfiles/pkg/errors"
	"github.com/gapurov/simple-dotfiles/pkg/logging"
	"github.com/gapurov/simple-dotfiles/pkg/paths"
	"github.com/gapurov/simple-dotfiles/pkg/types"
)

// EnvPrefix starts every environment variable the loader reads
const EnvPrefix = "DOTFILES_"

// envKeys maps environment variables (without EnvPrefix) to koanf keys.
// Other DOTFILES_ variables, such as DOTFILES_CONFIG and DOTFILES_LOCK, are
// not configuration values.
var envKeys = map[string]string{
	"SHELL":        "settings.shell",
	"STEP_TIMEOUT": "settings.step_timeout",
	"BACKUP_DIR":   "settings.backup_dir",
	"ROOT":         "settings.root",
}

// listKeys are the top-level lists of a configuration
var listKeys = []string{"init", "links", "steps"}

// Options are the command-line overrides applied on top of every other layer
type Options struct {
	// RepoRoot replaces repository root discovery when set
	RepoRoot string
	// StepTimeout replaces settings.step_timeout when positive
	StepTimeout time.Duration
	// Home expands ~ in settings; detected when empty
	Home string
}

// rawConfiguration is the decode target before list entries are filtered and parsed
type rawConfiguration struct {
	Init     []string       `koanf:"init"`
	Links    []string       `koanf:"links"`
	Steps    []string       `koanf:"steps"`
	Settings types.Settings `koanf:"settings"`
}

// Load builds the effective configuration from defaults, src, the
// environment and opts. Malformed input fails with CONFIG_PARSE; input that
// parses but breaks the configuration rules fails with CONFIG_INVALID.
func Load(src *Source, opts Options) (*types.Configuration, error) {
	logger := logging.GetLogger("config")
	logger.Debug().Str("source", src.Name).Str("format", string(src.Format)).Msg("Loading configuration")

	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to load default configuration")
	}

	// 2. The source, checked on its own so defaults cannot mask a missing list
	sourceK, format, err := loadSource(src)
	if err != nil {
		return nil, err
	}
	if err := checkShape(sourceK, src.Name); err != nil {
		return nil, err
	}
	warnings := lintSource(src, format, sourceK)
	if err := k.Merge(sourceK); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to merge configuration from %s", src.Name)
	}

	// 3. Environment overrides, empty values are ignored
	err = k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		return envKeys[strings.TrimPrefix(key, EnvPrefix)], value
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment overrides")
	}

	// 4. Flags
	overrides := map[string]interface{}{}
	if opts.StepTimeout > 0 {
		overrides["settings.step_timeout"] = opts.StepTimeout.String()
	}
	if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to apply command-line overrides")
	}

	var raw rawConfiguration
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &raw,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				secondsToDurationHookFunc(),
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &raw, unmarshalConf); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigValid, "invalid settings in %s", src.Name)
	}

	cfg, err := build(&raw, src)
	if err != nil {
		return nil, err
	}
	cfg.Warnings = warnings

	home := opts.Home
	if home == "" {
		if home, err = paths.GetHomeDirectory(); err != nil {
			return nil, err
		}
	}
	cfg.Settings.BackupDir = paths.ExpandHomeWith(cfg.Settings.BackupDir, home)

	if err := resolveRepoRoot(cfg, src, opts, home); err != nil {
		return nil, err
	}

	logger.Debug().
		Str("repo_root", cfg.RepoRoot).
		Int("init", len(cfg.Init)).
		Int("links", len(cfg.Links)).
		Int("steps", len(cfg.Steps)).
		Msg("Configuration loaded")

	return cfg, nil
}

// loadSource parses src into its own koanf instance. Standard input is tried
// as TOML first and then as YAML.
func loadSource(src *Source) (*koanf.Koanf, Format, error) {
	k := koanf.New(".")

	switch src.Format {
	case FormatTOML, FormatYAML:
		var err error
		if src.Path != "" {
			err = k.Load(file.Provider(src.Path), parserFor(src.Format))
		} else {
			err = k.Load(&rawBytesProvider{bytes: src.Data}, parserFor(src.Format))
		}
		if err != nil {
			return nil, "", parseError(err, src, src.Format)
		}
		return k, src.Format, nil

	case FormatHCL:
		m, err := parseHCL(hclFilename(src), src.Data)
		if err != nil {
			return nil, "", parseError(err, src, FormatHCL)
		}
		if err := k.Load(confmap.Provider(m, ""), nil); err != nil {
			return nil, "", parseError(err, src, FormatHCL)
		}
		return k, FormatHCL, nil

	case FormatAuto:
		tomlErr := k.Load(&rawBytesProvider{bytes: src.Data}, toml.Parser())
		if tomlErr == nil {
			return k, FormatTOML, nil
		}
		k = koanf.New(".")
		if yamlErr := k.Load(&rawBytesProvider{bytes: src.Data}, yaml.Parser()); yamlErr == nil {
			return k, FormatYAML, nil
		}
		return nil, "", parseError(tomlErr, src, FormatAuto)
	}

	return nil, "", errors.Newf(errors.ErrConfigParse, "unsupported configuration format %q", src.Format)
}

func parserFor(format Format) koanf.Parser {
	if format == FormatYAML {
		return yaml.Parser()
	}
	return toml.Parser()
}

// hclFilename names the document for hclsimple, which selects its syntax by extension
func hclFilename(src *Source) string {
	if src.Path != "" && strings.EqualFold(filepath.Ext(src.Path), ".hcl") {
		return filepath.Base(src.Path)
	}
	return "dotfiles.hcl"
}

func parseError(err error, src *Source, format Format) error {
	msg := fmt.Sprintf("failed to parse %s as %s", src.Name, format)
	if format == FormatAuto {
		msg = fmt.Sprintf("failed to parse %s as TOML or YAML", src.Name)
	}
	return errors.Wrap(err, errors.ErrConfigParse, msg).
		WithDetail("source", src.Name).
		WithDetail("format", string(format))
}

// checkShape enforces the structural rules the decoder would otherwise bend:
// links must be declared, every list must hold only strings and settings
// must be a table.
func checkShape(k *koanf.Koanf, name string) error {
	if !k.Exists("links") {
		return errors.Newf(errors.ErrConfigValid, "%s does not declare links (use links = [] for none)", name).
			WithDetail("source", name)
	}

	for _, key := range listKeys {
		if !k.Exists(key) {
			continue
		}
		value := k.Get(key)
		if value == nil {
			continue
		}
		list, ok := value.([]interface{})
		if !ok {
			return errors.Newf(errors.ErrConfigValid, "%s: %s must be a list of strings", name, key).
				WithDetail("key", key)
		}
		for i, item := range list {
			if _, ok := item.(string); !ok {
				return errors.Newf(errors.ErrConfigValid, "%s: %s[%d] must be a string, got %T", name, key, i, item).
					WithDetail("key", key).
					WithDetail("index", i)
			}
		}
	}

	if k.Exists("settings") {
		if _, ok := k.Get("settings").(map[string]interface{}); !ok {
			return errors.Newf(errors.ErrConfigValid, "%s: settings must be a table", name).
				WithDetail("key", "settings")
		}
	}

	return nil
}

func lintSource(src *Source, format Format, k *koanf.Koanf) []string {
	var unknown []string
	if format == FormatTOML {
		unknown = unknownTOMLKeys(src.Data)
	} else {
		unknown = unknownFlatKeys(k.Keys())
	}

	warnings := make([]string, 0, len(unknown))
	for _, key := range unknown {
		warnings = append(warnings, unknownKeyWarning(key))
	}
	return warnings
}

// build filters comment and blank entries and parses the lists into specs
func build(raw *rawConfiguration, src *Source) (*types.Configuration, error) {
	cfg := &types.Configuration{
		Init:     parseSteps(raw.Init),
		Steps:    parseSteps(raw.Steps),
		Links:    []types.LinkSpec{},
		Settings: raw.Settings,
		Source:   src.Name,
	}

	for i, entry := range raw.Links {
		if types.IsIgnoredEntry(entry) {
			continue
		}
		spec, err := types.ParseLinkSpec(entry)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigValid, "%s: invalid link", src.Name).
				WithDetail("entry", entry).
				WithDetail("index", i)
		}
		cfg.Links = append(cfg.Links, spec)
	}

	if strings.TrimSpace(cfg.Settings.Shell) == "" {
		return nil, errors.Newf(errors.ErrConfigValid, "%s: settings.shell must not be empty", src.Name)
	}
	if cfg.Settings.StepTimeout <= 0 {
		return nil, errors.Newf(errors.ErrConfigValid, "%s: settings.step_timeout must be positive, got %s",
			src.Name, cfg.Settings.StepTimeout)
	}

	return cfg, nil
}

func parseSteps(entries []string) []types.StepSpec {
	steps := []types.StepSpec{}
	for _, entry := range entries {
		if types.IsIgnoredEntry(entry) {
			continue
		}
		steps = append(steps, types.StepSpec{Command: strings.TrimSpace(entry)})
	}
	return steps
}

// resolveRepoRoot applies the root precedence: explicit override, then
// settings.root relative to the source directory, then the enclosing git
// repository, then the source directory itself.
func resolveRepoRoot(cfg *types.Configuration, src *Source, opts Options, home string) error {
	logger := logging.GetLogger("config")

	if opts.RepoRoot != "" {
		root, err := paths.Resolve(paths.ExpandHomeWith(opts.RepoRoot, home), "")
		if err != nil {
			return errors.Wrapf(err, errors.ErrConfigValid, "invalid repository root %s", opts.RepoRoot)
		}
		cfg.RepoRoot = root
		return nil
	}

	if cfg.Settings.Root != "" {
		root, err := paths.Resolve(paths.ExpandHomeWith(cfg.Settings.Root, home), src.Dir)
		if err != nil {
			return errors.Wrapf(err, errors.ErrConfigValid, "invalid settings.root %s", cfg.Settings.Root)
		}
		cfg.RepoRoot = root
		return nil
	}

	root, inRepo, err := paths.FindRepoRoot(src.Dir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrConfigValid, "failed to determine repository root from %s", src.Dir)
	}
	if !inRepo {
		logger.Debug().Str("dir", src.Dir).Msg("No git repository found")
		cfg.Warnings = append(cfg.Warnings,
			fmt.Sprintf("operating outside a recognized repository, using %s as the repository root", root))
	}
	cfg.RepoRoot = root
	return nil
}

// secondsToDurationHookFunc reads bare numbers, and strings of digits, as seconds
func secondsToDurationHookFunc() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != durationType {
			return data, nil
		}
		switch v := data.(type) {
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(v * float64(time.Second)), nil
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return time.Duration(n) * time.Second, nil
			}
		}
		return data, nil
	}
}
