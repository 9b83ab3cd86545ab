package config

import (
	"io"

	gotoml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gapurov/simple-dotfiles/pkg/errors"
	"github.com/gapurov/simple-dotfiles/pkg/types"
)

// document is the printable form of a configuration. Durations are rendered
// the way they are written ("300s"), not as nanosecond integers.
type document struct {
	Init     []string         `toml:"init" yaml:"init"`
	Links    []string         `toml:"links" yaml:"links"`
	Steps    []string         `toml:"steps" yaml:"steps"`
	Settings documentSettings `toml:"settings" yaml:"settings"`
}

type documentSettings struct {
	Shell       string `toml:"shell" yaml:"shell"`
	StepTimeout string `toml:"step_timeout" yaml:"step_timeout"`
	BackupDir   string `toml:"backup_dir" yaml:"backup_dir"`
	Root        string `toml:"root" yaml:"root"`
}

func newDocument(cfg *types.Configuration) document {
	doc := document{
		Init:  make([]string, 0, len(cfg.Init)),
		Links: make([]string, 0, len(cfg.Links)),
		Steps: make([]string, 0, len(cfg.Steps)),
		Settings: documentSettings{
			Shell:       cfg.Settings.Shell,
			StepTimeout: cfg.Settings.StepTimeout.String(),
			BackupDir:   cfg.Settings.BackupDir,
			Root:        cfg.RepoRoot,
		},
	}
	for _, s := range cfg.Init {
		doc.Init = append(doc.Init, s.Command)
	}
	for _, l := range cfg.Links {
		doc.Links = append(doc.Links, l.String())
	}
	for _, s := range cfg.Steps {
		doc.Steps = append(doc.Steps, s.Command)
	}
	return doc
}

// Encode writes the effective configuration as TOML or YAML. The root is
// written as the resolved repository root, so the output loads back to the
// same run from any directory.
func Encode(w io.Writer, cfg *types.Configuration, format Format) error {
	doc := newDocument(cfg)

	switch format {
	case FormatTOML, FormatAuto, "":
		if err := gotoml.NewEncoder(w).Encode(doc); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to encode configuration as TOML")
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to encode configuration as YAML")
		}
		return enc.Close()
	}

	return errors.Newf(errors.ErrInvalidInput, "configuration cannot be printed as %s", format).
		WithDetail("format", string(format))
}
