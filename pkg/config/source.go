package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gapurov/simple-dotfiles/pkg/errors"
)

// Format is a configuration syntax
type Format string

const (
	// FormatAuto tries TOML, then YAML. Used for standard input.
	FormatAuto Format = "auto"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// StdinName is the Source name used for configuration read from standard input
const StdinName = "<stdin>"

// FormatFromPath picks a format from a file extension. Unknown extensions are TOML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".hcl":
		return FormatHCL
	default:
		return FormatTOML
	}
}

// ParseFormat validates a user-supplied format name
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(name)) {
	case FormatTOML:
		return FormatTOML, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatHCL:
		return FormatHCL, nil
	}
	return "", errors.Newf(errors.ErrInvalidInput, "unknown configuration format %q", name).
		WithDetail("format", name)
}

// Source is configuration bytes plus where they came from
type Source struct {
	// Name is the file path, or StdinName
	Name string
	// Path is set for file sources
	Path string
	// Dir is the directory relative settings are resolved against
	Dir string
	// Format of Data
	Format Format
	// Data is the raw configuration
	Data []byte
}

// FileSource reads a configuration file
func FileSource(path string) (*Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to resolve configuration path %s", path)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		code := errors.ErrConfigLoad
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(err, code, "configuration file %s not found", path).
				WithDetail("path", abs)
		}
		return nil, errors.Wrapf(err, code, "failed to read configuration file %s", path).
			WithDetail("path", abs)
	}

	return &Source{
		Name:   path,
		Path:   abs,
		Dir:    filepath.Dir(abs),
		Format: FormatFromPath(abs),
		Data:   data,
	}, nil
}

// ReaderSource reads configuration from r, typically standard input.
// Relative settings resolve against the working directory.
func ReaderSource(r io.Reader) (*Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to read configuration from standard input")
	}

	dir, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to get working directory")
	}

	return &Source{
		Name:   StdinName,
		Dir:    dir,
		Format: FormatAuto,
		Data:   data,
	}, nil
}
