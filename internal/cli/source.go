package cli

import (
	"bytes"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/gapurov/simple-dotfiles/pkg/config"
	"github.com/gapurov/simple-dotfiles/pkg/errors"
	"github.com/gapurov/simple-dotfiles/pkg/logging"
	"github.com/gapurov/simple-dotfiles/pkg/paths"
)

// resolveSource picks the configuration: -c, then piped standard input,
// then the default file lookup. Piped input that is empty is ignored, so a
// run from a job with stdin attached to an empty pipe still finds its file.
func resolveSource(in io.Reader, path string) (*config.Source, error) {
	logger := logging.GetLogger("cli")

	switch {
	case path == "-":
		if isTerminal(in) {
			return nil, errors.New(errors.ErrUsage, MsgErrStdinTerminal)
		}
		return config.ReaderSource(in)
	case path != "":
		return config.FileSource(path)
	}

	if piped(in) {
		src, err := config.ReaderSource(in)
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(src.Data)) > 0 {
			logger.Debug().Msg("Reading configuration from standard input")
			return src, nil
		}
		logger.Debug().Msg("Standard input is empty, looking for a configuration file")
	}

	found, err := paths.FindDefaultConfig()
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("path", found).Msg("Using default configuration")
	return config.FileSource(found)
}

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// piped reports whether in carries data from a pipe or a redirected file.
// Readers that are not files, as set by tests, count as piped.
func piped(in io.Reader) bool {
	if in == nil {
		return false
	}
	f, ok := in.(*os.File)
	if !ok {
		return true
	}
	if isTerminal(f) {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeNamedPipe != 0 || info.Mode().IsRegular()
}
