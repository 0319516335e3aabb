package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/aligniov/internal/config"
	"github.com/roach88/aligniov/internal/engine"
	"github.com/roach88/aligniov/internal/ir"
	"github.com/roach88/aligniov/internal/loader"
	"github.com/roach88/aligniov/internal/store"
)

// sourceOptions selects where sequences come from: a config file, per-channel
// file flags, or a database of stored builds.
type sourceOptions struct {
	ConfigPath string
	Measured   []string
	Real       []string
	Misaligned []string
	DBPath     string
}

func (s *sourceOptions) addFlags(cmd *cobra.Command, dbUsage string) {
	cmd.Flags().StringVarP(&s.ConfigPath, "config", "c", "", "configuration file (YAML)")
	cmd.Flags().StringArrayVar(&s.Measured, "measured", nil, "measured channel source file (repeatable)")
	cmd.Flags().StringArrayVar(&s.Real, "real", nil, "real channel source file (repeatable)")
	cmd.Flags().StringArrayVar(&s.Misaligned, "misaligned", nil, "misaligned channel source file (repeatable)")
	cmd.Flags().StringVar(&s.DBPath, "db", "", dbUsage)
}

func (s *sourceOptions) hasFileFlags() bool {
	return len(s.Measured) > 0 || len(s.Real) > 0 || len(s.Misaligned) > 0
}

// config loads the configuration file, if any, and applies the channel file
// flags on top. A flag replaces the file list of its channel.
func (s *sourceOptions) config() (*config.Config, error) {
	cfg := &config.Config{}
	if s.ConfigPath != "" {
		loaded, err := config.Load(s.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	overrides := map[ir.Channel][]string{
		ir.Measured:   s.Measured,
		ir.Real:       s.Real,
		ir.Misaligned: s.Misaligned,
	}
	for _, ch := range ir.Channels() {
		if files := overrides[ch]; len(files) > 0 {
			if err := cfg.SetFiles(ch, files); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openProvider builds a Provider from source files or from the latest
// stored builds. The two are exclusive.
func (s *sourceOptions) openProvider(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*engine.Provider, error) {
	if s.DBPath != "" {
		if s.ConfigPath != "" || s.hasFileFlags() {
			return nil, NewExitError(ExitCommandError, "--db cannot be combined with --config or channel files").WithErrCode(ErrCodeConfig)
		}
		return s.providerFromStore(ctx, opts.logger(cmd.ErrOrStderr(), 0))
	}

	cfg, err := s.config()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err).WithErrCode(ErrCodeConfig)
	}
	if cfg.IsEmpty() {
		return nil, NewExitError(ExitCommandError, "no sources: pass --config, --db or a channel file flag").WithErrCode(ErrCodeNoSources)
	}

	logger := opts.logger(cmd.ErrOrStderr(), cfg.Verbosity)
	return buildProvider(ctx, cfg, logger)
}

func (s *sourceOptions) providerFromStore(ctx context.Context, logger *slog.Logger) (*engine.Provider, error) {
	if _, err := os.Stat(s.DBPath); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err).WithErrCode(ErrCodeStore)
	}

	st, err := store.Open(s.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open store", err).WithErrCode(ErrCodeStore)
	}
	defer st.Close()

	p, err := st.LoadProvider(ctx, engine.WithProviderLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "read builds", err).WithErrCode(ErrCodeStore)
	}
	logger.Debug("provider loaded from store", "db", s.DBPath)
	return p, nil
}

func buildProvider(ctx context.Context, sources engine.SourceSet, logger *slog.Logger) (*engine.Provider, error) {
	l := loader.New(loader.WithLogger(logger))
	p, err := engine.Build(ctx, l, sources, engine.WithProviderLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitFailure, "build failed", err)
	}
	return p, nil
}

// reportError writes err through the formatter and returns it unchanged so
// the exit code survives. Load failures report the loader's E-code.
func reportError(f *OutputFormatter, err error) error {
	if outErr := f.Error(errorCode(err), err.Error(), nil); outErr != nil {
		return outErr
	}
	return err
}

func errorCode(err error) string {
	switch {
	case engine.IsLoadFailed(err), loader.IsLoadError(err):
		if code := loader.Code(err); code != "" {
			return code
		}
		return ErrCodeGeneric
	case engine.IsUnknownChannel(err):
		return ErrCodeUnknownChannel
	case errors.Is(err, store.ErrNoBuild):
		return ErrCodeNoBuild
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.ErrCode != "" {
		return exitErr.ErrCode
	}
	return ErrCodeGeneric
}
