package main

import (
	"io"

	"github.com/itsatony/go-tagscript"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cliApp holds the I/O streams and the lazily opened resources shared by all
// commands of one invocation.
type cliApp struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	config     *tagscript.Config
	logger     *zap.Logger
	cooldowns  tagscript.CooldownStore
	closers    []io.Closer
}

func newRootCmd(app *cliApp) *cobra.Command {
	root := &cobra.Command{
		Use:           CLIName,
		Short:         CLIDescription,
		Long:          CLILong,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&app.configPath, FlagConfig, FlagConfigShort, "", "YAML configuration file")

	root.AddCommand(
		newRenderCmd(app),
		newLintCmd(app),
		newTagCmd(app),
		newVersionCmd(app),
	)
	return root
}

// loadConfig reads --config once. Without the flag the defaults apply.
func (a *cliApp) loadConfig() (*tagscript.Config, error) {
	if a.config != nil {
		return a.config, nil
	}

	cfg := tagscript.DefaultConfig()
	if a.configPath != "" {
		loaded, err := tagscript.LoadConfig(a.configPath)
		if err != nil {
			return nil, newCLIError(ExitCodeInputError, ErrMsgConfigFailed, err)
		}
		cfg = loaded
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, newCLIError(ExitCodeInputError, ErrMsgConfigFailed, err)
	}
	a.config = cfg
	a.logger = logger
	return cfg, nil
}

// interpreter builds an interpreter from the configuration.
func (a *cliApp) interpreter() (*tagscript.Interpreter, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	if a.cooldowns == nil {
		store, err := cfg.OpenCooldownStore()
		if err != nil {
			return nil, newCLIError(ExitCodeError, ErrMsgInterpreterFailed, err)
		}
		if closer, ok := store.(io.Closer); ok {
			a.closers = append(a.closers, closer)
		}
		a.cooldowns = store
	}

	opts, err := cfg.Options(a.cooldowns, a.logger)
	if err != nil {
		return nil, newCLIError(ExitCodeInputError, ErrMsgConfigFailed, err)
	}
	interp, err := tagscript.New(opts...)
	if err != nil {
		return nil, newCLIError(ExitCodeInputError, ErrMsgInterpreterFailed, err)
	}
	return interp, nil
}

// storage opens the tag storage. driver and conn override the configuration
// when set.
func (a *cliApp) storage(driver, conn string) (tagscript.TagStorage, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	sc := cfg.Storage
	if driver != "" {
		sc = tagscript.StorageConfig{Driver: driver, Connection: conn}
	} else if conn != "" {
		sc.Connection = conn
	}
	opened := *cfg
	opened.Storage = sc

	storage, err := opened.OpenStorage()
	if err != nil {
		return nil, newCLIError(ExitCodeError, ErrMsgStorageFailed, err)
	}
	a.closers = append(a.closers, storage)
	return storage, nil
}

func (a *cliApp) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
	a.closers = nil
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
