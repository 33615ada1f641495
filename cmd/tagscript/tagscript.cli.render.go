package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/itsatony/go-tagscript"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRenderCmd(app *cliApp) *cobra.Command {
	var (
		pf    processFlags
		watch bool
	)

	cmd := &cobra.Command{
		Use:   CmdNameRender + " [file|-]",
		Short: "Process a script and print the result",
		Example: `  tagscript render greeting.tag --var user=Ada
  echo '{if({n}>1):many|one}' | tagscript render --var n=3
  tagscript render roll.tag -f vars.yaml --char-limit 500 -F json
  tagscript render greeting.tag --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pf.validate(); err != nil {
				return err
			}
			source := sourceArg(args)
			if watch && source == InputSourceStdin {
				return newCLIError(ExitCodeUsageError, ErrMsgWatchStdin, nil)
			}

			interp, err := app.interpreter()
			if err != nil {
				return err
			}
			render := func() error {
				return renderSource(cmd.Context(), app, interp, &pf, cmd, source)
			}

			err = render()
			if !watch {
				return err
			}
			if err != nil {
				reportError(app.stderr, err)
			}
			return watchFile(cmd.Context(), app.logger, source, func() {
				fmt.Fprintln(app.stdout, FmtNewline+WatchRenderSeparator)
				if err := render(); err != nil {
					reportError(app.stderr, err)
				}
			})
		},
	}

	pf.register(cmd)
	cmd.Flags().BoolVarP(&watch, FlagWatch, FlagWatchShort, false, "render again whenever the file changes")
	return cmd
}

// renderSource processes one script and writes the result.
func renderSource(ctx context.Context, app *cliApp, interp *tagscript.Interpreter, pf *processFlags, cmd *cobra.Command, source string) error {
	content, err := readInput(source, app.stdin)
	if err != nil {
		return newCLIError(ExitCodeInputError, ErrMsgReadFileFailed, err)
	}
	seed, err := pf.seed()
	if err != nil {
		return err
	}
	opts, err := pf.options(cmd)
	if err != nil {
		return err
	}

	resp, err := interp.Process(ctx, string(content), seed, opts...)
	if err != nil {
		return processError(err)
	}
	return writeResponse(app, resp, pf)
}

// reportError prints an error without stopping the watch loop.
func reportError(w io.Writer, err error) {
	var ce *cliError
	if errors.As(err, &ce) {
		ce.print(w)
		return
	}
	fmt.Fprintf(w, FmtError, err)
}

func writeResponse(app *cliApp, resp *tagscript.Response, pf *processFlags) error {
	data, err := encodeResponse(resp, pf.format)
	if err != nil {
		return err
	}
	if err := writeOutput(pf.output, data, app.stdout); err != nil {
		return newCLIError(ExitCodeError, ErrMsgWriteOutputFailed, err)
	}
	return nil
}

// watchFile calls onChange each time path is written or replaced, until ctx
// is done. The parent directory is watched so editors that save through a
// rename keep triggering events.
func watchFile(ctx context.Context, logger *zap.Logger, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return newCLIError(ExitCodeError, ErrMsgWatchFailed, err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return newCLIError(ExitCodeError, ErrMsgWatchFailed, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return newCLIError(ExitCodeError, ErrMsgWatchFailed, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				logger.Debug(LogMsgWatchChanged, zap.String(LogFieldPath, event.Name), zap.String(LogFieldOp, event.Op.String()))
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn(LogMsgWatchError, zap.Error(err))
		}
	}
}
