package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	exitCode := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(exitCode)
}

// run is the main entry point for the CLI, separated for testing
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := &cliApp{stdin: stdin, stdout: stdout, stderr: stderr}
	root := newRootCmd(app)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	app.close()
	if err == nil {
		return ExitCodeSuccess
	}

	var ce *cliError
	if errors.As(err, &ce) {
		ce.print(stderr)
		return ce.code
	}
	// Errors raised by cobra itself: unknown commands, bad flags, arity.
	fmt.Fprintf(stderr, FmtError, err)
	return ExitCodeUsageError
}

// cliError carries the exit code of a failed command.
type cliError struct {
	code  int
	msg   string
	cause error
}

func newCLIError(code int, msg string, cause error) *cliError {
	return &cliError{code: code, msg: msg, cause: cause}
}

func (e *cliError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *cliError) Unwrap() error {
	return e.cause
}

func (e *cliError) print(w io.Writer) {
	if e.cause == nil {
		fmt.Fprintf(w, FmtError, e.msg)
		return
	}
	fmt.Fprintf(w, FmtErrorWithCause, e.msg, e.cause)
}
