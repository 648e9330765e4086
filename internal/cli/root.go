// Package cli implements interviewctl, the operator tool for repairing and
// moving interview structures outside the HTTP API.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mind-engage/interviewbook/internal/app"
	"github.com/mind-engage/interviewbook/internal/config"
	"github.com/mind-engage/interviewbook/internal/logging"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the operation ran and failed
	ExitCommandError = 2 // bad flags or unusable environment
)

type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func wrapExit(code int, msg string, err error) *ExitError {
	return &ExitError{Code: code, Message: msg, Err: err}
}

// GetExitCode returns ExitFailure for errors that carry no code.
func GetExitCode(err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFailure
}

// Opener builds the application; release undoes it.
type Opener func(ctx context.Context) (a *app.App, release func(), err error)

// RootOptions holds global flags and the injectable environment.
type RootOptions struct {
	Format string // "yaml" | "json"
	Out    io.Writer
	Open   Opener
}

var validFormats = []string{"yaml", "json"}

func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(&RootOptions{Out: os.Stdout, Open: openFromEnv})
}

func NewRootCommandWith(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "interviewctl",
		Short:         "Operate on interview structures",
		Long:          "Repair, export and import per-user chapter and question structures, and mint tokens for local use.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.Format {
					return nil
				}
			}
			return wrapExit(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, validFormats), nil)
		},
	}
	cmd.SetOut(opts.Out)
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "yaml", "output format (yaml|json)")

	cmd.AddCommand(newBackfillCommand(opts))
	cmd.AddCommand(newResequenceCommand(opts))
	cmd.AddCommand(newEventsCommand(opts))
	cmd.AddCommand(newDumpCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))
	cmd.AddCommand(newHashPasswordCommand(opts))
	return cmd
}

func openFromEnv(ctx context.Context) (*app.App, func(), error) {
	cfg := config.FromEnv()
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, func() { _ = a.Close() }, nil
}

// withApp opens the application for the duration of fn.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, release, err := opts.Open(ctx)
	if err != nil {
		return wrapExit(ExitCommandError, "open storage", err)
	}
	defer release()
	return fn(ctx, a)
}
