package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hlssafe/internal/daemonctl"
	"hlssafe/internal/encoding"
	"hlssafe/internal/ipc"
)

const daemonStartTimeout = 10 * time.Second

func newEncodeCommand(ctx *commandContext) *cobra.Command {
	var flags selectionFlags
	var noStart bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "encode [primary.mp4]",
		Short: "Re-encode a video into an HLS-safe MP4, optionally burning in subtitles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req, err := selectRequest(cmd, cfg, flags, args)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			stderr := cmd.ErrOrStderr()
			warnIfOutputExists(stderr, req)

			if !noStart {
				if err := ensureDaemon(cmd.Context(), ctx, stderr); err != nil {
					return err
				}
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var onOutput func(string)
			if !quiet {
				onOutput = func(chunk string) { fmt.Fprint(stderr, chunk) }
			}

			var result encoding.Result
			err = ctx.withClient(func(client *ipc.Client) error {
				var encodeErr error
				result, encodeErr = client.Encode(runCtx, req, onOutput)
				return encodeErr
			})
			if err != nil {
				if errors.Is(err, context.Canceled) {
					fmt.Fprintln(stderr, "Encode cancelled")
				}
				return err
			}
			if !result.Success {
				return errors.New(result.Error)
			}
			fmt.Fprintf(stdout, "Encoded: %s\n", result.OutputPath)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&noStart, "no-start", false, "Fail instead of launching the daemon when it is not running")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not echo ffmpeg diagnostics")
	return cmd
}

// warnIfOutputExists flags an encode that will replace an earlier result.
func warnIfOutputExists(w io.Writer, req encoding.Request) {
	target := encoding.OutputPath(req)
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		fmt.Fprintf(w, "warning: %s already exists and will be overwritten\n", target)
	}
}

func ensureDaemon(cmdCtx context.Context, ctx *commandContext, w io.Writer) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	result, err := daemonctl.EnsureStarted(cmdCtx, ctx.socketPath(), exe,
		daemonctl.LaunchOptions{ConfigPath: ctx.configPath()}, daemonStartTimeout)
	if err != nil {
		return err
	}
	if result.State == daemonctl.StartStateStarted {
		fmt.Fprintf(w, "Daemon started (pid %d)\n", result.PID)
	}
	return nil
}
