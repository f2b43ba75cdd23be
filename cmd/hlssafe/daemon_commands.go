package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"hlssafe/internal/daemonctl"
	"hlssafe/internal/daemonrun"
	"hlssafe/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var logLevel string
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the hlssafe daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: logLevel})
		},
	}
	daemonCmd.Flags().StringVar(&logLevel, "log-level", "", "Override [logging] level")

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the hlssafe daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), ctx.socketPath(), exe,
				daemonctl.LaunchOptions{ConfigPath: ctx.configPath()}, daemonStartTimeout)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the hlssafe daemon, terminating any running encode",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(cmd.Context(), ctx.socketPath(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and encode status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			printSection(stdout, "Daemon", colorize)

			client, err := ipc.Dial(ctx.socketPath())
			if err != nil {
				if daemonctl.IsDaemonUnavailable(err) {
					fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "not running", colorize))
					return nil
				}
				return wrapDialError(err, ctx.socketPath())
			}
			defer client.Close()

			status, err := client.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("query daemon status: %w", err)
			}
			for _, line := range statusLines(status, colorize) {
				fmt.Fprintln(stdout, line)
			}
			return nil
		},
	}

	return []*cobra.Command{daemonCmd, startCmd, stopCmd, statusCmd}
}

func statusLines(status *ipc.StatusResponse, colorize bool) []string {
	daemonKind, daemonText := statusOK, fmt.Sprintf("running (pid %d)", status.PID)
	if !status.Running {
		daemonKind, daemonText = statusWarn, "stopping"
	}
	lines := []string{
		renderStatusLine("Daemon", daemonKind, daemonText, colorize),
		renderStatusLine("Log", statusInfo, status.LogPath, colorize),
		renderStatusLine("Lock", statusInfo, status.LockPath, colorize),
	}

	job := status.ActiveJob
	if job == nil {
		return append(lines, renderStatusLine("Encode", statusInfo, "idle", colorize))
	}
	elapsed := time.Duration(job.ElapsedSeconds * float64(time.Second)).Round(time.Second)
	return append(lines,
		renderStatusLine("Encode", statusOK, fmt.Sprintf("%s running for %s", job.ID, elapsed), colorize),
		renderStatusLine("Input", statusInfo, job.PrimaryPath, colorize),
		renderStatusLine("Subtitles", statusInfo, yesNo(job.Subtitle), colorize),
		renderStatusLine("Output", statusInfo, job.OutputPath, colorize),
		renderStatusLine("Encoder", statusInfo, job.Binary, colorize),
	)
}
