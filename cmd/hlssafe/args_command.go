package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"hlssafe/internal/encoding"
)

func newArgsCommand(ctx *commandContext) *cobra.Command {
	var flags selectionFlags
	var plain bool

	cmd := &cobra.Command{
		Use:   "args [primary.mp4]",
		Short: "Print the ffmpeg command an encode would run, without running it",
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

			binary, err := encoding.NewResolver(cfg.Encoder.Candidates, cfg.Encoder.Command).Resolve()
			if err != nil {
				return err
			}
			argv := encoding.BuildArgs(req)

			stdout := cmd.OutOrStdout()
			if plain {
				fmt.Fprintln(stdout, encoding.FormatCommand(binary, argv))
				return nil
			}

			rows := make([][]string, 0, len(argv))
			for i, arg := range argv {
				rows = append(rows, []string{strconv.Itoa(i + 1), arg})
			}
			fmt.Fprintln(stdout, renderTable([]string{"#", "Argument"}, rows, []columnAlignment{alignRight, alignLeft}))
			fmt.Fprintf(stdout, "Binary: %s\n", binary)
			fmt.Fprintf(stdout, "Output: %s\n", encoding.OutputPath(req))
			fmt.Fprintf(stdout, "Command: %s\n", encoding.FormatCommand(binary, argv))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&plain, "plain", false, "Print only the shell-quoted command line")
	return cmd
}
