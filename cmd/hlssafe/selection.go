package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"hlssafe/internal/config"
	"hlssafe/internal/encoding"
	"hlssafe/internal/picker"
)

type selectionFlags struct {
	primary    string
	subtitle   string
	output     string
	noSubtitle bool
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.primary, "input", "i", "", "Primary video (.mp4); may also be given as an argument")
	cmd.Flags().StringVarP(&f.subtitle, "subtitle", "s", "", "Subtitle track to burn in (.vtt)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output directory (the daemon creates it when missing)")
	cmd.Flags().BoolVar(&f.noSubtitle, "no-subtitle", false, "Skip the subtitle prompt")
}

// promptFor returns a line prompter when in is an interactive terminal.
// Prompts go to errOut so stdout stays clean for results.
func promptFor(in io.Reader, errOut io.Writer) picker.Prompter {
	file, ok := in.(*os.File)
	if !ok || !picker.IsInteractive(file) {
		return nil
	}
	return picker.NewLinePrompter(file, errOut)
}

// selectRequest turns flags, positional args and prompts into an encode
// request. Without a terminal every path must come from flags or config.
func selectRequest(cmd *cobra.Command, cfg *config.Config, flags selectionFlags, args []string) (encoding.Request, error) {
	prompter := promptFor(cmd.InOrStdin(), cmd.ErrOrStderr())
	p := picker.New(prompter, cfg.Encoder.PrimaryExtension, cfg.Encoder.SubtitleExtension)

	primaryPreset := flags.primary
	if primaryPreset == "" && len(args) > 0 {
		primaryPreset = args[0]
	}
	primary, err := p.SelectPrimary(primaryPreset)
	if err != nil {
		if errors.Is(err, picker.ErrCancelled) {
			return encoding.Request{}, errors.New("no primary video selected")
		}
		return encoding.Request{}, err
	}

	var subtitle string
	if !flags.noSubtitle {
		subtitle, err = p.SelectSubtitle(flags.subtitle)
		if err != nil && !errors.Is(err, picker.ErrCancelled) {
			return encoding.Request{}, err
		}
	}

	outputPreset := strings.TrimSpace(flags.output)
	if outputPreset == "" {
		outputPreset = cfg.Paths.OutputDir
	}
	if outputPreset == "" && prompter == nil {
		outputPreset = filepath.Dir(primary)
	}
	outputDir, err := p.SelectOutputDir(outputPreset)
	if err != nil {
		if errors.Is(err, picker.ErrCancelled) {
			return encoding.Request{}, errors.New("no output directory selected")
		}
		return encoding.Request{}, err
	}

	req := encoding.Request{PrimaryPath: primary, SubtitlePath: subtitle, OutputDir: outputDir}
	if err := req.Validate(); err != nil {
		return encoding.Request{}, fmt.Errorf("build request: %w", err)
	}
	return req, nil
}
