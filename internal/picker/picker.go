// Package picker implements the three path selections an encode needs: the
// primary video, an optional subtitle track and the output directory.
//
// Each selection either returns a validated absolute path or ErrCancelled.
// Values given up front (flags) are validated the same way as typed ones.
package picker

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"hlssafe/internal/config"
)

// ErrCancelled means the user declined to choose a path.
var ErrCancelled = errors.New("selection cancelled")

// ErrInvalidSelection marks a chosen path that fails validation.
var ErrInvalidSelection = errors.New("invalid selection")

// Prompter asks the user for a single line of input.
type Prompter interface {
	// Prompt shows label and returns the trimmed answer. io.EOF means the
	// input ended.
	Prompt(label string) (string, error)
	// Warn tells the user why an answer was rejected.
	Warn(message string)
}

// LinePrompter reads answers line by line from a reader.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter prompts on out and reads answers from in.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) Prompt(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *LinePrompter) Warn(message string) {
	fmt.Fprintf(p.out, "  %s\n", message)
}

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// maxAttempts bounds re-prompting after invalid answers.
const maxAttempts = 3

// Picker validates and, when needed, prompts for encode paths.
type Picker struct {
	prompter    Prompter
	primaryExt  string
	subtitleExt string
}

// New builds a picker. A nil prompter makes every unset selection cancel.
func New(prompter Prompter, primaryExt, subtitleExt string) *Picker {
	return &Picker{
		prompter:    prompter,
		primaryExt:  strings.ToLower(primaryExt),
		subtitleExt: strings.ToLower(subtitleExt),
	}
}

// SelectPrimary returns the primary video path.
func (p *Picker) SelectPrimary(preset string) (string, error) {
	label := fmt.Sprintf("Primary video (%s)", p.primaryExt)
	return p.choose(preset, label, func(path string) (string, error) {
		return checkFile(path, p.primaryExt)
	})
}

// SelectSubtitle returns the subtitle track path. ErrCancelled means no
// subtitles should be burned in.
func (p *Picker) SelectSubtitle(preset string) (string, error) {
	label := fmt.Sprintf("Subtitle track (%s, empty for none)", p.subtitleExt)
	return p.choose(preset, label, func(path string) (string, error) {
		return checkFile(path, p.subtitleExt)
	})
}

// SelectOutputDir returns the output directory. A missing directory is
// accepted as is; the daemon creates it when the encode starts.
func (p *Picker) SelectOutputDir(preset string) (string, error) {
	return p.choose(preset, "Output directory", checkDir)
}

func (p *Picker) choose(preset, label string, check func(string) (string, error)) (string, error) {
	if preset = cleanInput(preset); preset != "" {
		return check(preset)
	}
	if p.prompter == nil {
		return "", ErrCancelled
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		answer, err := p.prompter.Prompt(label)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrCancelled
			}
			return "", err
		}
		answer = cleanInput(answer)
		if answer == "" {
			return "", ErrCancelled
		}
		path, err := check(answer)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, ErrInvalidSelection) {
			return "", err
		}
		p.prompter.Warn(err.Error())
	}
	return "", ErrCancelled
}

// cleanInput trims whitespace and the quotes terminals add around
// dragged-in paths.
func cleanInput(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' || first == '\'') && first == last {
			value = value[1 : len(value)-1]
		}
	}
	return value
}

func absolute(path string) (string, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSelection, err)
	}
	return expanded, nil
}

func checkFile(path, ext string) (string, error) {
	abs, err := absolute(path)
	if err != nil {
		return "", err
	}
	if ext != "" && strings.ToLower(filepath.Ext(abs)) != ext {
		return "", fmt.Errorf("%w: %s is not a %s file", ErrInvalidSelection, abs, ext)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s does not exist", ErrInvalidSelection, abs)
		}
		return "", fmt.Errorf("%w: %w", ErrInvalidSelection, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrInvalidSelection, abs)
	}
	return abs, nil
}

// checkDir rejects paths that exist but are not directories.
func checkDir(path string) (string, error) {
	abs, err := absolute(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	switch {
	case err == nil && !info.IsDir():
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidSelection, abs)
	case err == nil:
		return abs, nil
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("%w: %w", ErrInvalidSelection, err)
	}
	return abs, nil
}
