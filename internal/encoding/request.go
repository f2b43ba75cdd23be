package encoding

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputSuffix is appended to the primary media stem to name the encoded file.
const OutputSuffix = "_hls_safe.mp4"

// Request describes one encode. The zero SubtitlePath means no subtitles are
// burned in.
type Request struct {
	PrimaryPath  string `json:"primary_path"`
	SubtitlePath string `json:"subtitle_path,omitempty"`
	OutputDir    string `json:"output_dir"`
}

// HasSubtitle reports whether a subtitle track was supplied.
func (r Request) HasSubtitle() bool {
	return strings.TrimSpace(r.SubtitlePath) != ""
}

// Validate checks that the request names the paths an encode needs. It does
// not touch the filesystem.
func (r Request) Validate() error {
	if strings.TrimSpace(r.PrimaryPath) == "" {
		return fmt.Errorf("%w: primary media path is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.OutputDir) == "" {
		return fmt.Errorf("%w: output directory is required", ErrInvalidRequest)
	}
	return nil
}

// checkInputs verifies the input files exist before ffmpeg is launched.
// Media content itself is never inspected.
func (r Request) checkInputs() error {
	if err := requireFile("primary media", r.PrimaryPath); err != nil {
		return err
	}
	if r.HasSubtitle() {
		if err := requireFile("subtitle", r.SubtitlePath); err != nil {
			return err
		}
	}
	return nil
}

func requireFile(label, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s file %s does not exist", ErrInvalidRequest, label, path)
		}
		return fmt.Errorf("%w: stat %s file: %w", ErrInvalidRequest, label, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s path %s is a directory", ErrInvalidRequest, label, path)
	}
	return nil
}

// OutputPath derives the encoded file location for a request:
// <OutputDir>/<primary stem>_hls_safe.mp4. Only the final extension is
// stripped, and an existing file at that path is overwritten by the encode.
func OutputPath(req Request) string {
	return filepath.Join(req.OutputDir, stem(filepath.Base(req.PrimaryPath))+OutputSuffix)
}

// stem removes the final extension from name. A name whose only dot is the
// leading one (".movie") has no extension.
func stem(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || ext == name {
		return name
	}
	return strings.TrimSuffix(name, ext)
}
