package encoding

import (
	"os"
	"runtime"
	"strings"
)

// DefaultCommand is the bare executable name handed to the OS search path
// when no known install location exists.
const DefaultCommand = "ffmpeg"

// DefaultCandidates returns the well-known ffmpeg install locations for the
// running platform, in lookup order. Package-manager prefixes come before
// system directories. Packaged desktop launches often do not inherit the
// shell PATH, which is why these are checked before the bare command.
func DefaultCandidates() []string {
	return candidatesFor(runtime.GOOS)
}

func candidatesFor(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/opt/homebrew/bin/ffmpeg", // Apple Silicon Homebrew
			"/usr/local/bin/ffmpeg",    // Intel Homebrew
			"/usr/bin/ffmpeg",
		}
	case "windows":
		return []string{
			`C:\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
		}
	default:
		return []string{
			"/usr/local/bin/ffmpeg",
			"/usr/bin/ffmpeg",
			"/snap/bin/ffmpeg",
		}
	}
}

// Resolver picks the ffmpeg executable to launch.
type Resolver struct {
	candidates []string
	command    string
	stat       func(string) (os.FileInfo, error)
}

// NewResolver builds a resolver over candidates (platform defaults when
// empty) with command as the search-path fallback. Pass an empty command to
// disable the fallback.
func NewResolver(candidates []string, command string) *Resolver {
	cleaned := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		cleaned = DefaultCandidates()
	}
	return &Resolver{
		candidates: cleaned,
		command:    strings.TrimSpace(command),
		stat:       os.Stat,
	}
}

// Candidates returns a copy of the ordered candidate list.
func (r *Resolver) Candidates() []string {
	out := make([]string, len(r.candidates))
	copy(out, r.candidates)
	return out
}

// Command returns the bare fallback command name.
func (r *Resolver) Command() string {
	return r.command
}

// Exists reports whether path names an existing non-directory file.
func (r *Resolver) Exists(path string) bool {
	info, err := r.stat(path)
	return err == nil && !info.IsDir()
}

// Resolve returns the first existing candidate, falling back to the bare
// command name. A bare name is never checked here; if it is missing the
// failure surfaces when the process is launched.
func (r *Resolver) Resolve() (string, error) {
	for _, candidate := range r.candidates {
		if r.Exists(candidate) {
			return candidate, nil
		}
	}
	if r.command != "" {
		return r.command, nil
	}
	return "", ErrExecutableNotFound
}
