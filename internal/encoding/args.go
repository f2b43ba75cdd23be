package encoding

import (
	"strconv"
	"strings"
)

// HLS-safe output policy. Segmenters downstream need constant frame rate,
// a fixed closed GOP and SPS/PPS on every keyframe, so none of these are
// configurable.
const (
	VideoCodec       = "libx264"
	VideoProfile     = "main"
	VideoLevel       = "4.0"
	PixelFormat      = "yuv420p"
	FrameRate        = 24
	KeyframeInterval = 96 // 4s segments at FrameRate
	X264Params       = "open-gop=0:repeat-headers=1"
	AudioCodec       = "aac"
	AudioSampleRate  = 48000
	AudioChannels    = 2
	AudioBitrate     = "128k"
	MovFlags         = "+faststart"
)

// BuildArgs returns the ffmpeg argument vector for req. The output path is
// always the final element, and a -vf subtitles filter is present only when
// the request carries a subtitle path.
func BuildArgs(req Request) []string {
	args := make([]string, 0, 48)

	// --- Preamble: never prompt before overwriting ---
	args = append(args, "-y")

	// --- Input ---
	args = append(args, "-i", req.PrimaryPath)

	// --- Burned-in subtitles ---
	if req.HasSubtitle() {
		args = append(args, "-vf", SubtitleFilter(req.SubtitlePath))
	}

	// --- Stream maps: first video stream, audio when present ---
	args = append(args,
		"-map", "0:v:0",
		"-map", "0:a?",
	)

	// --- Video codec ---
	args = append(args,
		"-c:v", VideoCodec,
		"-profile:v", VideoProfile,
		"-level", VideoLevel,
		"-pix_fmt", PixelFormat,
	)

	// --- Frame rate and GOP structure ---
	gop := strconv.Itoa(KeyframeInterval)
	args = append(args,
		"-fps_mode", "cfr",
		"-r", strconv.Itoa(FrameRate),
		"-g", gop,
		"-keyint_min", gop,
		"-sc_threshold", "0",
		"-x264-params", X264Params,
	)

	// --- Audio codec ---
	args = append(args,
		"-c:a", AudioCodec,
		"-ar", strconv.Itoa(AudioSampleRate),
		"-ac", strconv.Itoa(AudioChannels),
		"-b:a", AudioBitrate,
	)

	// --- Container ---
	args = append(args, "-movflags", MovFlags)

	// --- Output ---
	args = append(args, OutputPath(req))

	return args
}

// SubtitleFilter builds the -vf value that burns path into the video.
func SubtitleFilter(path string) string {
	return "subtitles=" + EscapeFilterPath(path)
}

// filterEscaper escapes backslashes before the other specials so the
// backslashes it introduces are not escaped a second time. strings.Replacer
// scans the input once, which gives the same result as the ordered passes.
var filterEscaper = strings.NewReplacer(
	`\`, `\\`,
	`:`, `\:`,
	`'`, `\'`,
	`[`, `\[`,
	`]`, `\]`,
)

// EscapeFilterPath escapes a filesystem path for use as an option value in
// an ffmpeg filtergraph.
func EscapeFilterPath(path string) string {
	return filterEscaper.Replace(path)
}

// UnescapeFilterPath reverses EscapeFilterPath: every backslash makes the
// following character literal.
func UnescapeFilterPath(escaped string) string {
	var b strings.Builder
	b.Grow(len(escaped))
	literal := false
	for i := 0; i < len(escaped); i++ {
		c := escaped[i]
		if !literal && c == '\\' {
			literal = true
			continue
		}
		literal = false
		b.WriteByte(c)
	}
	return b.String()
}
