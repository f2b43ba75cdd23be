package deps

import (
	"strings"

	"hlssafe/internal/encoding"
)

// EncoderReport describes every place the encoder may be found and which
// one an encode would launch.
type EncoderReport struct {
	Candidates []Status
	Fallback   Status
	Selected   string
}

// CheckEncoder walks the resolver's candidate list in lookup order and checks
// the bare fallback command against PATH.
func CheckEncoder(resolver *encoding.Resolver) EncoderReport {
	var report EncoderReport
	if resolver == nil {
		return report
	}
	for _, candidate := range resolver.Candidates() {
		status := Status{
			Name:        "ffmpeg",
			Command:     candidate,
			Description: "Known install location",
			Available:   resolver.Exists(candidate),
		}
		if !status.Available {
			status.Detail = "not present"
		}
		report.Candidates = append(report.Candidates, status)
	}

	if command := strings.TrimSpace(resolver.Command()); command != "" {
		fallback := CheckBinaries([]Requirement{{
			Name:        "ffmpeg",
			Command:     command,
			Description: "Search path fallback",
		}})
		report.Fallback = fallback[0]
	}

	if selected, err := resolver.Resolve(); err == nil {
		report.Selected = selected
	}
	return report
}

// Ready reports whether an encode is likely to find an executable.
func (r EncoderReport) Ready() bool {
	for _, status := range r.Candidates {
		if status.Available {
			return true
		}
	}
	return r.Fallback.Available
}
