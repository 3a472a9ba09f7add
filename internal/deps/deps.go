// Package deps reports which optional tools and libav encoders are usable on
// this machine.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"skmotion/internal/media"
)

// Requirement defines an external tool skmotion can use.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the external tools skmotion looks for.
func Requirements() []Requirement {
	return []Requirement{
		{Name: "ffprobe", Command: "ffprobe", Description: "Verifies finished recordings", Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if path, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Command = path
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// CheckEncoders reports, for each codec, whether lookup finds an encoder.
// The selected codec is required; the others are informational.
func CheckEncoders(selected media.Codec, lookup func(media.Codec) bool) []Status {
	codecs := []media.Codec{media.CodecVP8, media.CodecVP9, media.CodecH264}
	results := make([]Status, 0, len(codecs))
	for _, codec := range codecs {
		status := Status{
			Name:        string(codec) + " encoder",
			Command:     "libavcodec",
			Description: "Encodes " + string(codec) + " video",
			Optional:    codec != selected,
			Available:   lookup != nil && lookup(codec),
		}
		if !status.Available {
			status.Detail = "not compiled into the linked ffmpeg libraries"
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required entries that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
