package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"courtreel/internal/config"
)

// Requirement defines an external dependency Courtreel relies on.
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

// Required returns the external binaries the configured workflow needs.
// Rclone is optional unless uploads are enabled.
func Required(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Tools.FFmpegBinary,
			Description: "Trims rally clips and assembles highlight reels",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Tools.FFprobeBinary,
			Description: "Validates source recordings before clip generation",
		},
		{
			Name:        "Rclone",
			Command:     cfg.Tools.RcloneBinary,
			Description: "Streams highlight reels to the configured remote",
			Optional:    !cfg.Upload.Enabled,
		},
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
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of unavailable non-optional dependencies.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
