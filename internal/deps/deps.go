// Package deps verifies the external binaries the build pipeline shells
// out to before any work starts.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"vidkit/internal/config"
)

// Requirement defines an external dependency of the pipeline.
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

// Requirements derives the dependency list from project configuration. The
// Node toolchain is optional because builds without compositions never
// invoke it.
func Requirements(cfg *config.Project) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.Tools.FFmpeg, Description: "renders, filters, and joins media"},
		{Name: "FFprobe", Command: cfg.Tools.FFprobe, Description: "probes stream durations and layouts"},
		{Name: "Node", Command: cfg.Remotion.NodeExecutable, Description: "runs animated composition renders", Optional: true},
		{Name: "npm", Command: cfg.Remotion.NpmExecutable, Description: "installs composition project packages", Optional: true},
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

// Missing filters statuses down to unavailable required dependencies.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
