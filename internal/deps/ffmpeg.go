package deps

import (
	"os/exec"
	"strings"
)

// ResolveBinary returns the configured binary, or fallback when unset. A
// name found on PATH is expanded to its absolute location so status output
// shows which executable will run.
func ResolveBinary(configured, fallback string) string {
	name := strings.TrimSpace(configured)
	if name == "" {
		name = fallback
	}
	if resolved, err := exec.LookPath(name); err == nil {
		return resolved
	}
	return name
}
