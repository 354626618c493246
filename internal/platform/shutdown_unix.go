//go:build !windows

package platform

// DefaultShutdownCommand halts the machine immediately.
func DefaultShutdownCommand() []string {
	return []string{"shutdown", "-h", "now"}
}
