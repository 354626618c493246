//go:build windows

package platform

// DefaultShutdownCommand powers the machine off without the usual grace period.
func DefaultShutdownCommand() []string {
	return []string{"shutdown", "/s", "/t", "0"}
}
