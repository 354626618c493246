package platform

import (
	"fmt"
	"os"
	"strings"
)

// Service defines OS-specific helpers needed by the application.
type Service interface {
	GetConfigDir() (string, error)
	EnableAutostart(appName, execPath string, args []string) error
	DisableAutostart(appName string) error
}

type platformService struct{}

// NewService returns a platform-specific implementation.
func NewService() Service {
	return &platformService{}
}

// GetConfigDir returns the OS-standard configuration directory.
func (service *platformService) GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err == nil && configDir != "" {
		return configDir, nil
	}

	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		if err != nil {
			return "", fmt.Errorf("get config dir: %w", err)
		}
		return "", fmt.Errorf("get config dir: %w", homeErr)
	}

	return fallbackConfigDir(homeDir), nil
}

// entryName turns an app name into a lowercase, dash-separated identifier.
func entryName(appName string) string {
	name := strings.TrimSpace(appName)
	if name == "" {
		name = "remote-shutdown"
	}
	name = strings.ToLower(name)
	name = strings.NewReplacer(" ", "-", "_", "-").Replace(name)
	return name
}

func validateAutostart(action, appName, execPath string) error {
	if appName == "" {
		return fmt.Errorf("%s autostart: app name is empty", action)
	}
	if execPath == "" {
		return fmt.Errorf("%s autostart: exec path is empty", action)
	}
	return nil
}
