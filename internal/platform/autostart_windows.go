//go:build windows

package platform

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

const registryRunKey = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`

func (service *platformService) EnableAutostart(appName, execPath string, args []string) error {
	if err := validateAutostart("enable", appName, execPath); err != nil {
		return err
	}

	command := exec.Command(
		"reg",
		"add",
		registryRunKey,
		"/v",
		entryName(appName),
		"/t",
		"REG_SZ",
		"/d",
		buildRunValue(execPath, args),
		"/f",
	)
	output, err := command.CombinedOutput()
	if err != nil {
		return fmt.Errorf("enable autostart: reg add failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	return nil
}

func (service *platformService) DisableAutostart(appName string) error {
	if appName == "" {
		return fmt.Errorf("disable autostart: app name is empty")
	}

	command := exec.Command(
		"reg",
		"delete",
		registryRunKey,
		"/v",
		entryName(appName),
		"/f",
	)
	output, err := command.CombinedOutput()
	if err != nil {
		return fmt.Errorf("disable autostart: reg delete failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	return nil
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, "AppData", "Roaming")
}

func buildRunValue(execPath string, args []string) string {
	value := quoteWindowsPath(execPath)
	for _, argument := range args {
		if strings.ContainsAny(argument, " \t") {
			argument = quoteWindowsPath(argument)
		}
		value += " " + argument
	}
	return value
}

func quoteWindowsPath(execPath string) string {
	trimmed := strings.Trim(execPath, `"`)
	return fmt.Sprintf(`"%s"`, trimmed)
}
