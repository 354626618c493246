package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"remoteshutdown/internal/core/model"
	"remoteshutdown/internal/ui/preferences"

	"gopkg.in/yaml.v3"
)

const settingsFileName = "settings.yaml"

type yamlSettings struct {
	ListenAddress       string   `yaml:"listen_address"`
	DefaultDelaySeconds int      `yaml:"default_delay_seconds"`
	TickMillis          int      `yaml:"tick_millis"`
	ShutdownCommand     []string `yaml:"shutdown_command,omitempty"`
	Advertise           bool     `yaml:"advertise"`
	AdvertiseInterface  string   `yaml:"advertise_interface,omitempty"`
	LogLevel            string   `yaml:"log_level"`
}

// Store keeps the secret and the settings file in one configuration directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the configuration directory.
func (store *Store) Dir() string {
	return store.dir
}

// LoadSettings reads user preferences from YAML.
// If the config file does not exist, default settings are returned.
func (store *Store) LoadSettings() (preferences.Settings, error) {
	settings := preferences.DefaultSettings()

	rawData, err := os.ReadFile(store.path(settingsFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

// SaveSettings writes user preferences to YAML.
func (store *Store) SaveSettings(settings preferences.Settings) error {
	if err := os.MkdirAll(store.dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	fileData := yamlSettings{
		ListenAddress:       settings.ListenAddress,
		DefaultDelaySeconds: int(settings.DefaultDelay / time.Second),
		TickMillis:          int(settings.Granularity / time.Millisecond),
		ShutdownCommand:     settings.ShutdownCommand,
		Advertise:           settings.Advertise,
		AdvertiseInterface:  settings.AdvertiseInterface,
		LogLevel:            settings.LogLevel,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := os.WriteFile(store.path(settingsFileName), serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

func (store *Store) path(name string) string {
	return filepath.Join(store.dir, name)
}

func applyYamlSettings(settings *preferences.Settings, fileData yamlSettings) {
	if address := strings.TrimSpace(fileData.ListenAddress); address != "" {
		settings.ListenAddress = address
	}
	if fileData.DefaultDelaySeconds > 0 && int64(fileData.DefaultDelaySeconds) <= model.MaxDelaySeconds {
		settings.DefaultDelay = time.Duration(fileData.DefaultDelaySeconds) * time.Second
	}
	// Ticks must divide a second evenly so whole-second delays stay exact.
	if fileData.TickMillis > 0 && fileData.TickMillis <= 1000 && 1000%fileData.TickMillis == 0 {
		settings.Granularity = time.Duration(fileData.TickMillis) * time.Millisecond
	}
	if len(fileData.ShutdownCommand) > 0 && strings.TrimSpace(fileData.ShutdownCommand[0]) != "" {
		settings.ShutdownCommand = fileData.ShutdownCommand
	}
	switch strings.ToLower(fileData.LogLevel) {
	case "debug", "info", "warn", "error":
		settings.LogLevel = strings.ToLower(fileData.LogLevel)
	}

	settings.Advertise = fileData.Advertise
	settings.AdvertiseInterface = strings.TrimSpace(fileData.AdvertiseInterface)
}
