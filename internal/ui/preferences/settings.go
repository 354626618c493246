package preferences

import (
	"time"

	"remoteshutdown/internal/core/model"
)

// Settings defines editable user preferences.
type Settings struct {
	ListenAddress   string
	DefaultDelay    time.Duration
	Granularity     time.Duration
	ShutdownCommand []string
	Advertise       bool
	LogLevel        string

	// AdvertiseInterface limits mDNS to one network interface. Empty means all.
	AdvertiseInterface string
}

// DefaultSettings returns default settings for the remote shutdown service.
func DefaultSettings() Settings {
	return Settings{
		ListenAddress: ":8000",
		DefaultDelay:  60 * time.Second,
		Granularity:   time.Second,
		Advertise:     false,
		LogLevel:      "info",
	}
}

// CountdownConfig converts settings to CountdownConfig.
func (settings Settings) CountdownConfig() model.CountdownConfig {
	return model.CountdownConfig{
		Granularity:  settings.Granularity,
		DefaultDelay: settings.DefaultDelay,
	}
}
