package tray

import (
	"fmt"
	"time"

	"remoteshutdown/internal/core/countdown"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

const menuTitle = "Remote shutdown"

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnPreferences func()
	OnAbort       func()
	OnQuit        func()
}

// Manager handles system tray state.
type Manager struct {
	app         desktop.App
	statusItem  *fyne.MenuItem
	abortItem   *fyne.MenuItem
	callbacks   Callbacks
	running     bool
	statusLabel string
}

// New creates a tray manager with the provided callbacks.
func New(app desktop.App, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:         app,
		callbacks:   callbacks,
		statusLabel: "waiting for trigger",
	}

	manager.statusItem = fyne.NewMenuItem("", nil)
	manager.statusItem.Disabled = true

	manager.abortItem = fyne.NewMenuItem("Abort shutdown", func() {
		if manager.callbacks.OnAbort != nil {
			manager.callbacks.OnAbort()
		}
	})
	manager.abortItem.Disabled = true

	manager.refreshStatus()
	return manager
}

// Handle applies a countdown event. It is safe to call from any goroutine.
func (manager *Manager) Handle(event countdown.Event) {
	fyne.Do(func() {
		manager.apply(event)
	})
}

// SetStatus updates the status label.
func (manager *Manager) SetStatus(status string) {
	manager.statusLabel = status
	manager.refreshStatus()
}

// SetRunning toggles countdown-related menu items.
func (manager *Manager) SetRunning(running bool) {
	manager.running = running
	manager.abortItem.Disabled = !running
	manager.refreshMenu()
}

func (manager *Manager) apply(event countdown.Event) {
	switch event.Type {
	case countdown.EventStarted, countdown.EventProgress:
		if !manager.running {
			manager.SetRunning(true)
		}
		manager.SetStatus("shutdown in " + formatRemaining(event.Remaining))
	case countdown.EventFired:
		manager.SetRunning(false)
		manager.SetStatus("shutting down")
	case countdown.EventAborted:
		manager.SetRunning(false)
		manager.SetStatus("aborted, waiting for trigger")
	}
}

func (manager *Manager) refreshStatus() {
	manager.statusItem.Label = fmt.Sprintf("Status: %s", manager.statusLabel)
	manager.refreshMenu()
}

func (manager *Manager) refreshMenu() {
	if manager.app == nil {
		return
	}
	manager.app.SetSystemTrayMenu(fyne.NewMenu(menuTitle,
		manager.statusItem,
		manager.abortItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Preferences", func() {
			if manager.callbacks.OnPreferences != nil {
				manager.callbacks.OnPreferences()
			}
		}),
		fyne.NewMenuItem("Quit", func() {
			if manager.callbacks.OnQuit != nil {
				manager.callbacks.OnQuit()
			}
		}),
	))
}

func formatRemaining(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	seconds := int((remaining + time.Second - 1) / time.Second)
	minutes := seconds / 60
	seconds = seconds % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
