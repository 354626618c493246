package overlay

import (
	"fmt"
	"image/color"
	"sync/atomic"
	"time"

	"remoteshutdown/internal/core/countdown"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Config defines countdown window visuals.
type Config struct {
	Title string
}

// Window shows the remaining time before shutdown and the Abort button.
type Window struct {
	app         fyne.App
	window      fyne.Window
	config      Config
	timerLabel  *canvas.Text
	progressBar *widget.ProgressBar
	abortButton *widget.Button
	onAbort     func()
	visible     atomic.Bool
}

type splashWindowDriver interface {
	CreateSplashWindow() fyne.Window
}

// New creates a hidden countdown window.
func New(app fyne.App, config Config) *Window {
	if config.Title == "" {
		config.Title = "Remote shutdown"
	}

	window := app.NewWindow(config.Title)
	if driver, ok := app.Driver().(splashWindowDriver); ok {
		// Splash window is undecorated, so it cannot be closed around the Abort button.
		window = driver.CreateSplashWindow()
	}
	if app.Icon() != nil {
		window.SetIcon(app.Icon())
	}

	timerLabel := canvas.NewText(FormatRemaining(0), color.NRGBA{R: 232, G: 190, B: 66, A: 255})
	timerLabel.Alignment = fyne.TextAlignCenter
	timerLabel.TextStyle = fyne.TextStyle{Bold: true}
	timerLabel.TextSize = 24

	progressBar := widget.NewProgressBar()
	progressBar.TextFormatter = func() string { return "" }

	abortButton := widget.NewButton("Abort", nil)
	abortButton.Importance = widget.HighImportance

	content := container.NewVBox(
		timerLabel,
		progressBar,
		container.NewCenter(abortButton),
	)
	window.SetContent(container.NewPadded(content))
	window.Resize(fyne.NewSize(320, 140))

	overlay := &Window{
		app:         app,
		window:      window,
		config:      config,
		timerLabel:  timerLabel,
		progressBar: progressBar,
		abortButton: abortButton,
	}
	abortButton.OnTapped = overlay.handleAbort
	// Closing the window gives up on the countdown just like the button.
	window.SetCloseIntercept(overlay.handleAbort)

	return overlay
}

// SetOnAbort sets the Abort handler.
func (overlay *Window) SetOnAbort(handler func()) {
	overlay.onAbort = handler
}

// Handle applies a countdown event. It is safe to call from any goroutine.
func (overlay *Window) Handle(event countdown.Event) {
	fyne.Do(func() {
		overlay.apply(event)
	})
}

// Visible reports whether the window is currently shown. It may be called
// from any goroutine.
func (overlay *Window) Visible() bool {
	return overlay.visible.Load()
}

func (overlay *Window) apply(event countdown.Event) {
	switch event.Type {
	case countdown.EventStarted, countdown.EventProgress:
		overlay.setRemainingUnsafe(event.Remaining, event.Progress)
		if !overlay.visible.Load() {
			overlay.abortButton.Enable()
			overlay.window.CenterOnScreen()
			overlay.window.Show()
			overlay.window.RequestFocus()
			overlay.visible.Store(true)
		}
	case countdown.EventFired, countdown.EventAborted:
		overlay.setRemainingUnsafe(event.Remaining, event.Progress)
		overlay.window.Hide()
		overlay.visible.Store(false)
	}
}

func (overlay *Window) handleAbort() {
	overlay.abortButton.Disable()
	if overlay.onAbort != nil {
		overlay.onAbort()
	}
}

func (overlay *Window) setRemainingUnsafe(remaining time.Duration, progress float64) {
	overlay.timerLabel.Text = FormatRemaining(remaining)
	overlay.timerLabel.Refresh()
	overlay.progressBar.SetValue(progress)
}

// FormatRemaining renders the window title line, rounding partial seconds up.
func FormatRemaining(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	seconds := int((remaining + time.Second - 1) / time.Second)
	return fmt.Sprintf("Shutdown in %ds", seconds)
}
