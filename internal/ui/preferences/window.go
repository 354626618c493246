package preferences

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"remoteshutdown/internal/core/model"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

var (
	tickOptions     = []string{"1 s", "100 ms"}
	logLevelOptions = []string{"debug", "info", "warn", "error"}
)

// Window handles the preferences UI.
type Window struct {
	window    fyne.Window
	settings  Settings
	onSave    func(Settings)
	listen    *widget.Entry
	delay     *widget.Entry
	tick      *widget.Select
	command   *widget.Entry
	advertise *widget.Check
	logLevel  *widget.Select
}

// New creates a preferences window.
func New(app fyne.App, settings Settings, onSave func(Settings)) *Window {
	window := app.NewWindow("Remote Shutdown Settings")

	listen := widget.NewEntry()
	delay := widget.NewEntry()
	command := widget.NewEntry()
	command.SetPlaceHolder("platform default")
	tick := widget.NewSelect(tickOptions, nil)
	logLevel := widget.NewSelect(logLevelOptions, nil)
	advertise := widget.NewCheck("Advertise on the local network (mDNS)", nil)

	form := container.NewVBox(
		widget.NewLabelWithStyle("Trigger", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Listen address"), listen),
		container.NewHBox(widget.NewLabel("Default delay"), delay, widget.NewLabel("sec")),
		container.NewHBox(widget.NewLabel("Countdown step"), tick),
		advertise,
		widget.NewLabelWithStyle("Action", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Shutdown command"), command),
		container.NewHBox(widget.NewLabel("Log level"), logLevel),
		widget.NewLabel("Changes take effect after a restart."),
	)

	saveButton := widget.NewButton("Save", nil)
	cancelButton := widget.NewButton("Cancel", nil)
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	content := container.NewBorder(nil, buttons, nil, nil, form)
	window.SetContent(content)
	window.Resize(fyne.NewSize(460, 360))
	window.SetCloseIntercept(window.Hide)

	prefs := &Window{
		window:    window,
		onSave:    onSave,
		listen:    listen,
		delay:     delay,
		tick:      tick,
		command:   command,
		advertise: advertise,
		logLevel:  logLevel,
	}
	prefs.UpdateSettings(settings)

	saveButton.OnTapped = prefs.handleSave
	cancelButton.OnTapped = func() {
		window.Hide()
		prefs.UpdateSettings(prefs.settings)
	}

	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings Settings) {
	prefs.settings = settings
	prefs.listen.SetText(settings.ListenAddress)
	prefs.delay.SetText(fmt.Sprintf("%d", int(settings.DefaultDelay.Seconds())))
	prefs.command.SetText(strings.Join(settings.ShutdownCommand, " "))
	prefs.advertise.SetChecked(settings.Advertise)
	prefs.logLevel.SetSelected(settings.LogLevel)
	if settings.Granularity < time.Second {
		prefs.tick.SetSelected(tickOptions[1])
	} else {
		prefs.tick.SetSelected(tickOptions[0])
	}
}

func (prefs *Window) handleSave() {
	settings := prefs.collect()
	prefs.settings = settings
	if prefs.onSave != nil {
		prefs.onSave(settings)
	}
	prefs.window.Hide()
}

func (prefs *Window) collect() Settings {
	settings := prefs.settings

	if address := strings.TrimSpace(prefs.listen.Text); address != "" {
		settings.ListenAddress = address
	}
	if seconds, ok := parsePositiveInt(prefs.delay.Text); ok {
		settings.DefaultDelay = time.Duration(seconds) * time.Second
	}
	settings.ShutdownCommand = strings.Fields(prefs.command.Text)
	if len(settings.ShutdownCommand) == 0 {
		settings.ShutdownCommand = nil
	}
	switch prefs.tick.Selected {
	case tickOptions[1]:
		settings.Granularity = 100 * time.Millisecond
	default:
		settings.Granularity = time.Second
	}
	if prefs.logLevel.Selected != "" {
		settings.LogLevel = prefs.logLevel.Selected
	}
	settings.Advertise = prefs.advertise.Checked

	return settings
}

func parsePositiveInt(value string) (int, bool) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 || int64(parsed) > model.MaxDelaySeconds {
		return 0, false
	}
	return parsed, true
}
