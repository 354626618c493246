package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"remoteshutdown/internal/core/countdown"
	"remoteshutdown/internal/core/trigger"
	"remoteshutdown/internal/discovery"
	"remoteshutdown/internal/platform"
	"remoteshutdown/internal/server"
	"remoteshutdown/internal/storage"
	"remoteshutdown/internal/ui/console"
	"remoteshutdown/internal/ui/overlay"
	"remoteshutdown/internal/ui/preferences"
	"remoteshutdown/internal/ui/tray"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const appName = "remote_shutdown"

var version = "dev"

type options struct {
	configDir string
	listen    string
	logLevel  string
	autostart string
	headless  bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	flags := flag.NewFlagSet(appName, flag.ContinueOnError)
	flags.StringVar(&opts.configDir, "config-dir", "", "Configuration directory (default: user config dir)")
	flags.StringVar(&opts.listen, "listen", "", "Listen address, overrides settings")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.autostart, "autostart", "", "Install or remove login autostart: enable, disable")
	flags.BoolVar(&opts.headless, "headless", false, "Run without a display, using the terminal for abort")
	if err := flags.Parse(args); err != nil {
		return opts, err
	}
	switch opts.autostart {
	case "", "enable", "disable":
	default:
		return opts, fmt.Errorf("invalid -autostart value %q", opts.autostart)
	}
	return opts, nil
}

func applyFlags(settings preferences.Settings, opts options) preferences.Settings {
	if opts.listen != "" {
		settings.ListenAddress = opts.listen
	}
	if opts.logLevel != "" {
		settings.LogLevel = opts.logLevel
	}
	return settings
}

func newLogger(level string, output io.Writer) *slog.Logger {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
}

func resolveConfigDir(service platform.Service, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	configDir, err := service.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	service := platform.NewService()
	if opts.autostart != "" {
		if err := configureAutostart(service, opts); err != nil {
			slog.Error("autostart", "error", err)
			os.Exit(1)
		}
		return
	}

	configDir, err := resolveConfigDir(service, opts.configDir)
	if err != nil {
		slog.Error("resolve config dir", "error", err)
		os.Exit(1)
	}
	store := storage.New(configDir)

	settings, err := store.LoadSettings()
	if err != nil {
		slog.Error("load settings", "error", err)
		os.Exit(1)
	}
	settings = applyFlags(settings, opts)

	var logOutput io.Writer = os.Stderr
	var terminal *console.Console
	if opts.headless {
		terminal, err = console.New(nil)
		if err != nil {
			slog.Error("open terminal", "error", err)
			os.Exit(1)
		}
		logOutput = terminal.Stderr()
	}
	logger := newLogger(settings.LogLevel, logOutput)
	slog.SetDefault(logger)

	lock, err := platform.AcquireInstanceLock(appName)
	if err != nil {
		logger.Error("single instance", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = lock.Release()
	}()

	secret, err := store.LoadSecret()
	if err != nil {
		logger.Error("load secret", "path", store.SecretPath(), "error", err)
		os.Exit(1)
	}
	if secret == storage.PlaceholderSecret {
		logger.Warn("secret is still the placeholder, replace it", "path", store.SecretPath())
	}

	executor := platform.NewCommandExecutor(settings.ShutdownCommand, logger)
	engine := countdown.New(settings.CountdownConfig(), executor, countdown.Config{Logger: logger})
	gate := trigger.New(secret, settings.CountdownConfig(), engine, trigger.Config{Logger: logger})

	httpServer := server.New(server.Config{
		Address: settings.ListenAddress,
		Version: version,
		Logger:  logger,
	}, gate)
	if err := httpServer.Start(); err != nil {
		logger.Error("start server", "error", err)
		os.Exit(1)
	}

	advertiser := discovery.NewAdvertiser(logger)
	if settings.Advertise {
		hostname, _ := os.Hostname()
		if err := advertiser.Advertise(discovery.Info{
			Hostname:  hostname,
			Port:      httpServer.Port(),
			Version:   version,
			Interface: settings.AdvertiseInterface,
		}); err != nil {
			logger.Warn("mdns advertisement failed", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if terminal != nil {
		terminal.SetController(engine)
		runHeadless(ctx, stop, engine, terminal)
	} else {
		runDesktop(ctx, engine, store, settings, logger)
	}

	logger.Info("stopping")
	advertiser.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("stop server", "error", err)
	}
	engine.Close()
}

func runHeadless(ctx context.Context, stop context.CancelFunc, engine *countdown.Engine, terminal *console.Console) {
	sub := engine.Subscribe()
	defer sub.Close()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				terminal.Handle(event)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		_ = terminal.Close()
	}()

	terminal.Run(ctx, stop)
}

func runDesktop(ctx context.Context, engine *countdown.Engine, store *storage.Store, settings preferences.Settings, logger *slog.Logger) {
	fyneApp := app.NewWithID("io.remoteshutdown.app")
	fyneApp.SetIcon(theme.ComputerIcon())
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		logger.Error("system tray unsupported on this platform, run with -headless")
		return
	}

	trayWindow := fyneApp.NewWindow("Remote shutdown")
	trayWindow.SetContent(widget.NewLabel("Remote shutdown is waiting for a trigger."))
	trayWindow.SetCloseIntercept(func() {
		trayWindow.Hide()
	})
	trayWindow.Hide()
	desktopApp.SetSystemTrayWindow(trayWindow)

	abort := func() {
		if !engine.Abort() {
			logger.Debug("abort ignored, no countdown running")
		}
	}

	overlayWindow := overlay.New(fyneApp, overlay.Config{Title: "Remote shutdown"})
	overlayWindow.SetOnAbort(abort)

	prefsWindow := preferences.New(fyneApp, settings, func(updated preferences.Settings) {
		if err := store.SaveSettings(updated); err != nil {
			logger.Error("save settings", "error", err)
			return
		}
		logger.Info("settings saved, restart to apply", "path", store.Dir())
	})

	idleIcon := theme.ComputerIcon()
	runningIcon := theme.WarningIcon()

	trayManager := tray.New(desktopApp, tray.Callbacks{
		OnPreferences: prefsWindow.Show,
		OnAbort:       abort,
		OnQuit:        fyneApp.Quit,
	})
	desktopApp.SetSystemTrayIcon(idleIcon)

	sub := engine.Subscribe()
	defer sub.Close()
	go func() {
		for event := range sub.Events() {
			overlayWindow.Handle(event)
			trayManager.Handle(event)
			icon := runningIcon
			if event.Terminal() {
				icon = idleIcon
			}
			fyne.Do(func() {
				desktopApp.SetSystemTrayIcon(icon)
			})
		}
	}()

	go func() {
		<-ctx.Done()
		fyne.Do(fyneApp.Quit)
	}()

	fyneApp.Run()
}

func configureAutostart(service platform.Service, opts options) error {
	if opts.autostart == "disable" {
		return service.DisableAutostart(appName)
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	var args []string
	if opts.headless {
		args = append(args, "-headless")
	}
	if opts.configDir != "" {
		args = append(args, "-config-dir", opts.configDir)
	}
	if err := service.EnableAutostart(appName, execPath, args); err != nil {
		return err
	}
	fmt.Printf("Autostart enabled: %s %s\n", execPath, strings.Join(args, " "))
	return nil
}
