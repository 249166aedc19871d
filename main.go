package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sirius3/lednode/cmd"
	"github.com/sirius3/lednode/internal/animation"
	"github.com/sirius3/lednode/internal/api"
	"github.com/sirius3/lednode/internal/config"
	"github.com/sirius3/lednode/internal/controller"
	"github.com/sirius3/lednode/internal/device"
	"github.com/sirius3/lednode/internal/events"
	"github.com/sirius3/lednode/internal/logging"
	"github.com/sirius3/lednode/internal/transport"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"lednode.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:":8093" toml:"server.port" env:"SERVER_PORT"`

	// Device settings
	LeftName    string `help:"Advertised name of the left peripheral" default:"Sirius3_LEFT_EAR" toml:"devices.left" env:"DEVICE_LEFT"`
	RightName   string `help:"Advertised name of the right peripheral" default:"Sirius3_RIGHT_EAR" toml:"devices.right" env:"DEVICE_RIGHT"`
	AutoConnect bool   `help:"Connect to both peripherals at startup" default:"true" toml:"devices.auto_connect" env:"DEVICE_AUTO_CONNECT"`

	// Transport settings
	Transport string `help:"Transport backend (bluez, loopback)" default:"bluez" toml:"transport.backend" env:"TRANSPORT"`

	// Dispatch settings
	CommandTimeoutMs    int `help:"Transport write timeout in milliseconds" default:"5000" toml:"dispatch.command_timeout_ms" env:"COMMAND_TIMEOUT_MS"`
	CommandIntervalMs   int `help:"Pacing between commands in milliseconds" default:"100" toml:"dispatch.command_interval_ms" env:"COMMAND_INTERVAL_MS"`
	CheckIntervalMs     int `help:"Connection probe period in milliseconds, 0 disables" default:"5000" toml:"dispatch.check_interval_ms" env:"CHECK_INTERVAL_MS"`
	AmbientTransitionMs int `help:"Ambient frame fade in milliseconds" default:"200" toml:"dispatch.ambient_transition_ms" env:"AMBIENT_TRANSITION_MS"`

	// Animation settings
	ColorsFile  string `help:"Animation color table file" default:"colors.toml" toml:"animation.colors_file" env:"COLORS_FILE"`
	RestingAuto bool   `help:"Resume hue cycling after animations" default:"false" toml:"animation.resting_auto" env:"RESTING_AUTO"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingDispatch  string `help:"Dispatcher logging level" default:"info" toml:"logging.dispatch" env:"LOGGING_DISPATCH"`
	LoggingTransport string `help:"Transport logging level" default:"info" toml:"logging.transport" env:"LOGGING_TRANSPORT"`
	LoggingAnimation string `help:"Animation logging level" default:"info" toml:"logging.animation" env:"LOGGING_ANIMATION"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP      string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"dispatch":  opts.LoggingDispatch,
				"transport": opts.LoggingTransport,
				"animation": opts.LoggingAnimation,
				"api":       opts.LoggingAPI,
				"http":      opts.LoggingHTTP,
			},
		})
		logger := logging.GetLogger("main")

		bus := events.New()

		var tr transport.Transport
		switch opts.Transport {
		case "loopback":
			logger.Warn("using loopback transport, no hardware will be driven")
			tr = transport.NewLoopback([]transport.DeviceInfo{
				{Name: opts.LeftName, Address: "00:00:00:00:00:01"},
				{Name: opts.RightName, Address: "00:00:00:00:00:02"},
			}, logging.GetLogger("transport"))
		default:
			bluez, err := transport.NewBlueZ(logging.GetLogger("transport"))
			if err != nil {
				logger.Error("bluetooth unavailable", "error", err)
				os.Exit(1)
			}
			tr = bluez
		}

		ctrl := controller.New(tr, bus, logging.GetLogger("dispatch"), controller.Config{
			CommandTimeout:    time.Duration(opts.CommandTimeoutMs) * time.Millisecond,
			CommandInterval:   time.Duration(opts.CommandIntervalMs) * time.Millisecond,
			CheckInterval:     time.Duration(opts.CheckIntervalMs) * time.Millisecond,
			AmbientTransition: time.Duration(opts.AmbientTransitionMs) * time.Millisecond,
			DeviceNames: map[device.ID]string{
				device.Left:  opts.LeftName,
				device.Right: opts.RightName,
			},
		})

		palette, err := config.LoadColors(opts.ColorsFile)
		if err != nil {
			logger.Warn("Failed to load animation colors, using defaults", "error", err)
			palette = animation.DefaultPalette()
		}
		engine := animation.NewEngine(ctrl, bus, logging.GetLogger("animation"), animation.Config{
			Palette:     palette,
			RestingAuto: opts.RestingAuto,
		})

		colorsWatcher := config.NewWatcher(opts.ColorsFile, config.LoadColors, logging.GetLogger("config"))
		colorsWatcher.OnReload(func(p animation.Palette) {
			engine.SetPalette(p)
		})

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Controller:        ctrl,
			Engine:            engine,
			Bus:               bus,
			PrometheusHandler: promhttp.Handler(),
		})

		hooks.OnStart(func() {
			ctrl.Start()

			if watchErr := colorsWatcher.Start(); watchErr != nil {
				logger.Warn("Color table watcher unavailable", "path", opts.ColorsFile, "error", watchErr)
			}

			if opts.AutoConnect {
				for _, id := range device.All() {
					ctrl.ScanAndConnect(id)
				}
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			if stopErr := colorsWatcher.Stop(); stopErr != nil {
				logger.Error("Error stopping color table watcher", "error", stopErr)
			}
			engine.Stop()
			ctrl.Stop()
		})
	})

	cli.Root().AddCommand(cmd.CreateScanCmd())
	cli.Root().AddCommand(cmd.CreateSendCmd())

	cli.Run()
}
