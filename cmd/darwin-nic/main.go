package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	appconfig "github.com/Jesssullivan/DarwinNicUtil/pkg/config"
	"github.com/Jesssullivan/DarwinNicUtil/pkg/models"
	"github.com/Jesssullivan/DarwinNicUtil/pkg/netmgr"
	"github.com/Jesssullivan/DarwinNicUtil/pkg/platform"
	"github.com/Jesssullivan/DarwinNicUtil/pkg/setup"
)

const (
	appName    = "darwin-nic"
	appVersion = "1.0.0"
)

// Exit codes honored by the CLI contract.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUnverified  = 2
	exitUnsupported = 3
	exitCancelled   = 130
)

var log = logrus.New()

func main() {
	app := &cli.App{
		Name:        appName,
		Usage:       "Configure a USB management NIC on macOS without breaking WiFi",
		Version:     appVersion,
		HideVersion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE` instead of the search path",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose output",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"DARWIN_NIC_LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			level, err := logrus.ParseLevel(c.String("log-level"))
			if err != nil {
				level = logrus.InfoLevel
			}
			if c.Bool("verbose") {
				level = logrus.DebugLevel
			}
			log.SetLevel(level)
			log.SetFormatter(&logrus.TextFormatter{
				FullTimestamp:   true,
				TimestampFormat: "2006-01-02 15:04:05",
			})
			return nil
		},
		Commands: []*cli.Command{
			commandConfigure(),
			commandGuided(),
			commandRestore(),
			commandConfig(),
			commandMonitor(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error(err)
		os.Exit(exitFailure)
	}
}

// components bundles the wired-up network managers.
type components struct {
	exec     platform.Executor
	monitor  *netmgr.WiFiMonitor
	scorer   *netmgr.InterfaceScorer
	orderMgr *netmgr.ServiceOrderManager
	routeMgr *netmgr.RouteManager
}

func buildComponents() (*components, error) {
	exec, err := platform.New(log)
	if err != nil {
		if errors.Is(err, platform.ErrUnsupportedPlatform) {
			return nil, cli.Exit("this tool requires macOS", exitUnsupported)
		}
		return nil, err
	}
	monitor := netmgr.NewWiFiMonitor(exec, log)
	cache := netmgr.NewHardwareCache(exec, log)
	assessor := netmgr.NewInterferenceAssessor(cache, monitor, log)
	return &components{
		exec:     exec,
		monitor:  monitor,
		scorer:   netmgr.NewInterfaceScorer(monitor, assessor, log),
		orderMgr: netmgr.NewServiceOrderManager(exec, log),
		routeMgr: netmgr.NewRouteManager(exec, log),
	}, nil
}

func loadSettings(c *cli.Context) (appconfig.Settings, error) {
	if path := c.String("config"); path != "" {
		return appconfig.LoadFile(path)
	}
	return appconfig.Load()
}

// resolveConfig builds the network config from settings, profile selection,
// and explicit flag overrides. The merged settings are returned alongside so
// callers can read behavioral defaults like preserve_wifi.
func resolveConfig(c *cli.Context) (models.NetworkConfig, appconfig.Settings, error) {
	settings, err := loadSettings(c)
	if err != nil {
		return models.NetworkConfig{}, settings, err
	}
	if v := c.String("device-ip"); v != "" {
		settings.Defaults.DeviceIP = v
	}
	if v := c.String("laptop-ip"); v != "" {
		settings.Defaults.LaptopIP = v
	}
	if v := c.String("netmask"); v != "" {
		settings.Defaults.Netmask = v
	}
	if v := c.String("mgmt-network"); v != "" {
		settings.Defaults.MgmtNetwork = v
	}
	if v := c.String("device-name"); v != "" {
		settings.Defaults.DeviceName = v
	}
	profile := c.String("profile")
	if c.IsSet("device-ip") || c.IsSet("laptop-ip") {
		// Explicit addressing beats profile selection.
		profile = ""
		settings.DefaultProfile = ""
	}
	cfg, err := settings.Resolve(profile)
	return cfg, settings, err
}

func interruptibleContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "device-ip", Usage: "Target device management address"},
		&cli.StringFlag{Name: "laptop-ip", Usage: "Address to assign to the adapter"},
		&cli.StringFlag{Name: "netmask", Usage: "Dotted-quad netmask"},
		&cli.StringFlag{Name: "mgmt-network", Usage: "Management network in CIDR notation"},
		&cli.StringFlag{Name: "device-name", Usage: "Display name for the device"},
		&cli.StringFlag{Name: "profile", Aliases: []string{"p"}, Usage: "Use a named profile from the config"},
	}
}

func commandConfigure() *cli.Command {
	flags := append(configFlags(),
		&cli.StringFlag{Name: "interface", Aliases: []string{"i"}, Usage: "Configure this interface instead of auto-selecting"},
		&cli.BoolFlag{Name: "preserve-wifi", Value: true, Usage: "Keep WiFi first in the service order (default from config)"},
		&cli.BoolFlag{Name: "dry-run", Usage: "Print the plan without changing anything"},
		&cli.BoolFlag{Name: "dashboard", Usage: "Leave the monitoring dashboard running afterwards"},
		&cli.StringFlag{Name: "dashboard-port", Value: "8080", Usage: "Monitoring dashboard port"},
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip the confirmation prompt"},
	)
	return &cli.Command{
		Name:    "configure",
		Aliases: []string{"c"},
		Usage:   "One-shot configuration of the USB management NIC",
		Flags:   flags,
		Action: func(c *cli.Context) error {
			cfg, settings, err := resolveConfig(c)
			if err != nil {
				return cli.Exit(err.Error(), exitFailure)
			}
			comp, err := buildComponents()
			if err != nil {
				return err
			}

			// The flag wins when given; otherwise preserve_wifi from the
			// merged settings decides.
			preserveWiFi := settings.PreserveWiFi()
			if c.IsSet("preserve-wifi") {
				preserveWiFi = c.Bool("preserve-wifi")
			}

			if !c.Bool("yes") && !c.Bool("dry-run") {
				prompter := setup.NewStdioPrompter(os.Stdin, os.Stdout)
				summary := fmt.Sprintf("Configure the USB adapter as %s (device %s)?", cfg.LaptopIP, cfg.DeviceIP)
				if !prompter.Confirm(summary, true) {
					return cli.Exit("cancelled", exitCancelled)
				}
			}

			ctx, cancel := interruptibleContext()
			defer cancel()

			configurator := setup.NewConfigurator(comp.exec, comp.scorer, comp.orderMgr, comp.routeMgr, os.Stdout, log)
			result, err := configurator.Run(ctx, cfg, setup.ConfigureOptions{
				InterfaceName: c.String("interface"),
				PreserveWiFi:  preserveWiFi,
				DryRun:        c.Bool("dry-run"),
			})
			if ctx.Err() != nil {
				return cli.Exit("interrupted", exitCancelled)
			}
			if err != nil {
				return cli.Exit(err.Error(), exitFailure)
			}

			if c.Bool("dashboard") && !result.DryRun {
				if err := runDashboard(ctx, comp, c.String("dashboard-port")); err != nil {
					log.Warnf("dashboard stopped: %v", err)
				}
			}
			if !result.DryRun && !result.Verified {
				return cli.Exit("", exitUnverified)
			}
			return nil
		},
	}
}

func commandGuided() *cli.Command {
	return &cli.Command{
		Name:    "guided",
		Aliases: []string{"g"},
		Usage:   "Interactive step-by-step setup with resume support",
		Flags:   configFlags(),
		Action: func(c *cli.Context) error {
			cfg, _, err := resolveConfig(c)
			if err != nil {
				return cli.Exit(err.Error(), exitFailure)
			}
			comp, err := buildComponents()
			if err != nil {
				return err
			}

			// Interactive output owns the terminal; logs go to a file.
			logPath := filepath.Join(os.TempDir(), "darwin-nic-setup.log")
			if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); err == nil {
				log.SetOutput(f)
				defer f.Close()
			}

			ctx, cancel := interruptibleContext()
			defer cancel()

			guided := setup.NewGuidedSetup(comp.exec, comp.monitor, comp.scorer, comp.orderMgr, comp.routeMgr,
				setup.NewStdioPrompter(os.Stdin, os.Stdout), os.Stdout, log)

			outcome, err := guided.Run(ctx, cfg)
			switch outcome {
			case setup.OutcomeSuccess:
				return nil
			case setup.OutcomeUnverified:
				return cli.Exit("", exitUnverified)
			case setup.OutcomeCancelled:
				return cli.Exit("", exitCancelled)
			default:
				return cli.Exit(err.Error(), exitFailure)
			}
		},
	}
}

func commandRestore() *cli.Command {
	return &cli.Command{
		Name:  "restore",
		Usage: "Roll back changes recorded by an earlier setup",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip the confirmation prompt"},
		},
		Action: func(c *cli.Context) error {
			state, err := setup.LoadState(setup.StatePath())
			if err != nil {
				return cli.Exit(fmt.Sprintf("reading setup state: %v", err), exitFailure)
			}
			if state == nil {
				fmt.Println("No recorded setup state; nothing to restore.")
				return nil
			}

			fmt.Printf("Recorded setup from %s ago (step %q", state.Age().Round(time.Minute), state.CurrentStep)
			if state.DetectedUSBName != "" {
				fmt.Printf(", adapter %s", state.DetectedUSBName)
			}
			fmt.Println(")")

			if !c.Bool("yes") {
				prompter := setup.NewStdioPrompter(os.Stdin, os.Stdout)
				if !prompter.Confirm("Roll back these changes?", true) {
					return cli.Exit("cancelled", exitCancelled)
				}
			}

			comp, err := buildComponents()
			if err != nil {
				return err
			}
			ctx, cancel := interruptibleContext()
			defer cancel()

			var failed bool
			if state.DetectedUSBName != "" {
				if err := comp.exec.InterfaceDown(ctx, state.DetectedUSBName); err != nil {
					color.Red("✗ bring %s down: %v", state.DetectedUSBName, err)
					failed = true
				} else {
					color.Green("✓ %s brought down", state.DetectedUSBName)
				}
			}
			if state.Config != nil {
				if err := comp.routeMgr.RemoveManagementRoute(ctx, state.Config.MgmtNetwork); err != nil {
					color.Red("✗ remove management route: %v", err)
					failed = true
				} else {
					color.Green("✓ management route removed")
				}
			}
			if failed {
				return cli.Exit("restore incomplete; state file kept", exitFailure)
			}
			if err := setup.ClearState(setup.StatePath()); err != nil {
				log.Warnf("could not remove state file: %v", err)
			}
			color.Green("Restore complete.")
			return nil
		},
	}
}

func commandConfig() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect and manage configuration files",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the merged configuration",
				Action: func(c *cli.Context) error {
					settings, err := loadSettings(c)
					if err != nil {
						return cli.Exit(err.Error(), exitFailure)
					}
					data, err := json.MarshalIndent(settings, "", "  ")
					if err != nil {
						return err
					}
					fmt.Println(string(data))
					if len(settings.Sources) == 0 {
						fmt.Fprintln(os.Stderr, "(no config files found; showing built-in defaults)")
					}
					return nil
				},
			},
			{
				Name:  "init",
				Usage: "Write a commented starter config",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Usage: "Write to this path instead of the user config location"},
				},
				Action: func(c *cli.Context) error {
					if err := appconfig.InitFile(c.String("path")); err != nil {
						return cli.Exit(err.Error(), exitFailure)
					}
					color.Green("✓ starter config written")
					return nil
				},
			},
			{
				Name:  "profiles",
				Usage: "List configured profiles",
				Action: func(c *cli.Context) error {
					settings, err := loadSettings(c)
					if err != nil {
						return cli.Exit(err.Error(), exitFailure)
					}
					if len(settings.Profiles) == 0 {
						fmt.Println("No profiles configured.")
						return nil
					}
					for _, name := range settings.ProfileNames() {
						p := settings.Profiles[name]
						marker := " "
						if name == settings.DefaultProfile {
							marker = "*"
						}
						fmt.Printf("%s %-20s device %-15s laptop %-15s %s\n",
							marker, name, p.DeviceIP, p.LaptopIP, p.Description)
					}
					return nil
				},
			},
		},
	}
}

func commandMonitor() *cli.Command {
	return &cli.Command{
		Name:    "monitor",
		Aliases: []string{"m"},
		Usage:   "Serve the read-only monitoring dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Value: "8080", Usage: "Dashboard port"},
			&cli.DurationFlag{Name: "interval", Value: 10 * time.Second, Usage: "Sampling interval"},
		},
		Action: func(c *cli.Context) error {
			comp, err := buildComponents()
			if err != nil {
				return err
			}
			ctx, cancel := interruptibleContext()
			defer cancel()

			dash := netmgr.NewDashboard(netmgr.DashboardConfig{
				Port:           c.String("port"),
				SampleInterval: c.Duration("interval"),
			}, comp.exec, comp.monitor, comp.scorer, log)

			fmt.Printf("Dashboard at http://localhost:%s (ctrl-c to stop)\n", c.String("port"))
			if err := dash.Run(ctx); err != nil {
				return cli.Exit(err.Error(), exitFailure)
			}
			return nil
		},
	}
}

func runDashboard(ctx context.Context, comp *components, port string) error {
	dash := netmgr.NewDashboard(netmgr.DashboardConfig{Port: port},
		comp.exec, comp.monitor, comp.scorer, log)
	fmt.Printf("Dashboard at http://localhost:%s (ctrl-c to stop)\n", port)
	return dash.Run(ctx)
}
