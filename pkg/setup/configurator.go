package setup

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/Jesssullivan/DarwinNicUtil/pkg/models"
	"github.com/Jesssullivan/DarwinNicUtil/pkg/netmgr"
	"github.com/Jesssullivan/DarwinNicUtil/pkg/platform"
)

// ConfigureOptions adjusts a one-shot configuration pass.
type ConfigureOptions struct {
	// InterfaceName pins the adapter to configure. Empty means pick the
	// best-scoring suitable USB interface.
	InterfaceName string
	// PreserveWiFi keeps the WiFi service on top of the service order
	// before any adapter change.
	PreserveWiFi bool
	// DryRun prints the plan without mutating anything.
	DryRun bool
}

// ConfigureResult reports what a pass did.
type ConfigureResult struct {
	InterfaceName string
	Verified      bool
	DryRun        bool
}

// Configurator is the non-interactive, non-resumable counterpart to
// GuidedSetup: one pass over the same lower components, no persisted state,
// no retries.
type Configurator struct {
	exec     platform.Executor
	scorer   *netmgr.InterfaceScorer
	orderMgr *netmgr.ServiceOrderManager
	routeMgr *netmgr.RouteManager
	logger   *logrus.Logger
	out      io.Writer
}

// NewConfigurator assembles a one-shot configurator.
func NewConfigurator(exec platform.Executor, scorer *netmgr.InterfaceScorer,
	orderMgr *netmgr.ServiceOrderManager, routeMgr *netmgr.RouteManager,
	out io.Writer, logger *logrus.Logger) *Configurator {
	return &Configurator{
		exec:     exec,
		scorer:   scorer,
		orderMgr: orderMgr,
		routeMgr: routeMgr,
		logger:   logger,
		out:      out,
	}
}

// Run configures the chosen adapter for config and reports the result.
func (c *Configurator) Run(ctx context.Context, config models.NetworkConfig, opts ConfigureOptions) (ConfigureResult, error) {
	target, err := c.pickInterface(ctx, opts.InterfaceName)
	if err != nil {
		return ConfigureResult{}, err
	}
	result := ConfigureResult{InterfaceName: target.Name, DryRun: opts.DryRun}

	if opts.DryRun {
		fmt.Fprintf(c.out, "Would configure %s (%s):\n", target.Name, target.HardwarePort)
		fmt.Fprintf(c.out, "  address    %s netmask %s\n", config.LaptopIP, config.Netmask)
		fmt.Fprintf(c.out, "  route      %s via %s\n", config.MgmtNetwork, config.DeviceIP)
		if opts.PreserveWiFi {
			fmt.Fprintf(c.out, "  service order: keep WiFi first\n")
		}
		return result, nil
	}

	if opts.PreserveWiFi {
		if _, err := c.orderMgr.Backup(ctx); err != nil {
			c.logger.Warnf("service order backup unavailable: %v", err)
		}
		if err := c.orderMgr.PreventUSBTakeover(ctx); err != nil {
			c.logger.Warnf("could not pin wifi priority: %v", err)
		}
	}

	if err := c.exec.AssignAddress(ctx, target.Name, config.LaptopIP, config.Netmask); err != nil {
		return result, fmt.Errorf("assigning %s to %s: %w", config.LaptopIP, target.Name, err)
	}
	if err := c.routeMgr.AddManagementRoute(ctx, config.MgmtNetwork, config.DeviceIP); err != nil {
		return result, err
	}

	reachable, err := c.exec.Ping(ctx, config.DeviceIP, 3, 2*time.Second)
	if err != nil {
		c.logger.Debugf("verification ping failed: %v", err)
	}
	result.Verified = reachable
	if reachable {
		color.New(color.FgGreen).Fprintf(c.out, "✓ %s configured, device %s reachable\n", target.Name, config.DeviceIP)
	} else {
		color.New(color.FgYellow).Fprintf(c.out, "⚠ %s configured, but %s did not answer\n", target.Name, config.DeviceIP)
	}
	return result, nil
}

// pickInterface resolves the target adapter, either by explicit name or by
// taking the best-scoring interface that is suitable for configuration.
func (c *Configurator) pickInterface(ctx context.Context, name string) (models.NetworkInterface, error) {
	ifaces, err := c.exec.ListInterfaces(ctx)
	if err != nil {
		return models.NetworkInterface{}, fmt.Errorf("listing interfaces: %w", err)
	}

	byName := make(map[string]models.NetworkInterface, len(ifaces))
	var candidates []models.NetworkInterface
	for _, iface := range ifaces {
		byName[iface.Name] = iface
		if iface.SuitableForConfiguration() {
			candidates = append(candidates, iface)
		}
	}

	if name != "" {
		iface, ok := byName[name]
		if !ok {
			return models.NetworkInterface{}, fmt.Errorf("interface %q not found", name)
		}
		if iface.IsProtected {
			return models.NetworkInterface{}, &models.ProtectedInterfaceError{Name: name}
		}
		return iface, nil
	}

	if len(candidates) == 0 {
		return models.NetworkInterface{}, fmt.Errorf("no USB interface suitable for configuration")
	}
	ranked := c.scorer.RankInterfaces(ctx, candidates)
	return byName[ranked[0].InterfaceName], nil
}
