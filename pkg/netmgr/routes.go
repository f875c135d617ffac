package netmgr

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Jesssullivan/DarwinNicUtil/pkg/platform"
)

// RouteManager installs the static route that pins management traffic to
// the USB adapter so the default (WiFi) route stays untouched.
type RouteManager struct {
	exec   platform.Executor
	logger *logrus.Logger
}

// NewRouteManager returns a manager backed by the given executor.
func NewRouteManager(exec platform.Executor, logger *logrus.Logger) *RouteManager {
	return &RouteManager{exec: exec, logger: logger}
}

// AddManagementRoute installs a static route for network via gateway. A
// destination without a prefix length is treated as a /32 host route. The
// call is idempotent: if an identical route already exists nothing is
// mutated and the call succeeds.
func (m *RouteManager) AddManagementRoute(ctx context.Context, network, gateway string) error {
	network = normalizeDestination(network)

	routes, err := m.exec.ListRoutes(ctx)
	if err == nil {
		for _, r := range routes {
			if routeMatches(r, network, gateway) {
				m.logger.Debugf("route %s via %s already present", network, gateway)
				return nil
			}
		}
	} else {
		m.logger.Debugf("route table read failed, adding blind: %v", err)
	}

	if err := m.exec.AddRoute(ctx, network, gateway); err != nil {
		return fmt.Errorf("adding route %s via %s: %w", network, gateway, err)
	}
	m.logger.Infof("added management route %s via %s", network, gateway)
	return nil
}

// RemoveManagementRoute deletes the management route. Best effort.
func (m *RouteManager) RemoveManagementRoute(ctx context.Context, network string) error {
	return m.exec.DeleteRoute(ctx, normalizeDestination(network))
}

// PreserveDefaultGateway reads the current default gateway without touching
// it. It exists so callers can record, and later assert, that the default
// route survived the setup.
func (m *RouteManager) PreserveDefaultGateway(ctx context.Context) (string, error) {
	routes, err := m.exec.ListRoutes(ctx)
	if err != nil {
		return "", fmt.Errorf("reading routing table: %w", err)
	}
	for _, r := range routes {
		if r.Destination == "default" || r.Destination == "0.0.0.0/0" {
			return r.Gateway, nil
		}
	}
	return "", fmt.Errorf("no default route present")
}

func normalizeDestination(network string) string {
	if !strings.Contains(network, "/") {
		return network + "/32"
	}
	return network
}

// routeMatches compares loosely: netstat renders destinations in its own
// shorthand, so the base address matching plus the same gateway is enough
// to call the route present.
func routeMatches(r platform.Route, network, gateway string) bool {
	if r.Gateway != gateway {
		return false
	}
	if r.Destination == network {
		return true
	}
	base, _, found := strings.Cut(network, "/")
	return found && strings.HasPrefix(r.Destination, strings.TrimSuffix(base, ".0"))
}
