package setup

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jesssullivan/DarwinNicUtil/pkg/models"
	"github.com/Jesssullivan/DarwinNicUtil/pkg/netmgr"
	"github.com/Jesssullivan/DarwinNicUtil/pkg/platform"
)

func newConfigurator(t *testing.T, fake *platform.FakeExecutor) *Configurator {
	t.Helper()
	logger := testLogger()
	monitor := netmgr.NewWiFiMonitor(fake, logger)
	cache := netmgr.NewHardwareCache(fake, logger)
	assessor := netmgr.NewInterferenceAssessor(cache, monitor, logger)
	scorer := netmgr.NewInterfaceScorer(monitor, assessor, logger)
	orderMgr := netmgr.NewServiceOrderManager(fake, logger)
	routeMgr := netmgr.NewRouteManager(fake, logger)
	return NewConfigurator(fake, scorer, orderMgr, routeMgr, &bytes.Buffer{}, logger)
}

func configuratorFake() *platform.FakeExecutor {
	fake := baselineFake()
	fake.Interfaces = append(fake.Interfaces,
		models.NetworkInterface{Name: "en7", HardwarePort: "USB 10/100/1000 LAN", IsUSB: true, IsActive: true},
		models.NetworkInterface{Name: "en8", HardwarePort: "AX88179 Ethernet", IsUSB: true, IsActive: false},
	)
	return fake
}

func TestConfiguratorPicksBestSuitableUSB(t *testing.T) {
	fake := configuratorFake()
	fake.Reachable = map[string]bool{"192.0.2.1": true}
	c := newConfigurator(t, fake)

	result, err := c.Run(context.Background(), testConfig(t), ConfigureOptions{PreserveWiFi: true})
	require.NoError(t, err)

	// en8 is inactive, en0/lo0 are protected; en7 is the only suitable pick.
	assert.Equal(t, "en7", result.InterfaceName)
	assert.True(t, result.Verified)
	assert.Contains(t, fake.Mutations, "assign en7 192.0.2.100/255.255.255.0")
	assert.Contains(t, fake.Mutations, "route-add 198.51.100.0/24 via 192.0.2.1")
}

func TestConfiguratorDryRunMutatesNothing(t *testing.T) {
	fake := configuratorFake()
	c := newConfigurator(t, fake)

	result, err := c.Run(context.Background(), testConfig(t), ConfigureOptions{DryRun: true, PreserveWiFi: true})
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Empty(t, fake.Mutations)
}

func TestConfiguratorExplicitInterface(t *testing.T) {
	fake := configuratorFake()
	fake.Reachable = map[string]bool{"192.0.2.1": true}
	c := newConfigurator(t, fake)

	result, err := c.Run(context.Background(), testConfig(t), ConfigureOptions{InterfaceName: "en8"})
	require.NoError(t, err)
	assert.Equal(t, "en8", result.InterfaceName)
}

func TestConfiguratorRejectsProtectedInterface(t *testing.T) {
	fake := configuratorFake()
	c := newConfigurator(t, fake)

	_, err := c.Run(context.Background(), testConfig(t), ConfigureOptions{InterfaceName: "en0"})
	var protected *models.ProtectedInterfaceError
	assert.ErrorAs(t, err, &protected)
	assert.Empty(t, fake.Mutations)
}

func TestConfiguratorNoSuitableInterface(t *testing.T) {
	fake := baselineFake() // only protected built-ins
	c := newConfigurator(t, fake)

	_, err := c.Run(context.Background(), testConfig(t), ConfigureOptions{})
	assert.Error(t, err)
	assert.Empty(t, fake.Mutations)
}

func TestConfiguratorUnverifiedResult(t *testing.T) {
	fake := configuratorFake() // device never answers
	c := newConfigurator(t, fake)

	result, err := c.Run(context.Background(), testConfig(t), ConfigureOptions{})
	require.NoError(t, err)
	assert.False(t, result.Verified)
}
