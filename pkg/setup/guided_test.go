package setup

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jesssullivan/DarwinNicUtil/pkg/models"
	"github.com/Jesssullivan/DarwinNicUtil/pkg/netmgr"
	"github.com/Jesssullivan/DarwinNicUtil/pkg/platform"
)

// scriptedPrompter answers every question and records what was asked.
type scriptedPrompter struct {
	answer   bool
	prompts  []string
	enters   []string
	refusals map[string]bool
}

func (p *scriptedPrompter) Confirm(prompt string, defaultYes bool) bool {
	p.prompts = append(p.prompts, prompt)
	for substr := range p.refusals {
		if strings.Contains(prompt, substr) {
			return false
		}
	}
	return p.answer
}

func (p *scriptedPrompter) WaitForEnter(prompt string) {
	p.enters = append(p.enters, prompt)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig(t *testing.T) models.NetworkConfig {
	t.Helper()
	cfg, err := models.NewNetworkConfig("192.0.2.1", "192.0.2.100", "255.255.255.0", "198.51.100.0/24", "switch")
	require.NoError(t, err)
	return cfg
}

func newGuided(t *testing.T, fake *platform.FakeExecutor, prompter Prompter) *GuidedSetup {
	t.Helper()
	logger := testLogger()
	monitor := netmgr.NewWiFiMonitor(fake, logger)
	cache := netmgr.NewHardwareCache(fake, logger)
	assessor := netmgr.NewInterferenceAssessor(cache, monitor, logger)
	scorer := netmgr.NewInterfaceScorer(monitor, assessor, logger)
	orderMgr := netmgr.NewServiceOrderManager(fake, logger)
	routeMgr := netmgr.NewRouteManager(fake, logger)

	g := NewGuidedSetup(fake, monitor, scorer, orderMgr, routeMgr, prompter, &bytes.Buffer{}, logger)
	g.StatePath = filepath.Join(t.TempDir(), "state.json")
	g.DetectWindow = 50 * time.Millisecond
	g.PollInterval = 5 * time.Millisecond
	return g
}

func baselineFake() *platform.FakeExecutor {
	fake := platform.NewFakeExecutor()
	fake.Interfaces = []models.NetworkInterface{
		{Name: "en0", HardwarePort: "Wi-Fi", IsWiFi: true, IsActive: true, IsProtected: true},
		{Name: "lo0", HardwarePort: "Loopback", IsActive: true, IsProtected: true},
	}
	fake.Services = []string{"Wi-Fi", "Thunderbolt Bridge"}
	fake.Metrics = models.WiFiMetrics{
		SignalStrength: -55, NoiseLevel: -95, SNR: 40, TransmitRate: 400,
		SSID: "office", Band: "5GHz",
	}
	return fake
}

// plugIn makes the adapter appear after the baseline has been captured, by
// swapping it in the moment the baseline prompt fires.
type plugInPrompter struct {
	scriptedPrompter
	fake *platform.FakeExecutor
}

func (p *plugInPrompter) WaitForEnter(prompt string) {
	p.scriptedPrompter.WaitForEnter(prompt)
	if strings.Contains(prompt, "Plug in") {
		p.fake.Interfaces = append(p.fake.Interfaces, models.NetworkInterface{
			Name: "en7", HardwarePort: "USB 10/100/1000 LAN", IsUSB: true,
		})
		p.fake.Links["en7"] = true
	}
}

func TestGuidedRunCompletes(t *testing.T) {
	fake := baselineFake()
	fake.Reachable = map[string]bool{"192.0.2.1": true, "8.8.8.8": true}
	prompter := &plugInPrompter{scriptedPrompter: scriptedPrompter{answer: true}, fake: fake}

	g := newGuided(t, fake, prompter)
	outcome, err := g.Run(context.Background(), testConfig(t))

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Equal(t, "en7", g.state.DetectedUSBName)
	assert.True(t, g.state.Verified)

	// The detected adapter got the laptop address and the management route
	// points at the device.
	assert.Contains(t, fake.Mutations, "assign en7 192.0.2.100/255.255.255.0")
	assert.Contains(t, fake.Mutations, "route-add 198.51.100.0/24 via 192.0.2.1")

	// Success removes the persisted state.
	loaded, err := LoadState(g.StatePath)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestGuidedDetectsByBaselineDiff(t *testing.T) {
	fake := baselineFake()
	fake.Reachable = map[string]bool{"192.0.2.1": true}
	prompter := &plugInPrompter{scriptedPrompter: scriptedPrompter{answer: true}, fake: fake}

	g := newGuided(t, fake, prompter)
	_, err := g.Run(context.Background(), testConfig(t))
	require.NoError(t, err)

	// Baseline was {en0, lo0}; the new name en7 is the detected adapter.
	assert.Equal(t, []string{"en0", "lo0"}, g.state.BaselineInterfaceNames)
	assert.Equal(t, "en7", g.state.DetectedUSBName)
}

func TestGuidedDetectionTimeout(t *testing.T) {
	fake := baselineFake() // adapter never appears
	prompter := &scriptedPrompter{answer: true, refusals: map[string]bool{"Retry": true}}

	g := newGuided(t, fake, prompter)
	outcome, err := g.Run(context.Background(), testConfig(t))

	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, models.ErrDetectionTimeout)

	// Nothing was configured, so nothing may have been mutated.
	assert.Empty(t, fake.Mutations)

	// State stays on disk for resume.
	loaded, loadErr := LoadState(g.StatePath)
	require.NoError(t, loadErr)
	require.NotNil(t, loaded)
	assert.Equal(t, StepBaselineComplete, loaded.CurrentStep)
}

func TestGuidedDetectionRetriesAreBounded(t *testing.T) {
	fake := baselineFake()
	prompter := &scriptedPrompter{answer: true}

	g := newGuided(t, fake, prompter)
	_, err := g.Run(context.Background(), testConfig(t))
	require.Error(t, err)

	retryPrompts := 0
	for _, p := range prompter.prompts {
		if strings.Contains(p, "Retry") {
			retryPrompts++
		}
	}
	assert.Equal(t, detectRetries, retryPrompts)
}

func TestGuidedResumeSkipsCompletedSteps(t *testing.T) {
	fake := baselineFake()
	fake.Interfaces = append(fake.Interfaces, models.NetworkInterface{
		Name: "en7", HardwarePort: "USB 10/100/1000 LAN", IsUSB: true,
	})
	fake.Links["en7"] = true
	fake.Reachable = map[string]bool{"192.0.2.1": true}

	prompter := &scriptedPrompter{answer: true}
	g := newGuided(t, fake, prompter)

	cfg := testConfig(t)
	prior := NewSetupState()
	prior.CurrentStep = StepCableConnected
	prior.SetBaseline([]string{"en0", "lo0"})
	prior.DetectedUSBName = "en7"
	prior.Config = &cfg
	require.NoError(t, prior.Save(g.StatePath))

	outcome, err := g.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)

	// Steps 1-3 never ran: no unplug confirmation, no plug-in prompt, and
	// the first thing the executor saw was the configuration step.
	for _, p := range prompter.prompts {
		assert.NotContains(t, p, "UNPLUGGED")
	}
	assert.Empty(t, prompter.enters)
	assert.Contains(t, fake.Mutations, "assign en7 192.0.2.100/255.255.255.0")
}

func TestGuidedUnverifiedOutcome(t *testing.T) {
	fake := baselineFake()
	fake.Reachable = map[string]bool{} // device never answers
	prompter := &plugInPrompter{
		scriptedPrompter: scriptedPrompter{answer: true, refusals: map[string]bool{"Retry": true}},
		fake:             fake,
	}

	g := newGuided(t, fake, prompter)
	outcome, err := g.Run(context.Background(), testConfig(t))

	require.NoError(t, err)
	assert.Equal(t, OutcomeUnverified, outcome)
	assert.False(t, g.state.Verified)
}

func TestGuidedRollbackAggregation(t *testing.T) {
	fake := baselineFake()
	fake.Interfaces = append(fake.Interfaces, models.NetworkInterface{
		Name: "en7", IsUSB: true,
	})
	fake.Fail = map[string]error{"down": assert.AnError}

	prompter := &scriptedPrompter{answer: true}
	g := newGuided(t, fake, prompter)
	cfg := testConfig(t)
	g.config = cfg
	g.state = NewSetupState()
	g.state.DetectedUSBName = "en7"
	g.state.Config = &cfg
	g.state.Configured = true

	results := g.Rollback(context.Background())

	// Route removal still ran even though bringing the interface down
	// failed, and the aggregate is a failure.
	var actions []string
	for _, r := range results {
		actions = append(actions, r.Action)
	}
	assert.Contains(t, actions, "bring en7 down")
	assert.Contains(t, actions, "remove management route")
	assert.Contains(t, fake.Mutations, "route-delete 198.51.100.0/24")
	assert.False(t, RollbackSucceeded(results))
}

func TestGuidedProtectedInterfacesNeverMutated(t *testing.T) {
	fake := baselineFake()
	fake.Reachable = map[string]bool{"192.0.2.1": true}
	prompter := &plugInPrompter{scriptedPrompter: scriptedPrompter{answer: true}, fake: fake}

	g := newGuided(t, fake, prompter)
	_, err := g.Run(context.Background(), testConfig(t))
	require.NoError(t, err)

	for _, m := range fake.Mutations {
		for _, protected := range []string{"en0", "lo0"} {
			if strings.HasPrefix(m, "assign ") || strings.HasPrefix(m, "down ") {
				assert.NotContains(t, m, " "+protected)
			}
		}
	}
}
