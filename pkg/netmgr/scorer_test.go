package netmgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jesssullivan/DarwinNicUtil/pkg/models"
	"github.com/Jesssullivan/DarwinNicUtil/pkg/platform"
)

func newTestScorer(fake *platform.FakeExecutor) *InterfaceScorer {
	logger := testLogger()
	monitor := NewWiFiMonitor(fake, logger)
	cache := NewHardwareCache(fake, logger)
	assessor := NewInterferenceAssessor(cache, monitor, logger)
	return NewInterfaceScorer(monitor, assessor, logger)
}

func healthyWiFiFake() *platform.FakeExecutor {
	fake := platform.NewFakeExecutor()
	fake.Metrics = models.WiFiMetrics{
		SignalStrength: -55, NoiseLevel: -95, SNR: 40, TransmitRate: 400,
		SSID: "office", Band: "5GHz", Channel: 44,
	}
	fake.Reachable = map[string]bool{"8.8.8.8": true}
	return fake
}

func TestScoreComponents(t *testing.T) {
	fake := healthyWiFiFake()
	scorer := newTestScorer(fake)
	ctx := context.Background()

	t.Run("active wifi with internet dominates", func(t *testing.T) {
		score := scorer.Score(ctx, models.NetworkInterface{
			Name: "en0", IsWiFi: true, IsActive: true, IsProtected: true,
		})
		assert.Equal(t, 90.0, score.WiFiPreference)
		assert.Equal(t, 0.0, score.InterferenceRisk)
		assert.Equal(t, 95.0, score.CapabilitiesScore)
		assert.Equal(t, 80.0, score.ReliabilityScore)
	})

	t.Run("wifi without internet ranks lower", func(t *testing.T) {
		fake.Reachable = nil
		defer func() { fake.Reachable = map[string]bool{"8.8.8.8": true} }()
		score := scorer.Score(ctx, models.NetworkInterface{
			Name: "en0", IsWiFi: true, IsActive: true,
		})
		assert.Equal(t, 60.0, score.WiFiPreference)
	})

	t.Run("usb adapter carries interference risk", func(t *testing.T) {
		score := scorer.Score(ctx, models.NetworkInterface{
			Name: "en7", IsUSB: true, IsActive: true,
		})
		assert.Equal(t, 20.0, score.WiFiPreference)
		assert.Greater(t, score.InterferenceRisk, 0.0)
		assert.Equal(t, 60.0, score.ReliabilityScore)
	})

	t.Run("inactive interface reliability floor", func(t *testing.T) {
		score := scorer.Score(ctx, models.NetworkInterface{Name: "en3"})
		assert.Equal(t, 30.0, score.ReliabilityScore)
	})

	t.Run("scores stay within bounds", func(t *testing.T) {
		for _, iface := range []models.NetworkInterface{
			{Name: "en0", IsWiFi: true, IsActive: true, IsProtected: true},
			{Name: "en7", IsUSB: true, IsActive: true},
			{Name: "en3"},
		} {
			score := scorer.Score(ctx, iface)
			assert.GreaterOrEqual(t, score.Score, 0.0)
			assert.LessOrEqual(t, score.Score, 100.0)
		}
	})
}

func TestRankInterfacesOrdering(t *testing.T) {
	fake := healthyWiFiFake()
	scorer := newTestScorer(fake)

	ifaces := []models.NetworkInterface{
		{Name: "en7", IsUSB: true, IsActive: true},
		{Name: "en0", IsWiFi: true, IsActive: true, IsProtected: true},
		{Name: "en3"},
	}

	ranked := scorer.RankInterfaces(context.Background(), ifaces)
	require.Len(t, ranked, 3)
	assert.Equal(t, "en0", ranked[0].InterfaceName)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
}

func TestRankInterfacesStableOnTies(t *testing.T) {
	fake := healthyWiFiFake()
	scorer := newTestScorer(fake)

	// Identical inputs produce identical scores; order must match input.
	ifaces := []models.NetworkInterface{
		{Name: "en3", IsActive: true},
		{Name: "en4", IsActive: true},
		{Name: "en2", IsActive: true},
	}

	ranked := scorer.RankInterfaces(context.Background(), ifaces)
	require.Len(t, ranked, 3)
	assert.Equal(t, "en3", ranked[0].InterfaceName)
	assert.Equal(t, "en4", ranked[1].InterfaceName)
	assert.Equal(t, "en2", ranked[2].InterfaceName)
}
