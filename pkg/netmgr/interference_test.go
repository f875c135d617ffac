package netmgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Jesssullivan/DarwinNicUtil/pkg/models"
	"github.com/Jesssullivan/DarwinNicUtil/pkg/platform"
)

func newTestAssessor(fake *platform.FakeExecutor) *InterferenceAssessor {
	logger := testLogger()
	return NewInterferenceAssessor(
		NewHardwareCache(fake, logger),
		NewWiFiMonitor(fake, logger),
		logger,
	)
}

func TestUSBLikeName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"en0", false},
		{"en4", false},
		{"en5", true},
		{"en12", true},
		{"USB 10/100/1000 LAN", true},
		{"AX88179 Ethernet", true},
		{"bridge0", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, usbLikeName(tt.name), tt.name)
	}
}

func TestRiskZeroForBuiltIn(t *testing.T) {
	assessor := newTestAssessor(platform.NewFakeExecutor())
	assert.Zero(t, assessor.Risk(context.Background(), "en0"))
}

func TestRiskBoundsForUSBAdapter(t *testing.T) {
	fake := platform.NewFakeExecutor()
	fake.Metrics = models.WiFiMetrics{
		SignalStrength: -55, NoiseLevel: -95, SNR: 40, TransmitRate: 400, Band: "5GHz",
	}
	assessor := newTestAssessor(fake)

	risk := assessor.Risk(context.Background(), "en7")
	assert.Greater(t, risk, 0.0)
	assert.LessOrEqual(t, risk, 100.0)
}

func TestRiskHigherOn24GHz(t *testing.T) {
	usbProfile := []byte(`{"SPUSBDataType":[{"_name":"USB 10/100/1000 LAN","Device_Speed":"high_speed (480 Mb/s)","Location":"back"}]}`)

	base := platform.NewFakeExecutor()
	base.Profiles = map[string][]byte{"SPUSBDataType": usbProfile}
	base.Metrics = models.WiFiMetrics{
		SignalStrength: -55, NoiseLevel: -95, SNR: 40, TransmitRate: 400, Band: "5GHz",
	}

	crowded := platform.NewFakeExecutor()
	crowded.Profiles = map[string][]byte{"SPUSBDataType": usbProfile}
	crowded.Metrics = models.WiFiMetrics{
		SignalStrength: -55, NoiseLevel: -95, SNR: 40, TransmitRate: 400, Band: "2.4GHz", Channel: 6,
	}

	riskBase := newTestAssessor(base).Risk(context.Background(), "en7")
	riskCrowded := newTestAssessor(crowded).Risk(context.Background(), "en7")
	assert.Greater(t, riskCrowded, riskBase)
}

func TestMitigationsNonEmpty(t *testing.T) {
	assessor := newTestAssessor(platform.NewFakeExecutor())
	assert.NotEmpty(t, assessor.Mitigations())
}
