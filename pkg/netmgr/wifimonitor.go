package netmgr

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Jesssullivan/DarwinNicUtil/pkg/models"
	"github.com/Jesssullivan/DarwinNicUtil/pkg/platform"
)

const (
	snrDegradedThreshold   = 15.0
	snrMarginalThreshold   = 20.0
	noiseFloorThresholdDBm = -85.0
	txRateFloorMbps        = 10.0
)

// WiFiMonitor observes the machine's WiFi radio through the executor. It
// never mutates WiFi configuration; everything here is read-only telemetry
// used to decide whether a USB adapter can be brought up safely.
type WiFiMonitor struct {
	exec   platform.Executor
	logger *logrus.Logger
}

// NewWiFiMonitor returns a monitor backed by the given executor.
func NewWiFiMonitor(exec platform.Executor, logger *logrus.Logger) *WiFiMonitor {
	return &WiFiMonitor{exec: exec, logger: logger}
}

// Status samples the radio and classifies the connection. A radio query
// failure is not an error: it is reported as a disconnected radio with
// synthesized zero metrics, so callers always get a classifiable result.
func (m *WiFiMonitor) Status(ctx context.Context) models.WiFiMetrics {
	metrics, err := m.exec.WiFiMetrics(ctx)
	if err != nil {
		m.logger.Debugf("wifi radio query failed: %v", err)
		return models.DisconnectedMetrics()
	}
	metrics.Status = classifyWiFi(metrics)
	return metrics
}

// classifyWiFi derives the connection state from raw radio numbers. A radio
// reporting zero for both RSSI and SNR is off or unassociated; a low SNR is
// degraded; a connection matching enough interference indicators is
// interfered; anything else is healthy.
func classifyWiFi(m models.WiFiMetrics) models.WiFiStatus {
	if m.SignalStrength == 0 && m.SNR == 0 {
		return models.WiFiDisconnected
	}
	if m.SNR < snrDegradedThreshold {
		return models.WiFiDegraded
	}
	m.Status = models.WiFiConnected
	if countInterferenceIndicators(m) >= 2 {
		return models.WiFiInterfered
	}
	return models.WiFiConnected
}

// countInterferenceIndicators tallies the independent signals that point at
// RF interference: marginal SNR, a raised noise floor, a collapsed transmit
// rate, and an already-degraded link.
func countInterferenceIndicators(m models.WiFiMetrics) int {
	indicators := 0
	if m.SNR < snrMarginalThreshold {
		indicators++
	}
	if m.NoiseLevel > noiseFloorThresholdDBm {
		indicators++
	}
	if m.TransmitRate < txRateFloorMbps {
		indicators++
	}
	if m.Status == models.WiFiDegraded {
		indicators++
	}
	return indicators
}

// DetectInterference reports whether the current WiFi connection shows at
// least two independent interference indicators. A disconnected radio never
// counts as interfered.
func (m *WiFiMonitor) DetectInterference(ctx context.Context) bool {
	metrics := m.Status(ctx)
	if metrics.Status == models.WiFiDisconnected {
		return false
	}
	return countInterferenceIndicators(metrics) >= 2
}

// CheckConnectivity reports whether the host answers a short ping burst.
// Unreachable is a normal answer, not an error.
func (m *WiFiMonitor) CheckConnectivity(ctx context.Context, host string) bool {
	reachable, err := m.exec.Ping(ctx, host, 2, 2*time.Second)
	if err != nil {
		m.logger.Debugf("connectivity probe to %s failed: %v", host, err)
		return false
	}
	return reachable
}
