package netmgr

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Jesssullivan/DarwinNicUtil/pkg/models"
)

var usbEtherNameRe = regexp.MustCompile(`^en(\d+)$`)

// InterferenceAssessor estimates how much RF noise a USB ethernet adapter
// is likely to inject into the 2.4GHz band. USB 3.x signalling famously
// radiates right on top of channel 1-11; the assessment is a weighted sum
// of hardware factors, not a measurement.
type InterferenceAssessor struct {
	cache  *HardwareCache
	wifi   *WiFiMonitor
	logger *logrus.Logger
}

// NewInterferenceAssessor builds an assessor over the given hardware cache
// and WiFi monitor.
func NewInterferenceAssessor(cache *HardwareCache, wifi *WiFiMonitor, logger *logrus.Logger) *InterferenceAssessor {
	return &InterferenceAssessor{cache: cache, wifi: wifi, logger: logger}
}

// usbLikeName reports whether the interface name plausibly belongs to a USB
// ethernet adapter. Built-in macOS interfaces claim the low en numbers, so
// a high en number counts alongside the obvious keyword matches.
func usbLikeName(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range []string{"usb", "ethernet", "lan"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	if m := usbEtherNameRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 5 {
			return true
		}
	}
	return false
}

// Risk scores the interference potential of the named interface on a 0-100
// scale. Interfaces that do not look like USB adapters score 0.
func (a *InterferenceAssessor) Risk(ctx context.Context, interfaceName string) float64 {
	if !usbLikeName(interfaceName) {
		return 0
	}

	risk := 30.0 // any USB adapter near the antennas carries a baseline risk

	if a.cache.IsUSB3(ctx, interfaceName) {
		risk += 40
	}
	risk += 2 * a.cache.AntennaProximity(ctx, interfaceName)

	cable := a.cache.Cable(ctx, interfaceName)
	if !cable.Shielded {
		risk += 20
	}
	if !cable.FerriteCore {
		risk += 15
	}
	if cable.LengthMeters > 2.0 {
		risk += 10
	}

	risk += a.environmentalRisk(ctx)

	return clamp(risk, 0, 100)
}

// environmentalRisk adds the share of risk owned by the radio environment
// rather than the adapter. A 2.4GHz association sits exactly where USB 3.x
// noise lands.
func (a *InterferenceAssessor) environmentalRisk(ctx context.Context) float64 {
	risk := 5.0
	metrics := a.wifi.Status(ctx)
	if metrics.Status != models.WiFiDisconnected && metrics.Band == "2.4GHz" {
		risk += 15
	}
	return risk
}

// Mitigations lists practical countermeasures for USB 3.x interference,
// ordered roughly by effectiveness.
func (a *InterferenceAssessor) Mitigations() []string {
	return []string{
		"Move the WiFi connection to a 5GHz network",
		"Use a shielded USB cable with a ferrite core",
		"Connect the adapter through a short extension away from the chassis",
		"Prefer a USB 2.0 adapter when gigabit speed is not required",
		"Plug the adapter into a port on the far side from the antenna",
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
