package netmgr

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Jesssullivan/DarwinNicUtil/pkg/platform"
)

// CableQuality is a best-effort assessment of the USB cable feeding an
// adapter, derived from profiler metadata. The signals are estimates and
// are allowed to be wrong; only the scoring weights that consume them are
// contractual.
type CableQuality struct {
	Shielded     bool
	FerriteCore  bool
	LengthMeters float64
	USBVersion   string
}

// HardwareCache caches machine and USB port metadata looked up through the
// executor. It is constructed once per run and passed into the components
// that need it; entries load lazily on first use and are never refreshed
// within a run.
type HardwareCache struct {
	exec   platform.Executor
	logger *logrus.Logger

	mu       sync.Mutex
	loaded   bool
	model    string
	usbItems []usbItem
}

type usbItem struct {
	Name     string    `json:"_name"`
	Location string    `json:"Location"`
	Speed    string    `json:"Device_Speed"`
	Vendor   string    `json:"Vendor_ID"`
	Items    []usbItem `json:"_items"`
}

// NewHardwareCache creates an empty cache bound to an executor.
func NewHardwareCache(exec platform.Executor, logger *logrus.Logger) *HardwareCache {
	return &HardwareCache{exec: exec, logger: logger}
}

func (c *HardwareCache) load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return
	}
	c.loaded = true

	if data, err := c.exec.HardwareProfile(ctx, "SPHardwareDataType"); err == nil {
		var payload struct {
			Items []struct {
				MachineModel string `json:"machine_model"`
			} `json:"SPHardwareDataType"`
		}
		if json.Unmarshal(data, &payload) == nil && len(payload.Items) > 0 {
			c.model = payload.Items[0].MachineModel
		}
	} else {
		c.logger.Debugf("hardware model lookup failed: %v", err)
	}

	if data, err := c.exec.HardwareProfile(ctx, "SPUSBDataType"); err == nil {
		var payload struct {
			Items []usbItem `json:"SPUSBDataType"`
		}
		if json.Unmarshal(data, &payload) == nil {
			c.usbItems = flattenUSBItems(payload.Items)
		}
	} else {
		c.logger.Debugf("usb metadata lookup failed: %v", err)
	}
}

func flattenUSBItems(items []usbItem) []usbItem {
	var flat []usbItem
	for _, item := range items {
		flat = append(flat, item)
		flat = append(flat, flattenUSBItems(item.Items)...)
	}
	return flat
}

// Model returns the detected machine model, or "" when unknown.
func (c *HardwareCache) Model(ctx context.Context) string {
	c.load(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// AntennaProximity estimates how close the adapter's port sits to the WiFi
// antennas on a 0-10 scale (10 = closest). Side ports on laptops sit near
// the antenna runs; rear ports are farther. Falls back to a neutral 5 when
// no metadata matches.
func (c *HardwareCache) AntennaProximity(ctx context.Context, interfaceName string) float64 {
	c.load(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, item := range c.usbItems {
		if !matchesEthernetDevice(item) {
			continue
		}
		loc := strings.ToLower(item.Location)
		switch {
		case strings.Contains(loc, "left") || strings.Contains(loc, "right"):
			return 7.0
		case strings.Contains(loc, "back") || strings.Contains(loc, "rear"):
			return 3.0
		case strings.Contains(loc, "front"):
			return 6.0
		}
	}
	return 5.0
}

// IsUSB3 reports whether the adapter is judged a USB 3.x device. Modern
// ethernet adapters default to yes when metadata is unavailable.
func (c *HardwareCache) IsUSB3(ctx context.Context, interfaceName string) bool {
	c.load(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, item := range c.usbItems {
		if matchesEthernetDevice(item) {
			return strings.HasPrefix(usbVersionFromSpeed(item.Speed), "3")
		}
	}
	return true
}

// Cable estimates cable quality for the adapter from profiler metadata.
func (c *HardwareCache) Cable(ctx context.Context, interfaceName string) CableQuality {
	c.load(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, item := range c.usbItems {
		if !matchesEthernetDevice(item) {
			continue
		}
		version := usbVersionFromSpeed(item.Speed)
		name := strings.ToLower(item.Name)
		ferrite := strings.Contains(name, "shielded") || strings.Contains(name, "ferrite") ||
			strings.Contains(name, "noise") || strings.Contains(name, "professional")
		return CableQuality{
			// USB 3.x spec requires shielded pairs; 2.0 cables vary.
			Shielded:     strings.HasPrefix(version, "3"),
			FerriteCore:  ferrite,
			LengthMeters: 1.5,
			USBVersion:   version,
		}
	}
	return CableQuality{Shielded: true, LengthMeters: 1.0, USBVersion: "3.0"}
}

func matchesEthernetDevice(item usbItem) bool {
	name := strings.ToLower(item.Name)
	for _, kw := range []string{"ethernet", "lan", "usb", "realtek", "asix"} {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

func usbVersionFromSpeed(speed string) string {
	lower := strings.ToLower(speed)
	switch {
	case strings.Contains(lower, "480") || strings.Contains(lower, "high"):
		return "2.0"
	case strings.Contains(lower, "10000") || strings.Contains(lower, "10 gb"):
		return "3.1"
	case strings.Contains(lower, "5000") || strings.Contains(lower, "super") || strings.Contains(lower, "5 gb"):
		return "3.0"
	default:
		return "3.0"
	}
}
