package models

import "fmt"

// NetworkInterface represents a detected network interface. It is an
// immutable snapshot taken at detection time; re-detection produces a new
// value rather than mutating an old one. Identity is the interface name.
type NetworkInterface struct {
	Name         string `json:"name"`          // Interface name (e.g. en0, en7)
	HardwarePort string `json:"hardware_port"` // Hardware port description from the OS
	IsUSB        bool   `json:"is_usb"`        // Whether the interface is a USB adapter
	IsWiFi       bool   `json:"is_wifi"`       // Whether the interface is a WiFi radio
	IsActive     bool   `json:"is_active"`     // Whether the interface has an active link
	IsProtected  bool   `json:"is_protected"`  // Whether the interface must never be modified
	CurrentIP    string `json:"current_ip,omitempty"`
	MAC          string `json:"mac,omitempty"`
	Vendor       string `json:"vendor,omitempty"`
}

// protectedNames are interfaces that must never be reconfigured or brought
// down: the primary WiFi and Ethernet radios, loopback, Apple wireless
// auxiliaries, and VPN tunnels. A protected interface is never classified
// as USB and is never passed to a mutating executor call.
var protectedNames = map[string]struct{}{
	// macOS
	"en0":   {}, // Primary WiFi
	"en1":   {}, // Primary Ethernet
	"lo0":   {}, // Loopback
	"awdl0": {}, // Apple Wireless Direct Link
	"llw0":  {}, // Low Latency WLAN
	"utun0": {},
	"utun1": {},
	"utun2": {},
	// Linux
	"eth0":  {},
	"wlan0": {},
	"lo":    {},
}

// IsProtectedName reports whether name belongs to the fixed protected set.
func IsProtectedName(name string) bool {
	_, ok := protectedNames[name]
	return ok
}

// ProtectedNames returns the protected set as a slice, for display.
func ProtectedNames() []string {
	names := make([]string, 0, len(protectedNames))
	for name := range protectedNames {
		names = append(names, name)
	}
	return names
}

// SuitableForConfiguration reports whether the interface can be safely
// configured: a non-protected USB adapter with an active link.
func (i NetworkInterface) SuitableForConfiguration() bool {
	return i.IsUSB && !i.IsProtected && i.IsActive
}

// String renders the interface with status icons for operator display.
func (i NetworkInterface) String() string {
	status := "[-]"
	if i.IsActive {
		status = "[+]"
	}
	prot := "   "
	if i.IsProtected {
		prot = "[L]"
	}
	usb := "   "
	if i.IsUSB {
		usb = "[U]"
	}
	ip := i.CurrentIP
	if ip == "" {
		ip = "None"
	}
	port := i.HardwarePort
	if len(port) > 40 {
		port = port[:40]
	}
	return fmt.Sprintf("%s%s%s %-8s - %-40s (IP: %s)", status, prot, usb, i.Name, port, ip)
}
