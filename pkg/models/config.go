package models

import (
	"fmt"
	"net"
	"net/netip"
)

// NetworkConfig is the validated, immutable configuration for one
// out-of-band management link. Construction fails if any address or the
// management CIDR is malformed; a partially valid value is never returned.
type NetworkConfig struct {
	DeviceIP    string `json:"device_ip"`    // Target device IP (e.g. 192.0.2.1)
	LaptopIP    string `json:"laptop_ip"`    // Local controller IP (e.g. 192.0.2.100)
	Netmask     string `json:"netmask"`      // Dotted-quad mask (e.g. 255.255.255.0)
	MgmtNetwork string `json:"mgmt_network"` // Management network CIDR (e.g. 198.51.100.0/24)
	DeviceName  string `json:"device_name"`  // Human-readable device identifier
}

// NewNetworkConfig validates all addresses and returns the config, or a
// MalformedConfigError naming the first offending field.
func NewNetworkConfig(deviceIP, laptopIP, netmask, mgmtNetwork, deviceName string) (NetworkConfig, error) {
	if _, err := netip.ParseAddr(deviceIP); err != nil {
		return NetworkConfig{}, &MalformedConfigError{Field: "device_ip", Value: deviceIP, Err: err}
	}
	if _, err := netip.ParseAddr(laptopIP); err != nil {
		return NetworkConfig{}, &MalformedConfigError{Field: "laptop_ip", Value: laptopIP, Err: err}
	}
	if mask := net.ParseIP(netmask); mask == nil || mask.To4() == nil {
		return NetworkConfig{}, &MalformedConfigError{Field: "netmask", Value: netmask,
			Err: fmt.Errorf("not a dotted-quad mask")}
	}
	if _, err := netip.ParsePrefix(mgmtNetwork); err != nil {
		return NetworkConfig{}, &MalformedConfigError{Field: "mgmt_network", Value: mgmtNetwork, Err: err}
	}
	return NetworkConfig{
		DeviceIP:    deviceIP,
		LaptopIP:    laptopIP,
		Netmask:     netmask,
		MgmtNetwork: mgmtNetwork,
		DeviceName:  deviceName,
	}, nil
}

// Validate re-checks a config deserialized from disk.
func (c NetworkConfig) Validate() error {
	_, err := NewNetworkConfig(c.DeviceIP, c.LaptopIP, c.Netmask, c.MgmtNetwork, c.DeviceName)
	return err
}

// MgmtGateway returns the management network gateway, conventionally the
// first host address (.1).
func (c NetworkConfig) MgmtGateway() string {
	return c.mgmtHost(1)
}

// MgmtTestIP returns a probe address inside the management network,
// conventionally the tenth host address (.10).
func (c NetworkConfig) MgmtTestIP() string {
	return c.mgmtHost(10)
}

func (c NetworkConfig) mgmtHost(offset int) string {
	prefix, err := netip.ParsePrefix(c.MgmtNetwork)
	if err != nil {
		return ""
	}
	addr := prefix.Masked().Addr()
	for n := 0; n < offset; n++ {
		addr = addr.Next()
	}
	return addr.String()
}
