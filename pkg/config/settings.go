package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/Jesssullivan/DarwinNicUtil/pkg/models"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "DARWIN_NIC_"

// Defaults holds the baseline connection settings applied before any file,
// profile, or environment override.
type Defaults struct {
	DeviceIP    string `toml:"device_ip"`
	LaptopIP    string `toml:"laptop_ip"`
	Netmask     string `toml:"netmask"`
	MgmtNetwork string `toml:"mgmt_network"`
	DeviceName  string `toml:"device_name"`

	// PreserveWiFi is a pointer so a layer that never mentions the key can
	// be told apart from one that sets it to false.
	PreserveWiFi *bool `toml:"preserve_wifi"`
}

// Profile is a named device configuration. DeviceIP and LaptopIP are
// required; the rest fall back to the merged defaults.
type Profile struct {
	DeviceIP    string `toml:"device_ip"`
	LaptopIP    string `toml:"laptop_ip"`
	Netmask     string `toml:"netmask"`
	MgmtNetwork string `toml:"mgmt_network"`
	DeviceName  string `toml:"device_name"`
	Description string `toml:"description"`
}

// Settings is the merged view of every configuration source.
type Settings struct {
	Defaults       Defaults           `toml:"defaults"`
	DefaultProfile string             `toml:"default_profile"`
	Profiles       map[string]Profile `toml:"profiles"`

	// Sources lists the files that contributed, in the order applied.
	Sources []string `toml:"-"`
}

// DefaultSettings returns settings with the built-in defaults and no
// profiles.
func DefaultSettings() Settings {
	return Settings{
		Defaults: Defaults{
			DeviceIP:     "192.0.2.1",
			LaptopIP:     "192.0.2.100",
			Netmask:      "255.255.255.0",
			MgmtNetwork:  "198.51.100.0/24",
			PreserveWiFi: boolPtr(true),
		},
		Profiles: map[string]Profile{},
	}
}

// searchPaths returns the candidate config files in application order.
// Later entries override earlier ones.
func searchPaths() []string {
	paths := []string{"/etc/darwin-nic/config.toml"}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "darwin-nic", "config.toml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "darwin-nic", "config.toml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".darwin-nic.toml"))
	}
	paths = append(paths, ".darwin-nic.toml", "darwin-nic.toml")
	return paths
}

// Load merges the built-in defaults, every config file found in the search
// order, and environment overrides. A missing file is skipped; a present
// but unparseable file is an error.
func Load() (Settings, error) {
	return load(searchPaths())
}

// LoadFile loads a single explicit config file on top of the defaults.
func LoadFile(path string) (Settings, error) {
	return load([]string{path})
}

func load(paths []string) (Settings, error) {
	s := DefaultSettings()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var layer Settings
		if err := toml.Unmarshal(data, &layer); err != nil {
			return s, fmt.Errorf("parsing %s: %w", path, err)
		}
		s.merge(layer)
		s.Sources = append(s.Sources, path)
	}
	s.applyEnv()
	return s, nil
}

func (s *Settings) merge(layer Settings) {
	if layer.Defaults.DeviceIP != "" {
		s.Defaults.DeviceIP = layer.Defaults.DeviceIP
	}
	if layer.Defaults.LaptopIP != "" {
		s.Defaults.LaptopIP = layer.Defaults.LaptopIP
	}
	if layer.Defaults.Netmask != "" {
		s.Defaults.Netmask = layer.Defaults.Netmask
	}
	if layer.Defaults.MgmtNetwork != "" {
		s.Defaults.MgmtNetwork = layer.Defaults.MgmtNetwork
	}
	if layer.Defaults.DeviceName != "" {
		s.Defaults.DeviceName = layer.Defaults.DeviceName
	}
	if layer.Defaults.PreserveWiFi != nil {
		s.Defaults.PreserveWiFi = layer.Defaults.PreserveWiFi
	}
	if layer.DefaultProfile != "" {
		s.DefaultProfile = layer.DefaultProfile
	}
	for name, p := range layer.Profiles {
		s.Profiles[name] = p
	}
}

func (s *Settings) applyEnv() {
	if v := os.Getenv(EnvPrefix + "DEVICE_IP"); v != "" {
		s.Defaults.DeviceIP = v
	}
	if v := os.Getenv(EnvPrefix + "LAPTOP_IP"); v != "" {
		s.Defaults.LaptopIP = v
	}
	if v := os.Getenv(EnvPrefix + "NETMASK"); v != "" {
		s.Defaults.Netmask = v
	}
	if v := os.Getenv(EnvPrefix + "MGMT_NETWORK"); v != "" {
		s.Defaults.MgmtNetwork = v
	}
	if v := os.Getenv(EnvPrefix + "DEVICE_NAME"); v != "" {
		s.Defaults.DeviceName = v
	}
	if v := os.Getenv(EnvPrefix + "PRESERVE_WIFI"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.Defaults.PreserveWiFi = &b
		}
	}
	if v := os.Getenv(EnvPrefix + "PROFILE"); v != "" {
		s.DefaultProfile = v
	}
}

// PreserveWiFi reports whether WiFi priority should be protected while
// configuring. True unless a config file or environment override says
// otherwise.
func (s Settings) PreserveWiFi() bool {
	if s.Defaults.PreserveWiFi == nil {
		return true
	}
	return *s.Defaults.PreserveWiFi
}

func boolPtr(b bool) *bool { return &b }

// ProfileNames returns the configured profile names, sorted.
func (s Settings) ProfileNames() []string {
	names := make([]string, 0, len(s.Profiles))
	for name := range s.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve produces a validated NetworkConfig for the given profile name.
// An empty name uses the default profile if one is set, otherwise the bare
// defaults.
func (s Settings) Resolve(profileName string) (models.NetworkConfig, error) {
	d := s.Defaults
	if profileName == "" {
		profileName = s.DefaultProfile
	}
	if profileName != "" {
		p, ok := s.Profiles[profileName]
		if !ok {
			return models.NetworkConfig{}, fmt.Errorf("unknown profile %q (have %v)", profileName, s.ProfileNames())
		}
		if p.DeviceIP == "" || p.LaptopIP == "" {
			return models.NetworkConfig{}, fmt.Errorf("profile %q must set device_ip and laptop_ip", profileName)
		}
		d.DeviceIP = p.DeviceIP
		d.LaptopIP = p.LaptopIP
		if p.Netmask != "" {
			d.Netmask = p.Netmask
		}
		if p.MgmtNetwork != "" {
			d.MgmtNetwork = p.MgmtNetwork
		}
		if p.DeviceName != "" {
			d.DeviceName = p.DeviceName
		}
	}
	return models.NewNetworkConfig(d.DeviceIP, d.LaptopIP, d.Netmask, d.MgmtNetwork, d.DeviceName)
}
