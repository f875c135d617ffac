package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const starterConfig = `# darwin-nic configuration
#
# Files are read in order (later wins):
#   /etc/darwin-nic/config.toml
#   ~/.config/darwin-nic/config.toml
#   ~/.darwin-nic.toml
#   ./.darwin-nic.toml
#   ./darwin-nic.toml
#
# Environment variables with the DARWIN_NIC_ prefix override everything,
# e.g. DARWIN_NIC_DEVICE_IP=10.0.0.1.

[defaults]
device_ip = "192.0.2.1"
laptop_ip = "192.0.2.100"
netmask = "255.255.255.0"
mgmt_network = "198.51.100.0/24"
preserve_wifi = true

# Uncomment to pick a profile automatically:
# default_profile = "lab-switch"

# [profiles.lab-switch]
# device_ip = "10.10.0.2"
# laptop_ip = "10.10.0.1"
# device_name = "Rack 3 switch"
# description = "Management port on the lab core switch"
`

// InitFile writes a commented starter config at path, creating parent
// directories as needed. Refuses to overwrite an existing file.
func InitFile(path string) error {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("locating home directory: %w", err)
		}
		path = filepath.Join(home, ".config", "darwin-nic", "config.toml")
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
