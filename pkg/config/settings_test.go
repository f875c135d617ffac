package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, "192.0.2.1", s.Defaults.DeviceIP)
	assert.Equal(t, "192.0.2.100", s.Defaults.LaptopIP)
	assert.Equal(t, "255.255.255.0", s.Defaults.Netmask)
	assert.Equal(t, "198.51.100.0/24", s.Defaults.MgmtNetwork)
	assert.True(t, s.PreserveWiFi())
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.toml", `
[defaults]
device_ip = "10.0.0.2"
preserve_wifi = true

[profiles.lab]
device_ip = "10.10.0.2"
laptop_ip = "10.10.0.1"
description = "lab switch"
`)

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", s.Defaults.DeviceIP)
	// Fields the file does not mention keep their defaults.
	assert.Equal(t, "192.0.2.100", s.Defaults.LaptopIP)
	assert.Equal(t, []string{path}, s.Sources)
	assert.Equal(t, []string{"lab"}, s.ProfileNames())
}

func TestLoadLaterFileWins(t *testing.T) {
	dir := t.TempDir()
	first := writeConfig(t, dir, "first.toml", `
[defaults]
device_ip = "10.0.0.2"
laptop_ip = "10.0.0.1"
preserve_wifi = true
`)
	second := writeConfig(t, dir, "second.toml", `
[defaults]
device_ip = "10.9.9.9"
preserve_wifi = false
`)

	s, err := load([]string{first, second})
	require.NoError(t, err)
	assert.Equal(t, "10.9.9.9", s.Defaults.DeviceIP)
	assert.Equal(t, "10.0.0.1", s.Defaults.LaptopIP)
	assert.False(t, s.PreserveWiFi())
}

func TestLoadPreserveWiFiOnlyLayer(t *testing.T) {
	dir := t.TempDir()
	only := writeConfig(t, dir, "only.toml", `
[defaults]
preserve_wifi = false
`)

	s, err := load([]string{only})
	require.NoError(t, err)
	assert.False(t, s.PreserveWiFi())
	// Everything else keeps the built-in defaults.
	assert.Equal(t, "192.0.2.1", s.Defaults.DeviceIP)

	// A later layer that never mentions the key leaves it alone.
	silent := writeConfig(t, dir, "silent.toml", `
[defaults]
device_ip = "10.0.0.2"
`)
	s, err = load([]string{only, silent})
	require.NoError(t, err)
	assert.False(t, s.PreserveWiFi())
	assert.Equal(t, "10.0.0.2", s.Defaults.DeviceIP)
}

func TestLoadSkipsMissingRejectsBroken(t *testing.T) {
	dir := t.TempDir()
	broken := writeConfig(t, dir, "broken.toml", `[defaults`)

	s, err := load([]string{filepath.Join(dir, "missing.toml")})
	require.NoError(t, err)
	assert.Empty(t, s.Sources)

	_, err = load([]string{broken})
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DARWIN_NIC_DEVICE_IP", "172.16.5.1")
	t.Setenv("DARWIN_NIC_PRESERVE_WIFI", "false")

	s, err := load(nil)
	require.NoError(t, err)
	assert.Equal(t, "172.16.5.1", s.Defaults.DeviceIP)
	assert.False(t, s.PreserveWiFi())
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.toml", `
default_profile = "lab"

[defaults]
preserve_wifi = true

[profiles.lab]
device_ip = "10.10.0.2"
laptop_ip = "10.10.0.1"
device_name = "lab switch"

[profiles.broken]
device_ip = "10.20.0.2"
`)

	s, err := LoadFile(path)
	require.NoError(t, err)

	t.Run("named profile", func(t *testing.T) {
		cfg, err := s.Resolve("lab")
		require.NoError(t, err)
		assert.Equal(t, "10.10.0.2", cfg.DeviceIP)
		assert.Equal(t, "10.10.0.1", cfg.LaptopIP)
		// Netmask falls back to the merged defaults.
		assert.Equal(t, "255.255.255.0", cfg.Netmask)
		assert.Equal(t, "lab switch", cfg.DeviceName)
	})

	t.Run("empty name uses default profile", func(t *testing.T) {
		cfg, err := s.Resolve("")
		require.NoError(t, err)
		assert.Equal(t, "10.10.0.2", cfg.DeviceIP)
	})

	t.Run("profile missing required fields", func(t *testing.T) {
		_, err := s.Resolve("broken")
		assert.Error(t, err)
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, err := s.Resolve("nope")
		assert.Error(t, err)
	})
}

func TestInitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	require.NoError(t, InitFile(path))
	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1", s.Defaults.DeviceIP)

	// A second init must not clobber the file.
	assert.Error(t, InitFile(path))
}
