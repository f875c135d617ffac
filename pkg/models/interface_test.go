package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProtectedNamesNeverUSB(t *testing.T) {
	for _, name := range ProtectedNames() {
		assert.True(t, IsProtectedName(name), name)
		iface := NetworkInterface{Name: name, IsProtected: true}
		assert.False(t, iface.SuitableForConfiguration(), name)
	}
}

func TestSuitableForConfiguration(t *testing.T) {
	tests := []struct {
		name  string
		iface NetworkInterface
		want  bool
	}{
		{"active usb adapter", NetworkInterface{Name: "en7", IsUSB: true, IsActive: true}, true},
		{"inactive usb adapter", NetworkInterface{Name: "en7", IsUSB: true}, false},
		{"protected wifi", NetworkInterface{Name: "en0", IsWiFi: true, IsActive: true, IsProtected: true}, false},
		{"non-usb wired", NetworkInterface{Name: "en3", IsActive: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.iface.SuitableForConfiguration())
		})
	}
}

func TestInterfaceString(t *testing.T) {
	iface := NetworkInterface{
		Name: "en7", HardwarePort: "USB 10/100/1000 LAN",
		IsUSB: true, IsActive: true, CurrentIP: "192.0.2.100",
	}
	s := iface.String()
	assert.Contains(t, s, "en7")
	assert.Contains(t, s, "192.0.2.100")
}
