package models

// WiFiStatus classifies the state of the WiFi connection.
type WiFiStatus string

const (
	WiFiConnected    WiFiStatus = "connected"
	WiFiDisconnected WiFiStatus = "disconnected"
	WiFiDegraded     WiFiStatus = "degraded"
	WiFiInterfered   WiFiStatus = "interfered"
)

// WiFiMetrics holds a single sample of the WiFi radio state. Samples are
// recomputed on every poll and never persisted across restarts.
type WiFiMetrics struct {
	Status         WiFiStatus `json:"status"`
	SignalStrength float64    `json:"signal_strength"` // RSSI in dBm
	NoiseLevel     float64    `json:"noise_level"`     // dBm
	SNR            float64    `json:"snr"`             // dB
	TransmitRate   float64    `json:"transmit_rate"`   // Mbps
	SSID           string     `json:"ssid"`
	BSSID          string     `json:"bssid"`
	Channel        int        `json:"channel"`
	Band           string     `json:"band"` // "2.4GHz" or "5GHz"
}

// DisconnectedMetrics returns the synthesized sample used when the radio
// query fails outright.
func DisconnectedMetrics() WiFiMetrics {
	return WiFiMetrics{
		Status: WiFiDisconnected,
		SSID:   "Disconnected",
		Band:   "Unknown",
	}
}

// InterfaceScore is the result of ranking one interface. Scores are
// produced fresh per ranking call.
type InterfaceScore struct {
	InterfaceName     string  `json:"interface_name"`
	Score             float64 `json:"score"`
	WiFiPreference    float64 `json:"wifi_preference"`
	InterferenceRisk  float64 `json:"interference_risk"`
	CapabilitiesScore float64 `json:"capabilities_score"`
	ReliabilityScore  float64 `json:"reliability_score"`
}
