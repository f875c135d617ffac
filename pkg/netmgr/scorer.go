package netmgr

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/Jesssullivan/DarwinNicUtil/pkg/models"
)

// Scoring weights. The WiFi preference term dominates on purpose: the whole
// point of the ranking is to keep a working WiFi uplink ahead of anything
// that might disturb it.
const (
	weightWiFiPreference = 0.40
	weightInterference   = 0.25
	weightCapabilities   = 0.20
	weightReliability    = 0.15
)

// InterfaceScorer ranks interfaces for management-network suitability while
// penalizing anything that threatens the active WiFi connection.
type InterfaceScorer struct {
	wifi     *WiFiMonitor
	assessor *InterferenceAssessor
	logger   *logrus.Logger

	// ConnectivityHost is pinged to decide whether WiFi has real internet
	// access, not just an association.
	ConnectivityHost string
}

// NewInterfaceScorer builds a scorer over the given monitor and assessor.
func NewInterfaceScorer(wifi *WiFiMonitor, assessor *InterferenceAssessor, logger *logrus.Logger) *InterfaceScorer {
	return &InterfaceScorer{
		wifi:             wifi,
		assessor:         assessor,
		logger:           logger,
		ConnectivityHost: "8.8.8.8",
	}
}

// Score computes the composite suitability score for one interface. Every
// component lands in [0,100] and so does the weighted total.
func (s *InterfaceScorer) Score(ctx context.Context, iface models.NetworkInterface) models.InterfaceScore {
	wifiPref := s.wifiPreference(ctx, iface)
	interference := s.assessor.Risk(ctx, iface.Name)
	capabilities := capabilitiesScore(iface)
	reliability := reliabilityScore(iface)

	total := weightWiFiPreference*wifiPref +
		weightInterference*(100-interference) +
		weightCapabilities*capabilities +
		weightReliability*reliability

	score := models.InterfaceScore{
		InterfaceName:     iface.Name,
		Score:             clamp(total, 0, 100),
		WiFiPreference:    wifiPref,
		InterferenceRisk:  interference,
		CapabilitiesScore: capabilities,
		ReliabilityScore:  reliability,
	}
	s.logger.Debugf("scored %s: %.1f (wifi=%.0f risk=%.0f cap=%.0f rel=%.0f)",
		iface.Name, score.Score, wifiPref, interference, capabilities, reliability)
	return score
}

// RankInterfaces scores every interface and returns them ordered best
// first. Ties keep their input order.
func (s *InterfaceScorer) RankInterfaces(ctx context.Context, ifaces []models.NetworkInterface) []models.InterfaceScore {
	scores := make([]models.InterfaceScore, 0, len(ifaces))
	for _, iface := range ifaces {
		scores = append(scores, s.Score(ctx, iface))
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores
}

// wifiPreference expresses how strongly the ranking should favor this
// interface from WiFi's point of view. A WiFi interface with verified
// internet access is the best possible candidate; USB adapters rank low
// because bringing one up is exactly the disturbance being guarded against.
func (s *InterfaceScorer) wifiPreference(ctx context.Context, iface models.NetworkInterface) float64 {
	if iface.IsWiFi {
		metrics := s.wifi.Status(ctx)
		if metrics.Status != models.WiFiDisconnected && iface.IsActive {
			if s.wifi.CheckConnectivity(ctx, s.ConnectivityHost) {
				return 90
			}
			return 60
		}
		return 30
	}
	if iface.IsUSB {
		return 20
	}
	return 40
}

func capabilitiesScore(iface models.NetworkInterface) float64 {
	score := 50.0
	if iface.IsActive {
		score += 20
	}
	if iface.IsUSB {
		score -= 10
	}
	if iface.IsWiFi {
		score += 15
	}
	if iface.IsProtected {
		score += 10
	}
	return clamp(score, 0, 100)
}

func reliabilityScore(iface models.NetworkInterface) float64 {
	if !iface.IsActive {
		return 30
	}
	switch {
	case iface.IsWiFi:
		return 80
	case iface.IsUSB:
		return 60
	default:
		return 70
	}
}
