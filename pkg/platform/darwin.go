package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Jesssullivan/DarwinNicUtil/pkg/models"
)

// usbVendorKeywords identify USB ethernet adapters from the hardware port
// description reported by networksetup.
var usbVendorKeywords = []string{
	"usb ethernet", "usb 10/100", "usb gigabit", "usb 2.5g", "usb 5g",
	"realtek", "asix", "apple usb", "belkin usb", "startech",
	"plugable", "cable matters", "anker usb", "tp-link usb",
	"ugreen", "j5create", "sabrent", "iogear", "trendnet usb",
	"monoprice", "insignia usb", "dell usb", "lenovo usb",
}

// vendorDisplayNames maps port description keywords to display vendors.
var vendorDisplayNames = []struct{ keyword, vendor string }{
	{"realtek", "Realtek"},
	{"asix", "ASIX"},
	{"apple", "Apple"},
	{"belkin", "Belkin"},
	{"startech", "StarTech"},
	{"plugable", "Plugable"},
	{"cable matters", "Cable Matters"},
	{"anker", "Anker"},
	{"ugreen", "UGREEN"},
	{"j5create", "j5create"},
}

// Built-in en0..en4 are never USB; adapters enumerate at higher numbers.
const minUSBInterfaceNumber = 5

var enNumberRe = regexp.MustCompile(`^en(\d+)$`)

// airportPaths are the candidate locations of the airport utility.
var airportPaths = []string{
	"/System/Library/PrivateFrameworks/Apple80211.framework/Versions/Current/Resources/airport",
	"/System/Library/PrivateFrameworks/Apple80211.framework/Resources/airport",
}

// DarwinExecutor implements Executor by running macOS networking commands
// (networksetup, ifconfig, route, netstat, ping, airport, system_profiler)
// and parsing their text output.
type DarwinExecutor struct {
	logger      *logrus.Logger
	airportPath string
}

// NewDarwinExecutor creates the macOS executor.
func NewDarwinExecutor(logger *logrus.Logger) *DarwinExecutor {
	e := &DarwinExecutor{logger: logger}
	for _, p := range airportPaths {
		if _, err := os.Stat(p); err == nil {
			e.airportPath = p
			break
		}
	}
	if e.airportPath == "" {
		logger.Warn("airport command not found; WiFi metrics unavailable")
	}
	return e
}

// run executes a command bounded by timeout and returns its stdout.
// Privilege refusals and deadline hits are converted to typed errors here
// so callers never see raw exec errors.
func (e *DarwinExecutor) run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", &models.TimeoutError{Op: name + " " + strings.Join(args, " "), Bound: timeout.String()}
	}
	if err != nil {
		msg := strings.ToLower(stderr.String())
		if strings.Contains(msg, "permission denied") ||
			strings.Contains(msg, "operation not permitted") ||
			strings.Contains(msg, "password is required") ||
			strings.Contains(msg, "must be run as root") {
			return "", fmt.Errorf("%s: %w", name, models.ErrPrivilegeDenied)
		}
		return stdout.String(), fmt.Errorf("%s %s: %v: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// sudo runs a mutating command. Root runs it directly; otherwise sudo is
// invoked non-interactively so a missing credential cache fails fast
// instead of hanging on a password prompt.
func (e *DarwinExecutor) sudo(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	if os.Geteuid() == 0 {
		return e.run(ctx, timeout, args[0], args[1:]...)
	}
	return e.run(ctx, timeout, "sudo", append([]string{"-n"}, args...)...)
}

// guardProtected rejects mutations of protected interfaces. This is a
// contract check: reaching it with a protected name is a bug upstream.
func guardProtected(name string) error {
	if models.IsProtectedName(name) {
		return &models.ProtectedInterfaceError{Name: name}
	}
	return nil
}

// ListInterfaces enumerates hardware ports via networksetup and
// cross-references ifconfig for address, MAC, and link state.
func (e *DarwinExecutor) ListInterfaces(ctx context.Context) ([]models.NetworkInterface, error) {
	out, err := e.run(ctx, ListTimeout, "networksetup", "-listallhardwareports")
	if err != nil {
		return nil, fmt.Errorf("interface enumeration: %w", err)
	}

	var interfaces []models.NetworkInterface
	var port string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Hardware Port:"):
			port = strings.TrimSpace(strings.TrimPrefix(line, "Hardware Port:"))
		case strings.HasPrefix(line, "Device:"):
			device := strings.TrimSpace(strings.TrimPrefix(line, "Device:"))
			if port != "" && device != "" {
				interfaces = append(interfaces, e.snapshotInterface(ctx, port, device))
			}
			port = ""
		}
	}

	// USB and active first, protected last; suitability order for callers
	// that just take the head of the list.
	sort.SliceStable(interfaces, func(i, j int) bool {
		a, b := interfaces[i], interfaces[j]
		if a.IsUSB != b.IsUSB {
			return a.IsUSB
		}
		if a.IsActive != b.IsActive {
			return a.IsActive
		}
		if a.IsProtected != b.IsProtected {
			return b.IsProtected
		}
		return a.Name < b.Name
	})
	return interfaces, nil
}

func (e *DarwinExecutor) snapshotInterface(ctx context.Context, port, device string) models.NetworkInterface {
	protected := models.IsProtectedName(device)
	usb := !protected && isUSBPort(port, device)
	iface := models.NetworkInterface{
		Name:         device,
		HardwarePort: port,
		IsUSB:        usb,
		IsWiFi:       isWiFiPort(port),
		IsProtected:  protected,
	}
	if usb {
		iface.Vendor = extractVendor(port)
	}

	out, err := e.run(ctx, LinkTimeout, "ifconfig", device)
	if err != nil {
		return iface
	}
	iface.CurrentIP = parseInetAddr(out)
	iface.MAC = parseEther(out)
	iface.IsActive = parseLinkActive(out)
	return iface
}

// isUSBPort applies the USB adapter heuristics: an explicit vendor keyword
// in the port description, or a high en-number with an ethernet indication.
func isUSBPort(port, device string) bool {
	lower := strings.ToLower(port)
	for _, kw := range usbVendorKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	if m := enNumberRe.FindStringSubmatch(device); m != nil {
		if n, _ := strconv.Atoi(m[1]); n >= minUSBInterfaceNumber {
			return strings.Contains(lower, "ethernet") ||
				strings.Contains(lower, "adapter") ||
				strings.Contains(lower, "usb")
		}
	}
	return false
}

func isWiFiPort(port string) bool {
	lower := strings.ToLower(port)
	for _, kw := range []string{"wi-fi", "wifi", "airport", "wireless", "802.11"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func extractVendor(port string) string {
	lower := strings.ToLower(port)
	for _, v := range vendorDisplayNames {
		if strings.Contains(lower, v.keyword) {
			return v.vendor
		}
	}
	return ""
}

func parseInetAddr(ifconfigOut string) string {
	for _, line := range strings.Split(ifconfigOut, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "inet ") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				return fields[1]
			}
		}
	}
	return ""
}

func parseEther(ifconfigOut string) string {
	for _, line := range strings.Split(ifconfigOut, "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) >= 2 && fields[0] == "ether" {
			return fields[1]
		}
	}
	return ""
}

func parseLinkActive(ifconfigOut string) bool {
	for _, line := range strings.Split(ifconfigOut, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		if strings.HasPrefix(lower, "status:") {
			return strings.Contains(lower, "status: active")
		}
	}
	return false
}

// LinkActive reports carrier state for one interface.
func (e *DarwinExecutor) LinkActive(ctx context.Context, name string) (bool, error) {
	out, err := e.run(ctx, LinkTimeout, "ifconfig", name)
	if err != nil {
		return false, err
	}
	return parseLinkActive(out), nil
}

// AssignAddress sets a static address on the interface, removing any
// existing alias first, and verifies the address by re-reading it.
func (e *DarwinExecutor) AssignAddress(ctx context.Context, name, ip, netmask string) error {
	if err := guardProtected(name); err != nil {
		return err
	}

	if existing := e.currentIP(ctx, name); existing != "" && existing != ip {
		e.logger.Infof("removing existing address %s from %s", existing, name)
		if _, err := e.sudo(ctx, MutateTimeout, "ifconfig", name, existing, "-alias"); err != nil {
			e.logger.Warnf("failed to remove %s from %s: %v", existing, name, err)
		}
	}

	e.logger.Infof("configuring %s: %s/%s", name, ip, netmask)
	if _, err := e.sudo(ctx, MutateTimeout, "ifconfig", name, ip, "netmask", netmask, "up"); err != nil {
		if errors.Is(err, models.ErrPrivilegeDenied) {
			return err
		}
		return fmt.Errorf("%w: %v", models.ErrConfigurationApply, err)
	}

	if got := e.currentIP(ctx, name); got != ip {
		return fmt.Errorf("%w: %s reports %q after assigning %s", models.ErrConfigurationApply, name, got, ip)
	}
	return nil
}

func (e *DarwinExecutor) currentIP(ctx context.Context, name string) string {
	out, err := e.run(ctx, LinkTimeout, "ifconfig", name)
	if err != nil {
		return ""
	}
	return parseInetAddr(out)
}

// RemoveAddress drops an address alias. Best effort.
func (e *DarwinExecutor) RemoveAddress(ctx context.Context, name, ip string) error {
	if err := guardProtected(name); err != nil {
		return err
	}
	_, err := e.sudo(ctx, MutateTimeout, "ifconfig", name, ip, "-alias")
	return err
}

// InterfaceDown brings the interface administratively down.
func (e *DarwinExecutor) InterfaceDown(ctx context.Context, name string) error {
	if err := guardProtected(name); err != nil {
		return err
	}
	_, err := e.sudo(ctx, MutateTimeout, "ifconfig", name, "down")
	return err
}

// AddRoute installs a static route; an already-present identical route is
// treated as success.
func (e *DarwinExecutor) AddRoute(ctx context.Context, network, gateway string) error {
	if _, err := e.sudo(ctx, MutateTimeout, "route", "add", "-net", network, gateway); err != nil {
		if errors.Is(err, models.ErrPrivilegeDenied) {
			return err
		}
		if strings.Contains(err.Error(), "File exists") {
			return nil
		}
		return err
	}
	return nil
}

// DeleteRoute removes a static route. Best effort.
func (e *DarwinExecutor) DeleteRoute(ctx context.Context, network string) error {
	_, err := e.sudo(ctx, MutateTimeout, "route", "delete", "-net", network)
	return err
}

// ListRoutes parses the IPv4 routing table from netstat.
func (e *DarwinExecutor) ListRoutes(ctx context.Context) ([]Route, error) {
	out, err := e.run(ctx, QueryTimeout, "netstat", "-rn")
	if err != nil {
		return nil, err
	}

	return parseRouteTable(out), nil
}

func parseRouteTable(out string) []Route {
	var routes []Route
	inTable := false
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		// Internet6 section follows the IPv4 one; stop at its header.
		if len(fields) > 0 && fields[0] == "Internet6:" {
			break
		}
		if len(fields) > 0 && fields[0] == "Destination" {
			inTable = true
			continue
		}
		if !inTable || len(fields) < 4 {
			continue
		}
		routes = append(routes, Route{
			Destination: fields[0],
			Gateway:     fields[1],
			Interface:   fields[len(fields)-1],
		})
	}
	return routes
}

// Ping sends count echo requests and reports reachability.
func (e *DarwinExecutor) Ping(ctx context.Context, ip string, count int, perPacket time.Duration) (bool, error) {
	secs := int(perPacket.Seconds())
	if secs < 1 {
		secs = 1
	}
	bound := time.Duration(count)*perPacket + 5*time.Second
	_, err := e.run(ctx, bound, "ping", "-c", strconv.Itoa(count), "-t", strconv.Itoa(secs), ip)
	if err != nil {
		var timeout *models.TimeoutError
		if errors.As(err, &timeout) {
			return false, err
		}
		// Non-zero exit means unreachable, not a command failure.
		return false, nil
	}
	return true, nil
}

// WiFiMetrics samples the radio via the airport utility. The status field
// is left unset; classification belongs to the WiFi monitor.
func (e *DarwinExecutor) WiFiMetrics(ctx context.Context) (models.WiFiMetrics, error) {
	if e.airportPath == "" {
		return models.WiFiMetrics{}, fmt.Errorf("airport command unavailable")
	}
	out, err := e.run(ctx, QueryTimeout, e.airportPath, "-I")
	if err != nil {
		return models.WiFiMetrics{}, fmt.Errorf("wifi radio query: %w", err)
	}
	return parseAirport(out), nil
}

func parseAirport(out string) models.WiFiMetrics {
	kv := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		if key, value, ok := strings.Cut(line, ":"); ok {
			kv[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}

	var m models.WiFiMetrics
	m.SSID = kv["SSID"]
	m.BSSID = kv["BSSID"]
	if ch, ok := kv["channel"]; ok {
		first, _, _ := strings.Cut(ch, ",")
		m.Channel, _ = strconv.Atoi(strings.TrimSpace(first))
	}
	if m.Channel > 14 {
		m.Band = "5GHz"
	} else {
		m.Band = "2.4GHz"
	}
	if v, ok := kv["agrCtlRSSI"]; ok {
		m.SignalStrength, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := kv["agrCtlNoise"]; ok {
		m.NoiseLevel, _ = strconv.ParseFloat(v, 64)
	}
	if m.NoiseLevel != 0 {
		m.SNR = m.SignalStrength - m.NoiseLevel
	}
	if v, ok := kv["lastTxRate"]; ok {
		m.TransmitRate, _ = strconv.ParseFloat(v, 64)
	}
	return m
}

// ServiceOrder returns the service priority list from networksetup.
func (e *DarwinExecutor) ServiceOrder(ctx context.Context) ([]string, error) {
	out, err := e.run(ctx, QueryTimeout, "networksetup", "-listnetworkserviceorder")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrServiceOrderUnavailable, err)
	}
	return parseServiceOrder(out), nil
}

// parseServiceOrder extracts service names from output of the form:
//
//	(1) USB Management
//	(Hardware Port: USB 10/100/1000 LAN, Device: en7)
//	(2) Wi-Fi
func parseServiceOrder(out string) []string {
	var services []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "(") || !strings.Contains(line, ")") {
			continue
		}
		_, name, _ := strings.Cut(line, ")")
		name = strings.TrimSpace(name)
		if name != "" && !strings.HasPrefix(name, "Hardware Port:") {
			services = append(services, name)
		}
	}
	return services
}

// SetServiceOrder replaces the service priority list.
func (e *DarwinExecutor) SetServiceOrder(ctx context.Context, order []string) error {
	if len(order) == 0 {
		return fmt.Errorf("%w: empty order", models.ErrServiceOrderUnavailable)
	}
	args := append([]string{"networksetup", "-ordernetworkservices"}, order...)
	if _, err := e.sudo(ctx, MutateTimeout, args...); err != nil {
		if errors.Is(err, models.ErrPrivilegeDenied) {
			return err
		}
		return fmt.Errorf("%w: %v", models.ErrServiceOrderUnavailable, err)
	}
	return nil
}

// HardwareProfile returns raw profiler JSON for one data type.
func (e *DarwinExecutor) HardwareProfile(ctx context.Context, dataType string) ([]byte, error) {
	out, err := e.run(ctx, ProfileTimeout, "system_profiler", dataType, "-json")
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}
