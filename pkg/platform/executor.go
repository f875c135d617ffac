package platform

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Jesssullivan/DarwinNicUtil/pkg/models"
)

// Command timeouts, scaled to command weight. Interface enumeration walks
// every hardware port; link and address reads touch a single interface.
const (
	ListTimeout    = 10 * time.Second
	LinkTimeout    = 5 * time.Second
	MutateTimeout  = 30 * time.Second
	QueryTimeout   = 10 * time.Second
	ProfileTimeout = 15 * time.Second
)

// ErrUnsupportedPlatform is returned by New on operating systems without a
// platform executor.
var ErrUnsupportedPlatform = errors.New("current platform is not supported")

// Route is one parsed routing table entry.
type Route struct {
	Destination string // network or host destination, CIDR where known
	Gateway     string
	Interface   string
}

// Executor is the platform capability the core components consume. Every
// call is synchronous, bounded by an explicit timeout, and returns either a
// typed result or a failure kind from pkg/models; raw command errors never
// escape an implementation.
//
// Mutating calls (AssignAddress, RemoveAddress, InterfaceDown, AddRoute,
// DeleteRoute, SetServiceOrder) must reject protected interface names with
// a models.ProtectedInterfaceError before touching the system.
type Executor interface {
	// ListInterfaces enumerates all hardware ports as interface snapshots.
	ListInterfaces(ctx context.Context) ([]models.NetworkInterface, error)

	// LinkActive reports whether the named interface has carrier.
	LinkActive(ctx context.Context, name string) (bool, error)

	// AssignAddress sets a static IPv4 address on the interface and brings
	// it up, verifying the address took effect.
	AssignAddress(ctx context.Context, name, ip, netmask string) error

	// RemoveAddress removes an address alias. Best effort: failure is
	// reported but callers treat it as non-fatal.
	RemoveAddress(ctx context.Context, name, ip string) error

	// InterfaceDown brings the interface administratively down.
	InterfaceDown(ctx context.Context, name string) error

	// AddRoute installs a static route to network via gateway. An
	// already-present identical route is success.
	AddRoute(ctx context.Context, network, gateway string) error

	// DeleteRoute removes a static route. Best effort.
	DeleteRoute(ctx context.Context, network string) error

	// ListRoutes returns the current routing table.
	ListRoutes(ctx context.Context) ([]Route, error)

	// Ping sends count echo requests and reports plain reachability.
	Ping(ctx context.Context, ip string, count int, perPacket time.Duration) (bool, error)

	// WiFiMetrics samples the WiFi radio. Returns an error only when the
	// radio cannot be queried at all.
	WiFiMetrics(ctx context.Context) (models.WiFiMetrics, error)

	// ServiceOrder returns the OS network service priority list.
	ServiceOrder(ctx context.Context) ([]string, error)

	// SetServiceOrder replaces the service priority list.
	SetServiceOrder(ctx context.Context, order []string) error

	// HardwareProfile returns raw JSON hardware metadata for the given
	// profiler data type (e.g. SPHardwareDataType, SPUSBDataType).
	HardwareProfile(ctx context.Context, dataType string) ([]byte, error)
}

// Supported reports whether the current OS has a platform executor.
func Supported() bool {
	return runtime.GOOS == "darwin"
}

// New returns the executor for the current platform.
func New(logger *logrus.Logger) (Executor, error) {
	if logger == nil {
		logger = logrus.New()
	}
	switch runtime.GOOS {
	case "darwin":
		return NewDarwinExecutor(logger), nil
	default:
		return nil, ErrUnsupportedPlatform
	}
}
