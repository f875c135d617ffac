package netmgr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Jesssullivan/DarwinNicUtil/pkg/models"
	"github.com/Jesssullivan/DarwinNicUtil/pkg/platform"
)

// ServiceOrderManager manipulates the OS network service priority list
// while keeping exactly one pristine backup of the order it first saw. The
// first backup wins: repeated Backup calls before a Restore are no-ops, so
// a multi-step setup can only ever roll back to the true original order.
type ServiceOrderManager struct {
	exec   platform.Executor
	logger *logrus.Logger

	mu     sync.Mutex
	backup []string
}

// NewServiceOrderManager returns a manager with no backup recorded yet.
func NewServiceOrderManager(exec platform.Executor, logger *logrus.Logger) *ServiceOrderManager {
	return &ServiceOrderManager{exec: exec, logger: logger}
}

// Backup records the current service order if none is held yet and returns
// the order that is (now) backed up.
func (m *ServiceOrderManager) Backup(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backup != nil {
		return append([]string(nil), m.backup...), nil
	}
	order, err := m.exec.ServiceOrder(ctx)
	if err != nil {
		return nil, fmt.Errorf("backing up service order: %w", err)
	}
	m.backup = append([]string(nil), order...)
	m.logger.Infof("backed up service order (%d services)", len(m.backup))
	return append([]string(nil), m.backup...), nil
}

// HasBackup reports whether an original order is held.
func (m *ServiceOrderManager) HasBackup() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backup != nil
}

// Restore writes the backed-up order back to the OS and clears the backup.
// Calling it with no backup held is an error.
func (m *ServiceOrderManager) Restore(ctx context.Context) error {
	m.mu.Lock()
	backup := m.backup
	m.mu.Unlock()
	if backup == nil {
		return models.ErrServiceOrderUnavailable
	}
	if err := m.exec.SetServiceOrder(ctx, backup); err != nil {
		return fmt.Errorf("restoring service order: %w", err)
	}
	m.mu.Lock()
	m.backup = nil
	m.mu.Unlock()
	m.logger.Info("restored original service order")
	return nil
}

// SetWiFiPriority moves the WiFi service to the front of the order. The
// current order is backed up first if it has not been already.
func (m *ServiceOrderManager) SetWiFiPriority(ctx context.Context) error {
	if _, err := m.Backup(ctx); err != nil {
		return err
	}
	order, err := m.exec.ServiceOrder(ctx)
	if err != nil {
		return fmt.Errorf("reading service order: %w", err)
	}
	idx := findWiFiService(order)
	if idx < 0 {
		return fmt.Errorf("no wifi service in order %v: %w", order, models.ErrServiceOrderUnavailable)
	}
	if idx == 0 {
		return nil
	}
	reordered := make([]string, 0, len(order))
	reordered = append(reordered, order[idx])
	reordered = append(reordered, order[:idx]...)
	reordered = append(reordered, order[idx+1:]...)
	if err := m.exec.SetServiceOrder(ctx, reordered); err != nil {
		return fmt.Errorf("setting wifi priority: %w", err)
	}
	m.logger.Infof("moved %q to top of service order", order[idx])
	return nil
}

// PreventUSBTakeover reorders services so that WiFi leads, wired built-ins
// follow, and USB-like services go last. Relative order inside each group
// is preserved. If WiFi already leads this is a no-op.
func (m *ServiceOrderManager) PreventUSBTakeover(ctx context.Context) error {
	if _, err := m.Backup(ctx); err != nil {
		return err
	}
	order, err := m.exec.ServiceOrder(ctx)
	if err != nil {
		return fmt.Errorf("reading service order: %w", err)
	}
	if idx := findWiFiService(order); idx == 0 {
		return nil
	}
	var wifi, wired, usb []string
	for _, svc := range order {
		switch {
		case isWiFiService(svc):
			wifi = append(wifi, svc)
		case usbLikeService(svc):
			usb = append(usb, svc)
		default:
			wired = append(wired, svc)
		}
	}
	reordered := append(append(wifi, wired...), usb...)
	if err := m.exec.SetServiceOrder(ctx, reordered); err != nil {
		return fmt.Errorf("demoting usb services: %w", err)
	}
	m.logger.Infof("service order now: %v", reordered)
	return nil
}

// ValidateOrder reports whether WiFi sits in the top three quarters of the
// service list. Deeper than that and a new USB service could shadow it.
func (m *ServiceOrderManager) ValidateOrder(ctx context.Context) (bool, error) {
	order, err := m.exec.ServiceOrder(ctx)
	if err != nil {
		return false, fmt.Errorf("reading service order: %w", err)
	}
	idx := findWiFiService(order)
	if idx < 0 {
		// No WiFi service means nothing to shadow.
		return true, nil
	}
	return float64(idx) <= 0.75*float64(len(order)), nil
}

func findWiFiService(order []string) int {
	for i, svc := range order {
		if isWiFiService(svc) {
			return i
		}
	}
	return -1
}

func isWiFiService(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "wi-fi") || strings.Contains(lower, "wifi") ||
		strings.Contains(lower, "airport")
}

func usbLikeService(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range []string{"usb", "10/100", "1000", "ethernet adapter", "lan"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
