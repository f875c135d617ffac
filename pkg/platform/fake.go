package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Jesssullivan/DarwinNicUtil/pkg/models"
)

// FakeExecutor is an in-memory Executor for tests and simulated runs. Its
// state is scripted directly by the caller: append to Interfaces to
// simulate an adapter being plugged in, flip Reachable entries to simulate
// targets answering pings. Every mutating call is journaled so callers can
// assert what was (and was not) touched.
type FakeExecutor struct {
	mu sync.Mutex

	Interfaces []models.NetworkInterface
	Links      map[string]bool
	Routes     []Route
	Services   []string
	Metrics    models.WiFiMetrics
	MetricsErr error
	Reachable  map[string]bool
	Profiles   map[string][]byte

	// Errors to inject per operation name ("assign", "route", "order").
	Fail map[string]error

	// Mutations journals mutating calls in order, e.g. "assign en7 192.0.2.100".
	Mutations []string
}

// NewFakeExecutor returns an empty fake with all maps initialized.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{
		Links:     map[string]bool{},
		Reachable: map[string]bool{},
		Profiles:  map[string][]byte{},
		Fail:      map[string]error{},
	}
}

func (f *FakeExecutor) journal(format string, args ...interface{}) {
	f.Mutations = append(f.Mutations, fmt.Sprintf(format, args...))
}

func (f *FakeExecutor) ListInterfaces(ctx context.Context) ([]models.NetworkInterface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.NetworkInterface, len(f.Interfaces))
	copy(out, f.Interfaces)
	return out, nil
}

func (f *FakeExecutor) LinkActive(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Links[name], nil
}

func (f *FakeExecutor) AssignAddress(ctx context.Context, name, ip, netmask string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := guardProtected(name); err != nil {
		return err
	}
	f.journal("assign %s %s/%s", name, ip, netmask)
	if err := f.Fail["assign"]; err != nil {
		return err
	}
	for i := range f.Interfaces {
		if f.Interfaces[i].Name == name {
			f.Interfaces[i].CurrentIP = ip
			f.Interfaces[i].IsActive = true
		}
	}
	f.Links[name] = true
	return nil
}

func (f *FakeExecutor) RemoveAddress(ctx context.Context, name, ip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := guardProtected(name); err != nil {
		return err
	}
	f.journal("remove-address %s %s", name, ip)
	for i := range f.Interfaces {
		if f.Interfaces[i].Name == name && f.Interfaces[i].CurrentIP == ip {
			f.Interfaces[i].CurrentIP = ""
		}
	}
	return nil
}

func (f *FakeExecutor) InterfaceDown(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := guardProtected(name); err != nil {
		return err
	}
	f.journal("down %s", name)
	if err := f.Fail["down"]; err != nil {
		return err
	}
	f.Links[name] = false
	for i := range f.Interfaces {
		if f.Interfaces[i].Name == name {
			f.Interfaces[i].IsActive = false
		}
	}
	return nil
}

func (f *FakeExecutor) AddRoute(ctx context.Context, network, gateway string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.journal("route-add %s via %s", network, gateway)
	if err := f.Fail["route"]; err != nil {
		return err
	}
	for _, r := range f.Routes {
		if r.Destination == network && r.Gateway == gateway {
			return nil
		}
	}
	f.Routes = append(f.Routes, Route{Destination: network, Gateway: gateway})
	return nil
}

func (f *FakeExecutor) DeleteRoute(ctx context.Context, network string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.journal("route-delete %s", network)
	if err := f.Fail["route-delete"]; err != nil {
		return err
	}
	kept := f.Routes[:0]
	for _, r := range f.Routes {
		if r.Destination != network {
			kept = append(kept, r)
		}
	}
	f.Routes = kept
	return nil
}

func (f *FakeExecutor) ListRoutes(ctx context.Context) ([]Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Route, len(f.Routes))
	copy(out, f.Routes)
	return out, nil
}

func (f *FakeExecutor) Ping(ctx context.Context, ip string, count int, perPacket time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Reachable[ip], nil
}

func (f *FakeExecutor) WiFiMetrics(ctx context.Context) (models.WiFiMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MetricsErr != nil {
		return models.WiFiMetrics{}, f.MetricsErr
	}
	return f.Metrics, nil
}

func (f *FakeExecutor) ServiceOrder(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Fail["order"]; err != nil {
		return nil, err
	}
	out := make([]string, len(f.Services))
	copy(out, f.Services)
	return out, nil
}

func (f *FakeExecutor) SetServiceOrder(ctx context.Context, order []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.journal("set-order %v", order)
	if err := f.Fail["set-order"]; err != nil {
		return err
	}
	f.Services = append([]string(nil), order...)
	return nil
}

func (f *FakeExecutor) HardwareProfile(ctx context.Context, dataType string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if data, ok := f.Profiles[dataType]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("no profile data for %s", dataType)
}
