package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/Jesssullivan/DarwinNicUtil/pkg/models"
	"github.com/Jesssullivan/DarwinNicUtil/pkg/netmgr"
	"github.com/Jesssullivan/DarwinNicUtil/pkg/platform"
)

// Outcome is the overall result of a guided run.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	// OutcomeUnverified means setup completed but connectivity to the
	// device could not be confirmed.
	OutcomeUnverified
	OutcomeFailed
	OutcomeCancelled
)

// ErrCancelled reports an operator abort. State is persisted before it is
// returned so the next run can resume.
var ErrCancelled = errors.New("setup cancelled by operator")

// Retry bounds per step. The initial attempt is not counted.
const (
	detectRetries    = 2
	cableRetries     = 1
	configureRetries = 1
	verifyRetries    = 2
)

// USB detection polling.
const (
	detectWindow = 30 * time.Second
	pollInterval = 1 * time.Second
)

// GuidedSetup walks the operator through configuring a USB management NIC
// without disturbing WiFi. Progress persists after every step, so an
// interrupted run resumes where it stopped.
type GuidedSetup struct {
	exec     platform.Executor
	monitor  *netmgr.WiFiMonitor
	scorer   *netmgr.InterfaceScorer
	orderMgr *netmgr.ServiceOrderManager
	routeMgr *netmgr.RouteManager
	prompter Prompter
	logger   *logrus.Logger
	out      io.Writer

	// StatePath overrides the persisted state location, mainly for tests.
	StatePath string
	// DetectWindow and PollInterval override the USB detection timing.
	DetectWindow time.Duration
	PollInterval time.Duration

	config models.NetworkConfig
	state  *SetupState
}

// NewGuidedSetup assembles an orchestrator over the given components.
func NewGuidedSetup(exec platform.Executor, monitor *netmgr.WiFiMonitor, scorer *netmgr.InterfaceScorer,
	orderMgr *netmgr.ServiceOrderManager, routeMgr *netmgr.RouteManager,
	prompter Prompter, out io.Writer, logger *logrus.Logger) *GuidedSetup {
	return &GuidedSetup{
		exec:         exec,
		monitor:      monitor,
		scorer:       scorer,
		orderMgr:     orderMgr,
		routeMgr:     routeMgr,
		prompter:     prompter,
		logger:       logger,
		out:          out,
		StatePath:    StatePath(),
		DetectWindow: detectWindow,
		PollInterval: pollInterval,
	}
}

type stepFunc struct {
	target    Step
	retries   int
	skippable bool
	run       func(ctx context.Context) error
}

// Run executes the guided flow for config and returns the overall outcome.
// The returned error carries detail for OutcomeFailed and OutcomeCancelled.
func (g *GuidedSetup) Run(ctx context.Context, config models.NetworkConfig) (Outcome, error) {
	g.config = config
	g.state = g.loadOrFresh()

	steps := []stepFunc{
		{target: StepBaselineComplete, run: g.stepBaseline},
		{target: StepUSBDetected, retries: detectRetries, run: g.stepDetect},
		{target: StepCableConnected, retries: cableRetries, run: g.stepCable},
		{target: StepConfigured, retries: configureRetries, run: g.stepConfigure},
		{target: StepVerified, retries: verifyRetries, skippable: true, run: g.stepVerify},
		{target: StepMonitoringShown, run: g.stepMonitoring},
		{target: StepComplete, run: g.stepComplete},
	}

	unverified := false
	for _, step := range steps {
		if g.state.CurrentStep >= step.target {
			g.logger.Infof("skipping %q, already completed", step.target)
			continue
		}
		if err := ctx.Err(); err != nil {
			return g.cancel()
		}

		err := g.runWithRetries(ctx, step)
		switch {
		case err == nil:
		case errors.Is(err, ErrCancelled) || ctx.Err() != nil:
			return g.cancel()
		case step.skippable:
			color.New(color.FgYellow).Fprintf(g.out, "⚠ %s failed; continuing without verification\n", step.target)
			g.state.Verified = false
			unverified = true
		default:
			g.fail(ctx, step.target, err)
			return OutcomeFailed, err
		}

		g.state.CurrentStep = g.state.CurrentStep.advance(step.target)
		if step.target != StepComplete {
			if saveErr := g.state.Save(g.StatePath); saveErr != nil {
				g.logger.Warnf("could not persist setup state: %v", saveErr)
			}
		}
	}

	if unverified {
		return OutcomeUnverified, nil
	}
	return OutcomeSuccess, nil
}

// loadOrFresh offers a resumable prior run to the operator, falling back
// to a fresh state.
func (g *GuidedSetup) loadOrFresh() *SetupState {
	prior, err := LoadState(g.StatePath)
	if err != nil {
		g.logger.Warnf("ignoring unreadable setup state: %v", err)
	}
	if prior != nil && prior.Resumable() {
		prompt := fmt.Sprintf("Found a setup from %s ago at step %q. Resume it?",
			prior.Age().Round(time.Minute), prior.CurrentStep)
		if g.prompter.Confirm(prompt, true) {
			if prior.Config != nil {
				g.config = *prior.Config
			}
			return prior
		}
	}
	fresh := NewSetupState()
	fresh.Config = &g.config
	return fresh
}

func (g *GuidedSetup) runWithRetries(ctx context.Context, step stepFunc) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = step.run(ctx)
		if err == nil || errors.Is(err, ErrCancelled) || ctx.Err() != nil {
			return err
		}
		color.New(color.FgRed).Fprintf(g.out, "✗ %s: %v\n", step.target, err)
		if attempt >= step.retries {
			return err
		}
		if !g.prompter.Confirm(fmt.Sprintf("Retry %q? (%d attempt(s) left)", step.target, step.retries-attempt), true) {
			return err
		}
	}
}

// cancel persists whatever progress exists and reports the abort.
func (g *GuidedSetup) cancel() (Outcome, error) {
	if err := g.state.Save(g.StatePath); err != nil {
		g.logger.Warnf("could not persist state on cancel: %v", err)
	}
	color.New(color.FgYellow).Fprintf(g.out, "\nSetup interrupted. Run again to resume, or `darwin-nic restore` to roll back.\n")
	return OutcomeCancelled, ErrCancelled
}

// fail prints rollback guidance and, when configuration was already
// applied, performs the rollback. State stays on disk for a later resume
// or restore.
func (g *GuidedSetup) fail(ctx context.Context, at Step, cause error) {
	color.New(color.FgRed, color.Bold).Fprintf(g.out, "\nSetup failed at %q: %v\n", at, cause)
	if err := g.state.Save(g.StatePath); err != nil {
		g.logger.Warnf("could not persist state on failure: %v", err)
	}

	if !g.state.Configured {
		fmt.Fprintln(g.out, "No network changes were applied; nothing to roll back.")
		return
	}
	fmt.Fprintln(g.out, "Rolling back applied changes:")
	for _, res := range g.Rollback(ctx) {
		if res.Err != nil {
			color.New(color.FgRed).Fprintf(g.out, "  ✗ %s: %v\n", res.Action, res.Err)
		} else {
			color.New(color.FgGreen).Fprintf(g.out, "  ✓ %s\n", res.Action)
		}
	}
}

// RollbackResult reports one rollback sub-action.
type RollbackResult struct {
	Action string
	Err    error
}

// Rollback undoes the changes a partially completed run may have applied:
// service order, interface state, and the management route. Each sub-action
// runs regardless of the others' failures.
func (g *GuidedSetup) Rollback(ctx context.Context) []RollbackResult {
	var results []RollbackResult

	if g.orderMgr.HasBackup() {
		results = append(results, RollbackResult{
			Action: "restore service order",
			Err:    g.orderMgr.Restore(ctx),
		})
	}
	if name := g.state.DetectedUSBName; name != "" {
		results = append(results, RollbackResult{
			Action: fmt.Sprintf("bring %s down", name),
			Err:    g.exec.InterfaceDown(ctx, name),
		})
	}
	if g.state.Config != nil {
		results = append(results, RollbackResult{
			Action: "remove management route",
			Err:    g.routeMgr.RemoveManagementRoute(ctx, g.state.Config.MgmtNetwork),
		})
	}
	return results
}

// RollbackSucceeded reports whether every attempted sub-action succeeded.
func RollbackSucceeded(results []RollbackResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return false
		}
	}
	return true
}

// stepBaseline records the interface set before the adapter is plugged in.
// The physical precondition cannot be checked from software, so the
// operator confirms it.
func (g *GuidedSetup) stepBaseline(ctx context.Context) error {
	fmt.Fprintln(g.out, "Step 1: capture interface baseline")
	if !g.prompter.Confirm("Is the USB adapter UNPLUGGED?", true) {
		return ErrCancelled
	}
	ifaces, err := g.exec.ListInterfaces(ctx)
	if err != nil {
		return fmt.Errorf("listing interfaces: %w", err)
	}
	names := make([]string, 0, len(ifaces))
	for _, iface := range ifaces {
		names = append(names, iface.Name)
	}
	g.state.SetBaseline(names)
	color.New(color.FgGreen).Fprintf(g.out, "✓ baseline captured (%d interfaces)\n", len(names))
	return nil
}

// stepDetect polls for a new interface name relative to the baseline.
// First new name wins.
func (g *GuidedSetup) stepDetect(ctx context.Context) error {
	fmt.Fprintln(g.out, "Step 2: detect the USB adapter")
	g.prompter.WaitForEnter("Plug in the USB adapter now")

	deadline := time.Now().Add(g.DetectWindow)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ifaces, err := g.exec.ListInterfaces(ctx)
		if err != nil {
			g.logger.Debugf("interface poll failed: %v", err)
		} else {
			for _, iface := range ifaces {
				if !g.state.HasBaselineName(iface.Name) {
					g.state.DetectedUSBName = iface.Name
					color.New(color.FgGreen).Fprintf(g.out, "✓ detected new interface %s (%s)\n", iface.Name, iface.HardwarePort)
					return nil
				}
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w (waited %s)", models.ErrDetectionTimeout, g.DetectWindow)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.PollInterval):
		}
	}
}

// stepCable checks for carrier on the detected adapter.
func (g *GuidedSetup) stepCable(ctx context.Context) error {
	fmt.Fprintln(g.out, "Step 3: connect the cable")
	g.prompter.WaitForEnter(fmt.Sprintf("Connect the cable between %s and the device", g.state.DetectedUSBName))

	active, err := g.exec.LinkActive(ctx, g.state.DetectedUSBName)
	if err != nil {
		return fmt.Errorf("checking link on %s: %w", g.state.DetectedUSBName, err)
	}
	if !active {
		return fmt.Errorf("%s: %w", g.state.DetectedUSBName, models.ErrLinkNotEstablished)
	}
	color.New(color.FgGreen).Fprintf(g.out, "✓ link is up on %s\n", g.state.DetectedUSBName)
	return nil
}

// stepConfigure locks in WiFi priority, assigns the management address, and
// installs the management route.
func (g *GuidedSetup) stepConfigure(ctx context.Context) error {
	fmt.Fprintln(g.out, "Step 4: apply network configuration")

	if _, err := g.orderMgr.Backup(ctx); err != nil {
		g.logger.Warnf("service order backup unavailable: %v", err)
	}
	if err := g.orderMgr.PreventUSBTakeover(ctx); err != nil {
		g.logger.Warnf("could not pin wifi priority: %v", err)
	}

	name := g.state.DetectedUSBName
	if err := g.exec.AssignAddress(ctx, name, g.config.LaptopIP, g.config.Netmask); err != nil {
		return fmt.Errorf("assigning %s to %s: %w", g.config.LaptopIP, name, err)
	}
	if err := g.routeMgr.AddManagementRoute(ctx, g.config.MgmtNetwork, g.config.DeviceIP); err != nil {
		return err
	}

	g.state.Configured = true
	color.New(color.FgGreen).Fprintf(g.out, "✓ %s configured as %s\n", name, g.config.LaptopIP)
	return nil
}

// stepVerify probes the device plus the management gateway and test
// address. Only the device itself is required; the others are informational.
// Failure is non-fatal to the run; the orchestrator degrades the outcome
// instead.
func (g *GuidedSetup) stepVerify(ctx context.Context) error {
	fmt.Fprintln(g.out, "Step 5: verify device connectivity")

	targets := []string{g.config.DeviceIP, g.config.MgmtGateway(), g.config.MgmtTestIP()}
	results := platform.PingSweep(ctx, g.exec, targets, 2, 2*time.Second, len(targets))
	for _, host := range targets[1:] {
		if host != "" && results[host] {
			fmt.Fprintf(g.out, "  %s answers\n", host)
		}
	}
	if !results[g.config.DeviceIP] {
		return fmt.Errorf("%s did not answer: %w", g.config.DeviceIP, models.ErrVerificationFailed)
	}
	g.state.Verified = true
	color.New(color.FgGreen).Fprintf(g.out, "✓ %s is reachable\n", g.config.DeviceIP)
	return nil
}

// stepMonitoring shows a final health summary: WiFi state and the ranked
// interface list. Purely informational.
func (g *GuidedSetup) stepMonitoring(ctx context.Context) error {
	fmt.Fprintln(g.out, "Step 6: connection health")

	metrics := g.monitor.Status(ctx)
	fmt.Fprintf(g.out, "  WiFi: %s", metrics.Status)
	if metrics.Status != models.WiFiDisconnected {
		fmt.Fprintf(g.out, " (%s, SNR %.0f dB, %s)", metrics.SSID, metrics.SNR, metrics.Band)
	}
	fmt.Fprintln(g.out)

	if ifaces, err := g.exec.ListInterfaces(ctx); err == nil {
		for _, score := range g.scorer.RankInterfaces(ctx, ifaces) {
			fmt.Fprintf(g.out, "  %-8s score %5.1f (interference risk %.0f)\n",
				score.InterfaceName, score.Score, score.InterferenceRisk)
		}
	}
	return nil
}

// stepComplete validates the final service order and removes the persisted
// state.
func (g *GuidedSetup) stepComplete(ctx context.Context) error {
	if ok, err := g.orderMgr.ValidateOrder(ctx); err == nil && !ok {
		color.New(color.FgYellow).Fprintln(g.out, "⚠ WiFi sits low in the service order; consider `darwin-nic restore`")
	}
	if err := ClearState(g.StatePath); err != nil {
		g.logger.Warnf("could not remove state file: %v", err)
	}
	color.New(color.FgGreen, color.Bold).Fprintf(g.out, "\nSetup complete. Device at %s via %s.\n",
		g.config.DeviceIP, g.state.DetectedUSBName)
	return nil
}
