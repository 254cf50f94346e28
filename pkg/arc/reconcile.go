package arc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/helixsec/arcops/internal/message"
	"github.com/helixsec/arcops/pkg/types"
)

// Mode selects what the reconciler does with a version mismatch.
type Mode int

const (
	// ModeCheck reports mismatches and takes no action.
	ModeCheck Mode = iota
	// ModeUpdate dispatches an upgrade for every actionable mismatch.
	ModeUpdate
)

const (
	// DefaultDispatchPause is the fixed delay after each upgrade
	// submission. Crude admission control: it spreads submissions out
	// so a large backlog does not hit the control plane as one burst.
	DefaultDispatchPause = 10 * time.Second

	// DefaultPollInterval is how often the settle loop re-counts
	// running upgrade jobs.
	DefaultPollInterval = 30 * time.Second
)

// Reconciler compares installed extension versions against a version
// catalog, machine by machine, strictly sequentially.
type Reconciler struct {
	Machines   MachineLister
	Extensions ExtensionLister
	Dispatcher Dispatcher
	Catalog    VersionCatalog

	// DispatchPause overrides DefaultDispatchPause when non-zero;
	// tests set it to something tiny.
	DispatchPause time.Duration

	logger *slog.Logger
}

func (r *Reconciler) log() *slog.Logger {
	if r.logger == nil {
		r.logger = slog.Default().With("component", "reconciler")
	}
	return r.logger
}

func (r *Reconciler) pauseAfterDispatch(ctx context.Context) {
	pause := r.DispatchPause
	if pause == 0 {
		pause = DefaultDispatchPause
	}
	select {
	case <-ctx.Done():
	case <-time.After(pause):
	}
}

// Run reconciles every eligible machine in the resource group and
// returns the mismatches found. A failed machine or extension query
// aborts the run; there is no per-machine skip-and-continue.
func (r *Reconciler) Run(ctx context.Context, resourceGroup string, mode Mode) ([]types.Mismatch, error) {
	machines, err := r.Machines.ListEligibleMachines(ctx, resourceGroup)
	if err != nil {
		return nil, err
	}

	r.log().Info("scanning machines", "resourceGroup", resourceGroup, "count", len(machines))

	var mismatches []types.Mismatch
	for i, machine := range machines {
		message.Info("Checking %s (%d/%d)", machine.Name, i+1, len(machines))
		found, err := r.ReconcileMachine(ctx, resourceGroup, machine, mode)
		if err != nil {
			return nil, err
		}
		mismatches = append(mismatches, found...)
	}

	return mismatches, nil
}

// ReconcileMachine compares one machine's extensions against the
// catalog. Extensions mid-create or mid-update are skipped; Failed ones
// are compared like any other, an upgrade being the retry path for
// them. A mismatch the catalog has no entry for is reported but never
// dispatched: there is no target version to request.
func (r *Reconciler) ReconcileMachine(ctx context.Context, resourceGroup string, machine types.ArcMachine, mode Mode) ([]types.Mismatch, error) {
	extensions, err := r.Extensions.ListInstalledExtensions(ctx, resourceGroup, machine.Name)
	if err != nil {
		return nil, err
	}

	var mismatches []types.Mismatch
	for _, ext := range extensions {
		if ext.ProvisioningState == StateCreating || ext.ProvisioningState == StateUpdating {
			continue
		}

		key := ext.CatalogKey()
		target, known := r.Catalog[key]
		if known && target == ext.Version {
			continue
		}

		mismatch := types.Mismatch{
			Machine:   machine.Name,
			Key:       key,
			Installed: ext.Version,
			Target:    target,
			InCatalog: known,
		}
		mismatches = append(mismatches, mismatch)

		if mode != ModeUpdate || !known {
			continue
		}

		err := r.Dispatcher.Submit(ctx, resourceGroup, machine.Name, map[string]string{key: target})
		if err != nil {
			return nil, fmt.Errorf("upgrade dispatch failed on %s: %v", machine.Name, err)
		}
		r.pauseAfterDispatch(ctx)
	}

	return mismatches, nil
}
