package arc

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/helixsec/arcops/internal/message"
	"github.com/helixsec/arcops/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	message.SetSilent(true)
	os.Exit(m.Run())
}

type fakeInventory struct {
	machines   []types.ArcMachine
	extensions map[string][]types.InstalledExtension
}

func (f *fakeInventory) ListEligibleMachines(ctx context.Context, resourceGroup string) ([]types.ArcMachine, error) {
	return f.machines, nil
}

func (f *fakeInventory) ListInstalledExtensions(ctx context.Context, resourceGroup, machine string) ([]types.InstalledExtension, error) {
	return f.extensions[machine], nil
}

type submission struct {
	machine string
	targets map[string]string
}

type fakeDispatcher struct {
	submissions []submission
}

func (f *fakeDispatcher) Submit(ctx context.Context, resourceGroup, machine string, targets map[string]string) error {
	f.submissions = append(f.submissions, submission{machine: machine, targets: targets})
	return nil
}

func (f *fakeDispatcher) ActiveJobs(ctx context.Context) (int, error) {
	return len(f.submissions), nil
}

func newReconciler(inv *fakeInventory, catalog VersionCatalog) (*Reconciler, *fakeDispatcher) {
	dispatcher := &fakeDispatcher{}
	return &Reconciler{
		Machines:      inv,
		Extensions:    inv,
		Dispatcher:    dispatcher,
		Catalog:       catalog,
		DispatchPause: time.Millisecond,
	}, dispatcher
}

func TestReconcileMachine(t *testing.T) {
	machine := types.ArcMachine{Name: "web-01", ProvisioningState: StateSucceeded, Status: "Connected"}

	tests := []struct {
		name       string
		catalog    VersionCatalog
		extension  types.InstalledExtension
		mismatches int
		inCatalog  bool
		dispatched bool
	}{
		{
			name:       "installed matches catalog",
			catalog:    VersionCatalog{"A.B": "1.0"},
			extension:  types.InstalledExtension{Publisher: "A", TypeName: "B", Version: "1.0", ProvisioningState: StateSucceeded},
			mismatches: 0,
		},
		{
			name:       "installed older than catalog",
			catalog:    VersionCatalog{"A.B": "2.0"},
			extension:  types.InstalledExtension{Publisher: "A", TypeName: "B", Version: "1.0", ProvisioningState: StateSucceeded},
			mismatches: 1,
			inCatalog:  true,
			dispatched: true,
		},
		{
			name:       "installed newer than catalog still flagged",
			catalog:    VersionCatalog{"A.B": "1.0"},
			extension:  types.InstalledExtension{Publisher: "A", TypeName: "B", Version: "2.0", ProvisioningState: StateSucceeded},
			mismatches: 1,
			inCatalog:  true,
			dispatched: true,
		},
		{
			name:       "absent from catalog reported but not dispatched",
			catalog:    VersionCatalog{},
			extension:  types.InstalledExtension{Publisher: "A", TypeName: "B", Version: "1.0", ProvisioningState: StateSucceeded},
			mismatches: 1,
			inCatalog:  false,
			dispatched: false,
		},
		{
			name:       "creating extension skipped",
			catalog:    VersionCatalog{"A.B": "2.0"},
			extension:  types.InstalledExtension{Publisher: "A", TypeName: "B", Version: "1.0", ProvisioningState: StateCreating},
			mismatches: 0,
		},
		{
			name:       "updating extension skipped",
			catalog:    VersionCatalog{"A.B": "2.0"},
			extension:  types.InstalledExtension{Publisher: "A", TypeName: "B", Version: "1.0", ProvisioningState: StateUpdating},
			mismatches: 0,
		},
		{
			name:       "failed extension still upgraded",
			catalog:    VersionCatalog{"A.B": "2.0"},
			extension:  types.InstalledExtension{Publisher: "A", TypeName: "B", Version: "1.0", ProvisioningState: StateFailed},
			mismatches: 1,
			inCatalog:  true,
			dispatched: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.extension.Machine = machine.Name
			inv := &fakeInventory{
				machines:   []types.ArcMachine{machine},
				extensions: map[string][]types.InstalledExtension{machine.Name: {tt.extension}},
			}

			reconciler, dispatcher := newReconciler(inv, tt.catalog)
			mismatches, err := reconciler.Run(context.Background(), "rg", ModeUpdate)

			require.NoError(t, err)
			require.Len(t, mismatches, tt.mismatches)

			if tt.mismatches > 0 {
				assert.Equal(t, tt.inCatalog, mismatches[0].InCatalog)
				assert.Equal(t, machine.Name, mismatches[0].Machine)
				assert.Equal(t, tt.extension.Version, mismatches[0].Installed)
			}

			if tt.dispatched {
				require.Len(t, dispatcher.submissions, 1)
				assert.Equal(t, machine.Name, dispatcher.submissions[0].machine)
				assert.Equal(t, map[string]string{tt.extension.CatalogKey(): tt.catalog[tt.extension.CatalogKey()]}, dispatcher.submissions[0].targets)
			} else {
				assert.Empty(t, dispatcher.submissions)
			}
		})
	}
}

func TestReconcileCheckModeNeverDispatches(t *testing.T) {
	machine := types.ArcMachine{Name: "db-01", ProvisioningState: StateSucceeded, Status: "Connected"}
	inv := &fakeInventory{
		machines: []types.ArcMachine{machine},
		extensions: map[string][]types.InstalledExtension{
			"db-01": {
				{Machine: "db-01", Publisher: "A", TypeName: "B", Version: "1.0", ProvisioningState: StateSucceeded},
			},
		},
	}

	reconciler, dispatcher := newReconciler(inv, VersionCatalog{"A.B": "2.0"})
	mismatches, err := reconciler.Run(context.Background(), "rg", ModeCheck)

	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "2.0", mismatches[0].Target)
	assert.Empty(t, dispatcher.submissions)
}

func TestReconcileUsesEffectiveTypeName(t *testing.T) {
	// The install-time resource name and the platform type identifier
	// diverge for Defender for SQL; the lookup must follow the type.
	machine := types.ArcMachine{Name: "sql-01", ProvisioningState: StateSucceeded, Status: "Connected"}
	inv := &fakeInventory{
		machines: []types.ArcMachine{machine},
		extensions: map[string][]types.InstalledExtension{
			"sql-01": {
				{
					Machine:           "sql-01",
					Name:              "MicrosoftDefenderForSQL",
					Publisher:         "Microsoft",
					TypeName:          "AdvancedThreatProtection.Windows",
					Version:           "1.0",
					ProvisioningState: StateSucceeded,
				},
			},
		},
	}

	catalog := VersionCatalog{
		"Microsoft.AdvancedThreatProtection.Windows": "1.0",
		"Microsoft.MicrosoftDefenderForSQL":          "9.9",
	}

	reconciler, dispatcher := newReconciler(inv, catalog)
	mismatches, err := reconciler.Run(context.Background(), "rg", ModeUpdate)

	require.NoError(t, err)
	assert.Empty(t, mismatches)
	assert.Empty(t, dispatcher.submissions)
}

func TestReconcileDispatchesInInventoryOrder(t *testing.T) {
	machine := types.ArcMachine{Name: "app-01", ProvisioningState: StateSucceeded, Status: "Connected"}
	inv := &fakeInventory{
		machines: []types.ArcMachine{machine},
		extensions: map[string][]types.InstalledExtension{
			"app-01": {
				{Machine: "app-01", Publisher: "A", TypeName: "B", Version: "1.0", ProvisioningState: StateSucceeded},
				{Machine: "app-01", Publisher: "C", TypeName: "D", Version: "1.0", ProvisioningState: StateSucceeded},
			},
		},
	}

	reconciler, dispatcher := newReconciler(inv, VersionCatalog{"A.B": "2.0", "C.D": "3.0"})
	_, err := reconciler.Run(context.Background(), "rg", ModeUpdate)

	require.NoError(t, err)
	require.Len(t, dispatcher.submissions, 2)
	assert.Equal(t, map[string]string{"A.B": "2.0"}, dispatcher.submissions[0].targets)
	assert.Equal(t, map[string]string{"C.D": "3.0"}, dispatcher.submissions[1].targets)
}
