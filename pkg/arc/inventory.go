package arc

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/hybridcompute/armhybridcompute/v2"
	"github.com/helixsec/arcops/pkg/types"
)

// Machine/extension provisioning states as reported by the management
// plane.
const (
	StateSucceeded = "Succeeded"
	StateCreating  = "Creating"
	StateUpdating  = "Updating"
	StateFailed    = "Failed"
)

// MachineLister lists Arc machines eligible for reconciliation.
type MachineLister interface {
	ListEligibleMachines(ctx context.Context, resourceGroup string) ([]types.ArcMachine, error)
}

// ExtensionLister lists the extensions installed on one machine.
type ExtensionLister interface {
	ListInstalledExtensions(ctx context.Context, resourceGroup, machine string) ([]types.InstalledExtension, error)
}

// HybridComputeInventory implements MachineLister and ExtensionLister
// against the Microsoft.HybridCompute resource provider.
type HybridComputeInventory struct {
	machines   *armhybridcompute.MachinesClient
	extensions *armhybridcompute.MachineExtensionsClient
}

// NewHybridComputeInventory creates clients for one subscription.
func NewHybridComputeInventory(subscriptionID string, cred azcore.TokenCredential, opts *arm.ClientOptions) (*HybridComputeInventory, error) {
	machines, err := armhybridcompute.NewMachinesClient(subscriptionID, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create machines client: %v", err)
	}

	extensions, err := armhybridcompute.NewMachineExtensionsClient(subscriptionID, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create machine extensions client: %v", err)
	}

	return &HybridComputeInventory{machines: machines, extensions: extensions}, nil
}

// ListEligibleMachines returns the machines in a resource group that are
// fully provisioned and currently connected. Disconnected or still
// provisioning machines cannot be upgraded and are excluded from the
// scan entirely.
func (inv *HybridComputeInventory) ListEligibleMachines(ctx context.Context, resourceGroup string) ([]types.ArcMachine, error) {
	var machines []types.ArcMachine

	pager := inv.machines.NewListByResourceGroupPager(resourceGroup, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list machines in %s: %v", resourceGroup, err)
		}

		for _, m := range page.Value {
			if m.Name == nil || m.Properties == nil {
				continue
			}

			machine := types.ArcMachine{Name: *m.Name}
			if m.Properties.ProvisioningState != nil {
				machine.ProvisioningState = *m.Properties.ProvisioningState
			}
			if m.Properties.Status != nil {
				machine.Status = string(*m.Properties.Status)
			}

			if !machineEligible(machine) {
				continue
			}

			machines = append(machines, machine)
		}
	}

	return machines, nil
}

// machineEligible reports whether a machine can be reconciled at all:
// it must be fully provisioned and currently connected. Anything else
// cannot receive an extension operation.
func machineEligible(m types.ArcMachine) bool {
	return m.ProvisioningState == StateSucceeded &&
		m.Status == string(armhybridcompute.StatusTypesConnected)
}

// ListInstalledExtensions returns every extension on one machine,
// whatever its provisioning state. Eligibility filtering is the
// reconciler's call, not the inventory's.
func (inv *HybridComputeInventory) ListInstalledExtensions(ctx context.Context, resourceGroup, machine string) ([]types.InstalledExtension, error) {
	var exts []types.InstalledExtension

	pager := inv.extensions.NewListPager(resourceGroup, machine, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list extensions on %s: %v", machine, err)
		}

		for _, e := range page.Value {
			if e.Properties == nil {
				continue
			}

			ext := types.InstalledExtension{Machine: machine}
			if e.Name != nil {
				ext.Name = *e.Name
			}
			if e.Properties.Publisher != nil {
				ext.Publisher = *e.Properties.Publisher
			}
			if e.Properties.Type != nil {
				ext.TypeName = *e.Properties.Type
			}
			if e.Properties.TypeHandlerVersion != nil {
				ext.Version = *e.Properties.TypeHandlerVersion
			}
			if e.Properties.ProvisioningState != nil {
				ext.ProvisioningState = *e.Properties.ProvisioningState
			}

			exts = append(exts, ext)
		}
	}

	return exts, nil
}
