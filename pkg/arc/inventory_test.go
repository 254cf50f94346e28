package arc

import (
	"testing"

	"github.com/helixsec/arcops/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestMachineEligible(t *testing.T) {
	tests := []struct {
		name     string
		machine  types.ArcMachine
		eligible bool
	}{
		{
			name:     "succeeded and connected",
			machine:  types.ArcMachine{Name: "web-01", ProvisioningState: StateSucceeded, Status: "Connected"},
			eligible: true,
		},
		{
			name:     "disconnected machine excluded",
			machine:  types.ArcMachine{Name: "web-02", ProvisioningState: StateSucceeded, Status: "Disconnected"},
			eligible: false,
		},
		{
			name:     "still provisioning excluded",
			machine:  types.ArcMachine{Name: "web-03", ProvisioningState: StateCreating, Status: "Connected"},
			eligible: false,
		},
		{
			name:     "failed provisioning excluded",
			machine:  types.ArcMachine{Name: "web-04", ProvisioningState: StateFailed, Status: "Connected"},
			eligible: false,
		},
		{
			name:     "error status excluded",
			machine:  types.ArcMachine{Name: "web-05", ProvisioningState: StateSucceeded, Status: "Error"},
			eligible: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.eligible, machineEligible(tt.machine))
		})
	}
}
