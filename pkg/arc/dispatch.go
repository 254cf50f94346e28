package arc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/hybridcompute/armhybridcompute/v2"
	"github.com/google/uuid"
	"github.com/helixsec/arcops/internal/message"
)

// upgradeJobPrefix is the name signature that identifies upgrade
// operations in the job set.
const upgradeJobPrefix = "upgrade-extensions/"

// Dispatcher submits extension upgrades and reports how many of the
// submitted operations are still running. Submission is fire-and-forget:
// individual job outcomes are not tracked, only the aggregate count.
type Dispatcher interface {
	Submit(ctx context.Context, resourceGroup, machine string, targets map[string]string) error
	ActiveJobs(ctx context.Context) (int, error)
}

// upgradeJob is one submitted long-running operation. poll reports
// whether the operation has finished; a poll error counts as finished
// since a job the control plane can no longer report on is not running
// in any sense this tool can act on.
type upgradeJob struct {
	id   string
	name string
	done bool
	poll func(ctx context.Context) (bool, error)
}

// ARMDispatcher dispatches upgrades through the hybrid compute
// UpgradeExtensions operation and keeps the resulting pollers in an
// in-process job set.
type ARMDispatcher struct {
	client *armhybridcompute.ManagementClient
	logger *slog.Logger

	mu   sync.Mutex
	jobs []*upgradeJob
}

// NewARMDispatcher creates a dispatcher for one subscription.
func NewARMDispatcher(subscriptionID string, cred azcore.TokenCredential, opts *arm.ClientOptions) (*ARMDispatcher, error) {
	client, err := armhybridcompute.NewManagementClient(subscriptionID, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create hybrid compute management client: %v", err)
	}

	return &ARMDispatcher{
		client: client,
		logger: slog.Default().With("component", "dispatcher"),
	}, nil
}

// Submit starts an asynchronous UpgradeExtensions operation for one
// machine. The operation handle is retained only so ActiveJobs can count
// it; completion is never awaited here.
func (d *ARMDispatcher) Submit(ctx context.Context, resourceGroup, machine string, targets map[string]string) error {
	params := armhybridcompute.MachineExtensionUpgrade{
		ExtensionTargets: make(map[string]*armhybridcompute.ExtensionTargetProperties, len(targets)),
	}
	for key, version := range targets {
		params.ExtensionTargets[key] = &armhybridcompute.ExtensionTargetProperties{
			TargetVersion: to.Ptr(version),
		}
	}

	poller, err := d.client.BeginUpgradeExtensions(ctx, resourceGroup, machine, params, nil)
	if err != nil {
		return fmt.Errorf("failed to submit extension upgrade for %s: %v", machine, err)
	}

	job := &upgradeJob{
		id:   uuid.NewString(),
		name: upgradeJobPrefix + machine,
		poll: func(ctx context.Context) (bool, error) {
			if _, err := poller.Poll(ctx); err != nil {
				return false, err
			}
			return poller.Done(), nil
		},
	}

	d.mu.Lock()
	d.jobs = append(d.jobs, job)
	d.mu.Unlock()

	d.logger.Info("submitted extension upgrade", "machine", machine, "job", job.id, "targets", len(targets))
	return nil
}

// ActiveJobs polls every unfinished upgrade job once and returns the
// count still running. Jobs in a terminal state, and jobs whose poll
// fails, drop out of the count permanently.
func (d *ARMDispatcher) ActiveJobs(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	active := 0
	for _, job := range d.jobs {
		if job.done || !strings.HasPrefix(job.name, upgradeJobPrefix) {
			continue
		}

		finished, err := job.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			d.logger.Warn("upgrade job poll failed", "job", job.id, "name", job.name, "error", err)
			job.done = true
			continue
		}

		if finished {
			job.done = true
			continue
		}
		active++
	}

	return active, nil
}

// WaitForSettle blocks until ActiveJobs reaches zero, polling at the
// given interval and printing the count between polls. Best effort: a
// job that hangs inside the control plane holds the loop open until the
// operator cancels the context.
func WaitForSettle(ctx context.Context, d Dispatcher, interval time.Duration) error {
	for {
		count, err := d.ActiveJobs(ctx)
		if err != nil {
			return err
		}
		if count == 0 {
			message.Success("All upgrade jobs have settled")
			return nil
		}

		message.Info("%d upgrade job(s) still running", count)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
