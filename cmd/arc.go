package cmd

import (
	"os"

	"github.com/helixsec/arcops/internal/helpers"
	"github.com/helixsec/arcops/internal/message"
	"github.com/helixsec/arcops/pkg/arc"
	"github.com/helixsec/arcops/pkg/types"
	"github.com/spf13/cobra"
)

var arcCmd = &cobra.Command{
	Use:   "arc",
	Short: "Azure Arc fleet commands",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(1)
	},
}

var arcExtensionsCmd = &cobra.Command{
	Use:   "extensions",
	Short: "Reconcile installed Arc extension versions against the published catalog",
	Long: `Compares the extensions installed on every connected Arc machine against
the latest published extension images. By default mismatches are only
reported; with --update an asynchronous upgrade is dispatched for each
mismatch and the command waits for all upgrade jobs to settle.`,
	RunE: runArcExtensions,
}

var arcSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize Arc machines by connectivity status",
	RunE:  runArcSummary,
}

func init() {
	arcExtensionsCmd.Flags().StringP("subscription", "s", "", "Azure subscription ID")
	arcExtensionsCmd.MarkFlagRequired("subscription")
	arcExtensionsCmd.Flags().StringP("resource-group", "g", "", "resource group to scan (default: all resource groups in the subscription)")
	arcExtensionsCmd.Flags().StringP("location", "l", "eastus", "region used to fetch the extension image catalog")
	arcExtensionsCmd.Flags().BoolP("update", "u", false, "dispatch upgrades instead of only reporting mismatches")

	arcSummaryCmd.Flags().StringP("subscription", "s", "", "Azure subscription ID (default: all accessible subscriptions)")

	arcCmd.AddCommand(arcExtensionsCmd)
	arcCmd.AddCommand(arcSummaryCmd)
	rootCmd.AddCommand(arcCmd)
}

func runArcExtensions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	subscription, _ := cmd.Flags().GetString("subscription")
	resourceGroup, _ := cmd.Flags().GetString("resource-group")
	location, _ := cmd.Flags().GetString("location")
	update, _ := cmd.Flags().GetBool("update")

	mode := arc.ModeCheck
	if update {
		mode = arc.ModeUpdate
	}

	message.Banner()

	// The catalog is the reference for every comparison; without it
	// there is nothing meaningful to reconcile.
	catalog, err := arc.BuildCatalog(ctx, arc.NewAzCLICatalogSource(location))
	if err != nil {
		return err
	}
	message.Info("Loaded catalog with %d extension images", len(catalog))

	cred, err := helpers.GetAzureCredentials()
	if err != nil {
		return err
	}

	inventory, err := arc.NewHybridComputeInventory(subscription, cred, nil)
	if err != nil {
		return err
	}

	dispatcher, err := arc.NewARMDispatcher(subscription, cred, nil)
	if err != nil {
		return err
	}

	groups := []string{resourceGroup}
	if resourceGroup == "" {
		groups, err = helpers.ListResourceGroups(ctx, cred, subscription)
		if err != nil {
			return err
		}
	}

	message.Section("Scanning %s", helpers.SubscriptionDisplayName(ctx, cred, subscription))

	reconciler := &arc.Reconciler{
		Machines:   inventory,
		Extensions: inventory,
		Dispatcher: dispatcher,
		Catalog:    catalog,
	}

	var mismatches []types.Mismatch
	for _, group := range groups {
		message.Info("Resource group %s", group)
		found, err := reconciler.Run(ctx, group, mode)
		if err != nil {
			return err
		}
		mismatches = append(mismatches, found...)
	}

	for _, mm := range mismatches {
		if mm.InCatalog {
			message.Warning("%s: %s %s -> %s", mm.Machine, mm.Key, mm.Installed, mm.Target)
		} else {
			message.Warning("%s: %s %s (not in catalog)", mm.Machine, mm.Key, mm.Installed)
		}
	}

	if mode == arc.ModeUpdate && len(mismatches) > 0 {
		message.Info("Waiting for upgrade jobs to settle")
		if err := arc.WaitForSettle(ctx, dispatcher, arc.DefaultPollInterval); err != nil {
			return err
		}
	}

	message.Success("Scan complete: %d mismatch(es)", len(mismatches))
	return nil
}

func runArcSummary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	subscription, _ := cmd.Flags().GetString("subscription")

	argClient, err := helpers.NewARGClient(ctx)
	if err != nil {
		return err
	}

	var subscriptions []string
	if subscription != "" {
		subscriptions = []string{subscription}
	}

	counts, err := arc.MachineSummary(ctx, argClient, subscriptions)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		message.Warning("No Arc machines found")
		return nil
	}

	message.Section("Arc machines by status")
	total := 0
	for _, c := range counts {
		message.Info("%-16s %d", c.Status, c.Count)
		total += c.Count
	}
	message.Success("%d machine(s) total", total)
	return nil
}
