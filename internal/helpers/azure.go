package helpers

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
)

// GetAzureCredentials returns Azure credentials using DefaultAzureCredential
func GetAzureCredentials() (*azidentity.DefaultAzureCredential, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get Azure credentials: %v", err)
	}
	return cred, nil
}

// GetSubscriptionDetails gets details about an Azure subscription
func GetSubscriptionDetails(ctx context.Context, cred *azidentity.DefaultAzureCredential, subscriptionID string) (*armsubscriptions.ClientGetResponse, error) {
	subsClient, err := armsubscriptions.NewClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriptions client: %v", err)
	}

	sub, err := subsClient.Get(ctx, subscriptionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription details: %v", err)
	}

	return &sub, nil
}

// SubscriptionDisplayName resolves a subscription ID to its display name,
// falling back to the ID when the lookup fails or the name is unset.
func SubscriptionDisplayName(ctx context.Context, cred *azidentity.DefaultAzureCredential, subscriptionID string) string {
	sub, err := GetSubscriptionDetails(ctx, cred, subscriptionID)
	if err != nil || sub.DisplayName == nil {
		return subscriptionID
	}
	return *sub.DisplayName
}

// ListResourceGroups returns the names of all resource groups in a subscription
func ListResourceGroups(ctx context.Context, cred *azidentity.DefaultAzureCredential, subscriptionID string) ([]string, error) {
	client, err := armresources.NewResourceGroupsClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource groups client: %v", err)
	}

	var groups []string
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list resource groups: %v", err)
		}
		for _, rg := range page.Value {
			if rg.Name == nil {
				continue
			}
			groups = append(groups, *rg.Name)
		}
	}

	if len(groups) == 0 {
		return nil, fmt.Errorf("no resource groups found in subscription %s", subscriptionID)
	}

	return groups, nil
}
