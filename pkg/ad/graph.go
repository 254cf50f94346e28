package ad

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"
)

// CloudUser is an Entra ID account with its most recent sign-in
// activity. A zero LastSignIn means the account has never signed in (or
// activity predates the tenant's audit retention, which reads the same
// for an inactivity report).
type CloudUser struct {
	UserPrincipalName string
	DisplayName       string
	SamAccountName    string
	Enabled           bool
	LastSignIn        time.Time
}

// ListCloudUsers pulls every user in the tenant with sign-in activity.
// Requires the AuditLog.Read.All and User.Read.All Graph permissions.
func ListCloudUsers(ctx context.Context, cred azcore.TokenCredential) ([]CloudUser, error) {
	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Graph client: %v", err)
	}

	requestConfig := &users.UsersRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.UsersRequestBuilderGetQueryParameters{
			Select: []string{
				"id", "userPrincipalName", "displayName",
				"accountEnabled", "onPremisesSamAccountName", "signInActivity",
			},
			Top: to.Ptr(int32(999)), // Max page size
		},
	}

	result, err := client.Users().Get(ctx, requestConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %v", err)
	}

	pageIterator, err := msgraphcore.NewPageIterator[models.Userable](result, client.GetAdapter(), models.CreateUserCollectionResponseFromDiscriminatorValue)
	if err != nil {
		return nil, fmt.Errorf("failed to create page iterator: %v", err)
	}

	var cloudUsers []CloudUser
	err = pageIterator.Iterate(ctx, func(user models.Userable) bool {
		cloudUsers = append(cloudUsers, toCloudUser(user))
		return true // Continue iteration
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate users: %v", err)
	}

	return cloudUsers, nil
}

func toCloudUser(user models.Userable) CloudUser {
	cu := CloudUser{
		UserPrincipalName: stringValue(user.GetUserPrincipalName()),
		DisplayName:       stringValue(user.GetDisplayName()),
		SamAccountName:    stringValue(user.GetOnPremisesSamAccountName()),
	}
	if enabled := user.GetAccountEnabled(); enabled != nil {
		cu.Enabled = *enabled
	}

	// Interactive and non-interactive sign-ins are tracked separately;
	// the report cares about whichever is most recent.
	if activity := user.GetSignInActivity(); activity != nil {
		cu.LastSignIn = latest(
			timeValue(activity.GetLastSignInDateTime()),
			timeValue(activity.GetLastNonInteractiveSignInDateTime()),
		)
	}

	return cu
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timeValue(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
