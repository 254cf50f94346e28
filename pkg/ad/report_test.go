package ad

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var threshold = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

func TestBuildReportCorrelatesOnSamAccountName(t *testing.T) {
	cloud := []CloudUser{
		{UserPrincipalName: "jdoe@corp.example.com", SamAccountName: "jdoe", LastSignIn: threshold.AddDate(0, -6, 0), Enabled: true},
	}
	directory := []DirectoryUser{
		{SamAccountName: "jdoe", LastLogon: threshold.AddDate(0, -4, 0), Enabled: true},
	}

	report := BuildReport(cloud, directory, threshold)

	require.Len(t, report, 1)
	assert.Equal(t, PresenceBoth, report[0].Presence)
	assert.Equal(t, "jdoe", report[0].SamAccountName)
	assert.Equal(t, cloud[0].LastSignIn, report[0].LastCloudSignIn)
	assert.Equal(t, directory[0].LastLogon, report[0].LastDirectoryLogon)
}

func TestBuildReportRecentActivityOnEitherSideIsActive(t *testing.T) {
	// Stale in the cloud but recently seen on-prem: not inactive.
	cloud := []CloudUser{
		{UserPrincipalName: "jdoe@corp.example.com", SamAccountName: "jdoe", LastSignIn: threshold.AddDate(-1, 0, 0)},
	}
	directory := []DirectoryUser{
		{SamAccountName: "jdoe", LastLogon: threshold.AddDate(0, 0, 7)},
	}

	report := BuildReport(cloud, directory, threshold)
	assert.Empty(t, report)
}

func TestBuildReportThresholdBoundary(t *testing.T) {
	cloud := []CloudUser{
		{UserPrincipalName: "exact@corp.example.com", SamAccountName: "exact", LastSignIn: threshold},
		{UserPrincipalName: "justunder@corp.example.com", SamAccountName: "justunder", LastSignIn: threshold.Add(-time.Second)},
	}

	report := BuildReport(cloud, nil, threshold)

	require.Len(t, report, 1)
	assert.Equal(t, "justunder", report[0].SamAccountName)
}

func TestBuildReportNeverActiveAccounts(t *testing.T) {
	cloud := []CloudUser{
		{UserPrincipalName: "ghost@corp.example.com", SamAccountName: "ghost"},
	}
	directory := []DirectoryUser{
		{SamAccountName: "svc-legacy"},
	}

	report := BuildReport(cloud, directory, threshold)

	require.Len(t, report, 2)
	assert.Equal(t, PresenceBoth, findAccount(t, report, "ghost").Presence)
	assert.Equal(t, PresenceDirectory, findAccount(t, report, "svc-legacy").Presence)
}

func TestBuildReportPresenceLabels(t *testing.T) {
	cloud := []CloudUser{
		{UserPrincipalName: "cloudonly@corp.example.com", SamAccountName: ""},
		{UserPrincipalName: "synced@corp.example.com", SamAccountName: "synced"},
	}
	directory := []DirectoryUser{
		{SamAccountName: "synced"},
		{SamAccountName: "dironly"},
	}

	report := BuildReport(cloud, directory, threshold)

	require.Len(t, report, 3)
	byUPN := make(map[string]InactiveAccount)
	for _, a := range report {
		byUPN[a.UserPrincipalName] = a
	}

	assert.Equal(t, PresenceCloud, byUPN["cloudonly@corp.example.com"].Presence)
	assert.Equal(t, PresenceBoth, byUPN["synced@corp.example.com"].Presence)
	assert.Equal(t, PresenceDirectory, findAccount(t, report, "dironly").Presence)
}

func TestWriteCSV(t *testing.T) {
	report := []InactiveAccount{
		{
			SamAccountName:    "jdoe",
			UserPrincipalName: "jdoe@corp.example.com",
			DisplayName:       "Jane Doe",
			LastCloudSignIn:   time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC),
			Enabled:           true,
			Presence:          PresenceBoth,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, report))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "samAccountName,userPrincipalName,displayName,lastCloudSignIn,lastDirectoryLogon,enabled,presence", lines[0])
	assert.Equal(t, "jdoe,jdoe@corp.example.com,Jane Doe,2026-01-15T09:30:00Z,,true,both", lines[1])
}

func findAccount(t *testing.T, report []InactiveAccount, sam string) InactiveAccount {
	t.Helper()
	for _, a := range report {
		if a.SamAccountName == sam {
			return a
		}
	}
	t.Fatalf("account %q not in report", sam)
	return InactiveAccount{}
}
