package ad

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"
)

// Presence records which directory (or both) knows an account.
type Presence string

const (
	PresenceCloud     Presence = "cloud"
	PresenceDirectory Presence = "directory"
	PresenceBoth      Presence = "both"
)

// InactiveAccount is one account whose most recent known activity is
// older than the report threshold.
type InactiveAccount struct {
	SamAccountName     string
	UserPrincipalName  string
	DisplayName        string
	LastCloudSignIn    time.Time
	LastDirectoryLogon time.Time
	Enabled            bool
	Presence           Presence
}

// lastActivity returns the most recent activity known for the account
// on either side.
func (a InactiveAccount) lastActivity() time.Time {
	if a.LastDirectoryLogon.After(a.LastCloudSignIn) {
		return a.LastDirectoryLogon
	}
	return a.LastCloudSignIn
}

// BuildReport cross-references cloud and on-prem accounts on
// sAMAccountName and returns those inactive since the threshold.
// Activity exactly at the threshold counts as active; accounts with no
// recorded activity anywhere are inactive by definition.
func BuildReport(cloud []CloudUser, directory []DirectoryUser, threshold time.Time) []InactiveAccount {
	dirBySam := make(map[string]DirectoryUser, len(directory))
	for _, d := range directory {
		dirBySam[d.SamAccountName] = d
	}

	matched := make(map[string]bool)
	var report []InactiveAccount

	for _, u := range cloud {
		account := InactiveAccount{
			SamAccountName:    u.SamAccountName,
			UserPrincipalName: u.UserPrincipalName,
			DisplayName:       u.DisplayName,
			LastCloudSignIn:   u.LastSignIn,
			Enabled:           u.Enabled,
			Presence:          PresenceCloud,
		}

		if d, ok := dirBySam[u.SamAccountName]; ok && u.SamAccountName != "" {
			matched[u.SamAccountName] = true
			account.Presence = PresenceBoth
			account.LastDirectoryLogon = d.LastLogon
		}

		if account.lastActivity().Before(threshold) {
			report = append(report, account)
		}
	}

	for _, d := range directory {
		if matched[d.SamAccountName] {
			continue
		}

		account := InactiveAccount{
			SamAccountName:     d.SamAccountName,
			LastDirectoryLogon: d.LastLogon,
			Enabled:            d.Enabled,
			Presence:           PresenceDirectory,
		}

		if account.lastActivity().Before(threshold) {
			report = append(report, account)
		}
	}

	sort.Slice(report, func(i, j int) bool {
		if report[i].SamAccountName != report[j].SamAccountName {
			return report[i].SamAccountName < report[j].SamAccountName
		}
		return report[i].UserPrincipalName < report[j].UserPrincipalName
	})

	return report
}

// WriteCSV writes the report with a header row. Unknown timestamps are
// left empty rather than rendered as the zero time.
func WriteCSV(w io.Writer, report []InactiveAccount) error {
	cw := csv.NewWriter(w)

	header := []string{
		"samAccountName", "userPrincipalName", "displayName",
		"lastCloudSignIn", "lastDirectoryLogon", "enabled", "presence",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write report header: %v", err)
	}

	for _, a := range report {
		record := []string{
			a.SamAccountName,
			a.UserPrincipalName,
			a.DisplayName,
			formatTime(a.LastCloudSignIn),
			formatTime(a.LastDirectoryLogon),
			fmt.Sprintf("%t", a.Enabled),
			string(a.Presence),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write report row: %v", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
