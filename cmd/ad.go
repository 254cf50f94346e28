package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/helixsec/arcops/internal/helpers"
	"github.com/helixsec/arcops/internal/message"
	"github.com/helixsec/arcops/pkg/ad"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var adCmd = &cobra.Command{
	Use:   "ad",
	Short: "Directory account commands",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(1)
	},
}

var adInactiveUsersCmd = &cobra.Command{
	Use:   "inactive-users",
	Short: "Report accounts with no recent activity in Entra ID or on-prem AD",
	Long: `Cross-references Entra ID sign-in activity with on-premises Active
Directory logon timestamps and writes a CSV of accounts whose most
recent activity on either side is older than the threshold.`,
	RunE: runAdInactiveUsers,
}

func init() {
	adInactiveUsersCmd.Flags().IntP("days", "d", 90, "inactivity threshold in days")
	adInactiveUsersCmd.Flags().StringP("output", "o", "", "output CSV path (default inactive-users-<timestamp>.csv)")
	adInactiveUsersCmd.Flags().String("ldap-url", "", "directory URL, e.g. ldaps://dc01.corp.example.com:636 (omit to report on Entra ID only)")
	adInactiveUsersCmd.Flags().String("ldap-base-dn", "", "search base DN, e.g. DC=corp,DC=example,DC=com")
	adInactiveUsersCmd.Flags().String("ldap-user", "", "bind user DN or UPN")
	adInactiveUsersCmd.Flags().String("ldap-password", "", "bind password (or set ARCOPS_LDAP_PASSWORD)")
	viper.BindPFlag("ldap_password", adInactiveUsersCmd.Flags().Lookup("ldap-password"))

	adCmd.AddCommand(adInactiveUsersCmd)
	rootCmd.AddCommand(adCmd)
}

func runAdInactiveUsers(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	days, _ := cmd.Flags().GetInt("days")
	output, _ := cmd.Flags().GetString("output")
	ldapURL, _ := cmd.Flags().GetString("ldap-url")
	ldapBaseDN, _ := cmd.Flags().GetString("ldap-base-dn")
	ldapUser, _ := cmd.Flags().GetString("ldap-user")

	cred, err := helpers.GetAzureCredentials()
	if err != nil {
		return err
	}

	message.Info("Pulling Entra ID users")
	cloud, err := ad.ListCloudUsers(ctx, cred)
	if err != nil {
		return err
	}
	message.Info("Found %d cloud account(s)", len(cloud))

	var directory []ad.DirectoryUser
	if ldapURL != "" {
		message.Info("Pulling directory users from %s", ldapURL)
		directory, err = ad.ListDirectoryUsers(ad.LDAPOptions{
			URL:          ldapURL,
			BaseDN:       ldapBaseDN,
			BindUser:     ldapUser,
			BindPassword: viper.GetString("ldap_password"),
		})
		if err != nil {
			return err
		}
		message.Info("Found %d directory account(s)", len(directory))
	} else {
		message.Warning("No directory URL given; reporting on Entra ID activity only")
	}

	threshold := time.Now().AddDate(0, 0, -days)
	report := ad.BuildReport(cloud, directory, threshold)

	if output == "" {
		output = "inactive-users-" + strconv.FormatInt(time.Now().Unix(), 10) + ".csv"
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %v", output, err)
	}
	defer f.Close()

	if err := ad.WriteCSV(f, report); err != nil {
		return err
	}

	message.Success("%d inactive account(s) written to %s", len(report), output)
	return nil
}
