package cmd

import (
	"github.com/helixsec/arcops/internal/message"
	"github.com/helixsec/arcops/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of arcops",
	Long:  `All software has versions. This is arcops'`,
	Run: func(cmd *cobra.Command, args []string) {
		message.Info(version.FullVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
