package cmd

import (
	"fmt"
	"os"

	"github.com/helixsec/arcops/internal/logs"
	"github.com/helixsec/arcops/internal/message"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "arcops",
	Short: "arcops is a CLI tool for administering Azure Arc fleets and hybrid directories.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
			message.SetQuiet(true)
		}
		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			message.SetNoColor(true)
		}

		logs.ConsoleLogger()
		if logFile, _ := cmd.Flags().GetString("log-file"); logFile != "" {
			if _, err := logs.FileLogger(logFile); err != nil {
				return err
			}
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.arcops.yaml)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress informational output")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().String("log-file", "", "append JSON diagnostics to this file")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".arcops" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".arcops")
	}

	viper.SetEnvPrefix("ARCOPS")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
