package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sidharthv96/caprover/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "caprover",
	Short: "CapRover - reverse-proxy controller",
	Long: `CapRover keeps a cluster's reverse proxy in sync with the deployed
application definitions: it derives the virtual-host configuration, writes it
atomically, live-reloads the proxy, and keeps the proxy service itself placed
on the cluster leader.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./caprover.toml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("caprover")
		viper.SetConfigType("toml")

		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/caprover")
	}

	viper.SetEnvPrefix("caprover")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	logger.ConfigureFromEnv()
}
