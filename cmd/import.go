package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sidharthv96/caprover/internal/config"
	"github.com/sidharthv96/caprover/internal/store"
	"github.com/sidharthv96/caprover/pkg/logger"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import app definitions from a YAML file",
	Long:  `Load app definitions from a YAML seed file into the app store, replacing existing definitions with the same name`,
	Args:  cobra.ExactArgs(1),
	Run:   runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}

	st, err := store.Open(cfg.StoreDir())
	if err != nil {
		logger.Fatal("Failed to open app store", "error", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close app store", "error", err)
		}
	}()

	count, err := store.ImportSeed(st, args[0])
	if err != nil {
		logger.Fatal("Import failed", "error", err)
	}

	logger.Info("Import complete", "apps", count)
}
