package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sidharthv96/caprover/internal/certs"
	"github.com/sidharthv96/caprover/internal/config"
	"github.com/sidharthv96/caprover/internal/loadbalancer"
	"github.com/sidharthv96/caprover/internal/scheduler"
	"github.com/sidharthv96/caprover/internal/server"
	"github.com/sidharthv96/caprover/internal/store"
	"github.com/sidharthv96/caprover/internal/templating"
	"github.com/sidharthv96/caprover/pkg/logger"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the reverse-proxy controller",
	Long:  `Bootstrap the proxy service, regenerate its configuration and serve the operator API`,
	Run:   runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}
	logger.GetLogger().SetLogLevel(cfg.Logging.Level)

	logger.Info("Starting controller",
		"root_domain", cfg.Server.RootDomain,
		"proxy_service", cfg.Proxy.ServiceName)

	st, err := store.Open(cfg.StoreDir())
	if err != nil {
		logger.Fatal("Failed to open app store", "error", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close app store", "error", err)
		}
	}()

	sched, err := scheduler.NewSwarmClient(cfg.Proxy.SocketPath)
	if err != nil {
		logger.Fatal("Failed to connect to scheduler", "error", err)
	}

	renderer := templating.NewTextRenderer()
	resolver := certs.NewLetsEncryptResolver(loadbalancer.ContainerCertsDir)
	generator := loadbalancer.NewGenerator(cfg, st, renderer, resolver)
	coordinator := loadbalancer.NewCoordinator(generator, sched, cfg.Proxy.ServiceName)
	lifecycle := loadbalancer.NewLifecycleManager(cfg, sched)
	stats := loadbalancer.NewStatsClient(cfg.Proxy.StatusURL)

	ctx := context.Background()

	// A non-functional proxy makes the whole platform unreachable, so any
	// failure on this path is fatal.
	bootstrap := loadbalancer.NewBootstrap(cfg, renderer)
	if _, err := bootstrap.Run(); err != nil {
		logger.Fatal("Bootstrap provisioning failed", "error", err)
	}
	if err := generator.WriteBaseConfig(cfg.Proxy.StatusPort); err != nil {
		logger.Fatal("Failed to write base proxy config", "error", err)
	}

	leader, err := sched.LeaderNodeID(ctx)
	if err != nil {
		logger.Fatal("Failed to determine leader node", "error", err)
	}
	if err := lifecycle.Reconcile(ctx, leader); err != nil {
		logger.Fatal("Proxy service reconciliation failed", "error", err)
	}

	if err := coordinator.Reload(ctx, loadbalancer.NamespaceApps); err != nil {
		logger.Fatal("Initial configuration reload failed", "error", err)
	}

	api := server.New(coordinator, stats)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.ApiPort)
		if err := api.Start(addr); err != nil {
			logger.Error("Operator API stopped", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", "signal", sig)

	if err := api.Echo().Shutdown(ctx); err != nil {
		logger.Error("Operator API shutdown failed", "error", err)
	}
}
