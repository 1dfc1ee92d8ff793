package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conviction_voting/internal/app/service"
	"conviction_voting/internal/infrastructure/configloader"
	clientprovider "conviction_voting/internal/infrastructure/network/client"
	networkdefinition "conviction_voting/internal/infrastructure/network/definition"
	"conviction_voting/internal/infrastructure/restapi"
	"conviction_voting/internal/pkg/logger"
	"conviction_voting/internal/pkg/metrics"
	"conviction_voting/internal/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfgPath := utils.GetEnv("CONFIG_PATH", "config/config.yml")
	cfg, err := configloader.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Options{Level: cfg.Logging.Level, Name: "support_api"})
	defer logger.Sync()
	logger.Info("Configuration loaded", "path", cfgPath)

	if err := cfg.ValidateStaking(); err != nil {
		logger.Fatal("Invalid staking configuration", "error", err)
	}

	metrics.MustRegisterMetrics()
	appLogger := logger.NewSlogAdapter()

	netDef, err := networkdefinition.NewNetworkDefinitionProvider(appLogger).Resolve(cfg.Network)
	if err != nil {
		logger.Fatal("Failed to resolve network", "error", err)
	}

	provider := clientprovider.NewEVMClientProvider(cfg, appLogger)
	defer provider.CloseAll()

	evmClient, err := provider.GetEVMClient(netDef)
	if err != nil {
		logger.Fatal("Failed to connect to network", "network", netDef.Identifier, "error", err)
	}

	voting, err := clientprovider.NewConvictionVotingClient(evmClient, cfg.Staking.ContractAddress, cfg.Staking.TokenAddress)
	if err != nil {
		logger.Fatal("Failed to create conviction voting client", "error", err)
	}

	supportSvc := service.NewSupportService(voting, voting, appLogger, service.SupportConfig{
		TokenSymbol:     cfg.Staking.TokenSymbol,
		Decimals:        cfg.Staking.Decimals,
		BalanceCacheTTL: time.Duration(cfg.Staking.BalanceCacheTTLSeconds) * time.Second,
	})

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := restapi.SetupRouter(restapi.NewSupportHandler(supportSvc, appLogger), appLogger, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", "address", srv.Addr, "network", netDef.Identifier)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start HTTP server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	logger.Info("Server exited")
}
