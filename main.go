package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"portscanner/api"
	"portscanner/config"
	"portscanner/logging"
)

// @title                       portscanner API
// @version                     1.0
// @description                 Asynchronous TCP port scanning service.
// @license.name                MIT
// @license.url                 https://opensource.org/licenses/MIT
// @host                        localhost:8080
// @BasePath                    /api/v1
// @schemes                     http
// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        Authorization
// @description                 Bearer token: "Bearer <PORTSCAN_API_KEY>"
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Configure(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.Run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
