package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storychain/config"
	"storychain/core"
	"storychain/observability/logging"
	"storychain/rpc"
	"storychain/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("STORY_ENV"))
	logger := logging.Setup("storyd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	node := core.NewNode(db)
	node.SetLogger(logger)
	if cfg.TokenBaseURI != "" {
		node.SetBaseURI(cfg.TokenBaseURI)
	}

	lastTokenID, err := node.RegistryLastTokenID()
	if err != nil {
		panic(fmt.Sprintf("Failed to read registry state: %v", err))
	}
	logger.Info("registry state loaded",
		slog.String("network", cfg.NetworkName),
		slog.Uint64("lastTokenId", lastTokenID),
	)

	if cfg.MetricsAddress != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
				logger.Error("metrics endpoint failed", slog.Any("error", err))
			}
		}()
		logger.Info("metrics endpoint listening", slog.String("address", cfg.MetricsAddress))
	}

	authToken := cfg.RPCAuthToken
	if envToken := strings.TrimSpace(os.Getenv("STORY_RPC_TOKEN")); envToken != "" {
		authToken = envToken
	}

	server := rpc.NewServer(node, authToken)
	logger.Info("json-rpc server listening", slog.String("address", cfg.RPCAddress))
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("rpc server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
