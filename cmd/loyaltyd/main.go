package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"loyaltyd/config"
	"loyaltyd/core"
	"loyaltyd/core/events"
	"loyaltyd/observability/logging"
	"loyaltyd/rpc"
	"loyaltyd/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("LOYALTY_ENV"))
	logger := logging.Setup("loyaltyd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	authority, err := cfg.Authority()
	if err != nil {
		logger.Error("Failed to resolve minting authority", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	node, err := core.NewNode(db, authority)
	if err != nil {
		logger.Error("Failed to initialize node", slog.Any("error", err))
		os.Exit(1)
	}

	go logEvents(node, logger)

	logger.Info("Node initialized",
		slog.String("network", cfg.NetworkName),
		slog.String("authority", authority.Hex()),
		slog.String("dataDir", cfg.DataDir),
	)

	server := rpc.NewServer(node, rpc.ServerConfig{AuthToken: cfg.RPCToken()})
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// logEvents mirrors every ledger event into the structured log so operators
// can follow lifecycle and distribution activity without a websocket client.
func logEvents(node *core.Node, logger *slog.Logger) {
	updates, cancel, backlog := node.SubscribeEvents(128)
	defer cancel()
	for _, evt := range backlog {
		logEvent(logger, evt)
	}
	for evt := range updates {
		logEvent(logger, evt)
	}
}

func logEvent(logger *slog.Logger, evt events.Event) {
	attrs := make([]any, 0, 8)
	for key, value := range evt.Attributes() {
		attrs = append(attrs, slog.String(key, value))
	}
	logger.Info(evt.EventType(), attrs...)
}
