package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cbodonnell/voxelrelay/pkg/api"
	"github.com/cbodonnell/voxelrelay/pkg/config"
	"github.com/cbodonnell/voxelrelay/pkg/game"
	"github.com/cbodonnell/voxelrelay/pkg/log"
	"github.com/cbodonnell/voxelrelay/pkg/network"
	"github.com/cbodonnell/voxelrelay/pkg/queue"
	"github.com/cbodonnell/voxelrelay/pkg/registry"
	"github.com/cbodonnell/voxelrelay/pkg/repositories"
	"github.com/cbodonnell/voxelrelay/pkg/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	wsPort := flag.Int("ws-port", cfg.WSPort, "WebSocket port to listen on")
	apiPort := flag.Int("api-port", cfg.APIPort, "Control API port to listen on")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repository, err := newRepository(ctx, cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to create event store: %v", err))
	}
	defer repository.Close(context.Background())

	eventChan := make(chan repositories.Event, cfg.EventStoreLimit)
	recorder := workers.NewEventRecorderWorker(workers.NewEventRecorderWorkerOptions{
		Repository: repository,
		Events:     eventChan,
	})
	go recorder.Start(ctx)

	clientManager := network.NewClientManager()
	messageQueue := queue.NewInMemoryQueue(cfg.QueueSize)

	wsServer := network.NewWSServer(network.NewWSServerOptions{
		Port:          *wsPort,
		ClientManager: clientManager,
		MessageQueue:  messageQueue,
	})
	go func() {
		if err := wsServer.Start(ctx); err != nil {
			log.Error("WebSocket server failed: %v", err)
			stop()
		}
	}()

	manager := game.NewManager(game.NewManagerOptions{
		Registry:      registry.New(),
		ClientManager: clientManager,
		MessageQueue:  messageQueue,
		Events:        eventChan,
		ReapInterval:  cfg.ReapInterval,
		StatsInterval: cfg.StatsInterval,
	})

	apiServer := api.NewAPIServer(api.NewAPIServerOptions{
		Port:       *apiPort,
		Relay:      manager,
		Gate:       wsServer,
		Repository: repository,
	})
	go apiServer.Start()
	defer apiServer.Stop(context.Background())

	log.Info("Starting relay")
	if err := manager.Start(ctx); err != nil {
		log.Error("Relay stopped with error: %v", err)
	}
}

func newRepository(ctx context.Context, cfg *config.Config) (repositories.Repository, error) {
	switch cfg.EventStore {
	case config.EventStoreSQLite:
		return repositories.NewSQLiteRepository(ctx, cfg.SQLitePath)
	case config.EventStorePostgres:
		return repositories.NewPostgresRepository(ctx, cfg.DatabaseURL)
	case config.EventStoreRedis:
		return repositories.NewRedisRepository(cfg.RedisURL, cfg.EventStoreLimit)
	default:
		return repositories.NewInMemoryRepository(cfg.EventStoreLimit), nil
	}
}
