package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/appetiteclub/apt"
	"github.com/joho/godotenv"

	"github.com/appetiteclub/orderdesk/cmd/utils/internal/commands"
)

const (
	appName    = "orderdesk-utils"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	config, err := apt.LoadConfig("UTILS", os.Args[2:])
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel, _ := config.GetString("log.level")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := os.Args[1]

	switch command {
	case "seed-demo":
		if err := commands.SeedDemo(ctx, config, logger); err != nil {
			log.Fatalf("Demo seeding failed: %v", err)
		}
		logger.Info("Demo orders published")

	case "progress-demo":
		if err := commands.ProgressDemo(ctx, config, logger); err != nil {
			log.Fatalf("Demo progress failed: %v", err)
		}
		logger.Info("Demo orders progressed")

	case "clear-demo":
		if err := commands.ClearDemo(ctx, config, logger); err != nil {
			log.Fatalf("Clear demo orders failed: %v", err)
		}
		logger.Info("Demo orders cleared")

	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - orderdesk utility commands

Usage:
  %s <command> [options]

Commands:
  seed-demo       Publish sample newOrder events to NATS
  progress-demo   Walk the demo orders through accept, ready and completion
  clear-demo      Publish orderCompleted for every demo order
  version         Print version information
  help            Show this help message

Environment Variables:
  UTILS_NATS_URL               NATS server URL (default: nats://localhost:4222)
  UTILS_EVENTS_NATS_SUBJECT    Subject the console listens on (default: orders.events)
  UTILS_DEMO_BASE_ID           First demo order id (default: 9000)
  UTILS_DEMO_STEP              Pause between progress events (default: 2s)
  UTILS_LOG_LEVEL              Log level: debug, info, warn, error (default: info)

Examples:
  %s seed-demo
  UTILS_DEMO_STEP=500ms %s progress-demo

`, appName, appName, appName, appName)
}
