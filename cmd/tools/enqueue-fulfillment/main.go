// cmd/tools/enqueue-fulfillment/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"fulfillment-workers/internal/common/camunda"
	"fulfillment-workers/internal/common/config"
	"fulfillment-workers/internal/queue"
)

func main() {
	queueCmd := flag.NewFlagSet("queue", flag.ExitOnError)
	queueID := queueCmd.Int64("id", 0, "Application ID to fulfill")
	delay := queueCmd.Duration("delay", 0, "Delay before the task becomes runnable (e.g., 30s)")

	zeebeCmd := flag.NewFlagSet("zeebe", flag.ExitOnError)
	zeebeID := zeebeCmd.Int64("id", 0, "Application ID to fulfill")
	processID := zeebeCmd.String("process", "application-fulfillment", "BPMN process ID to start")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "queue":
		queueCmd.Parse(os.Args[2:])
		if *queueID <= 0 {
			fmt.Println("Error: a positive -id is required.")
			queueCmd.Usage()
			os.Exit(1)
		}
		client := queue.NewClient(cfg.Database.Redis, cfg.Queue)
		defer client.Close()

		taskID, err := client.EnqueueFulfillment(ctx, *queueID, *delay)
		if err != nil {
			fmt.Printf("Error enqueueing fulfillment: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Enqueued fulfillment of application %d as task %s\n", *queueID, taskID)

	case "zeebe":
		zeebeCmd.Parse(os.Args[2:])
		if *zeebeID <= 0 {
			fmt.Println("Error: a positive -id is required.")
			zeebeCmd.Usage()
			os.Exit(1)
		}
		client, err := camunda.NewClient(cfg.Camunda.BrokerAddress)
		if err != nil {
			fmt.Printf("Error connecting to Zeebe: %v\n", err)
			os.Exit(1)
		}
		defer client.Close()

		key, err := client.StartProcess(ctx, *processID, map[string]interface{}{"applicationId": *zeebeID})
		if err != nil {
			fmt.Printf("Error starting process: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Started %s for application %d (instance %d)\n", *processID, *zeebeID, key)

	default:
		help()
		os.Exit(1)
	}
}

func help() {
	fmt.Println("Usage: enqueue-fulfillment <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  queue  -id <applicationId> [-delay 30s]      Enqueue an asynq fulfillment task")
	fmt.Println("  zeebe  -id <applicationId> [-process <id>]   Start the fulfillment process in Zeebe")
}
