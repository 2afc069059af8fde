package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
)

func main() {
	buildIndex := flag.Bool("build-index", false, "load or rebuild the FAQ index artifacts and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *buildIndex {
		indexer, cleanup, err := initializeIndexer(ctx)
		if err != nil {
			log.Fatalf("failed to wire indexer: %v", err)
		}
		defer cleanup()
		if err := indexer.Run(ctx); err != nil {
			log.Fatalf("index build failed: %v", err)
		}
		return
	}

	app, cleanup, err := initializeApp(ctx)
	if err != nil {
		log.Fatalf("failed to wire application: %v", err)
	}
	defer cleanup()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}
