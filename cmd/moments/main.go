package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/moments/internal/cli"
	"github.com/dmitrijs2005/moments/internal/config"
	"github.com/dmitrijs2005/moments/internal/logging"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger, err := logging.New(cfg.LogBackend, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
