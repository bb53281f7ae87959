package main

import (
	"context"
	"log"

	"github.com/ownyourdata/semcon/internal/server"
	"github.com/ownyourdata/semcon/internal/server/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := app.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
