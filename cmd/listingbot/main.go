package main

import (
	"context"
	"log"

	corecmd "github.com/m3rciful/listingbot/core/cmd"
	coreconfig "github.com/m3rciful/listingbot/core/config"
	"github.com/m3rciful/listingbot/internal/app"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        coreconfig.Load,
		Bootstrap: func(ctx context.Context, cfg *coreconfig.Config) (corecmd.App, error) {
			return app.New(ctx, cfg)
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
