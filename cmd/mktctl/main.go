package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/estatehub/marketplace/backend/internal/cli"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
)

func main() {
	_ = godotenv.Load()
	observability.InitLogger("mktctl", os.Getenv("APP_ENV"))

	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		observability.GetLogger().Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
