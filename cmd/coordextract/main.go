package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/mekedron/coordextract/internal/cli"
	"github.com/mekedron/coordextract/internal/config"
	"github.com/mekedron/coordextract/internal/gateway/gpx"
)

var version = "dev"

func main() {
	// A missing .env is normal; real environment variables still apply.
	_ = godotenv.Load()

	store, err := config.NewStore()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	deps := cli.Dependencies{
		Parser:  gpx.NewParser(),
		Config:  store,
		Version: version,
	}

	exitCode := cli.Execute(context.Background(), os.Args[1:], deps, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}
