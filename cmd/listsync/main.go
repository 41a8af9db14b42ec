package main

import (
	"context"
	"log"
	"os"

	"github.com/lumora-app/listsync/internal/buildinfo"
	"github.com/lumora-app/listsync/internal/client/cli"
	"github.com/lumora-app/listsync/internal/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
