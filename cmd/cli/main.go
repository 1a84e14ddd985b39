package main

import (
	"context"
	"log"
	"os"

	"github.com/vpetrenko/tracklet/internal/buildinfo"
	"github.com/vpetrenko/tracklet/internal/client/cli"
	"github.com/vpetrenko/tracklet/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
