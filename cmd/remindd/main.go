package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sandeepkv93/remindd/internal/app"
	"github.com/sandeepkv93/remindd/internal/config"
)

func main() {
	configPath := flag.String("config", "remindd.yaml", "path to the YAML config file")
	headless := flag.Bool("headless", false, "run without the terminal console")
	flag.Parse()

	if err := run(*configPath, *headless); err != nil {
		fmt.Fprintf(os.Stderr, "remindd failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, headless bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, app.Options{ConfigPath: configPath, Headless: headless})
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(ctx)
}
