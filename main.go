package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/gommon/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/devvo333/Event-Venue-Generator-sub002/internal/config"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/server"
)

func main() {
	var (
		cfgFile string
		envFile string
		port    int
	)
	pflag.StringVar(&cfgFile, "config", "", "optional YAML config file")
	pflag.StringVar(&envFile, "env-file", ".env", "optional .env file")
	pflag.IntVar(&port, "port", 0, "listen port (overrides config and PORT)")
	pflag.Parse()

	cfg, err := config.Load(cfgFile, envFile)
	if err != nil {
		log.Fatalf("Error: loading config - %v", err)
	}
	if port != 0 {
		cfg.Port = port
	}
	log.SetLevel(cfg.Level())
	if len(cfg.Domains) == 0 {
		log.Warn("DOMAINS is empty, accepting WebSocket handshakes from any origin")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := server.NewServer(cfg)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(s.StartServer)
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down")
		return s.StopServer()
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Error: server stopped - %v", err)
	}
}
