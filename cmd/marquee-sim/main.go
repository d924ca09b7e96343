package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/marqueehq/marquee/internal/datasrv"
	"github.com/marqueehq/marquee/internal/logger"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// marquee-sim runs a local data-file API with fixture data, so the
// presentation surfaces can be developed and demoed without a backend.
func main() {
	var addr string
	var token string
	var fixturePath string
	var logLevel string
	var showVersion bool

	flag.StringVar(&addr, "addr", "127.0.0.1:8750", "listen address")
	flag.StringVar(&token, "token", "", "bearer token to require (empty disables auth)")
	flag.StringVar(&fixturePath, "fixtures", "", "fixture YAML file (default is built-in demo data)")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("Marquee Sim - Data API Simulator\n")
		fmt.Printf("  Version: %s\n", version)
		fmt.Printf("  Commit:  %s\n", commit)
		fmt.Printf("  Built:   %s\n", buildTime)
		return
	}

	if err := run(addr, token, fixturePath, logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(addr, token, fixturePath, logLevel string) error {
	log := logger.New(logLevel)

	fixtures := datasrv.DefaultFixtures()
	if fixturePath != "" {
		loaded, err := datasrv.LoadFixtures(fixturePath)
		if err != nil {
			return err
		}
		fixtures = loaded
	}

	srv := datasrv.NewServer(addr, token, datasrv.NewStore(fixtures), log)
	if err := srv.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-sigCh:
			log.Info("shutting down")
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return srv.Stop()
	})

	return g.Wait()
}
