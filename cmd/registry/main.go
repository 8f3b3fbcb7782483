// Command registry runs the holder registry service.
//
// Holders register their public endpoints here on startup, and the
// coordinator can pull the current roster instead of being handed one.
// The roster is kept in Postgres when a database is configured, and in
// memory otherwise.
//
// # Configuration File
//
//	http_addr: ":8080"
//	registry:
//	  postgres:
//	    host: "localhost"
//	    port: 5432
//	    user: "registry"
//	    password: "registry"
//	    database: "registry"
//
// # Usage
//
//	go run ./cmd/registry --config=registry.yaml
//	go run ./cmd/registry --addr=:8080 --postgres-host=localhost
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TianCal/secure-aggregation-tutorial/api/httpserver"
	"github.com/TianCal/secure-aggregation-tutorial/cmd/common"
	"github.com/TianCal/secure-aggregation-tutorial/services"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file")
		addr        = flag.String("addr", ":8080", "HTTP listen address")
		metricsAddr = flag.String("metrics-addr", "", "Metrics sidecar address")
		pprof       = flag.Bool("pprof", false, "Enable the pprof API")
		logJSON     = flag.Bool("log-json", false, "Log in JSON format")

		pgHost     = flag.String("postgres-host", "", "Postgres host (empty for in-memory roster)")
		pgPort     = flag.Int("postgres-port", 5432, "Postgres port")
		pgUser     = flag.String("postgres-user", "registry", "Postgres user")
		pgPassword = flag.String("postgres-password", "", "Postgres password")
		pgDatabase = flag.String("postgres-db", "registry", "Postgres database name")
	)
	flag.Parse()

	isFlagSet := func(name string) bool {
		found := false
		flag.Visit(func(f *flag.Flag) {
			if f.Name == name {
				found = true
			}
		})
		return found
	}

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if isFlagSet("addr") || cfg.HTTPAddr == "" {
		cfg.HTTPAddr = *addr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *pprof {
		cfg.EnablePprof = true
	}
	if *logJSON {
		cfg.LogJSON = true
	}
	if *pgHost != "" {
		cfg.Registry.Postgres = services.PostgresConfig{
			Host:     *pgHost,
			Port:     *pgPort,
			User:     *pgUser,
			Password: *pgPassword,
			Database: *pgDatabase,
		}
	}

	if err := run(cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfiguration(configPath string) (*common.Config, error) {
	if configPath != "" {
		return common.LoadConfig(configPath)
	}
	return common.DefaultConfig(), nil
}

func run(cfg *common.Config) error {
	log := common.NewLogger(cfg.LogJSON).With("service", "registry")

	store, err := cfg.NewRosterStore()
	if err != nil {
		return fmt.Errorf("create roster store: %w", err)
	}
	defer store.Close()

	registry := services.NewRegistry(store, log)

	srv, err := httpserver.New(&httpserver.Config{
		ListenAddr:               cfg.HTTPAddr,
		MetricsAddr:              cfg.MetricsAddr,
		EnablePprof:              cfg.EnablePprof,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              30 * time.Second,
		WriteTimeout:             30 * time.Second,
	}, registry)
	if err != nil {
		return err
	}

	srv.RunInBackground()
	log.Info("Registry ready", "listenAddr", cfg.HTTPAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	srv.Shutdown()
	return nil
}
