// Command holder runs a standalone value holder service.
//
// A holder owns one private 32-bit value and participates in the
// pairwise masking protocol: it receives a peer list from the
// coordinator, exchanges masks with every peer, and reveals only its
// masked value.
//
// # Configuration File
//
// Create a YAML file with holder settings:
//
//	http_addr: ":3001"
//	registry_url: "http://localhost:8080"
//	holder:
//	  value: 7          # Draws from protocol.value_min..value_max if omitted
//	protocol:
//	  value_min: 5
//	  value_max: 12
//	  request_timeout: 10s
//
// # Usage
//
//	go run ./cmd/holder --config=holder.yaml
//	go run ./cmd/holder --addr=:3001 --registry=http://localhost:8080
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TianCal/secure-aggregation-tutorial/api/httpserver"
	"github.com/TianCal/secure-aggregation-tutorial/cmd/common"
	"github.com/TianCal/secure-aggregation-tutorial/protocol"
	"github.com/TianCal/secure-aggregation-tutorial/services"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file")
		addr        = flag.String("addr", ":3001", "HTTP listen address")
		publicURL   = flag.String("public-url", "", "Endpoint other participants reach this holder at (defaults to http://<addr>)")
		registryURL = flag.String("registry", "", "Registry URL for holder discovery")
		metricsAddr = flag.String("metrics-addr", "", "Metrics sidecar address")
		valueFlag   = flag.Uint("value", 0, "Private value (draws randomly if not set)")
		pprof       = flag.Bool("pprof", false, "Enable the pprof API")
		logJSON     = flag.Bool("log-json", false, "Log in JSON format")
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
	if *publicURL != "" {
		cfg.PublicURL = *publicURL
	}
	if *registryURL != "" {
		cfg.RegistryURL = *registryURL
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if isFlagSet("value") {
		v := uint32(*valueFlag)
		cfg.Holder.Value = &v
	}
	if *pprof {
		cfg.EnablePprof = true
	}
	if *logJSON {
		cfg.LogJSON = true
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
	log := common.NewLogger(cfg.LogJSON).With("service", "holder")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serviceConfig, err := cfg.ServiceConfig()
	if err != nil {
		return err
	}

	value, err := cfg.HolderValue()
	if err != nil {
		return fmt.Errorf("resolve holder value: %w", err)
	}

	holder := protocol.NewHolder(serviceConfig.Endpoint(), value)
	httpHolder, err := services.NewHTTPHolder(serviceConfig, holder, log)
	if err != nil {
		return err
	}

	log.Info("Holder created", "endpoint", serviceConfig.Endpoint(), "value", value)

	srv, err := httpserver.New(&httpserver.Config{
		ListenAddr:               cfg.HTTPAddr,
		MetricsAddr:              cfg.MetricsAddr,
		EnablePprof:              cfg.EnablePprof,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              30 * time.Second,
		WriteTimeout:             5 * time.Minute,
	}, httpHolder)
	if err != nil {
		return err
	}

	srv.RunInBackground()

	if err := httpHolder.Start(ctx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	srv.Shutdown()
	return nil
}
