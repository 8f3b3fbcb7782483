// Command coordinator runs the aggregating coordinator service.
//
// The coordinator is told the roster of holder endpoints, instructs each
// holder to run its masking interaction against the others, and later
// collects and sums the masked values. It learns only the aggregate.
//
// # Configuration File
//
//	http_addr: ":3999"
//	registry_url: "http://localhost:8080"
//	protocol:
//	  request_timeout: 10s
//
// # Usage
//
//	go run ./cmd/coordinator --config=coordinator.yaml
//	go run ./cmd/coordinator --addr=:3999 --registry=http://localhost:8080
//
// Initialize with an explicit roster, or with an empty peer list to pull
// the roster from the registry:
//
//	curl -X PUT http://localhost:3999/initialize \
//	  -d '{"peer_endpoints":["http://localhost:3001","http://localhost:3002"],"num_collaborators":2}'
//	curl http://localhost:3999/aggregate
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
		addr        = flag.String("addr", ":3999", "HTTP listen address")
		registryURL = flag.String("registry", "", "Registry URL for roster discovery")
		metricsAddr = flag.String("metrics-addr", "", "Metrics sidecar address")
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
	if *registryURL != "" {
		cfg.RegistryURL = *registryURL
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
	log := common.NewLogger(cfg.LogJSON).With("service", "coordinator")

	serviceConfig, err := cfg.ServiceConfig()
	if err != nil {
		return err
	}

	coord := services.NewHTTPCoordinator(serviceConfig, log)

	// /initialize fans out to the whole roster before answering, so the
	// write timeout must cover a full masking phase.
	srv, err := httpserver.New(&httpserver.Config{
		ListenAddr:               cfg.HTTPAddr,
		MetricsAddr:              cfg.MetricsAddr,
		EnablePprof:              cfg.EnablePprof,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              30 * time.Second,
		WriteTimeout:             10 * time.Minute,
	}, coord)
	if err != nil {
		return err
	}

	srv.RunInBackground()
	log.Info("Coordinator ready", "endpoint", serviceConfig.Endpoint())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	srv.Shutdown()
	return nil
}
