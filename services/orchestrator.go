package services

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/TianCal/secure-aggregation-tutorial/protocol"
	"github.com/go-chi/chi/v5"
)

// OrchestratorConfig contains in-process deployment configuration.
type OrchestratorConfig struct {
	NumHolders int
	BasePort   int // Holders listen on BasePort..BasePort+N-1, the coordinator on BasePort+N.

	// Values fixes every holder's private value. When nil, values are
	// drawn uniformly from the aggregation config's range.
	Values []protocol.Value

	// MaskSeed switches holders to deterministic HKDF mask streams for
	// reproducible runs. Nil keeps crypto/rand masks.
	MaskSeed []byte

	AggregationConfig *protocol.AggregationConfig
	Log               *slog.Logger
}

// Orchestrator deploys a full in-process mesh: N holder services plus
// one coordinator on sequential local ports. Used by the demo binary
// and end-to-end tests.
type Orchestrator struct {
	config *OrchestratorConfig
	log    *slog.Logger

	holders     []*DeployedService
	coordinator *DeployedService

	ctx    context.Context
	cancel context.CancelFunc
}

// DeployedService is one running service instance.
type DeployedService struct {
	Endpoint   string
	HTTPServer *http.Server

	Holder      *HTTPHolder
	Coordinator *HTTPCoordinator
}

// NewOrchestrator creates a deployment orchestrator.
func NewOrchestrator(config *OrchestratorConfig) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())

	if config.AggregationConfig == nil {
		config.AggregationConfig = protocol.DefaultAggregationConfig()
	}
	log := config.Log
	if log == nil {
		log = slog.Default()
	}

	return &Orchestrator{
		config: config,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Deploy starts all holder services and the coordinator.
func (o *Orchestrator) Deploy() error {
	for i := 0; i < o.config.NumHolders; i++ {
		svc, err := o.deployHolder(i, o.config.BasePort+i)
		if err != nil {
			return fmt.Errorf("deploy holder %d: %w", i, err)
		}
		o.holders = append(o.holders, svc)
	}

	svc, err := o.deployCoordinator(o.config.BasePort + o.config.NumHolders)
	if err != nil {
		return fmt.Errorf("deploy coordinator: %w", err)
	}
	o.coordinator = svc

	o.log.Info("Deployment complete", "holders", len(o.holders), "coordinator", o.coordinator.Endpoint)
	return nil
}

func (o *Orchestrator) deployHolder(index, port int) (*DeployedService, error) {
	addr := fmt.Sprintf("localhost:%d", port)
	config := &ServiceConfig{
		AggregationConfig: o.config.AggregationConfig,
		HTTPAddr:          addr,
	}

	value, err := o.holderValue(index)
	if err != nil {
		return nil, err
	}

	holder := protocol.NewHolder(config.Endpoint(), value)
	if o.config.MaskSeed != nil {
		seed := binary.BigEndian.AppendUint32(append([]byte(nil), o.config.MaskSeed...), uint32(index))
		holder.SetMaskSource(protocol.NewHKDFSource(seed))
	}

	httpHolder, err := NewHTTPHolder(config, holder, o.log.With("service", fmt.Sprintf("holder-%d", index)))
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	httpHolder.RegisterRoutes(r)

	svc := &DeployedService{
		Endpoint: config.Endpoint(),
		Holder:   httpHolder,
	}
	o.startServer(svc, addr, r)

	o.log.Info("Started holder", "endpoint", svc.Endpoint, "value", value)
	return svc, nil
}

func (o *Orchestrator) deployCoordinator(port int) (*DeployedService, error) {
	addr := fmt.Sprintf("localhost:%d", port)
	config := &ServiceConfig{
		AggregationConfig: o.config.AggregationConfig,
		HTTPAddr:          addr,
	}

	coord := NewHTTPCoordinator(config, o.log.With("service", "coordinator"))

	r := chi.NewRouter()
	coord.RegisterRoutes(r)

	svc := &DeployedService{
		Endpoint:    config.Endpoint(),
		Coordinator: coord,
	}
	o.startServer(svc, addr, r)

	o.log.Info("Started coordinator", "endpoint", svc.Endpoint)
	return svc, nil
}

func (o *Orchestrator) holderValue(index int) (protocol.Value, error) {
	if o.config.Values != nil {
		if index >= len(o.config.Values) {
			return 0, fmt.Errorf("no value configured for holder %d", index)
		}
		return o.config.Values[index], nil
	}
	return protocol.RandomValueIn(o.config.AggregationConfig.ValueMin, o.config.AggregationConfig.ValueMax)
}

func (o *Orchestrator) startServer(svc *DeployedService, addr string, handler http.Handler) {
	svc.HTTPServer = &http.Server{Addr: addr, Handler: handler}
	go func() {
		if err := svc.HTTPServer.ListenAndServe(); err != http.ErrServerClosed {
			o.log.Error("Service failed", "endpoint", svc.Endpoint, "err", err)
		}
	}()

	// Give the listener a moment to bind before peers dial in.
	time.Sleep(50 * time.Millisecond)
}

// Roster returns the deployed holders' endpoints in deployment order.
func (o *Orchestrator) Roster() []string {
	roster := make([]string, len(o.holders))
	for i, h := range o.holders {
		roster[i] = h.Endpoint
	}
	return roster
}

// CoordinatorEndpoint returns the deployed coordinator's endpoint.
func (o *Orchestrator) CoordinatorEndpoint() string {
	return o.coordinator.Endpoint
}

// RunRound drives one complete protocol round over the wire: roster
// initialization followed by aggregation. Returns the aggregate.
func (o *Orchestrator) RunRound(ctx context.Context) (protocol.Value, error) {
	coord := o.coordinator.Coordinator

	if err := coord.coord.Initialize(ctx, o.Roster(), coord); err != nil {
		return 0, fmt.Errorf("initialize: %w", err)
	}

	sum, err := coord.coord.Aggregate(ctx, coord)
	if err != nil {
		return 0, fmt.Errorf("aggregate: %w", err)
	}
	return sum, nil
}

// NaiveSum returns the wraparound sum of the holders' original values,
// computed locally for comparison against the protocol's aggregate.
func (o *Orchestrator) NaiveSum() protocol.Value {
	var sum protocol.Value
	for _, h := range o.holders {
		sum += h.Holder.Holder().OriginalValue()
	}
	return sum
}

// Shutdown stops all deployed services.
func (o *Orchestrator) Shutdown() error {
	o.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	services := append([]*DeployedService{}, o.holders...)
	if o.coordinator != nil {
		services = append(services, o.coordinator)
	}
	for _, svc := range services {
		if err := svc.HTTPServer.Shutdown(ctx); err != nil {
			o.log.Error("Shutdown failed", "endpoint", svc.Endpoint, "err", err)
		}
	}
	return nil
}
