/*
Package services provides the HTTP realization of the pairwise-masking
aggregation protocol.

# Components

1. HTTPHolder (http_holder.go)
  - Wraps protocol.Holder
  - Endpoints:
  - PUT /interact - receive the peer list and run the masking phase
  - POST /maskbyadding - receive a peer's mask and add it
  - GET /sharevalue - reveal the current masked value

2. HTTPCoordinator (http_coordinator.go)
  - Wraps protocol.Coordinator
  - Endpoints:
  - PUT /initialize - register the roster and drive the masking phase
  - GET /aggregate - collect and sum all masked values

3. Registry (registry.go)
  - Central holder discovery, backed by a RosterStore (roster_store.go)
  - Endpoints:
  - POST /register - holder self-registration
  - POST /unregister - remove a holder
  - GET /holders - ordered list of registered holder endpoints

# Orchestrator

The Orchestrator (orchestrator.go) deploys an in-process mesh of N
holders plus one coordinator on sequential local ports, runs a full
protocol round and reports the aggregate. Used by the demo binary and
the end-to-end tests.

# Wire notes

All payloads are JSON. Malformed payloads are rejected with 400 before
any state mutation. An uninitialized roster answers /aggregate with 409.
Unreachable peers surface as 502 from the enclosing operation; the run
is then failed, per the protocol's no-dropout-tolerance stance.
*/
package services
