// Package cmd contains the standalone service binaries.
//
// # Binaries
//
//   - holder: one value holder service
//   - coordinator: the aggregating coordinator service
//   - registry: central holder discovery
//   - demo-cli: in-process deployment running one full round
//
// # Typical deployment
//
//	go run ./cmd/registry --addr=:8080
//	go run ./cmd/holder --addr=:3001 --registry=http://localhost:8080
//	go run ./cmd/holder --addr=:3002 --registry=http://localhost:8080
//	go run ./cmd/holder --addr=:3003 --registry=http://localhost:8080
//	go run ./cmd/coordinator --addr=:3999 --registry=http://localhost:8080
//
//	curl -X PUT http://localhost:3999/initialize -d '{"peer_endpoints":[],"num_collaborators":0}'
//	curl http://localhost:3999/aggregate
package cmd
