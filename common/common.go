// Package common holds identifiers shared across binaries.
package common

// PackageName is used as the metrics namespace and in log output.
const PackageName = "secure-aggregation"

// Version is set at build time via -ldflags.
var Version = "dev"
