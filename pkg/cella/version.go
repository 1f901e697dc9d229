// Package cella holds build metadata for the Cella data layer.
package cella

// Version is the release version reported by the CLI.
const Version = "0.3.0"
