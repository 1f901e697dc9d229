// Package types defines the table registry, the Backend, Reader and Writer
// interfaces, row and bundle types, and the standard errors for the Cella
// data layer.
package types
