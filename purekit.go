// Package purekit turns Pure research information exports into flat tables.
package purekit

const AppName = "purekit"

// Version of the purekit tools.
var Version = "0.3.1"
