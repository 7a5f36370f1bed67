package net

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrDriverNotFound is fatal at startup: the configured transport driver
// name resolves to nothing, the moral equivalent of a failed plugin load.
var ErrDriverNotFound = errors.New("net: transport driver not found")

// Driver builds a transport server. The original engine loaded these from
// shared libraries at runtime; here they are compiled in and selected by name.
type Driver func(opts Options, log *zap.Logger) (*Server, error)

var drivers = map[string]Driver{}

// DefaultDriver is used when configuration names no driver.
const DefaultDriver = "tcpudp"

// RegisterDriver adds a named driver. Later registrations win, which lets
// tests shadow the default.
func RegisterDriver(name string, d Driver) {
	drivers[name] = d
}

// OpenDriver resolves a driver by name and builds the server.
func OpenDriver(name string, opts Options, log *zap.Logger) (*Server, error) {
	if name == "" {
		name = DefaultDriver
	}
	d, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDriverNotFound, name)
	}
	return d(opts, log)
}

func init() {
	RegisterDriver(DefaultDriver, NewServer)
}
