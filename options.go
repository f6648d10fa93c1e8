package ceed

import (
	"log/slog"

	"github.com/gogpu/gpucontext"
)

// Option configures a Ceed during Init.
// Use functional options to customize Ceed behavior.
//
// Example:
//
//	// Default: process-wide registry, package logger, errors returned
//	c, err := ceed.Init("/cpu/self")
//
//	// Shared GPU device and a dedicated logger
//	c, err := ceed.Init("/gpu/wgpu",
//	    ceed.WithDeviceProvider(provider),
//	    ceed.WithLogger(logger))
type Option func(*options)

// options holds optional configuration for Ceed creation.
type options struct {
	registry       *Registry
	logger         *slog.Logger
	handler        ErrorHandler
	deviceProvider gpucontext.DeviceProvider
}

// defaultOptions returns the default Ceed options.
func defaultOptions() options {
	return options{
		registry: nil, // process-wide registry
		logger:   nil, // package logger at Init time
		handler:  ErrorReturn,
	}
}

// WithRegistry resolves the resource against r instead of the process-wide
// registry. Tests use this to work with a controlled backend set.
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithLogger gives the Ceed its own logger. Without it the Ceed uses
// Logger() as it was at Init time.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithErrorHandler sets what a failing call does after its error has been
// recorded. The default is ErrorReturn.
//
// Example:
//
//	c, _ := ceed.Init("/cpu/self/ref", ceed.WithErrorHandler(ceed.ErrorPanic))
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) {
		if h != nil {
			o.handler = h
		}
	}
}

// WithDeviceProvider shares an existing GPU device with the backend.
// Backends that have no use for a device ignore it. The provider keeps
// ownership of the device: destroying the Ceed does not destroy it.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.deviceProvider = p
	}
}
