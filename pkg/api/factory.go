// Package api provides factory implementations for dependency injection
package api

import (
	"context"
)

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct{}

// NewServerFactory creates a new server factory
func NewServerFactory() ServerFactory {
	return &DefaultServerFactory{}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{}
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct{}

// StartServer starts the API server with the given configuration
func (s *DefaultServerStarter) StartServer(ctx context.Context, config ServerConfig) error {
	return StartServer(ctx, config)
}

// DefaultUploadHandlerFactory builds upload services without metrics
type DefaultUploadHandlerFactory struct{}

// NewUploadHandlerFactory creates a new upload handler factory
func NewUploadHandlerFactory() UploadHandlerFactory {
	return &DefaultUploadHandlerFactory{}
}

// CreateUploadHandler creates an upload service decoding with the container reader
func (f *DefaultUploadHandlerFactory) CreateUploadHandler(config ServerConfig) UploadHandler {
	return NewUploadService(config, NewDecoder(config.Decoder), nil)
}
