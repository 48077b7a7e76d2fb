// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/ssargent/avroview/pkg/container"
)

// Decoder turns the bytes of a container file into decoded records
type Decoder interface {
	// Decode reads the whole file. Failures carry an avroerr kind.
	Decode(ctx context.Context, data []byte) (*container.File, error)
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer runs the API server until ctx is canceled
	StartServer(ctx context.Context, config ServerConfig) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}

// UploadHandler runs the upload operation outside of HTTP
type UploadHandler interface {
	HandleUpload(ctx context.Context, upload *Upload) (interface{}, int)
}

// UploadHandlerFactory creates upload handlers
type UploadHandlerFactory interface {
	CreateUploadHandler(config ServerConfig) UploadHandler
}
