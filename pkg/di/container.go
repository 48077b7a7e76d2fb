// Package di provides dependency injection container
package di

import (
	"context"
	"sync"

	"github.com/ssargent/avroview/pkg/api"     //nolint:depguard
	"github.com/ssargent/avroview/pkg/config"  //nolint:depguard
	"github.com/ssargent/avroview/pkg/storage" //nolint:depguard
)

// StorageFactory creates the object storage used by `inspect`
type StorageFactory interface {
	CreateStorage(cfg *config.Config) storage.ObjectStorage
}

// DefaultStorageFactory builds local plus S3 storage. The S3 client is
// created on first use so local reads never touch AWS configuration.
type DefaultStorageFactory struct{}

// NewStorageFactory creates a new storage factory
func NewStorageFactory() StorageFactory {
	return &DefaultStorageFactory{}
}

// CreateStorage implements StorageFactory
func (f *DefaultStorageFactory) CreateStorage(cfg *config.Config) storage.ObjectStorage {
	s3cfg := storage.S3Config{
		Region:       cfg.Storage.S3.Region,
		Endpoint:     cfg.Storage.S3.Endpoint,
		UsePathStyle: cfg.Storage.S3.UsePathStyle,
		MaxRetries:   cfg.Storage.S3.MaxRetries,
		MaxBytes:     cfg.Upload.MaxBytes,
	}

	var (
		once   sync.Once
		client *storage.S3Storage
		err    error
	)
	lazyS3 := storage.ObjectStorageFunc(func(ctx context.Context, location string) (*storage.Object, error) {
		once.Do(func() {
			client, err = storage.NewS3Storage(ctx, s3cfg)
		})
		if err != nil {
			return nil, err
		}
		return client.Fetch(ctx, location)
	})

	return storage.NewDefaultStorage(lazyS3, cfg.Upload.MaxBytes)
}

// Container holds all the dependencies for the application
type Container struct {
	serverFactory        api.ServerFactory
	uploadHandlerFactory api.UploadHandlerFactory
	storageFactory       StorageFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		serverFactory:        api.NewServerFactory(),
		uploadHandlerFactory: api.NewUploadHandlerFactory(),
		storageFactory:       NewStorageFactory(),
	}
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// GetUploadHandlerFactory returns the upload handler factory
func (c *Container) GetUploadHandlerFactory() api.UploadHandlerFactory {
	return c.uploadHandlerFactory
}

// GetStorageFactory returns the storage factory
func (c *Container) GetStorageFactory() StorageFactory {
	return c.storageFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// SetUploadHandlerFactory allows overriding the upload handler factory (for testing)
func (c *Container) SetUploadHandlerFactory(factory api.UploadHandlerFactory) {
	c.uploadHandlerFactory = factory
}

// SetStorageFactory allows overriding the storage factory (for testing)
func (c *Container) SetStorageFactory(factory StorageFactory) {
	c.storageFactory = factory
}
