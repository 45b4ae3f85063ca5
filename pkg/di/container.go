// Package di provides dependency injection container
package di

import (
	"io"

	"github.com/ssargent/pchunk/pkg/api"     //nolint:depguard
	"github.com/ssargent/pchunk/pkg/archive" //nolint:depguard
)

// ImageArchive is an image store that must be closed after use
type ImageArchive interface {
	api.ImageStore
	io.Closer
}

// ArchiveOpener opens the image archive rooted at dir
type ArchiveOpener func(dir string) (ImageArchive, error)

// OpenArchive opens the pebble backed archive
func OpenArchive(dir string) (ImageArchive, error) {
	a, err := archive.Open(dir)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Container holds all the dependencies for the application
type Container struct {
	archiveOpener ArchiveOpener
	serverFactory api.ServerFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		archiveOpener: OpenArchive,
		serverFactory: api.NewServerFactory(),
	}
}

// GetArchiveOpener returns the archive opener
func (c *Container) GetArchiveOpener() ArchiveOpener {
	return c.archiveOpener
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetArchiveOpener allows overriding the archive opener (for testing)
func (c *Container) SetArchiveOpener(opener ArchiveOpener) {
	c.archiveOpener = opener
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}
