package api

import (
	"github.com/segmentio/ksuid"
	"github.com/ssargent/pchunk/pkg/codec"
	"github.com/ssargent/pchunk/pkg/container"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// InspectResponse is the chunk report for one container
type InspectResponse struct {
	ID      string            `json:"id,omitempty"`
	Summary container.Summary `json:"summary"`
	Chunks  []container.Row   `json:"chunks"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port           int
	Bind           string
	APIKey         string
	MaxUploadBytes int64          // request body limit for uploads
	Mode           container.Mode // default decode mode, overridable per request
}

// ImageStore defines the archive operations the server needs
type ImageStore interface {
	Put(data []byte, types ...codec.Tag) (ksuid.KSUID, error)
	Get(id ksuid.KSUID) ([]byte, error)
	Delete(id ksuid.KSUID) error
	List() ([]ksuid.KSUID, error)
	ListByType(tag codec.Tag) ([]ksuid.KSUID, error)
}
