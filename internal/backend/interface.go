package backend

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"ganhos/internal/remote"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend remote.Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// HTTP specific
	APIURL     string
	APITimeout time.Duration
	Tokens     oauth2.TokenSource

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	HTTPBackend   BackendType = "http"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case HTTPBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// TokenSourceFunc adapts a function to oauth2.TokenSource. It lets the HTTP
// backend read tokens from a session manager that is built after it.
type TokenSourceFunc func() (*oauth2.Token, error)

func (f TokenSourceFunc) Token() (*oauth2.Token, error) { return f() }
